package conference

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/hedgeflow/types"
)

// mockLead implements agent.LeadAgent for testing. It answers evaluation
// prompts with the scripted verdict and every other prompt with the scripted
// summary text.
type mockLead struct {
	mu      sync.Mutex
	verdict string
	summary string
	err     error
	resp    *types.AgentResponse // overrides verdict/summary when set
	prompts []string
}

func (m *mockLead) Name() string { return "HedgeFundManager" }

func (m *mockLead) Invoke(ctx context.Context, prompt, userID, sessionID string, prior []types.Message) (*types.AgentResponse, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	if m.resp != nil {
		return m.resp, nil
	}
	if strings.Contains(prompt, "JSON格式") {
		return types.NewPlainResponse(m.verdict), nil
	}
	if m.summary == "" {
		return types.NewPlainResponse("会议总结：维持当前配置。"), nil
	}
	return types.NewPlainResponse(m.summary), nil
}

func (m *mockLead) promptCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

func (m *mockLead) lastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}

func newTestConference(lead *mockLead, mode Mode, maxRounds int) *Conference {
	return New(
		Config{Type: TypeBudgetAllocation, Mode: mode, MaxRounds: maxRounds},
		lead, NewBuiltinCatalog(), nil, zap.NewNop(),
	)
}

func testSession() Session {
	return Session{UserID: "user-1", SessionID: "session-1"}
}

func TestConference_Start(t *testing.T) {
	t.Run("first start issues round one", func(t *testing.T) {
		c := newTestConference(&mockLead{}, ModeManual, 3)

		intro, err := c.Start(context.Background(), testSession())
		require.NoError(t, err)
		assert.Contains(t, intro, "预算分配会议")

		assert.Equal(t, 1, c.CurrentRound())
		history := c.History()
		require.Len(t, history, 1)
		assert.Equal(t, 1, history[0].Number)
		assert.Contains(t, history[0].Prompt, "第1轮讨论")
		assert.NotEmpty(t, history[0].Prompt)
		assert.Empty(t, history[0].Responses)
		assert.Equal(t, testSession(), c.Owner())
	})

	t.Run("second start fails", func(t *testing.T) {
		c := newTestConference(&mockLead{}, ModeManual, 3)
		_, err := c.Start(context.Background(), testSession())
		require.NoError(t, err)

		_, err = c.Start(context.Background(), testSession())
		require.Error(t, err)
		assert.Equal(t, types.ErrInvalidState, types.GetErrorCode(err))
	})
}

func TestConference_AdvanceRound(t *testing.T) {
	t.Run("before start fails", func(t *testing.T) {
		c := newTestConference(&mockLead{}, ModeManual, 3)
		_, err := c.AdvanceRound(context.Background())
		require.Error(t, err)
		assert.Equal(t, types.ErrInvalidState, types.GetErrorCode(err))
	})

	t.Run("continuation prompt carries previous round highlights", func(t *testing.T) {
		c := newTestConference(&mockLead{}, ModeManual, 3)
		_, err := c.Start(context.Background(), testSession())
		require.NoError(t, err)

		long := strings.Repeat("涨", 400)
		require.NoError(t, c.RecordResponses(map[string]string{
			"BitcoinAnalyst": long,
			"FXAnalyst":      "美元走强",
		}))

		final, err := c.AdvanceRound(context.Background())
		require.NoError(t, err)
		assert.False(t, final)
		assert.Equal(t, 2, c.CurrentRound())

		history := c.History()
		require.Len(t, history, 2)
		prompt := history[1].Prompt
		assert.Contains(t, prompt, "第2轮讨论")
		assert.Contains(t, prompt, "深入思考")
		assert.Contains(t, prompt, "上一轮讨论要点")
		assert.Contains(t, prompt, "FXAnalyst: 美元走强")
		// 摘录按 300 字截断
		assert.Contains(t, prompt, strings.Repeat("涨", 300)+"…")
		assert.NotContains(t, prompt, strings.Repeat("涨", 301))
	})

	t.Run("reaching max rounds concludes in the same call", func(t *testing.T) {
		lead := &mockLead{summary: "最终总结：比特币40%，DJ30 35%，外汇25%。"}
		c := newTestConference(lead, ModeManual, 3)
		_, err := c.Start(context.Background(), testSession())
		require.NoError(t, err)

		final, err := c.AdvanceRound(context.Background())
		require.NoError(t, err)
		assert.False(t, final)

		final, err = c.AdvanceRound(context.Background())
		require.NoError(t, err)
		assert.True(t, final)

		assert.Equal(t, 3, c.CurrentRound())
		assert.True(t, c.IsCompleted())

		history := c.History()
		require.Len(t, history, 4) // 3 轮讨论 + 1 条总结
		assert.Contains(t, history[2].Prompt, "最后一轮")
		assert.Contains(t, history[2].Prompt, "最终观点")
		assert.True(t, history[3].Summary)
		assert.Equal(t, SummaryLabel, history[3].Label())
		assert.Equal(t, lead.summary, history[3].Responses["HedgeFundManager"])

		summary, ok := c.Summary()
		require.True(t, ok)
		assert.Equal(t, lead.summary, summary)

		// 总结提示报告的轮数与历史中的讨论轮数一致
		assert.Contains(t, lead.lastPrompt(), "进行了3轮讨论")
	})

	t.Run("no advancement after completion", func(t *testing.T) {
		c := newTestConference(&mockLead{}, ModeManual, 2)
		_, err := c.Start(context.Background(), testSession())
		require.NoError(t, err)

		final, err := c.AdvanceRound(context.Background())
		require.NoError(t, err)
		assert.True(t, final)
		assert.True(t, c.IsCompleted())

		_, err = c.AdvanceRound(context.Background())
		require.Error(t, err)
		assert.Equal(t, types.ErrInvalidState, types.GetErrorCode(err))
	})
}

func TestConference_Conclude(t *testing.T) {
	t.Run("explicit conclude appends summary", func(t *testing.T) {
		lead := &mockLead{summary: "总结：降低风险敞口。"}
		c := newTestConference(lead, ModeManual, 3)
		_, err := c.Start(context.Background(), testSession())
		require.NoError(t, err)

		summary, err := c.Conclude(context.Background())
		require.NoError(t, err)
		assert.Equal(t, lead.summary, summary)
		assert.True(t, c.IsCompleted())

		history := c.History()
		require.Len(t, history, 2)
		assert.True(t, history[1].Summary)
		assert.Contains(t, lead.lastPrompt(), "进行了1轮讨论")
		assert.Contains(t, lead.lastPrompt(), "预算分配会议")
	})

	t.Run("model failure still completes the conference", func(t *testing.T) {
		lead := &mockLead{err: errors.New("upstream unavailable")}
		c := newTestConference(lead, ModeManual, 3)
		_, err := c.Start(context.Background(), testSession())
		require.NoError(t, err)

		summary, err := c.Conclude(context.Background())
		require.NoError(t, err)
		assert.Contains(t, summary, "会议总结生成失败")
		assert.Contains(t, summary, "upstream unavailable")
		assert.True(t, c.IsCompleted())

		// 失败时不追加总结条目
		history := c.History()
		require.Len(t, history, 1)
		assert.False(t, history[0].Summary)
	})

	t.Run("extraction failure yields fixed failure text", func(t *testing.T) {
		lead := &mockLead{resp: types.NewMessageResponse(&types.ConversationMessage{})}
		c := newTestConference(lead, ModeManual, 3)
		_, err := c.Start(context.Background(), testSession())
		require.NoError(t, err)

		summary, err := c.Conclude(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "会议总结生成失败。", summary)
		assert.True(t, c.IsCompleted())
		require.Len(t, c.History(), 2)
	})

	t.Run("second conclude is rejected without a second summary request", func(t *testing.T) {
		lead := &mockLead{}
		c := newTestConference(lead, ModeManual, 3)
		_, err := c.Start(context.Background(), testSession())
		require.NoError(t, err)

		_, err = c.Conclude(context.Background())
		require.NoError(t, err)
		calls := lead.promptCount()

		_, err = c.Conclude(context.Background())
		require.Error(t, err)
		assert.Equal(t, types.ErrInvalidState, types.GetErrorCode(err))
		assert.Equal(t, calls, lead.promptCount())
	})

	t.Run("conclude before start reports zero rounds", func(t *testing.T) {
		lead := &mockLead{}
		c := newTestConference(lead, ModeManual, 3)

		summary, err := c.Conclude(context.Background())
		require.NoError(t, err)
		assert.NotEmpty(t, summary)
		assert.True(t, c.IsCompleted())
		assert.Contains(t, lead.lastPrompt(), "进行了0轮讨论")
	})
}

func TestConference_RecordResponses(t *testing.T) {
	t.Run("merges into current round", func(t *testing.T) {
		c := newTestConference(&mockLead{}, ModeManual, 3)
		_, err := c.Start(context.Background(), testSession())
		require.NoError(t, err)

		require.NoError(t, c.RecordResponses(map[string]string{"BitcoinAnalyst": "看多"}))
		require.NoError(t, c.RecordResponses(map[string]string{"DJ30Analyst": "中性"}))

		history := c.History()
		assert.Equal(t, map[string]string{
			"BitcoinAnalyst": "看多",
			"DJ30Analyst":    "中性",
		}, history[0].Responses)
	})

	t.Run("rejected before start and after completion", func(t *testing.T) {
		c := newTestConference(&mockLead{}, ModeManual, 3)
		err := c.RecordResponses(map[string]string{"BitcoinAnalyst": "看多"})
		assert.Equal(t, types.ErrInvalidState, types.GetErrorCode(err))

		_, err = c.Start(context.Background(), testSession())
		require.NoError(t, err)
		_, err = c.Conclude(context.Background())
		require.NoError(t, err)

		err = c.RecordResponses(map[string]string{"BitcoinAnalyst": "迟到的响应"})
		assert.Equal(t, types.ErrInvalidState, types.GetErrorCode(err))
	})
}

func TestConference_History_ReturnsCopy(t *testing.T) {
	c := newTestConference(&mockLead{}, ModeManual, 3)
	_, err := c.Start(context.Background(), testSession())
	require.NoError(t, err)
	require.NoError(t, c.RecordResponses(map[string]string{"BitcoinAnalyst": "看多"}))

	history := c.History()
	history[0].Responses["BitcoinAnalyst"] = "被篡改"
	history[0].Prompt = "被篡改"

	fresh := c.History()
	assert.Equal(t, "看多", fresh[0].Responses["BitcoinAnalyst"])
	assert.Contains(t, fresh[0].Prompt, "第1轮讨论")
}

func TestNewConferenceID(t *testing.T) {
	id1 := newConferenceID(TypeExtremeMarket)
	id2 := newConferenceID(TypeExtremeMarket)

	assert.True(t, strings.HasPrefix(id1, "extreme_market_"))
	assert.NotEqual(t, id1, id2, "ids created in the same second must differ")
}

func TestConference_ManualAndDriverInterleaving(t *testing.T) {
	// 并发推进同一场会议：转移操作串行化后轮次序号不会重复或跳号
	lead := &mockLead{}
	c := newTestConference(lead, ModeManual, 6)
	_, err := c.Start(context.Background(), testSession())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.AdvanceRound(context.Background())
		}()
	}
	wg.Wait()

	assert.True(t, c.IsCompleted())
	history := c.History()
	for i, round := range history {
		if round.Summary {
			assert.Equal(t, len(history)-1, i, "summary must be the terminal entry")
			continue
		}
		assert.Equal(t, i+1, round.Number)
	}
	assert.Equal(t, c.MaxRounds(), c.CurrentRound())
}
