package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BaSui01/hedgeflow/llm"
	"github.com/BaSui01/hedgeflow/types"
)

// mockMember implements TeamAgent with a scripted reply.
type mockMember struct {
	name  string
	reply string
	err   error
}

func (m *mockMember) Name() string        { return m.name }
func (m *mockMember) Description() string { return m.name }

func (m *mockMember) Respond(ctx context.Context, prompt, userID, sessionID string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

func (m *mockMember) Invoke(ctx context.Context, prompt, userID, sessionID string, prior []types.Message) (*types.AgentResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return types.NewPlainResponse(m.reply), nil
}

func TestPanel_BroadcastRound(t *testing.T) {
	t.Run("collects all responses", func(t *testing.T) {
		p := NewPanel(&mockMember{name: "HedgeFundManager"}, []TeamAgent{
			&mockMember{name: "BitcoinAnalyst", reply: "看多"},
			&mockMember{name: "DJ30Analyst", reply: "中性"},
			&mockMember{name: "FXAnalyst", reply: "看空美元"},
		}, zap.NewNop())

		responses, err := p.BroadcastRound(context.Background(), "第一轮提示", "u1", "s1")
		require.NoError(t, err)
		assert.Equal(t, map[string]string{
			"BitcoinAnalyst": "看多",
			"DJ30Analyst":    "中性",
			"FXAnalyst":      "看空美元",
		}, responses)
	})

	t.Run("partial failure is tolerated", func(t *testing.T) {
		p := NewPanel(&mockMember{name: "HedgeFundManager"}, []TeamAgent{
			&mockMember{name: "BitcoinAnalyst", reply: "看多"},
			&mockMember{name: "DJ30Analyst", err: errors.New("provider down")},
		}, zap.NewNop())

		responses, err := p.BroadcastRound(context.Background(), "提示", "u1", "s1")
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"BitcoinAnalyst": "看多"}, responses)
	})

	t.Run("all members failing is an error", func(t *testing.T) {
		p := NewPanel(&mockMember{name: "HedgeFundManager"}, []TeamAgent{
			&mockMember{name: "BitcoinAnalyst", err: errors.New("down")},
			&mockMember{name: "DJ30Analyst", err: errors.New("down")},
		}, zap.NewNop())

		_, err := p.BroadcastRound(context.Background(), "提示", "u1", "s1")
		require.Error(t, err)
		assert.Equal(t, types.ErrModelInvocation, types.GetErrorCode(err))
	})

	t.Run("empty team yields empty responses", func(t *testing.T) {
		p := NewPanel(&mockMember{name: "HedgeFundManager"}, nil, zap.NewNop())

		responses, err := p.BroadcastRound(context.Background(), "提示", "u1", "s1")
		require.NoError(t, err)
		assert.Empty(t, responses)
	})
}

func TestDefaultPanel(t *testing.T) {
	p := DefaultPanel(&llm.StaticProvider{Reply: "收到"}, PanelConfig{
		Model: "claude-3-sonnet",
	}, nil, zap.NewNop())

	assert.Equal(t, "HedgeFundManager", p.Lead().Name())

	names := make([]string, 0, len(p.Team()))
	for _, member := range p.Team() {
		names = append(names, member.Name())
	}
	assert.ElementsMatch(t, []string{"BitcoinAnalyst", "DJ30Analyst", "FXAnalyst"}, names)

	responses, err := p.BroadcastRound(context.Background(), "提示", "u1", "s1")
	require.NoError(t, err)
	assert.Len(t, responses, 3)
}
