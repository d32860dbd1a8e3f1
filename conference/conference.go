package conference

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/BaSui01/hedgeflow/agent"
	"github.com/BaSui01/hedgeflow/internal/metrics"
	"github.com/BaSui01/hedgeflow/types"
)

// DefaultMaxRounds 默认最大讨论轮数
const DefaultMaxRounds = 3

// Config 单场会议配置
type Config struct {
	Type      Type
	Mode      Mode
	MaxRounds int
}

// Conference 一场多轮会议的状态机。
// 三个状态转移操作（Start/AdvanceRound/Conclude）在同一把互斥锁内执行，
// 自动驱动循环与外部手动调用因此串行化，不会出现轮次序号重复或跳号。
type Conference struct {
	id        string
	ctype     Type
	mode      Mode
	maxRounds int

	lead    agent.LeadAgent
	catalog Catalog
	metrics *metrics.Collector
	logger  *zap.Logger
	tracer  trace.Tracer

	mu           sync.Mutex
	started      bool
	completed    bool
	currentRound int
	history      []RoundState
	owner        Session
	summary      string
	summarySet   bool

	driver       *Driver
	driverParent context.Context
	driverCancel context.CancelFunc
}

// New 创建一场会议。MaxRounds 非正时取 DefaultMaxRounds。
func New(cfg Config, lead agent.LeadAgent, catalog Catalog, collector *metrics.Collector, logger *zap.Logger) *Conference {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxRounds := cfg.MaxRounds
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}
	mode := cfg.Mode
	if mode == "" {
		mode = ModeManual
	}

	id := newConferenceID(cfg.Type)
	return &Conference{
		id:        id,
		ctype:     cfg.Type,
		mode:      mode,
		maxRounds: maxRounds,
		lead:      lead,
		catalog:   catalog,
		metrics:   collector,
		logger: logger.With(
			zap.String("component", "conference"),
			zap.String("conference_id", id),
		),
		tracer: otel.Tracer("github.com/BaSui01/hedgeflow/conference"),
	}
}

// newConferenceID 生成会议标识。保留 {type}_{时间戳} 前缀，
// 追加 uuid 片段以避免同一秒内并发创建时的标识冲突。
func newConferenceID(t Type) string {
	return fmt.Sprintf("%s_%s_%s", t, time.Now().Format("20060102150405"), uuid.NewString()[:8])
}

// attachDriver 绑定自动驱动循环，必须在 Start 之前调用。
// parent 控制驱动循环的生命周期，registry 关闭时统一取消。
func (c *Conference) attachDriver(d *Driver, parent context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.driver = d
	c.driverParent = parent
}

// Start 启动会议：取出会议类型的基础提示，附加第 1 轮框架后话，
// 写入首轮记录并绑定归属会话。自动模式下同时调度驱动循环（不阻塞调用方）。
// 重复调用返回 INVALID_STATE。
func (c *Conference) Start(ctx context.Context, owner Session) (string, error) {
	_, span := c.tracer.Start(ctx, "conference.start", trace.WithAttributes(
		attribute.String("conference.id", c.id),
		attribute.String("conference.type", string(c.ctype)),
		attribute.String("conference.mode", string(c.mode)),
	))
	defer span.End()

	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return "", types.NewError(types.ErrInvalidState, "conference already started")
	}
	c.started = true
	c.currentRound = 1
	c.owner = owner
	prompt := firstRoundPrompt(c.catalog.Prompt(c.ctype))
	c.history = append(c.history, NewRoundState(1, prompt))

	var driver *Driver
	if c.mode == ModeAutomatic && c.driver != nil {
		parent := c.driverParent
		if parent == nil {
			parent = context.Background()
		}
		dctx, cancel := context.WithCancel(parent)
		c.driverCancel = cancel
		driver = c.driver
		defer func() { go driver.Run(dctx) }()
	}
	c.mu.Unlock()

	c.metrics.ConferenceStarted(string(c.ctype), string(c.mode))
	c.logger.Info("conference started",
		zap.String("type", string(c.ctype)),
		zap.String("mode", string(c.mode)),
		zap.Int("max_rounds", c.maxRounds),
	)

	return fmt.Sprintf("已启动%s，第1轮讨论已开始。", c.ctype.DisplayName()), nil
}

// AdvanceRound 推进到下一轮。返回值表示是否已是最后一轮：
// 当新轮次到达 maxRounds 时，本次调用在发出最后一轮提示后立即在同一临界区内
// 触发总结并返回 true，总结文本通过 Summary 读取。
func (c *Conference) AdvanceRound(ctx context.Context) (bool, error) {
	ctx, span := c.tracer.Start(ctx, "conference.advance_round", trace.WithAttributes(
		attribute.String("conference.id", c.id),
	))
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return false, types.NewError(types.ErrInvalidState, "conference not started")
	}
	if c.completed {
		return false, types.NewError(types.ErrInvalidState, "conference already completed")
	}
	if c.currentRound >= c.maxRounds {
		return false, types.NewError(types.ErrInvalidState, "max rounds reached")
	}

	prev := c.history[len(c.history)-1]
	c.currentRound++
	prompt := roundPrompt(c.catalog.Prompt(c.ctype), c.currentRound, c.maxRounds, &prev)
	c.history = append(c.history, NewRoundState(c.currentRound, prompt))
	span.SetAttributes(attribute.Int("conference.round", c.currentRound))

	c.metrics.RoundAdvanced(string(c.ctype))
	c.logger.Info("round advanced",
		zap.Int("round", c.currentRound),
		zap.Int("max_rounds", c.maxRounds),
	)

	if c.currentRound == c.maxRounds {
		c.concludeLocked(ctx)
		return true, nil
	}
	return false, nil
}

// Conclude 总结并结束会议，任何未完成状态下都可调用。
// 模型调用失败时会议仍然标记完成，返回内嵌错误详情的固定失败文本；
// 已完成的会议再次调用返回 INVALID_STATE，不会发出第二次总结请求。
func (c *Conference) Conclude(ctx context.Context) (string, error) {
	ctx, span := c.tracer.Start(ctx, "conference.conclude", trace.WithAttributes(
		attribute.String("conference.id", c.id),
	))
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.completed {
		return "", types.NewError(types.ErrInvalidState, "conference already completed")
	}
	return c.concludeLocked(ctx), nil
}

// concludeLocked 在持锁状态下执行总结。调用方保证 completed 为 false。
func (c *Conference) concludeLocked(ctx context.Context) string {
	rounds := c.currentRound // 与历史中非总结条目数一致
	prompt := summaryPrompt(c.ctype.DisplayName(), rounds, c.catalog.ResultTemplate(c.ctype))

	resp, err := c.lead.Invoke(ctx, prompt, c.owner.UserID, c.owner.SessionID, nil)

	c.completed = true
	if c.driverCancel != nil {
		c.driverCancel()
	}

	if err != nil {
		text := fmt.Sprintf("会议总结生成失败: %v", err)
		c.summary, c.summarySet = text, true
		c.metrics.ConferenceConcluded(string(c.ctype), metrics.OutcomeModelError)
		c.logger.Warn("summary generation failed", zap.Int("rounds", rounds), zap.Error(err))
		return text
	}

	text, ok := resp.Text()
	outcome := metrics.OutcomeSuccess
	if !ok {
		text = "会议总结生成失败。"
		outcome = metrics.OutcomeExtractionError
	}
	c.history = append(c.history, NewSummaryRound(prompt, c.lead.Name(), text))
	c.summary, c.summarySet = text, true

	c.metrics.ConferenceConcluded(string(c.ctype), outcome)
	c.logger.Info("conference concluded",
		zap.Int("rounds", rounds),
		zap.String("outcome", outcome),
	)
	return text
}

// RecordResponses 将一批参与者响应合并进当前轮次。
// 响应收集属于请求层职责，核心只负责落账；已完成的会议拒绝写入。
func (c *Conference) RecordResponses(responses map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return types.NewError(types.ErrInvalidState, "conference not started")
	}
	if c.completed {
		return types.NewError(types.ErrInvalidState, "conference already completed")
	}

	current := &c.history[len(c.history)-1]
	for name, text := range responses {
		current.Responses[name] = text
	}
	return nil
}

// ID returns the conference identifier.
func (c *Conference) ID() string { return c.id }

// Type returns the conference type.
func (c *Conference) Type() Type { return c.ctype }

// Mode returns the advancement mode.
func (c *Conference) Mode() Mode { return c.mode }

// MaxRounds returns the round bound.
func (c *Conference) MaxRounds() int { return c.maxRounds }

// CurrentRound 当前轮次，0 表示尚未开始
func (c *Conference) CurrentRound() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentRound
}

// IsCompleted 会议是否已结束
func (c *Conference) IsCompleted() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completed
}

// Owner 返回归属会话
func (c *Conference) Owner() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.owner
}

// Summary 返回最近一次总结文本（含失败文本），未总结时 ok 为 false
func (c *Conference) Summary() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.summary, c.summarySet
}

// History 返回讨论历史的副本，响应表逐轮深拷贝
func (c *Conference) History() []RoundState {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]RoundState, len(c.history))
	for i, round := range c.history {
		copied := round
		copied.Responses = make(map[string]string, len(round.Responses))
		for k, v := range round.Responses {
			copied.Responses[k] = v
		}
		out[i] = copied
	}
	return out
}
