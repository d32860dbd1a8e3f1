package agent

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/hedgeflow/internal/metrics"
	"github.com/BaSui01/hedgeflow/llm"
	"github.com/BaSui01/hedgeflow/types"
)

// Panel 智能体面板：一位主导智能体加若干团队成员。
// 对应对冲基金的组织结构：基金经理主持会议，分析师团队参与讨论。
type Panel struct {
	lead   LeadAgent
	team   []TeamAgent
	logger *zap.Logger
}

// NewPanel 创建面板
func NewPanel(lead LeadAgent, team []TeamAgent, logger *zap.Logger) *Panel {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Panel{
		lead:   lead,
		team:   team,
		logger: logger.With(zap.String("component", "panel")),
	}
}

// Lead 返回主导智能体
func (p *Panel) Lead() LeadAgent { return p.lead }

// Team 返回团队成员
func (p *Panel) Team() []TeamAgent { return p.team }

// BroadcastRound 将一轮讨论提示并发分发给全部团队成员并收集响应。
// 单个成员失败只记录日志不中断收集；全部失败时返回错误。
func (p *Panel) BroadcastRound(ctx context.Context, prompt, userID, sessionID string) (map[string]string, error) {
	responses := make(map[string]string, len(p.team))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, member := range p.team {
		member := member
		g.Go(func() error {
			started := time.Now()
			text, err := member.Respond(gctx, prompt, userID, sessionID)
			if err != nil {
				p.logger.Warn("team agent response failed",
					zap.String("member", member.Name()),
					zap.Duration("elapsed", time.Since(started)),
					zap.Error(err),
				)
				return nil
			}
			mu.Lock()
			responses[member.Name()] = text
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if len(responses) == 0 && len(p.team) > 0 {
		return nil, types.NewError(types.ErrModelInvocation, "all team agents failed to respond")
	}
	return responses, nil
}

// PanelConfig 默认面板的模型参数
type PanelConfig struct {
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	RateLimit   float64
	RateBurst   int
}

// DefaultPanel 构建对冲基金默认面板：
// Otto（基金经理，主导）、Dave（比特币分析师）、Bob（道指分析师）、Emily（外汇分析师）。
func DefaultPanel(provider llm.Provider, cfg PanelConfig, collector *metrics.Collector, logger *zap.Logger) *Panel {
	build := func(name, description, systemPrompt string) *BaseAgent {
		return NewBaseAgent(Options{
			Name:         name,
			Description:  description,
			SystemPrompt: systemPrompt,
			Model:        cfg.Model,
			Temperature:  cfg.Temperature,
			MaxTokens:    cfg.MaxTokens,
			Timeout:      cfg.Timeout,
			RateLimit:    cfg.RateLimit,
			RateBurst:    cfg.RateBurst,
		}, provider, collector, logger)
	}

	lead := build(
		"HedgeFundManager",
		"对冲基金经理，负责协调分析师团队并做出最终投资决策",
		"你是Otto，一位经验丰富的对冲基金经理。你的职责是协调分析师团队，"+
			"整合他们的分析结果，并做出最终投资决策。在做出决策时，你应该整合各位分析师的专业意见，"+
			"考虑当前市场环境和风险水平，平衡短期收益和长期增长。",
	)
	team := []TeamAgent{
		build(
			"BitcoinAnalyst",
			"专门分析比特币市场的专家，擅长加密货币技术分析和市场趋势预测",
			"你是Dave，一位专业的比特币分析师。你的职责是分析比特币市场并提供专业见解，"+
				"基于分析结果提供买入/卖出/持有建议，并评估风险水平。",
		),
		build(
			"DJ30Analyst",
			"专门分析道琼斯30指数的专家，擅长股票市场分析和宏观经济趋势",
			"你是Bob，一位专业的道琼斯30指数分析师。你的职责是分析DJ30指数及其成分股，"+
				"结合宏观经济因素提供专业见解和操作建议。",
		),
		build(
			"FXAnalyst",
			"专门分析外汇市场的专家，擅长货币对分析和国际经济形势评估",
			"你是Emily，一位专业的外汇分析师。你的职责是分析外汇市场和主要货币对，"+
				"结合国际经济环境和地缘政治因素提供专业见解。",
		),
	}

	return NewPanel(lead, team, logger)
}
