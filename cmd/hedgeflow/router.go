package main

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BaSui01/hedgeflow/agent"
	"github.com/BaSui01/hedgeflow/conference"
)

// 会议控制伪命令
const (
	commandNextRound = "next_round"
	commandConclude  = "conclude"
)

// detectConferenceRequest 检测用户输入是否是会议请求，
// 返回（是否会议请求, 会议类型或控制命令）。
func detectConferenceRequest(input string) (bool, string) {
	lower := strings.ToLower(input)

	switch {
	case strings.Contains(lower, "预算分配会议") || strings.Contains(lower, "预算会议"):
		return true, string(conference.TypeBudgetAllocation)
	case strings.Contains(lower, "经验分享会议") || strings.Contains(lower, "经验会议"):
		return true, string(conference.TypeExperienceSharing)
	case strings.Contains(lower, "极端市场会议") || strings.Contains(lower, "极端会议"):
		return true, string(conference.TypeExtremeMarket)
	case strings.Contains(lower, "下一轮") || strings.Contains(lower, "继续会议"):
		return true, commandNextRound
	case strings.Contains(lower, "结束会议") || strings.Contains(lower, "总结会议"):
		return true, commandConclude
	default:
		return false, ""
	}
}

// router 将会议伪命令逐一映射到核心的三个状态转移操作
type router struct {
	registry *conference.Registry
	panel    *agent.Panel
	mode     conference.Mode
	logger   *zap.Logger
}

// Handle 处理一条用户输入
func (r *router) Handle(ctx context.Context, input, userID, sessionID string) {
	isConference, command := detectConferenceRequest(input)
	if !isConference {
		r.handleOrdinary(ctx, input, userID, sessionID)
		return
	}

	switch command {
	case commandNextRound:
		r.handleNextRound(ctx, sessionID)
	case commandConclude:
		r.handleConclude(ctx, sessionID)
	default:
		r.handleStart(ctx, conference.Type(command), userID, sessionID)
	}
}

func (r *router) handleStart(ctx context.Context, t conference.Type, userID, sessionID string) {
	c, err := r.registry.Create(sessionID, t, r.mode)
	if err != nil {
		fmt.Println("已经有一个会议正在进行。请先结束当前会议，或输入\"下一轮\"继续当前会议。")
		return
	}

	intro, err := c.Start(ctx, conference.Session{UserID: userID, SessionID: sessionID})
	if err != nil {
		r.logger.Error("conference start failed", zap.Error(err))
		r.registry.Remove(sessionID)
		return
	}
	fmt.Println(intro)
	fmt.Println("请在讨论结束后输入\"下一轮\"继续，或\"结束会议\"来总结会议结果。")

	// 请求层职责：把本轮提示分发给团队并回填响应
	go r.collectRound(ctx, c, userID, sessionID)
}

func (r *router) handleNextRound(ctx context.Context, sessionID string) {
	c, err := r.registry.Get(sessionID)
	if err != nil {
		fmt.Println("当前没有正在进行的会议。请先召开一个会议。")
		return
	}

	final, err := c.AdvanceRound(ctx)
	if err != nil {
		r.logger.Warn("round advancement rejected", zap.Error(err))
		fmt.Println("当前会议无法继续推进。")
		return
	}

	if final {
		if summary, ok := c.Summary(); ok {
			fmt.Println(summary)
		}
		r.registry.Remove(sessionID)
		return
	}

	fmt.Printf("会议进入第%d轮讨论。请在讨论结束后输入\"下一轮\"继续，或\"结束会议\"来总结会议结果。\n", c.CurrentRound())
	owner := c.Owner()
	go r.collectRound(ctx, c, owner.UserID, owner.SessionID)
}

func (r *router) handleConclude(ctx context.Context, sessionID string) {
	c, err := r.registry.Get(sessionID)
	if err != nil {
		fmt.Println("当前没有正在进行的会议。请先召开一个会议。")
		return
	}

	summary, err := c.Conclude(ctx)
	if err != nil {
		r.logger.Warn("conclude rejected", zap.Error(err))
		if text, ok := c.Summary(); ok {
			summary = text
		}
	}
	if summary != "" {
		fmt.Println(summary)
	}
	r.registry.Remove(sessionID)
}

func (r *router) handleOrdinary(ctx context.Context, input, userID, sessionID string) {
	resp, err := r.panel.Lead().Invoke(ctx, input, userID, sessionID, nil)
	if err != nil {
		fmt.Printf("处理请求时出错: %v\n", err)
		return
	}
	if text, ok := resp.Text(); ok {
		fmt.Println(text)
	}
}

// collectRound 把当前轮提示广播给团队成员并把响应写回会议记录
func (r *router) collectRound(ctx context.Context, c *conference.Conference, userID, sessionID string) {
	history := c.History()
	if len(history) == 0 {
		return
	}
	prompt := history[len(history)-1].Prompt

	responses, err := r.panel.BroadcastRound(ctx, prompt, userID, sessionID)
	if err != nil {
		r.logger.Warn("round broadcast failed", zap.Error(err))
		return
	}
	if err := c.RecordResponses(responses); err != nil {
		// 会议可能已在响应收集期间结束
		r.logger.Debug("responses dropped", zap.Error(err))
	}
}
