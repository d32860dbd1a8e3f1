package agent

import (
	"context"

	"github.com/BaSui01/hedgeflow/types"
)

// LeadAgent 主导智能体调用契约。
// 会议核心通过该接口发起所有模型调用：轮次评估与最终总结。
// prior 为空切片表示不携带历史上下文。
type LeadAgent interface {
	// Name returns the agent's display name, used as the response key for
	// the summary round.
	Name() string

	// Invoke sends a prompt to the agent on behalf of the given owner
	// session and returns the polymorphic response. Failures surface as
	// *types.Error with code MODEL_INVOCATION or TIMEOUT.
	Invoke(ctx context.Context, prompt, userID, sessionID string, prior []types.Message) (*types.AgentResponse, error)
}

// TeamAgent 团队成员智能体契约。
// 成员对每轮讨论提示作答；响应收集由请求层完成，不属于会议核心。
type TeamAgent interface {
	Name() string
	Description() string
	Respond(ctx context.Context, prompt, userID, sessionID string) (string, error)
}
