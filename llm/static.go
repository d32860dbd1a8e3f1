package llm

import (
	"context"
	"time"

	"github.com/BaSui01/hedgeflow/types"
)

// StaticProvider 返回固定回复的 Provider，用于本地演练和测试。
// 不发起任何网络调用。
type StaticProvider struct {
	// Reply 是每次补全返回的固定文本。
	Reply string
	// Delay 模拟模型耗时，可为 0。
	Delay time.Duration
	// Err 非 nil 时每次补全直接返回该错误。
	Err error
}

// Name implements Provider.
func (p *StaticProvider) Name() string { return "static" }

// Completion implements Provider.
func (p *StaticProvider) Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	if p.Delay > 0 {
		timer := time.NewTimer(p.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	if p.Err != nil {
		return nil, p.Err
	}
	return &ChatResponse{
		Provider: p.Name(),
		Model:    req.Model,
		Choices: []ChatChoice{
			{Message: types.NewAssistantMessage(p.Reply)},
		},
		CreatedAt: time.Now(),
	}, nil
}

// HealthCheck implements Provider.
func (p *StaticProvider) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	return &HealthStatus{Healthy: p.Err == nil, CheckedAt: time.Now()}, nil
}
