package agent

import (
	"context"
	"errors"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/BaSui01/hedgeflow/internal/metrics"
	"github.com/BaSui01/hedgeflow/llm"
	"github.com/BaSui01/hedgeflow/types"
)

// Options 基础智能体配置
type Options struct {
	Name         string
	Description  string
	SystemPrompt string
	Model        string
	Temperature  float32
	MaxTokens    int
	// Timeout 单次模型调用超时，0 表示不限制。
	Timeout time.Duration
	// RateLimit 每秒请求数，0 表示不限流。
	RateLimit float64
	RateBurst int
	// Encoding tiktoken 编码名，空则使用 cl100k_base。
	Encoding string
}

// BaseAgent 将 llm.Provider 封装为可调用的智能体。
// 同时实现 LeadAgent 与 TeamAgent。
type BaseAgent struct {
	opts     Options
	provider llm.Provider
	limiter  *rate.Limiter
	encoder  *tiktoken.Tiktoken
	metrics  *metrics.Collector
	logger   *zap.Logger
}

// NewBaseAgent 创建基础智能体
func NewBaseAgent(opts Options, provider llm.Provider, collector *metrics.Collector, logger *zap.Logger) *BaseAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("agent", opts.Name))

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	encoding := opts.Encoding
	if encoding == "" {
		encoding = "cl100k_base"
	}
	encoder, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		// 离线环境下取不到编码表时退化为不统计 token
		logger.Warn("tokenizer unavailable, token accounting disabled",
			zap.String("encoding", encoding),
			zap.Error(err),
		)
		encoder = nil
	}

	return &BaseAgent{
		opts:     opts,
		provider: provider,
		limiter:  limiter,
		encoder:  encoder,
		metrics:  collector,
		logger:   logger,
	}
}

// Name implements LeadAgent and TeamAgent.
func (a *BaseAgent) Name() string { return a.opts.Name }

// Description implements TeamAgent.
func (a *BaseAgent) Description() string { return a.opts.Description }

// Invoke implements LeadAgent.
func (a *BaseAgent) Invoke(ctx context.Context, prompt, userID, sessionID string, prior []types.Message) (*types.AgentResponse, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, types.NewError(types.ErrModelInvocation, "rate limiter wait aborted").WithCause(err)
		}
	}

	if a.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.Timeout)
		defer cancel()
	}

	messages := make([]types.Message, 0, len(prior)+2)
	if a.opts.SystemPrompt != "" {
		messages = append(messages, types.NewSystemMessage(a.opts.SystemPrompt))
	}
	messages = append(messages, prior...)
	messages = append(messages, types.NewUserMessage(prompt))

	if a.encoder != nil {
		a.logger.Debug("invoking model",
			zap.Int("prompt_tokens", len(a.encoder.Encode(prompt, nil, nil))),
			zap.Int("messages", len(messages)),
		)
	}

	req := &llm.ChatRequest{
		UserID:      userID,
		SessionID:   sessionID,
		Model:       a.opts.Model,
		Messages:    messages,
		MaxTokens:   a.opts.MaxTokens,
		Temperature: a.opts.Temperature,
		Timeout:     a.opts.Timeout,
	}

	started := time.Now()
	resp, err := a.provider.Completion(ctx, req)
	a.metrics.ObserveModelInvocation(a.opts.Name, time.Since(started))
	if err != nil {
		a.metrics.ModelInvocationError(a.opts.Name)
		a.logger.Warn("model invocation failed", zap.Error(err))
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, types.NewError(types.ErrTimeout, "model invocation timed out").
				WithRetryable(true).WithCause(err)
		}
		return nil, types.NewError(types.ErrModelInvocation, "model invocation failed").WithCause(err)
	}
	if len(resp.Choices) == 0 {
		a.metrics.ModelInvocationError(a.opts.Name)
		return nil, types.NewError(types.ErrModelInvocation, "model returned no choices")
	}

	return types.NewPlainResponse(resp.Choices[0].Message.Content), nil
}

// Respond implements TeamAgent.
func (a *BaseAgent) Respond(ctx context.Context, prompt, userID, sessionID string) (string, error) {
	resp, err := a.Invoke(ctx, prompt, userID, sessionID, nil)
	if err != nil {
		return "", err
	}
	text, ok := resp.Text()
	if !ok {
		return "", types.NewError(types.ErrExtractionFailed, "empty response text")
	}
	return text, nil
}
