package conference

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/hedgeflow/agent"
	"github.com/BaSui01/hedgeflow/internal/metrics"
	"github.com/BaSui01/hedgeflow/types"
)

// RegistryConfig 注册表级别的会议默认参数
type RegistryConfig struct {
	MaxRounds   int
	SettleDelay time.Duration
}

// Registry 会话到活跃会议的映射，保证同一会话最多一场未完成的会议。
// 显式依赖注入使用，不提供进程级全局实例；Close 统一取消全部驱动循环。
type Registry struct {
	lead    agent.LeadAgent
	catalog Catalog
	cfg     RegistryConfig
	metrics *metrics.Collector
	logger  *zap.Logger

	mu          sync.RWMutex
	conferences map[string]*Conference
	closed      bool

	baseCtx context.Context
	cancel  context.CancelFunc
}

// NewRegistry 创建注册表
func NewRegistry(lead agent.LeadAgent, catalog Catalog, cfg RegistryConfig, collector *metrics.Collector, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	baseCtx, cancel := context.WithCancel(context.Background())
	return &Registry{
		lead:        lead,
		catalog:     catalog,
		cfg:         cfg,
		metrics:     collector,
		logger:      logger.With(zap.String("component", "registry")),
		conferences: make(map[string]*Conference),
		baseCtx:     baseCtx,
		cancel:      cancel,
	}
}

// Create 为会话创建一场会议。
// 会话已有未完成会议时返回 CONFLICT；自动模式下同时装配驱动循环，
// 循环在 Start 时才真正调度。
func (r *Registry) Create(sessionID string, t Type, mode Mode) (*Conference, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, types.NewError(types.ErrInvalidState, "registry closed")
	}
	if existing, ok := r.conferences[sessionID]; ok && !existing.IsCompleted() {
		return nil, types.NewError(types.ErrConflict, "an active conference already exists for this session")
	}

	c := New(Config{Type: t, Mode: mode, MaxRounds: r.cfg.MaxRounds}, r.lead, r.catalog, r.metrics, r.logger)
	if mode == ModeAutomatic {
		evaluator := NewEvaluator(r.lead, r.metrics, r.logger)
		driver := NewDriver(c, evaluator, r.cfg.SettleDelay, r.logger)
		c.attachDriver(driver, r.baseCtx)
	}

	r.conferences[sessionID] = c
	r.metrics.ConferenceRegistered()
	r.logger.Info("conference created",
		zap.String("session_id", sessionID),
		zap.String("conference_id", c.ID()),
		zap.String("type", string(t)),
		zap.String("mode", string(mode)),
	)
	return c, nil
}

// Get 查找会话的会议，不存在时返回 NOT_FOUND
func (r *Registry) Get(sessionID string) (*Conference, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conferences[sessionID]
	if !ok {
		return nil, types.NewError(types.ErrNotFound, "no conference for session")
	}
	return c, nil
}

// Remove 移除会话的会议。何时移除由请求层决定，
// 这样总结文本在移除前仍可读取。
func (r *Registry) Remove(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.conferences[sessionID]; !ok {
		return
	}
	delete(r.conferences, sessionID)
	r.metrics.ConferenceEvicted()
	r.logger.Info("conference removed", zap.String("session_id", sessionID))
}

// Len 当前注册的会议数
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conferences)
}

// Close 关闭注册表：取消全部驱动循环并拒绝后续创建。
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true
	r.cancel()
	r.logger.Info("registry closed", zap.Int("remaining", len(r.conferences)))
}
