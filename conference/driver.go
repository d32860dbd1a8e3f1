package conference

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/hedgeflow/types"
)

// DefaultSettleDelay 默认沉淀等待：驱动循环没有「全员已响应」的显式信号，
// 以固定等待作为启发式同步屏障，留给团队作答刚发出的轮次提示。
const DefaultSettleDelay = 5 * time.Second

// Driver 自动会议驱动：每场自动模式会议一个独立后台循环，
// 无需外部输入即可把会议从第 1 轮推进到总结。
type Driver struct {
	conf      *Conference
	evaluator *Evaluator
	settle    time.Duration
	logger    *zap.Logger
}

// NewDriver 创建驱动循环。settle 非正时取 DefaultSettleDelay。
func NewDriver(c *Conference, evaluator *Evaluator, settle time.Duration, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if settle <= 0 {
		settle = DefaultSettleDelay
	}
	return &Driver{
		conf:      c,
		evaluator: evaluator,
		settle:    settle,
		logger: logger.With(
			zap.String("component", "driver"),
			zap.String("conference_id", c.ID()),
		),
	}
}

// Run 执行驱动循环直到会议结束或 ctx 取消。
// 每个挂起点（沉淀等待、模型调用）都响应 ctx 取消。
// 循环内的失败不会让会议悬挂：推进失败时转为总结收尾。
func (d *Driver) Run(ctx context.Context) {
	d.logger.Info("auto driver started", zap.Duration("settle_delay", d.settle))

	for {
		if d.conf.IsCompleted() {
			d.logger.Info("auto driver exiting, conference completed")
			return
		}
		if !d.sleep(ctx) {
			d.logger.Info("auto driver cancelled")
			return
		}
		if d.conf.IsCompleted() {
			return
		}

		cont, rationale := d.evaluator.Evaluate(ctx, d.conf)
		d.logger.Info("evaluation verdict",
			zap.Bool("continue", cont),
			zap.String("rationale", rationale),
		)

		if cont && d.conf.CurrentRound() < d.conf.MaxRounds()-1 {
			final, err := d.conf.AdvanceRound(ctx)
			if err != nil {
				// 与手动调用竞争失败：状态已被外部推进，按新状态收尾
				if types.GetErrorCode(err) == types.ErrInvalidState && d.conf.IsCompleted() {
					d.logger.Info("auto driver exiting, conference completed externally")
					return
				}
				d.logger.Warn("round advancement failed, concluding", zap.Error(err))
				d.conclude(ctx)
				return
			}
			if final {
				return
			}
			continue
		}

		d.conclude(ctx)
		return
	}
}

func (d *Driver) conclude(ctx context.Context) {
	summary, err := d.conf.Conclude(ctx)
	if err != nil {
		// 会议已被外部总结，无需重复
		d.logger.Info("conclude skipped", zap.Error(err))
		return
	}
	d.logger.Info("conference auto-concluded", zap.String("summary", truncateRunes(summary, highlightWindow)))
}

// sleep 等待一个沉淀周期，ctx 取消时返回 false
func (d *Driver) sleep(ctx context.Context) bool {
	timer := time.NewTimer(d.settle)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
