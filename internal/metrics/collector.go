package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// =============================================================================
// 📊 指标收集器
// =============================================================================

// 结论类型标签值
const (
	OutcomeSuccess         = "success"
	OutcomeModelError      = "model_error"
	OutcomeExtractionError = "extraction_error"
)

// 评估结论标签值
const (
	VerdictContinue = "continue"
	VerdictStop     = "stop"
	VerdictFallback = "fallback"
	VerdictError    = "error"
)

// Collector 指标收集器
// 所有方法对 nil 接收者安全，未启用指标时传 nil 即可。
type Collector struct {
	// 会议指标
	conferencesStarted   *prometheus.CounterVec
	conferencesConcluded *prometheus.CounterVec
	roundsAdvanced       *prometheus.CounterVec
	activeConferences    prometheus.Gauge

	// 评估指标
	evaluatorVerdicts *prometheus.CounterVec

	// 模型调用指标
	modelInvocationDuration *prometheus.HistogramVec
	modelInvocationErrors   *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector 创建指标收集器
// reg 为 nil 时使用 prometheus.DefaultRegisterer。
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)

	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.conferencesStarted = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conferences_started_total",
			Help:      "Total number of conferences started",
		},
		[]string{"type", "mode"},
	)

	c.conferencesConcluded = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conferences_concluded_total",
			Help:      "Total number of conferences concluded",
		},
		[]string{"type", "outcome"},
	)

	c.roundsAdvanced = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rounds_advanced_total",
			Help:      "Total number of discussion rounds advanced",
		},
		[]string{"type"},
	)

	c.activeConferences = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_conferences",
			Help:      "Number of conferences currently registered",
		},
	)

	c.evaluatorVerdicts = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluator_verdicts_total",
			Help:      "Total number of discussion evaluator verdicts",
		},
		[]string{"verdict"},
	)

	c.modelInvocationDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_invocation_duration_seconds",
			Help:      "Model invocation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"agent"},
	)

	c.modelInvocationErrors = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_invocation_errors_total",
			Help:      "Total number of failed model invocations",
		},
		[]string{"agent"},
	)

	c.logger.Info("metrics collector initialized", zap.String("namespace", namespace))

	return c
}

// ConferenceStarted 记录会议启动
func (c *Collector) ConferenceStarted(conferenceType, mode string) {
	if c == nil {
		return
	}
	c.conferencesStarted.WithLabelValues(conferenceType, mode).Inc()
}

// ConferenceConcluded 记录会议结束
func (c *Collector) ConferenceConcluded(conferenceType, outcome string) {
	if c == nil {
		return
	}
	c.conferencesConcluded.WithLabelValues(conferenceType, outcome).Inc()
}

// RoundAdvanced 记录轮次推进
func (c *Collector) RoundAdvanced(conferenceType string) {
	if c == nil {
		return
	}
	c.roundsAdvanced.WithLabelValues(conferenceType).Inc()
}

// EvaluatorVerdict 记录评估结论
func (c *Collector) EvaluatorVerdict(verdict string) {
	if c == nil {
		return
	}
	c.evaluatorVerdicts.WithLabelValues(verdict).Inc()
}

// ObserveModelInvocation 记录模型调用耗时
func (c *Collector) ObserveModelInvocation(agent string, d time.Duration) {
	if c == nil {
		return
	}
	c.modelInvocationDuration.WithLabelValues(agent).Observe(d.Seconds())
}

// ModelInvocationError 记录模型调用失败
func (c *Collector) ModelInvocationError(agent string) {
	if c == nil {
		return
	}
	c.modelInvocationErrors.WithLabelValues(agent).Inc()
}

// ConferenceRegistered 活跃会议数 +1
func (c *Collector) ConferenceRegistered() {
	if c == nil {
		return
	}
	c.activeConferences.Inc()
}

// ConferenceEvicted 活跃会议数 -1
func (c *Collector) ConferenceEvicted() {
	if c == nil {
		return
	}
	c.activeConferences.Dec()
}
