package conference

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/BaSui01/hedgeflow/agent"
	"github.com/BaSui01/hedgeflow/internal/metrics"
)

// 解析失败时的兜底结论文案。评估拿不到干净结论时一律默认继续讨论，
// 宁可多讨论一轮也不能静默提前截断会议。
const (
	rationaleNoVerdict    = "未找到评估结论，默认继续讨论"
	rationaleUnparseable  = "评估结论解析失败，默认继续讨论"
	reasonPlaceholder     = "未说明原因"
	evaluationPlaceholder = "未提供评估摘要"
)

// Verdict 评估结论
type Verdict struct {
	Continue   bool   `json:"continue_discussion"`
	Reason     string `json:"reason"`
	Evaluation string `json:"evaluation"`
}

// Evaluator 讨论评估器：请主导智能体判断当前轮讨论是否充分。
type Evaluator struct {
	lead    agent.LeadAgent
	metrics *metrics.Collector
	logger  *zap.Logger
}

// NewEvaluator 创建评估器
func NewEvaluator(lead agent.LeadAgent, collector *metrics.Collector, logger *zap.Logger) *Evaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Evaluator{
		lead:    lead,
		metrics: collector,
		logger:  logger.With(zap.String("component", "evaluator")),
	}
}

// Evaluate 评估会议当前轮的讨论是否充分。
// 返回是否继续讨论及理由文本。模型调用失败、找不到结论、结论不可解析
// 都折叠为「继续讨论」，绝不向上抛错。
func (e *Evaluator) Evaluate(ctx context.Context, c *Conference) (bool, string) {
	prompt := e.buildPrompt(c)
	owner := c.Owner()

	resp, err := e.lead.Invoke(ctx, prompt, owner.UserID, owner.SessionID, nil)
	if err != nil {
		e.metrics.EvaluatorVerdict(metrics.VerdictError)
		e.logger.Warn("evaluation invocation failed, defaulting to continue",
			zap.String("conference_id", c.ID()),
			zap.Error(err),
		)
		return true, fmt.Sprintf("评估会议讨论时出错: %v，默认继续讨论", err)
	}

	text, ok := resp.Text()
	if !ok {
		e.metrics.EvaluatorVerdict(metrics.VerdictFallback)
		return true, rationaleNoVerdict
	}

	cont, rationale := parseVerdict(text)
	switch {
	case rationale == rationaleNoVerdict || rationale == rationaleUnparseable:
		e.metrics.EvaluatorVerdict(metrics.VerdictFallback)
	case cont:
		e.metrics.EvaluatorVerdict(metrics.VerdictContinue)
	default:
		e.metrics.EvaluatorVerdict(metrics.VerdictStop)
	}

	e.logger.Info("discussion evaluated",
		zap.String("conference_id", c.ID()),
		zap.Int("round", c.CurrentRound()),
		zap.Bool("continue", cont),
	)
	return cont, rationale
}

// buildPrompt 构建评估提示：四项固定标准加结构化输出要求。
func (e *Evaluator) buildPrompt(c *Conference) string {
	var b strings.Builder
	fmt.Fprintf(&b, "作为会议主持人，请评估%s第%d轮讨论的质量。\n\n", c.Type().DisplayName(), c.CurrentRound())

	history := c.History()
	if len(history) > 0 {
		latest := history[len(history)-1]
		if len(latest.Responses) > 0 {
			b.WriteString("本轮各参与者的发言摘录：\n")
			for _, name := range sortedKeys(latest.Responses) {
				fmt.Fprintf(&b, "- %s: %s\n", name, truncateRunes(latest.Responses[name], highlightWindow))
			}
			b.WriteString("\n")
		}
	}

	b.WriteString(`请从以下四个标准评估讨论：
1. 深度：讨论是否足够深入
2. 覆盖面：是否覆盖了议题的关键方面
3. 共识与分歧：主要观点是否已经收敛或分歧已经明确
4. 决策信息充分性：现有信息是否足以做出决策

请以如下JSON格式返回结论：
{"continue_discussion": true或false, "reason": "判断原因", "evaluation": "对本轮讨论的评估摘要"}`)

	return b.String()
}

// parseVerdict 从自由文本中解析结构化结论。
// 解析策略：贪婪匹配第一个 '{' 到最后一个 '}' 的跨度后做结构化解析；
// 兜底阶梯依次为「无跨度」「跨度不可解析」「字段缺省」。
func parseVerdict(text string) (bool, string) {
	span := extractJSON(text)
	if span == "" {
		return true, rationaleNoVerdict
	}
	if !gjson.Valid(span) {
		return true, rationaleUnparseable
	}

	parsed := gjson.Parse(span)

	cont := true
	if v := parsed.Get("continue_discussion"); v.Exists() {
		cont = v.Bool()
	}
	reason := parsed.Get("reason").String()
	if reason == "" {
		reason = reasonPlaceholder
	}
	evaluation := parsed.Get("evaluation").String()
	if evaluation == "" {
		evaluation = evaluationPlaceholder
	}

	return cont, fmt.Sprintf("评估：%s；原因：%s", evaluation, reason)
}

// extractJSON 贪婪截取第一个 '{' 到最后一个 '}' 之间的跨度
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}
