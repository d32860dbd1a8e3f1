package conference

import "strconv"

// Type 会议类型
type Type string

const (
	TypeBudgetAllocation  Type = "budget_allocation"
	TypeExperienceSharing Type = "experience_sharing"
	TypeExtremeMarket     Type = "extreme_market"
)

// Valid reports whether t is one of the three supported conference types.
func (t Type) Valid() bool {
	switch t {
	case TypeBudgetAllocation, TypeExperienceSharing, TypeExtremeMarket:
		return true
	}
	return false
}

// DisplayName 返回会议的中文名称
func (t Type) DisplayName() string {
	switch t {
	case TypeBudgetAllocation:
		return "预算分配会议"
	case TypeExperienceSharing:
		return "经验分享会议"
	case TypeExtremeMarket:
		return "极端市场会议"
	default:
		return "未知会议"
	}
}

// Mode 会议推进模式
type Mode string

const (
	ModeManual    Mode = "manual"
	ModeAutomatic Mode = "automatic"
)

// SummaryLabel 是总结条目的轮次标签
const SummaryLabel = "summary"

// Session 标识会议归属的用户会话，start 时绑定，
// 后续所有主导智能体调用都携带该会话。
type Session struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

// RoundState 单轮讨论记录。
// Number 为 1 起始的轮次序号；总结条目 Number 为 0 且 Summary 为 true。
// Prompt 创建后不再变更；Responses 由请求层异步填充。
type RoundState struct {
	Number    int               `json:"round,omitempty"`
	Summary   bool              `json:"summary,omitempty"`
	Prompt    string            `json:"prompt"`
	Responses map[string]string `json:"responses"`
}

// NewRoundState 创建一个空响应的讨论轮次
func NewRoundState(number int, prompt string) RoundState {
	return RoundState{
		Number:    number,
		Prompt:    prompt,
		Responses: make(map[string]string),
	}
}

// NewSummaryRound 创建总结条目，总结文本记在主导智能体名下
func NewSummaryRound(prompt, leadName, summary string) RoundState {
	return RoundState{
		Summary:   true,
		Prompt:    prompt,
		Responses: map[string]string{leadName: summary},
	}
}

// Label 返回轮次标签："1"、"2"…或 "summary"
func (r RoundState) Label() string {
	if r.Summary {
		return SummaryLabel
	}
	return strconv.Itoa(r.Number)
}
