package conference

import (
	"fmt"
	"sort"
	"strings"
)

// highlightWindow 上一轮响应摘录的截断窗口（按 rune 计），
// 用于限制提示词随轮次增长。
const highlightWindow = 300

// firstRoundPrompt 第 1 轮讨论提示
func firstRoundPrompt(base string) string {
	return base + "\n\n这是会议的第1轮讨论，请分享您的初步想法。"
}

// roundPrompt 构建第 round 轮的讨论提示。
// 最后一轮要求各位给出最终观点，其余轮次要求深入思考；
// prev 有响应时附上按参与者截断的上一轮讨论要点。
func roundPrompt(base string, round, maxRounds int, prev *RoundState) string {
	var b strings.Builder
	b.WriteString(base)

	if round == maxRounds {
		fmt.Fprintf(&b, "\n\n这是会议的第%d轮讨论，也是最后一轮。请基于之前的讨论总结您的最终观点。", round)
	} else {
		fmt.Fprintf(&b, "\n\n这是会议的第%d轮讨论，请基于之前的讨论深入思考。", round)
	}

	if prev != nil && len(prev.Responses) > 0 {
		b.WriteString("\n\n上一轮讨论要点：")
		for _, name := range sortedKeys(prev.Responses) {
			fmt.Fprintf(&b, "\n- %s: %s", name, truncateRunes(prev.Responses[name], highlightWindow))
		}
	}

	return b.String()
}

// summaryPrompt 构建会议总结提示。
// rounds 为实际进行的讨论轮数，即历史中非总结条目的数量。
func summaryPrompt(displayName string, rounds int, resultTemplate string) string {
	return fmt.Sprintf(`作为对冲基金经理Otto，请总结%s的讨论结果。

会议进行了%d轮讨论。

请使用以下模板总结会议结果：

%s`, displayName, rounds, resultTemplate)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "…"
}
