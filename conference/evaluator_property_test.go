package conference

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"pgregory.net/rapid"
)

// 任意无括号文本包裹的合法结论 JSON 都应还原出原始布尔值
func TestParseVerdict_RoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cont := rapid.Bool().Draw(t, "continue")
		reason := rapid.StringMatching(`[^{}"\\]{1,40}`).Draw(t, "reason")
		evaluation := rapid.StringMatching(`[^{}"\\]{1,40}`).Draw(t, "evaluation")
		prefix := rapid.StringMatching(`[^{}]{0,60}`).Draw(t, "prefix")
		suffix := rapid.StringMatching(`[^{}]{0,60}`).Draw(t, "suffix")

		payload, err := json.Marshal(Verdict{
			Continue:   cont,
			Reason:     reason,
			Evaluation: evaluation,
		})
		if err != nil {
			t.Fatalf("marshal verdict: %v", err)
		}

		text := fmt.Sprintf("%s%s%s", prefix, payload, suffix)
		got, rationale := parseVerdict(text)

		if got != cont {
			t.Fatalf("parseVerdict(%q) continue = %v, want %v", text, got, cont)
		}
		if rationale == "" {
			t.Fatalf("parseVerdict(%q) returned empty rationale", text)
		}
	})
}

// 不含 '{' 的文本永远判为继续讨论
func TestParseVerdict_NoSpanAlwaysContinues(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.StringMatching(`[^{]{0,200}`).Draw(t, "text")

		cont, rationale := parseVerdict(text)
		if !cont {
			t.Fatalf("parseVerdict(%q) = false, want continue", text)
		}
		if !strings.Contains(rationale, "默认继续讨论") {
			t.Fatalf("parseVerdict(%q) rationale = %q", text, rationale)
		}
	})
}
