// Package conference implements the multi-round conference orchestration
// core: the per-session conference state machine, the discussion evaluator,
// the automatic round-advancement driver, and the registry that enforces a
// single active conference per session.
//
// A conference walks NotStarted → InRound(1) → … → InRound(maxRounds) →
// Concluded. Rounds are issued as prompts to the lead agent; the surrounding
// request layer collects team responses into the current round. Reaching
// maxRounds concludes the conference within the same advance call. All three
// transitions of one conference serialize behind a single mutex, so a manual
// "next round" request and the automatic driver can never corrupt the round
// sequence.
package conference
