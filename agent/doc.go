// Package agent defines the lead/team agent contracts the conference core
// invokes, plus a base implementation over an llm.Provider and the panel
// roster that collects team responses for each round.
package agent
