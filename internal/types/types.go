// Package types provides shared type definitions used across companiond packages.
// This package exists to break import cycles between the pipeline components
// and the session store. Types here are foundational data structures with no
// complex dependencies.
package types

import (
	"strings"
	"time"
)

// =============================================================================
// INTENT
// =============================================================================

// Intent is the classified category of a user message. It determines which
// specialist variant handles the turn. The set is closed; adding a new intent
// means adding a new specialist variant.
type Intent string

const (
	IntentAnxiety Intent = "anxiety"
	IntentCrisis  Intent = "crisis"
	IntentGeneral Intent = "general"
)

// ParseIntent normalizes a free-text classifier reply into an Intent.
// Unrecognized text resolves to IntentGeneral. When the reply mentions more
// than one category, crisis wins over anxiety, which wins over general:
// safety-relevant routing always takes the tie.
func ParseIntent(raw string) Intent {
	upper := strings.ToUpper(raw)
	switch {
	case strings.Contains(upper, "CRISIS"):
		return IntentCrisis
	case strings.Contains(upper, "ANXIETY"):
		return IntentAnxiety
	default:
		return IntentGeneral
	}
}

// Valid reports whether the intent is a member of the closed set.
func (i Intent) Valid() bool {
	switch i {
	case IntentAnxiety, IntentCrisis, IntentGeneral:
		return true
	}
	return false
}

// =============================================================================
// VERDICTS
// =============================================================================

// SafetyVerdict is the result of one moderation check. Category codes are
// defined by the moderation model (S1..S13 for Llama Guard) and treated as
// opaque here. Verdicts are produced fresh per call and persist only inside
// the Turn that recorded them.
type SafetyVerdict struct {
	Passed   bool   `json:"passed"`
	Category string `json:"category,omitempty"`
	Raw      string `json:"raw,omitempty"`
}

// CategorySelfHarm is the one guard code the orchestrator inspects: it
// selects the crisis-resource reply instead of the generic refusal.
const CategorySelfHarm = "S11"

// JudgeVerdict scores a candidate reply before release. Score is the overall
// 0-10 value; the axis scores are kept for the rationale surface and logging.
type JudgeVerdict struct {
	Score           float64 `json:"score"`
	Safety          float64 `json:"safety"`
	Empathy         float64 `json:"empathy"`
	ClinicalQuality float64 `json:"clinical_quality"`
	Actionability   float64 `json:"actionability"`
	Appropriateness float64 `json:"appropriateness"`
	Approved        bool    `json:"approved"`
	Decision        string  `json:"decision"`
	Rationale       string  `json:"rationale"`
}

// =============================================================================
// SESSION HISTORY
// =============================================================================

// Turn is one complete user/bot exchange. Turns are immutable once appended
// to a session; only the orchestrator appends them, and only after the
// pipeline ran to completion.
type Turn struct {
	UserMessage  string        `json:"user_message"`
	Response     string        `json:"response"`
	Intent       Intent        `json:"intent"`
	JudgeScore   float64       `json:"judge_score"`
	Approved     bool          `json:"approved"`
	InputSafety  SafetyVerdict `json:"input_safety"`
	OutputSafety SafetyVerdict `json:"output_safety"`
	CreatedAt    time.Time     `json:"created_at"`
}

// Session is an ordered conversation identified by an opaque id.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Turns     []Turn    `json:"turns"`
}

// Stats is a read-only projection over stored turns.
type Stats struct {
	Sessions int `json:"sessions"`
	Turns    int `json:"turns"`
}
