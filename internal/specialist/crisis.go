package specialist

import (
	"context"

	"companiond/internal/types"
)

// CrisisResourceText is the pre-authored reply for crisis turns. Crisis
// replies must never depend on generative sampling, so this variant makes no
// model call at all.
const CrisisResourceText = `I'm really concerned about what you've shared. Your safety is the most important thing right now.

Please reach out to a crisis helpline immediately:
- India: AASRA - 91-22-27546669
- USA: 988 (Suicide & Crisis Lifeline)
- International: https://findahelpline.com

You can also:
- Call emergency services (112 in India)
- Go to the nearest emergency room
- Tell someone you trust right now

You don't have to face this alone. Professional help is available 24/7.`

// Crisis is the deterministic variant for the crisis intent.
type Crisis struct{}

// NewCrisis creates the crisis specialist.
func NewCrisis() *Crisis { return &Crisis{} }

// Intent implements Specialist.
func (c *Crisis) Intent() types.Intent { return types.IntentCrisis }

// Respond returns the fixed crisis-resource text.
func (c *Crisis) Respond(_ context.Context, _ string, _ []types.Turn) (string, error) {
	return CrisisResourceText, nil
}
