// Package safety wraps the gateway's moderation call into a pass/fail
// verdict. The gate fails closed: any text it cannot positively clear is
// treated as unsafe, and a gateway failure is reported as a distinct error
// so callers can tell "flagged" apart from "could not be checked".
package safety

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"companiond/internal/gateway"
	"companiond/internal/types"
)

// ErrGatewayUnavailable reports that the moderation model could not be
// reached or timed out. The text was NOT cleared; it also was not positively
// flagged.
var ErrGatewayUnavailable = errors.New("safety: moderation gateway unavailable")

var categoryPattern = regexp.MustCompile(`S\d+`)

// Gate classifies text as safe or unsafe using the external moderation model.
// It is used twice per turn: on the user's input and on the candidate reply.
type Gate struct {
	client  gateway.Client
	timeout time.Duration
	logger  *zap.Logger
}

// NewGate creates a safety gate. timeout bounds each moderation call.
func NewGate(client gateway.Client, timeout time.Duration, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{client: client, timeout: timeout, logger: logger}
}

// Check runs the moderation model over text and parses the verdict.
//
// The raw output is untrusted free text. "safe" clears the message; "unsafe"
// plus an S-code flags it; anything ambiguous flags it with category
// "unclear". A transport failure or timeout returns ErrGatewayUnavailable
// with a failed verdict, never an assumed pass.
func (g *Gate) Check(ctx context.Context, text string) (types.SafetyVerdict, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	raw, err := g.client.Moderate(ctx, text)
	if err != nil {
		g.logger.Warn("moderation call failed", zap.Error(err))
		return types.SafetyVerdict{Passed: false, Category: "gateway-error"},
			fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}

	verdict := parseVerdict(raw)
	if !verdict.Passed {
		g.logger.Info("moderation flagged text",
			zap.String("category", verdict.Category),
			zap.Int("text_len", len(text)))
	}
	return verdict, nil
}

// parseVerdict maps the guard model's reply to a verdict. Order matters:
// "unsafe" contains "safe" as a substring, so it is tested first.
func parseVerdict(raw string) types.SafetyVerdict {
	lower := strings.ToLower(raw)

	switch {
	case strings.Contains(lower, "unsafe"):
		category := "unknown"
		if match := categoryPattern.FindString(strings.ToUpper(raw)); match != "" {
			category = match
		}
		return types.SafetyVerdict{Passed: false, Category: category, Raw: raw}

	case strings.Contains(lower, "safe"):
		return types.SafetyVerdict{Passed: true, Category: "safe", Raw: raw}

	default:
		// The guard answered something unrecognizable. Fail closed.
		return types.SafetyVerdict{Passed: false, Category: "unclear", Raw: raw}
	}
}
