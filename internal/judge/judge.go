// Package judge scores a candidate reply for quality and safety before it is
// released, via one constrained model call. An unparseable evaluation fails
// closed: score 0, not approved.
package judge

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"companiond/internal/gateway"
	"companiond/internal/types"
)

const systemPrompt = `You are a clinical supervisor evaluating therapeutic responses for quality and safety.

EVALUATION CRITERIA:
1. SAFETY (0-10): Does response avoid harm? Appropriate for crisis situations?
2. EMPATHY (0-10): Is response warm, validating, non-judgmental?
3. CLINICAL_QUALITY (0-10): Uses evidence-based techniques? Professionally sound?
4. ACTIONABILITY (0-10): Provides practical, concrete steps?
5. APPROPRIATENESS (0-10): Suitable for user's concern? Not overstepping boundaries?

INSTRUCTIONS:
- Read the USER INPUT and SPECIALIST RESPONSE
- Evaluate each criterion (scale 0-10)
- Provide an OVERALL SCORE (0-10)
- Give BRIEF REASONING (1-2 sentences)
- Recommend APPROVE or REVISE

FORMAT YOUR RESPONSE AS:
SAFETY: [score]
EMPATHY: [score]
CLINICAL_QUALITY: [score]
ACTIONABILITY: [score]
APPROPRIATENESS: [score]
OVERALL: [score]
DECISION: APPROVE or REVISE
REASONING: [1-2 sentences]`

// Judge evaluates candidate replies. Approval requires both the model's
// APPROVE decision and an overall score at or above the configured
// threshold.
type Judge struct {
	client  gateway.Client
	timeout time.Duration
	logger  *zap.Logger

	mu        sync.RWMutex
	threshold float64
}

// New creates a judge with the given approval threshold.
func New(client gateway.Client, threshold float64, timeout time.Duration, logger *zap.Logger) *Judge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Judge{client: client, threshold: threshold, timeout: timeout, logger: logger}
}

// SetThreshold updates the approval threshold. Called on config hot-reload,
// concurrently with Evaluate.
func (j *Judge) SetThreshold(threshold float64) {
	j.mu.Lock()
	j.threshold = threshold
	j.mu.Unlock()
}

// Threshold returns the current approval threshold.
func (j *Judge) Threshold() float64 {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.threshold
}

// Evaluate scores the candidate reply against the user's message.
func (j *Judge) Evaluate(ctx context.Context, message, candidate string, intent types.Intent) (types.JudgeVerdict, error) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	prompt := fmt.Sprintf(`USER INPUT: %s

SPECIALIST RESPONSE: %s

Evaluate the above response according to the criteria. The response was written for a %s concern.`,
		message, candidate, intent)

	raw, err := j.client.CompleteWithSystem(ctx, systemPrompt, prompt)
	if err != nil {
		return types.JudgeVerdict{Decision: "REVISE"}, fmt.Errorf("judge: evaluation call failed: %w", err)
	}

	verdict := j.parseEvaluation(raw)
	j.logger.Debug("candidate judged",
		zap.Float64("score", verdict.Score),
		zap.Bool("approved", verdict.Approved),
		zap.String("decision", verdict.Decision))
	return verdict, nil
}

// parseEvaluation extracts key:value lines from the model's reply. Missing
// or malformed fields keep their zero values; a missing OVERALL score means
// the verdict cannot approve.
func (j *Judge) parseEvaluation(raw string) types.JudgeVerdict {
	verdict := types.JudgeVerdict{Decision: "REVISE"}
	parsedOverall := false

	for _, line := range strings.Split(raw, "\n") {
		key, value, found := strings.Cut(strings.TrimSpace(line), ":")
		if !found {
			continue
		}
		key = strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(key), " ", "_"))
		value = strings.TrimSpace(value)

		switch key {
		case "SAFETY":
			verdict.Safety = parseScore(value)
		case "EMPATHY":
			verdict.Empathy = parseScore(value)
		case "CLINICAL_QUALITY":
			verdict.ClinicalQuality = parseScore(value)
		case "ACTIONABILITY":
			verdict.Actionability = parseScore(value)
		case "APPROPRIATENESS":
			verdict.Appropriateness = parseScore(value)
		case "OVERALL", "OVERALL_SCORE":
			verdict.Score = parseScore(value)
			parsedOverall = true
		case "DECISION":
			if strings.Contains(strings.ToUpper(value), "APPROVE") {
				verdict.Decision = "APPROVE"
			} else {
				verdict.Decision = "REVISE"
			}
		case "REASONING":
			verdict.Rationale = value
		}
	}

	if !parsedOverall {
		verdict.Score = 0
		verdict.Decision = "REVISE"
		if verdict.Rationale == "" {
			verdict.Rationale = "evaluation output could not be parsed"
		}
	}

	verdict.Approved = verdict.Decision == "APPROVE" && verdict.Score >= j.Threshold()
	return verdict
}

// parseScore reads the leading number of a field value ("8", "8/10", "8 -
// solid"). Malformed values score 0.
func parseScore(value string) float64 {
	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == ' ' || r == '/'
	})
	if len(fields) == 0 {
		return 0
	}
	score, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || score < 0 || score > 10 {
		return 0
	}
	return score
}
