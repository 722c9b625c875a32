// Package orchestrator sequences the chat pipeline: pre-generation safety
// gate, intent routing, specialist generation, quality judging, and
// post-generation safety gate, with per-session history appended only after
// a full pipeline pass. Every failure mode resolves to a fixed, deterministic
// payload; a raw unapproved candidate or a raw error never reaches the
// caller.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"companiond/internal/safety"
	"companiond/internal/session"
	"companiond/internal/specialist"
	"companiond/internal/types"
)

// State names the pipeline's progress through one turn.
type State string

const (
	StateReceived          State = "RECEIVED"
	StatePreSafetyChecked  State = "PRE_SAFETY_CHECKED"
	StateRouted            State = "ROUTED"
	StateResponded         State = "RESPONDED"
	StateJudged            State = "JUDGED"
	StatePostSafetyChecked State = "POST_SAFETY_CHECKED"

	// Terminal states.
	StateFinalized State = "FINALIZED" // candidate released
	StateBlocked   State = "BLOCKED"   // safety or judge rejection, fallback released
	StateDegraded  State = "DEGRADED"  // upstream failure, apology released, no turn stored
)

// Fallback payloads. These are the only texts the pipeline may substitute
// for a candidate; none of them is model-generated.
const (
	// UnsupportedConcernText answers input flagged for a non-self-harm
	// category.
	UnsupportedConcernText = "I'm not able to provide support for this type of concern. Please consult with an appropriate professional or trusted resource."

	// RephraseText answers a candidate that failed the post-generation gate.
	RephraseText = "I apologize, but I need to rephrase my response to ensure it's safe and appropriate. Please ask again."

	// RevisionText answers a candidate the judge rejected.
	RevisionText = "I need to refine my response. Could you rephrase your concern?"

	// DegradedText answers any upstream failure.
	DegradedText = "The service is temporarily unavailable. Please try again in a moment."
)

// ErrEmptyMessage rejects blank input before the pipeline starts.
var ErrEmptyMessage = errors.New("message cannot be empty")

// SafetyChecker is the safety gate dependency.
type SafetyChecker interface {
	Check(ctx context.Context, text string) (types.SafetyVerdict, error)
}

// Classifier is the router dependency.
type Classifier interface {
	Classify(ctx context.Context, message string, recent []types.Turn) (types.Intent, error)
}

// Evaluator is the judge dependency.
type Evaluator interface {
	Evaluate(ctx context.Context, message, candidate string, intent types.Intent) (types.JudgeVerdict, error)
}

// Workflow summarizes the pipeline run for the caller.
type Workflow struct {
	Routing      types.Intent `json:"routing"`
	JudgeScore   float64      `json:"judge_score"`
	SafetyPassed bool         `json:"safety_passed"`
}

// Result is the payload returned for one chat turn.
type Result struct {
	Response  string   `json:"response"`
	SessionID string   `json:"session_id"`
	Approved  bool     `json:"approved"`
	State     State    `json:"state"`
	Workflow  Workflow `json:"workflow"`
}

// Orchestrator owns the pipeline and the session store. It is safe for
// concurrent use; each call runs one sequential pipeline, and only the store
// serializes access per session.
type Orchestrator struct {
	gate        SafetyChecker
	router      Classifier
	specialists *specialist.Registry
	judge       Evaluator
	store       session.Store
	window      int
	logger      *zap.Logger
}

// New wires the pipeline components together.
func New(gate SafetyChecker, router Classifier, specialists *specialist.Registry,
	judge Evaluator, store session.Store, window int, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		gate:        gate,
		router:      router,
		specialists: specialists,
		judge:       judge,
		store:       store,
		window:      window,
		logger:      logger,
	}
}

// Chat runs one message through the full pipeline and returns the resolved
// payload. All upstream failures are resolved into deterministic fallbacks;
// the only error returned is ErrEmptyMessage (and session-store failures,
// which mean the turn could not be recorded at all).
func (o *Orchestrator) Chat(ctx context.Context, message, sessionID string) (Result, error) {
	if strings.TrimSpace(message) == "" {
		return Result{}, ErrEmptyMessage
	}

	sess, err := o.store.GetOrCreate(ctx, sessionID)
	if err != nil {
		return Result{}, fmt.Errorf("session lookup failed: %w", err)
	}

	log := o.logger.With(zap.String("session_id", sess.ID))
	state := StateReceived
	recent := lastN(sess.Turns, o.window)

	// RECEIVED -> PRE_SAFETY_CHECKED
	preVerdict, err := o.gate.Check(ctx, message)
	if err != nil {
		return o.degrade(log, sess.ID, state, "pre-safety check", err), nil
	}
	state = StatePreSafetyChecked

	if !preVerdict.Passed {
		// Short-circuit: the router, specialist, and judge never see
		// flagged input.
		response := UnsupportedConcernText
		if preVerdict.Category == types.CategorySelfHarm {
			response = specialist.CrisisResourceText
		}
		log.Info("input blocked by pre-safety gate", zap.String("category", preVerdict.Category))
		return o.finish(ctx, log, sess.ID, StateBlocked, types.Turn{
			UserMessage: message,
			Response:    response,
			Approved:    false,
			InputSafety: preVerdict,
			CreatedAt:   time.Now().UTC(),
		}, Workflow{SafetyPassed: false})
	}

	// PRE_SAFETY_CHECKED -> ROUTED
	intent, err := o.router.Classify(ctx, message, recent)
	if err != nil {
		return o.degrade(log, sess.ID, state, "routing", err), nil
	}
	state = StateRouted
	log.Debug("turn routed", zap.String("intent", string(intent)))

	// ROUTED -> RESPONDED
	variant, err := o.specialists.Lookup(intent)
	if err != nil {
		return o.degrade(log, sess.ID, state, "specialist lookup", err), nil
	}
	candidate, err := variant.Respond(ctx, message, recent)
	if err != nil {
		return o.degrade(log, sess.ID, state, "specialist response", err), nil
	}
	state = StateResponded

	// RESPONDED -> JUDGED
	judgeVerdict, err := o.judge.Evaluate(ctx, message, candidate, intent)
	if err != nil {
		return o.degrade(log, sess.ID, state, "judging", err), nil
	}
	state = StateJudged

	// JUDGED -> POST_SAFETY_CHECKED
	postVerdict, err := o.gate.Check(ctx, candidate)
	if err != nil {
		return o.degrade(log, sess.ID, state, "post-safety check", err), nil
	}
	state = StatePostSafetyChecked

	turn := types.Turn{
		UserMessage:  message,
		Intent:       intent,
		JudgeScore:   judgeVerdict.Score,
		InputSafety:  preVerdict,
		OutputSafety: postVerdict,
		CreatedAt:    time.Now().UTC(),
	}
	workflow := Workflow{
		Routing:      intent,
		JudgeScore:   judgeVerdict.Score,
		SafetyPassed: postVerdict.Passed,
	}

	if !postVerdict.Passed {
		log.Info("candidate blocked by post-safety gate",
			zap.String("category", postVerdict.Category),
			zap.String("intent", string(intent)))
		turn.Response = RephraseText
		return o.finish(ctx, log, sess.ID, StateBlocked, turn, workflow)
	}

	if !judgeVerdict.Approved {
		log.Info("candidate rejected by judge",
			zap.Float64("score", judgeVerdict.Score),
			zap.String("rationale", judgeVerdict.Rationale))
		turn.Response = RevisionText
		return o.finish(ctx, log, sess.ID, StateBlocked, turn, workflow)
	}

	// POST_SAFETY_CHECKED -> FINALIZED
	turn.Response = candidate
	turn.Approved = true
	return o.finish(ctx, log, sess.ID, StateFinalized, turn, workflow)
}

// finish appends the completed turn and builds the payload. The per-session
// append lock lives in the store; this is the only point the pipeline writes
// state.
func (o *Orchestrator) finish(ctx context.Context, log *zap.Logger, sessionID string,
	state State, turn types.Turn, workflow Workflow) (Result, error) {
	if err := o.store.Append(ctx, sessionID, turn); err != nil {
		return Result{}, fmt.Errorf("failed to record turn: %w", err)
	}
	log.Info("turn completed",
		zap.String("state", string(state)),
		zap.Bool("approved", turn.Approved),
		zap.String("intent", string(turn.Intent)))
	return Result{
		Response:  turn.Response,
		SessionID: sessionID,
		Approved:  turn.Approved,
		State:     state,
		Workflow:  workflow,
	}, nil
}

// degrade resolves an upstream failure into the fixed apology payload.
// Nothing is persisted: a degraded run leaves no half-written turn.
func (o *Orchestrator) degrade(log *zap.Logger, sessionID string, state State, step string, err error) Result {
	log.Error("pipeline degraded",
		zap.String("failed_step", step),
		zap.String("last_state", string(state)),
		zap.Error(err))
	return Result{
		Response:  DegradedText,
		SessionID: sessionID,
		Approved:  false,
		State:     StateDegraded,
	}
}

// History returns the session's turns in chronological order.
// session.ErrNotFound passes through for unknown ids.
func (o *Orchestrator) History(ctx context.Context, sessionID string) ([]types.Turn, error) {
	return o.store.History(ctx, sessionID)
}

// Stats returns aggregate counts over stored sessions.
func (o *Orchestrator) Stats(ctx context.Context) (types.Stats, error) {
	return o.store.Stats(ctx)
}

func lastN(turns []types.Turn, n int) []types.Turn {
	if n <= 0 || len(turns) == 0 {
		return nil
	}
	if len(turns) > n {
		return turns[len(turns)-n:]
	}
	return turns
}

// interface guards
var _ SafetyChecker = (*safety.Gate)(nil)
