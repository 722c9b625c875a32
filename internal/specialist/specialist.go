// Package specialist generates the candidate reply for a classified intent.
// One variant exists per intent, resolved through a registry rather than
// branching in the orchestrator; adding an intent means registering a new
// variant here.
package specialist

import (
	"context"
	"fmt"
	"strings"

	"companiond/internal/types"
)

// Specialist produces a candidate reply for one intent. The message has
// already passed the pre-generation safety gate; the reply has NOT yet been
// judged or safety-checked, so it must never be surfaced directly.
type Specialist interface {
	// Intent returns the intent this variant handles.
	Intent() types.Intent

	// Respond generates the candidate reply.
	Respond(ctx context.Context, message string, recent []types.Turn) (string, error)
}

// Registry maps intents to their specialist variant.
type Registry struct {
	variants map[types.Intent]Specialist
}

// NewRegistry builds a registry from the given variants. Duplicate intents
// are a programming error.
func NewRegistry(variants ...Specialist) (*Registry, error) {
	r := &Registry{variants: make(map[types.Intent]Specialist, len(variants))}
	for _, v := range variants {
		if _, dup := r.variants[v.Intent()]; dup {
			return nil, fmt.Errorf("specialist: duplicate variant for intent %q", v.Intent())
		}
		r.variants[v.Intent()] = v
	}
	return r, nil
}

// Lookup returns the variant for intent, or the general variant when the
// intent has no dedicated handler.
func (r *Registry) Lookup(intent types.Intent) (Specialist, error) {
	if s, ok := r.variants[intent]; ok {
		return s, nil
	}
	if s, ok := r.variants[types.IntentGeneral]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("specialist: no variant for intent %q and no general fallback", intent)
}

// historyBlock renders the last n turns for inclusion in a prompt,
// oldest first. Empty when there is no history.
func historyBlock(turns []types.Turn, n int) string {
	if n <= 0 || len(turns) == 0 {
		return ""
	}
	if len(turns) > n {
		turns = turns[len(turns)-n:]
	}
	var sb strings.Builder
	sb.WriteString("Recent conversation:\n")
	for _, turn := range turns {
		fmt.Fprintf(&sb, "User: %s\nAssistant: %s\n", turn.UserMessage, turn.Response)
	}
	return sb.String()
}
