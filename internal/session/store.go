// Package session owns conversation state: a process-wide keyed store of
// sessions with append-only turn history. The orchestrator is the sole
// writer. Appends are serialized per session id; distinct sessions proceed
// fully in parallel.
package session

import (
	"context"
	"errors"

	"companiond/internal/types"
)

// ErrNotFound reports a history lookup for an unknown session id. It is an
// explicit empty-result condition, never fabricated data.
var ErrNotFound = errors.New("session not found")

// Store is the session storage contract. Implementations: the in-process
// MemoryStore (default) and the SQLite-backed Store for configured
// persistence.
type Store interface {
	// GetOrCreate looks up a session by id, creating it when id is empty or
	// unknown. The returned session is a snapshot; mutating it does not
	// affect the store.
	GetOrCreate(ctx context.Context, id string) (types.Session, error)

	// Append adds one completed turn to the session's history. The append is
	// serialized per session id.
	Append(ctx context.Context, sessionID string, turn types.Turn) error

	// History returns the session's turns in chronological order, or
	// ErrNotFound for an unknown id.
	History(ctx context.Context, sessionID string) ([]types.Turn, error)

	// Stats returns aggregate counts over all stored sessions.
	Stats(ctx context.Context) (types.Stats, error)

	// Close releases store resources.
	Close() error
}
