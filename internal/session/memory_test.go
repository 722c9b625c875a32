package session

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"companiond/internal/types"
)

func TestMemoryGetOrCreateNew(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	sess, err := store.GetOrCreate(context.Background(), "")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Empty(t, sess.Turns)
	assert.False(t, sess.CreatedAt.IsZero())
}

func TestMemoryGetOrCreateExisting(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	ctx := context.Background()
	first, err := store.GetOrCreate(ctx, "")
	require.NoError(t, err)

	second, err := store.GetOrCreate(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
}

func TestMemoryGetOrCreateUnknownID(t *testing.T) {
	// An unknown id becomes a new session under that id, so a client
	// holding a stale id after a restart keeps working.
	store := NewMemoryStore()
	defer store.Close()

	sess, err := store.GetOrCreate(context.Background(), "client-chosen-id")
	require.NoError(t, err)
	assert.Equal(t, "client-chosen-id", sess.ID)
}

func TestMemoryAppendAndHistoryOrder(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	ctx := context.Background()
	sess, err := store.GetOrCreate(ctx, "")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		err := store.Append(ctx, sess.ID, types.Turn{
			UserMessage: fmt.Sprintf("message %d", i),
			Response:    fmt.Sprintf("reply %d", i),
			Intent:      types.IntentGeneral,
			CreatedAt:   time.Now().UTC(),
		})
		require.NoError(t, err)
	}

	turns, err := store.History(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, turns, 5)
	for i, turn := range turns {
		assert.Equal(t, fmt.Sprintf("message %d", i), turn.UserMessage)
	}
}

func TestMemoryAppendUnknownSession(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	err := store.Append(context.Background(), "missing", types.Turn{UserMessage: "hi"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryHistoryUnknownSession(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	_, err := store.History(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryHistoryReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	ctx := context.Background()
	sess, err := store.GetOrCreate(ctx, "")
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, sess.ID, types.Turn{UserMessage: "original"}))

	turns, err := store.History(ctx, sess.ID)
	require.NoError(t, err)
	turns[0].UserMessage = "mutated"

	fresh, err := store.History(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", fresh[0].UserMessage)
}

func TestMemoryStats(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	ctx := context.Background()
	a, err := store.GetOrCreate(ctx, "")
	require.NoError(t, err)
	b, err := store.GetOrCreate(ctx, "")
	require.NoError(t, err)

	require.NoError(t, store.Append(ctx, a.ID, types.Turn{UserMessage: "one"}))
	require.NoError(t, store.Append(ctx, a.ID, types.Turn{UserMessage: "two"}))
	require.NoError(t, store.Append(ctx, b.ID, types.Turn{UserMessage: "three"}))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Sessions)
	assert.Equal(t, 3, stats.Turns)
}

func TestMemoryConcurrentAppends(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	ctx := context.Background()
	sess, err := store.GetOrCreate(ctx, "")
	require.NoError(t, err)

	const workers = 20
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(n int) {
			defer wg.Done()
			_ = store.Append(ctx, sess.ID, types.Turn{UserMessage: fmt.Sprintf("m%d", n)})
		}(i)
	}
	wg.Wait()

	turns, err := store.History(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, turns, workers)
}

func TestMemoryConcurrentGetOrCreateSameID(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()

	ctx := context.Background()
	const workers = 10
	ids := make([]string, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(n int) {
			defer wg.Done()
			sess, err := store.GetOrCreate(ctx, "shared")
			require.NoError(t, err)
			ids[n] = sess.ID
		}(i)
	}
	wg.Wait()

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Sessions)
	for _, id := range ids {
		assert.Equal(t, "shared", id)
	}
}
