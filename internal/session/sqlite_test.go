package session

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"companiond/internal/types"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "sessions.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteGetOrCreate(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	sess, err := store.GetOrCreate(ctx, "")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)

	again, err := store.GetOrCreate(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, again.ID)
	assert.Empty(t, again.Turns)
}

func TestSQLiteAppendAndHistory(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	sess, err := store.GetOrCreate(ctx, "")
	require.NoError(t, err)

	turn := types.Turn{
		UserMessage: "I'm anxious about my exam",
		Response:    "That sounds stressful. Let's break it down.",
		Intent:      types.IntentAnxiety,
		JudgeScore:  8.5,
		Approved:    true,
		InputSafety: types.SafetyVerdict{Passed: true, Category: "safe"},
		OutputSafety: types.SafetyVerdict{
			Passed:   true,
			Category: "safe",
			Raw:      "safe",
		},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, store.Append(ctx, sess.ID, turn))
	require.NoError(t, store.Append(ctx, sess.ID, types.Turn{
		UserMessage: "second message",
		Response:    "second reply",
		Intent:      types.IntentGeneral,
		CreatedAt:   time.Now().UTC(),
	}))

	turns, err := store.History(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, turns, 2)

	got := turns[0]
	assert.Equal(t, turn.UserMessage, got.UserMessage)
	assert.Equal(t, turn.Response, got.Response)
	assert.Equal(t, types.IntentAnxiety, got.Intent)
	assert.Equal(t, 8.5, got.JudgeScore)
	assert.True(t, got.Approved)
	assert.Equal(t, turn.InputSafety, got.InputSafety)
	assert.Equal(t, turn.OutputSafety, got.OutputSafety)

	assert.Equal(t, "second message", turns[1].UserMessage)
}

func TestSQLiteAppendUnknownSession(t *testing.T) {
	store := newTestSQLiteStore(t)

	err := store.Append(context.Background(), "missing", types.Turn{UserMessage: "hi"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteHistoryUnknownSession(t *testing.T) {
	store := newTestSQLiteStore(t)

	_, err := store.History(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteGetOrCreateLoadsHistory(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	sess, err := store.GetOrCreate(ctx, "")
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, sess.ID, types.Turn{
		UserMessage: "hello",
		Response:    "hi there",
		Intent:      types.IntentGeneral,
		CreatedAt:   time.Now().UTC(),
	}))

	loaded, err := store.GetOrCreate(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Turns, 1)
	assert.Equal(t, "hello", loaded.Turns[0].UserMessage)
}

func TestSQLiteStats(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	a, err := store.GetOrCreate(ctx, "")
	require.NoError(t, err)
	_, err = store.GetOrCreate(ctx, "")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Append(ctx, a.ID, types.Turn{
			UserMessage: fmt.Sprintf("m%d", i),
			Response:    "r",
			Intent:      types.IntentGeneral,
			CreatedAt:   time.Now().UTC(),
		}))
	}

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Sessions)
	assert.Equal(t, 3, stats.Turns)
}

func TestSQLitePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.db")
	ctx := context.Background()

	store, err := NewSQLiteStore(path, nil)
	require.NoError(t, err)
	sess, err := store.GetOrCreate(ctx, "")
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, sess.ID, types.Turn{
		UserMessage: "persist me",
		Response:    "ok",
		Intent:      types.IntentGeneral,
		CreatedAt:   time.Now().UTC(),
	}))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path, nil)
	require.NoError(t, err)
	defer reopened.Close()

	turns, err := reopened.History(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "persist me", turns[0].UserMessage)
}
