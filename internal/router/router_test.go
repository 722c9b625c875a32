package router

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"companiond/internal/gateway"
	"companiond/internal/types"
)

type mockClient struct {
	completeWithSystemFunc func(ctx context.Context, system, user string) (string, error)
}

func (m *mockClient) Complete(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("not implemented")
}

func (m *mockClient) CompleteWithSystem(ctx context.Context, system, user string) (string, error) {
	return m.completeWithSystemFunc(ctx, system, user)
}

func (m *mockClient) Moderate(ctx context.Context, text string) (string, error) {
	return "", errors.New("not implemented")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  types.Intent
	}{
		{"anxiety", "ANXIETY", types.IntentAnxiety},
		{"crisis", "CRISIS", types.IntentCrisis},
		{"general", "GENERAL", types.IntentGeneral},
		{"verbose reply", "Based on the message, the routing is: ANXIETY", types.IntentAnxiety},
		{"crisis wins ties", "ANXIETY, possibly CRISIS", types.IntentCrisis},
		{"unreadable falls back to general", "I'm not sure how to categorize this.", types.IntentGeneral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rt := New(&mockClient{
				completeWithSystemFunc: func(_ context.Context, _, _ string) (string, error) {
					return tt.reply, nil
				},
			}, 3, time.Second, nil)

			intent, err := rt.Classify(context.Background(), "some message", nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, intent)
		})
	}
}

func TestClassifyGatewayFailure(t *testing.T) {
	rt := New(&mockClient{
		completeWithSystemFunc: func(_ context.Context, _, _ string) (string, error) {
			return "", gateway.ErrUnavailable
		},
	}, 3, time.Second, nil)

	_, err := rt.Classify(context.Background(), "some message", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, gateway.ErrUnavailable)
}

func TestClassifyIncludesRecentHistory(t *testing.T) {
	var gotPrompt string
	rt := New(&mockClient{
		completeWithSystemFunc: func(_ context.Context, _, user string) (string, error) {
			gotPrompt = user
			return "GENERAL", nil
		},
	}, 2, time.Second, nil)

	recent := []types.Turn{
		{UserMessage: "first", Response: "reply one"},
		{UserMessage: "second", Response: "reply two"},
		{UserMessage: "third", Response: "reply three"},
	}
	_, err := rt.Classify(context.Background(), "it got worse", recent)
	require.NoError(t, err)

	// Window of 2 keeps only the two newest turns.
	assert.NotContains(t, gotPrompt, "first")
	assert.Contains(t, gotPrompt, "second")
	assert.Contains(t, gotPrompt, "third")
	assert.True(t, strings.HasSuffix(gotPrompt, "User message: it got worse"))
}

func TestClassifyNoHistory(t *testing.T) {
	var gotPrompt string
	rt := New(&mockClient{
		completeWithSystemFunc: func(_ context.Context, _, user string) (string, error) {
			gotPrompt = user
			return "GENERAL", nil
		},
	}, 3, time.Second, nil)

	_, err := rt.Classify(context.Background(), "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, "User message: hello", gotPrompt)
}
