package specialist

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"companiond/internal/types"
)

type mockClient struct {
	completeWithSystemFunc func(ctx context.Context, system, user string) (string, error)
	calls                  int
}

func (m *mockClient) Complete(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("not implemented")
}

func (m *mockClient) CompleteWithSystem(ctx context.Context, system, user string) (string, error) {
	m.calls++
	return m.completeWithSystemFunc(ctx, system, user)
}

func (m *mockClient) Moderate(ctx context.Context, text string) (string, error) {
	return "", errors.New("not implemented")
}

func TestRegistryLookup(t *testing.T) {
	client := &mockClient{
		completeWithSystemFunc: func(_ context.Context, _, _ string) (string, error) {
			return "reply", nil
		},
	}
	registry, err := NewRegistry(
		NewAnxiety(client, 3, time.Second),
		NewGeneral(client, 3, time.Second),
		NewCrisis(),
	)
	require.NoError(t, err)

	for _, intent := range []types.Intent{types.IntentAnxiety, types.IntentCrisis, types.IntentGeneral} {
		v, err := registry.Lookup(intent)
		require.NoError(t, err)
		assert.Equal(t, intent, v.Intent())
	}
}

func TestRegistryLookupFallsBackToGeneral(t *testing.T) {
	client := &mockClient{
		completeWithSystemFunc: func(_ context.Context, _, _ string) (string, error) {
			return "reply", nil
		},
	}
	registry, err := NewRegistry(NewGeneral(client, 3, time.Second))
	require.NoError(t, err)

	v, err := registry.Lookup(types.IntentAnxiety)
	require.NoError(t, err)
	assert.Equal(t, types.IntentGeneral, v.Intent())
}

func TestRegistryLookupNoFallback(t *testing.T) {
	registry, err := NewRegistry(NewCrisis())
	require.NoError(t, err)

	_, err = registry.Lookup(types.IntentAnxiety)
	assert.Error(t, err)
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(NewCrisis(), NewCrisis())
	assert.Error(t, err)
}

func TestCrisisMakesNoModelCall(t *testing.T) {
	crisis := NewCrisis()

	reply, err := crisis.Respond(context.Background(), "I want to hurt myself", nil)
	require.NoError(t, err)
	assert.Equal(t, CrisisResourceText, reply)
	assert.Contains(t, reply, "988")
	assert.Contains(t, reply, "AASRA")
}

func TestAnxietyRespondWithHistory(t *testing.T) {
	var gotSystem, gotUser string
	client := &mockClient{
		completeWithSystemFunc: func(_ context.Context, system, user string) (string, error) {
			gotSystem = system
			gotUser = user
			return "Take a slow breath.", nil
		},
	}
	anxiety := NewAnxiety(client, 2, time.Second)

	recent := []types.Turn{
		{UserMessage: "old turn", Response: "old reply"},
		{UserMessage: "I can't sleep", Response: "That sounds exhausting."},
		{UserMessage: "Still awake at 3am", Response: "Let's try winding down."},
	}
	reply, err := anxiety.Respond(context.Background(), "the panic is back", recent)
	require.NoError(t, err)
	assert.Equal(t, "Take a slow breath.", reply)
	assert.Contains(t, gotSystem, "Cognitive Behavioral Therapy")
	assert.NotContains(t, gotUser, "old turn")
	assert.Contains(t, gotUser, "Still awake at 3am")
	assert.True(t, strings.HasSuffix(gotUser, "User message: the panic is back"))
}

func TestAnxietyRespondNoHistory(t *testing.T) {
	var gotUser string
	client := &mockClient{
		completeWithSystemFunc: func(_ context.Context, _, user string) (string, error) {
			gotUser = user
			return "reply", nil
		},
	}
	anxiety := NewAnxiety(client, 3, time.Second)

	_, err := anxiety.Respond(context.Background(), "I'm worried", nil)
	require.NoError(t, err)
	assert.Equal(t, "I'm worried", gotUser)
}

func TestGeneralRespondPropagatesFailure(t *testing.T) {
	client := &mockClient{
		completeWithSystemFunc: func(_ context.Context, _, _ string) (string, error) {
			return "", errors.New("boom")
		},
	}
	general := NewGeneral(client, 3, time.Second)

	_, err := general.Respond(context.Background(), "hello", nil)
	assert.Error(t, err)
}
