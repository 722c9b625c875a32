package safety

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"companiond/internal/gateway"
	"companiond/internal/types"
)

type mockClient struct {
	moderateFunc func(ctx context.Context, text string) (string, error)
}

func (m *mockClient) Complete(ctx context.Context, prompt string) (string, error) {
	return "", errors.New("not implemented")
}

func (m *mockClient) CompleteWithSystem(ctx context.Context, system, user string) (string, error) {
	return "", errors.New("not implemented")
}

func (m *mockClient) Moderate(ctx context.Context, text string) (string, error) {
	return m.moderateFunc(ctx, text)
}

func TestGateCheckSafe(t *testing.T) {
	gate := NewGate(&mockClient{
		moderateFunc: func(_ context.Context, _ string) (string, error) {
			return "safe", nil
		},
	}, time.Second, nil)

	verdict, err := gate.Check(context.Background(), "I had a rough day at work")
	require.NoError(t, err)
	assert.True(t, verdict.Passed)
	assert.Equal(t, "safe", verdict.Category)
}

func TestGateCheckUnsafeWithCategory(t *testing.T) {
	gate := NewGate(&mockClient{
		moderateFunc: func(_ context.Context, _ string) (string, error) {
			return "unsafe\nS11", nil
		},
	}, time.Second, nil)

	verdict, err := gate.Check(context.Background(), "flagged input")
	require.NoError(t, err)
	assert.False(t, verdict.Passed)
	assert.Equal(t, types.CategorySelfHarm, verdict.Category)
	assert.Equal(t, "unsafe\nS11", verdict.Raw)
}

func TestGateCheckUnsafeWithoutCategory(t *testing.T) {
	gate := NewGate(&mockClient{
		moderateFunc: func(_ context.Context, _ string) (string, error) {
			return "unsafe", nil
		},
	}, time.Second, nil)

	verdict, err := gate.Check(context.Background(), "flagged input")
	require.NoError(t, err)
	assert.False(t, verdict.Passed)
	assert.Equal(t, "unknown", verdict.Category)
}

func TestGateCheckAmbiguousFailsClosed(t *testing.T) {
	// A verdict the gate cannot positively read must flag, never clear.
	gate := NewGate(&mockClient{
		moderateFunc: func(_ context.Context, _ string) (string, error) {
			return "I cannot assess this content.", nil
		},
	}, time.Second, nil)

	verdict, err := gate.Check(context.Background(), "anything")
	require.NoError(t, err)
	assert.False(t, verdict.Passed)
	assert.Equal(t, "unclear", verdict.Category)
}

func TestGateCheckGatewayFailure(t *testing.T) {
	gate := NewGate(&mockClient{
		moderateFunc: func(_ context.Context, _ string) (string, error) {
			return "", gateway.ErrUnavailable
		},
	}, time.Second, nil)

	verdict, err := gate.Check(context.Background(), "anything")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGatewayUnavailable)
	assert.False(t, verdict.Passed)
	assert.Equal(t, "gateway-error", verdict.Category)
}

func TestParseVerdictUnsafeCheckedBeforeSafe(t *testing.T) {
	// "unsafe" contains "safe" as a substring; the flag must win.
	verdict := parseVerdict("unsafe S10")
	assert.False(t, verdict.Passed)
	assert.Equal(t, "S10", verdict.Category)
}
