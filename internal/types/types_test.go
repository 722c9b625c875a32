package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseIntent(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Intent
	}{
		{"exact anxiety", "ANXIETY", IntentAnxiety},
		{"exact crisis", "CRISIS", IntentCrisis},
		{"exact general", "GENERAL", IntentGeneral},
		{"lowercase", "anxiety", IntentAnxiety},
		{"embedded in sentence", "The primary concern is ANXIETY.", IntentAnxiety},
		{"crisis beats anxiety", "This could be ANXIETY or CRISIS", IntentCrisis},
		{"anxiety beats general", "GENERAL with ANXIETY undertones", IntentAnxiety},
		{"unrecognized falls back to general", "DEPRESSION", IntentGeneral},
		{"empty falls back to general", "", IntentGeneral},
		{"whitespace and noise", "  \n Routing: crisis \n", IntentCrisis},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseIntent(tt.raw))
		})
	}
}

func TestIntentValid(t *testing.T) {
	assert.True(t, IntentAnxiety.Valid())
	assert.True(t, IntentCrisis.Valid())
	assert.True(t, IntentGeneral.Valid())
	assert.False(t, Intent("depression").Valid())
	assert.False(t, Intent("").Valid())
}
