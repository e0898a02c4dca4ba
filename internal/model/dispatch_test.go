package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDispatchOutcome(t *testing.T) {
	for _, valid := range []string{"SENT", "FAILED", "DISABLED", "RATE_LIMITED"} {
		outcome, err := ParseDispatchOutcome(valid)
		require.NoError(t, err)
		assert.Equal(t, DispatchOutcome(valid), outcome)
	}

	_, err := ParseDispatchOutcome("BOUNCED")
	assert.Error(t, err)

	// Enum values are case sensitive.
	_, err = ParseDispatchOutcome("sent")
	assert.Error(t, err)
}

func TestCountsTowardQuota(t *testing.T) {
	assert.True(t, DispatchOutcomeSent.CountsTowardQuota())
	assert.True(t, DispatchOutcomeFailed.CountsTowardQuota())
	assert.True(t, DispatchOutcomeDisabled.CountsTowardQuota())
	assert.False(t, DispatchOutcomeRateLimited.CountsTowardQuota())
}
