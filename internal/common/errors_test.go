package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartialReKeyError_MatchesSentinelAndCause(t *testing.T) {
	cause := errors.New("write failed")
	var err error = &PartialReKeyError{Rekeyed: []string{"a"}, FailedID: "b", Err: cause}

	require.ErrorIs(t, err, ErrPartialReKey)
	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "secret b failed after 1 re-keyed")

	wrapped := fmt.Errorf("update pin: %w", err)
	var pe *PartialReKeyError
	require.ErrorAs(t, wrapped, &pe)
	assert.Equal(t, []string{"a"}, pe.Rekeyed)
}
