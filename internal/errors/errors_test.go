package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type versionError struct {
	Expected, Actual int64
}

func (e versionError) Error() string { return "version mismatch" }

func TestWrapKeepsSentinel(t *testing.T) {
	staleVersion := Wrap(ErrConflict, "user was modified concurrently")
	assert.EqualError(t, staleVersion, "user was modified concurrently: conflict")
	assert.True(t, Is(staleVersion, ErrConflict))
	assert.False(t, Is(staleVersion, ErrNotFound))

	// a second layer of context still resolves to the sentinel
	outer := Wrapf(staleVersion, "save aggregate %s", "0190c0de")
	assert.EqualError(t, outer, "save aggregate 0190c0de: user was modified concurrently: conflict")
	assert.True(t, Is(outer, ErrConflict))
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "ignored"))
	assert.NoError(t, Wrapf(nil, "ignored %d", 1))
}

func TestAsExtractsTypedError(t *testing.T) {
	err := Wrap(versionError{Expected: 3, Actual: 4}, "append envelope")

	var target versionError
	require.True(t, As(err, &target))
	assert.Equal(t, int64(3), target.Expected)
	assert.Equal(t, int64(4), target.Actual)
}

func TestJoin(t *testing.T) {
	joined := Join(ErrNotFound, nil, ErrConflict)
	assert.True(t, Is(joined, ErrNotFound))
	assert.True(t, Is(joined, ErrConflict))
	assert.NoError(t, Join(nil, nil))
}

func TestSentinelsAreDistinct(t *testing.T) {
	sentinels := []error{ErrNotFound, ErrConflict, ErrInvalidInput, ErrInvalidOperation, ErrUnauthorized, ErrForbidden}
	for i, a := range sentinels {
		for j, b := range sentinels {
			assert.Equal(t, i == j, errors.Is(a, b), "%v vs %v", a, b)
		}
	}
	assert.EqualError(t, New("broker unavailable"), "broker unavailable")
}
