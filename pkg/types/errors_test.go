package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryableMarking(t *testing.T) {
	base := errors.New("connection dropped")

	marked := MarkRetryable(base)
	assert.True(t, Retryable(marked))
	assert.ErrorIs(t, marked, base)

	// Wrapping preserves the mark.
	wrapped := fmt.Errorf("saving edge: %w", marked)
	assert.True(t, Retryable(wrapped))
	assert.ErrorIs(t, wrapped, base)
}

func TestRetryableNegatives(t *testing.T) {
	assert.False(t, Retryable(nil))
	assert.False(t, Retryable(errors.New("plain")))
	assert.False(t, Retryable(ErrNotFound))
	assert.False(t, Retryable(ErrInvalidCode))
}

func TestMarkRetryableNil(t *testing.T) {
	require.Nil(t, MarkRetryable(nil))
}
