package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew_MatchesKind(t *testing.T) {
	err := New(ErrNotFound, "account not found")

	assert.EqualError(t, err, "account not found")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrValidation)
}

func TestKind(t *testing.T) {
	expired := New(ErrAuthentication, "token has expired")
	wrapped := fmt.Errorf("failed to verify: %w", expired)

	assert.Equal(t, ErrAuthentication, Kind(wrapped))
	assert.Equal(t, ErrValidation, Kind(fmt.Errorf("%w: bad", ErrValidation)))
	assert.Nil(t, Kind(errors.New("boom")))
}
