package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMatchesByCode(t *testing.T) {
	err := Authorization("circle is not yours")
	assert.True(t, errors.Is(err, ErrAuthorization))
	assert.False(t, errors.Is(err, ErrNotFound))

	wrapped := fmt.Errorf("set presence: %w", err)
	assert.True(t, errors.Is(wrapped, ErrAuthorization))
	assert.Equal(t, CodeAuthorization, CodeOf(wrapped))
}

func TestInternalKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal(cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeInternal, CodeOf(err))
	assert.Equal(t, "internal error: connection reset", err.Error())
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("boom")))
}
