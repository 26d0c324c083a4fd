package shared

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsCode(t *testing.T) {
	err := Wrap(ErrFinalized, "cheque 12 is cleared")
	assert.True(t, errors.Is(err, ErrFinalized))
	assert.False(t, errors.Is(err, ErrInvalidState))
	assert.Equal(t, CodeFinalized, CodeOf(err))
	assert.Equal(t, "cheque 12 is cleared", err.Error())

	wrapped := fmt.Errorf("service: %w", err)
	assert.Equal(t, CodeFinalized, CodeOf(wrapped))
}

func TestCodeOfDefaultsToInternal(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("connection refused")))
}

func TestAllowed(t *testing.T) {
	assert.True(t, Allowed(RoleHOF, RoleAdmin, RoleHOF))
	assert.False(t, Allowed(RoleAccountManager, RoleHOF))
	assert.False(t, Allowed(RoleAdmin))
}
