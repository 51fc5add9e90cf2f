package auth

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCauseOf(t *testing.T) {
	direct := NewError(CauseSuspended, "account suspended")
	assert.Equal(t, CauseSuspended, CauseOf(direct))

	wrapped := fmt.Errorf("authenticate: %w", WrapError(CauseInvalidCredentials, "bad password", errors.New("mismatch")))
	assert.Equal(t, CauseInvalidCredentials, CauseOf(wrapped))

	assert.Equal(t, CauseOther, CauseOf(errors.New("connection refused")))
	assert.Equal(t, CauseOther, CauseOf(nil))
}

func TestErrorMessage(t *testing.T) {
	assert.Equal(t, "nope", NewError(CauseOther, "nope").Error())

	wrapped := WrapError(CauseOther, "fetch keys", errors.New("timeout"))
	assert.Equal(t, "fetch keys: timeout", wrapped.Error())
	assert.EqualError(t, errors.Unwrap(wrapped), "timeout")
}

func TestSecureCompare(t *testing.T) {
	assert.True(t, SecureCompare("same", "same"))
	assert.False(t, SecureCompare("same", "different"))
	assert.False(t, SecureCompare("same", "samesame"))
	assert.True(t, SecureCompare("", ""))
}
