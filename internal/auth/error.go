package auth

import (
	"crypto/subtle"
	"errors"
)

// CauseType classifies why an authentication attempt was rejected.
// Authenticators attach a cause to every failure so callers can branch on
// the category (fall through to another authenticator, surface a specific
// HTTP status) without parsing error strings.
type CauseType string

const (
	// CauseInvalidCredentials means the presented credential was understood
	// but rejected: wrong password, bad signature, unknown key, failed bind.
	CauseInvalidCredentials CauseType = "INVALID_CREDENTIALS"
	// CauseExpiredCredentials means the credential was valid once but its
	// validity window has passed.
	CauseExpiredCredentials CauseType = "EXPIRED_CREDENTIALS"
	// CauseForcePasswordChange means the credential verified but the account
	// must rotate its password before it may authenticate.
	CauseForcePasswordChange CauseType = "FORCE_PASSWORD_CHANGE"
	// CauseSuspended means the credential verified but the account is
	// administratively disabled.
	CauseSuspended CauseType = "SUSPENDED"
	// CauseUnmappedAccount means an external identity verified upstream but
	// no local account corresponds to it.
	CauseUnmappedAccount CauseType = "UNMAPPED_ACCOUNT"
	// CauseOther covers infrastructure faults: repository errors, transport
	// failures, malformed upstream responses. Never caused by the caller's
	// credential itself.
	CauseOther CauseType = "OTHER"
)

// Error is the failure value produced by authenticators and token
// validators. Cause is always set; Err carries the underlying fault when
// one exists and is reachable via errors.Unwrap.
type Error struct {
	Cause CauseType
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds an authentication failure with the given cause.
func NewError(cause CauseType, msg string) *Error {
	return &Error{Cause: cause, Msg: msg}
}

// WrapError builds an authentication failure that preserves the underlying
// error for errors.Is/errors.As inspection.
func WrapError(cause CauseType, msg string, err error) *Error {
	return &Error{Cause: cause, Msg: msg, Err: err}
}

// CauseOf extracts the cause from an authentication error. Errors that do
// not carry a cause (repository faults, context cancellation, anything
// outside this package) classify as CauseOther.
func CauseOf(err error) CauseType {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Cause
	}
	return CauseOther
}

// SecureCompare reports whether a and b are equal without leaking the
// position of the first differing byte through timing.
func SecureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
