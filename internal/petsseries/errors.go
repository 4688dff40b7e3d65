package petsseries

import (
	"errors"
	"fmt"
)

var (
	ErrRequest = errors.New("error making petsseries request")
	ErrStatus  = errors.New("unexpected status from petsseries backend")

	// errUnauthorized marks a 401 that may be fixed by a token refresh.
	errUnauthorized = errors.New("access token rejected")
	// errTransient marks failures worth retrying (network, 5xx).
	errTransient = errors.New("transient backend failure")
)

// AuthError is returned when the backend rejects the client credentials
// themselves (an invalid_client response). It is non-retryable; the only
// recovery is user re-authentication.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("petsseries authentication failed: %s", e.Reason)
}

// IsAuthError reports whether err carries an AuthError anywhere in its chain.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}
