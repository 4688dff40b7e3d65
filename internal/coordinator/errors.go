package coordinator

import (
	"errors"
	"fmt"
)

// ErrReauthRequired matches (via errors.Is) any failure caused by rejected
// credentials. It is non-retryable; the platform must re-run authentication.
var ErrReauthRequired = errors.New("re-authentication required")

// AuthRequiredError wraps a credential rejection from the cloud backend.
type AuthRequiredError struct {
	Cause error
}

func (e *AuthRequiredError) Error() string {
	return fmt.Sprintf("re-authentication required: %v", e.Cause)
}

func (e *AuthRequiredError) Unwrap() error { return e.Cause }

func (e *AuthRequiredError) Is(target error) bool { return target == ErrReauthRequired }

// RefreshError wraps any non-auth failure raised during a snapshot build.
// The previously published snapshot stays visible; consumers should treat
// their data as stale until the next successful refresh.
type RefreshError struct {
	Cause error
}

func (e *RefreshError) Error() string {
	return fmt.Sprintf("refresh failed: %v", e.Cause)
}

func (e *RefreshError) Unwrap() error { return e.Cause }
