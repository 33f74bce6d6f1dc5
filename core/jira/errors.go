package jira

import (
	"errors"
	"fmt"
)

// AuthenticationError reports a 401 or 403 from Jira.
type AuthenticationError struct {
	Status int
	Path   string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("jira authentication failed (status %d on %s): check the configured email and API token", e.Status, e.Path)
}

// StatusError is a non-2xx response that is neither an auth failure nor transient.
type StatusError struct {
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("jira API returned status %d for %s", e.Status, e.Path)
	}
	return fmt.Sprintf("jira API returned status %d for %s: %s", e.Status, e.Path, e.Body)
}

// TransientError wraps connection failures, timeouts, 429 and 5xx responses.
type TransientError struct {
	Path string
	Err  error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient jira failure on %s: %v", e.Path, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	var t *TransientError
	return errors.As(err, &t)
}

// IsAuthentication reports whether err carries an *AuthenticationError.
func IsAuthentication(err error) bool {
	var a *AuthenticationError
	return errors.As(err, &a)
}
