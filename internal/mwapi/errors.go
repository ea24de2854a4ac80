package mwapi

import "fmt"

// RemoteError is a non-success HTTP status or an in-band API error object.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("motaword request failed with status %d", e.StatusCode)
	}
	return fmt.Sprintf("motaword request failed: %s", e.Message)
}

// AuthError is a failed client-credentials token exchange.
type AuthError struct {
	Message string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return "motaword token exchange failed"
	}
	return fmt.Sprintf("motaword token exchange failed: %s", e.Message)
}
