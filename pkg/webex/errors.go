package webex

import "fmt"

// CredentialError reports missing credentials or a failed token refresh.
type CredentialError struct {
	Reason     string
	StatusCode int
	Body       string
	Err        error
}

func (e *CredentialError) Error() string {
	msg := "webex credentials: " + e.Reason
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d): %s", e.StatusCode, e.Body)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *CredentialError) Unwrap() error { return e.Err }

// APIError is a non-success response from the Webex REST API.
type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("webex api %s: status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

const maxErrorBody = 512

func truncate(s string) string {
	if len(s) <= maxErrorBody {
		return s
	}
	return s[:maxErrorBody] + "..."
}
