package persistence

import (
	"errors"
	"fmt"
	"net/http"
)

var ErrNotSaved = errors.New("flow must be saved before it can be published")

// ConflictError is the server refusing to activate a flow because another
// one is already active for the same organization and channel. Error
// returns the server's reason unchanged.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	if e.Reason == "" {
		return "another flow is already active for this channel"
	}
	return e.Reason
}

// APIError is any other failed call to the Flow API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Status == 0 {
		return "flow api request failed"
	}
	return fmt.Sprintf("flow api returned %d %s", e.Status, http.StatusText(e.Status))
}

// IsConflict reports whether err carries a ConflictError.
func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}
