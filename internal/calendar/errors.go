package calendar

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when no calendar URL has been configured.
var ErrNotConfigured = errors.New("calendar: source URL not configured")

// FetchError reports a failed call to the calendar web app: a transport
// failure, a non-2xx status, an undecodable body or an error payload.
type FetchError struct {
	Year       int
	StatusCode int
	Status     string
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("calendar API エラー: %d %s", e.StatusCode, e.Status)
	case e.Message != "":
		return fmt.Sprintf("calendar API エラー: %s", e.Message)
	case e.Err != nil:
		return fmt.Sprintf("calendar API エラー: %v", e.Err)
	default:
		return "calendar API エラー"
	}
}

// Unwrap returns the underlying error.
func (e *FetchError) Unwrap() error {
	return e.Err
}
