package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrMisconfigured indicates wiring that cannot serve requests.
	ErrMisconfigured = errors.New("misconfigured")
)
