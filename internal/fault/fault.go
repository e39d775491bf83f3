// Package fault defines the error taxonomy shared by the session and order
// packages. Handlers map these sentinels to HTTP status codes; anything
// else reaching the HTTP layer is treated as a dependency failure.
package fault

import "errors"

var (
	// ErrNotFound means a session, order, or conversation id did not resolve.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState means the operation is not permitted in the entity's
	// current state, such as closing an already-closed session.
	ErrInvalidState = errors.New("invalid state")
)
