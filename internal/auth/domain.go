// internal/auth/domain.go
package auth

import (
	"errors"

	"libranexus/internal/membership"
)

// Storage keys. The identity is stored as JSON, the token as the raw string.
const (
	KeyUser  = "user"
	KeyToken = "token"
)

// State is a point-in-time view of the session.
type State struct {
	Identity     *membership.User
	Token        string
	Initializing bool
}

// Authenticated reports whether both halves of the session are present.
func (s State) Authenticated() bool {
	return s.Identity != nil && s.Token != ""
}

// IsAdmin reports whether the signed-in identity holds the admin role.
func (s State) IsAdmin() bool {
	return s.Authenticated() && s.Identity.IsAdmin()
}

// Error is a failed login. Message is safe to show the user; it is the
// backend's explanation whenever one was given.
type Error struct {
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Err }

// ErrSuperseded is returned by a login whose answer arrived after a logout
// issued later. The result is dropped.
var ErrSuperseded = errors.New("auth: session changed while logging in")
