// internal/auth/service.go
package auth

import (
	"context"

	"libranexus/internal/membership"
)

// Service is the session store for one client.
type Service interface {
	// Initialize restores the persisted session. After a successful restore,
	// login or logout later calls do nothing. A storage error is returned and
	// the next call reads again.
	Initialize(ctx context.Context) error
	Login(ctx context.Context, email, password string) (*membership.User, error)
	LoginAdmin(ctx context.Context, email, password string) (*membership.User, error)
	Logout(ctx context.Context) error
	Snapshot() State
}

// Backend is the part of the auth API the store calls.
type Backend interface {
	Login(ctx context.Context, creds membership.Credentials) (*membership.LoginResponse, error)
	LoginAdmin(ctx context.Context, creds membership.Credentials) (*membership.LoginResponse, error)
}

// CartClearer empties the client's cart on logout.
type CartClearer interface {
	Clear(ctx context.Context) error
}
