package clients

import (
	"context"
	"net/http"

	"libranexus/internal/membership"
)

// AuthClient covers login and self-registration.
type AuthClient struct {
	t *Transport
}

func NewAuthClient(t *Transport) *AuthClient {
	return &AuthClient{t: t}
}

func (c *AuthClient) Login(ctx context.Context, creds membership.Credentials) (*membership.LoginResponse, error) {
	var resp membership.LoginResponse
	if err := c.t.do(ctx, "auth.login", http.MethodPost, "/auth/login", nil, creds, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LoginAdmin hits the admin-only endpoint; the backend refuses non-admin
// accounts there.
func (c *AuthClient) LoginAdmin(ctx context.Context, creds membership.Credentials) (*membership.LoginResponse, error) {
	var resp membership.LoginResponse
	if err := c.t.do(ctx, "auth.login_admin", http.MethodPost, "/auth/login/admin", nil, creds, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *AuthClient) RegisterStudent(ctx context.Context, req membership.RegisterStudent) (string, error) {
	return c.register(ctx, "student", req)
}

func (c *AuthClient) RegisterLecturer(ctx context.Context, req membership.RegisterLecturer) (string, error) {
	return c.register(ctx, "lecturer", req)
}

func (c *AuthClient) RegisterAdmin(ctx context.Context, req membership.RegisterAdmin) (string, error) {
	return c.register(ctx, "admin", req)
}

func (c *AuthClient) register(ctx context.Context, kind string, body any) (string, error) {
	var resp messageBody
	if err := c.t.do(ctx, "auth.register_"+kind, http.MethodPost, "/users/register/"+kind, nil, body, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}
