package clients

import (
	"context"
	"net/http"
	"net/url"

	"libranexus/internal/membership"
)

type UsersClient struct {
	t *Transport
}

func NewUsersClient(t *Transport) *UsersClient {
	return &UsersClient{t: t}
}

func (c *UsersClient) List(ctx context.Context, role membership.Role) ([]membership.User, error) {
	q := url.Values{}
	setString(q, "role", string(role))

	var users []membership.User
	if err := c.t.do(ctx, "users.list", http.MethodGet, "/users", q, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *UsersClient) Get(ctx context.Context, id string) (*membership.User, error) {
	var u membership.User
	if err := c.t.do(ctx, "users.get", http.MethodGet, "/users/"+url.PathEscape(id), nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *UsersClient) Update(ctx context.Context, id string, in membership.UserUpdate) (*membership.User, error) {
	var u membership.User
	if err := c.t.do(ctx, "users.update", http.MethodPut, "/users/"+url.PathEscape(id), nil, in, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *UsersClient) Delete(ctx context.Context, id string) error {
	return c.t.do(ctx, "users.delete", http.MethodDelete, "/users/"+url.PathEscape(id), nil, nil, nil)
}
