package clients

import (
	"context"
	"net/http"
	"net/url"

	"libranexus/internal/notification"
)

type NotificationsClient struct {
	t *Transport
}

func NewNotificationsClient(t *Transport) *NotificationsClient {
	return &NotificationsClient{t: t}
}

// List returns notifications for userID, or all of them when userID is empty.
func (c *NotificationsClient) List(ctx context.Context, userID string) ([]notification.Notification, error) {
	q := url.Values{}
	setString(q, "userId", userID)

	var out []notification.Notification
	if err := c.t.do(ctx, "notifications.list", http.MethodGet, "/notifications", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *NotificationsClient) MarkRead(ctx context.Context, id string) (*notification.Notification, error) {
	q := url.Values{}
	q.Set("notifId", id)

	var n notification.Notification
	if err := c.t.do(ctx, "notifications.mark_read", http.MethodPut, "/notifications", q, nil, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

// Create sends the notification fields as query parameters with an empty body,
// which is what the backend expects for this endpoint.
func (c *NotificationsClient) Create(ctx context.Context, req notification.CreateRequest) (*notification.Notification, error) {
	q := url.Values{}
	setString(q, "userId", req.UserID)
	setString(q, "title", req.Title)
	setString(q, "message", req.Message)
	setString(q, "type", string(req.Type))

	var n notification.Notification
	if err := c.t.do(ctx, "notifications.create", http.MethodPost, "/notifications", q, nil, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (c *NotificationsClient) Delete(ctx context.Context, id string) (string, error) {
	var resp messageBody
	if err := c.t.do(ctx, "notifications.delete", http.MethodDelete, "/notifications/"+url.PathEscape(id), nil, nil, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}
