package clients

import (
	"context"
	"net/http"
	"net/url"

	"libranexus/internal/catalog"
)

type ReviewsClient struct {
	t *Transport
}

func NewReviewsClient(t *Transport) *ReviewsClient {
	return &ReviewsClient{t: t}
}

// List returns reviews, optionally narrowed to one book. A zero limit leaves the
// limit to the backend.
func (c *ReviewsClient) List(ctx context.Context, bookID string, limit int) ([]catalog.Review, error) {
	q := url.Values{}
	setString(q, "bookId", bookID)
	setInt(q, "max", limit)

	var reviews []catalog.Review
	if err := c.t.do(ctx, "reviews.list", http.MethodGet, "/reviews", q, nil, &reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}

func (c *ReviewsClient) Create(ctx context.Context, in catalog.ReviewInput) error {
	return c.t.do(ctx, "reviews.create", http.MethodPost, "/reviews", nil, in, nil)
}
