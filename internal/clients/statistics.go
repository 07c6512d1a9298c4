package clients

import (
	"context"
	"net/http"
	"net/url"

	"libranexus/internal/catalog"
)

type StatisticsClient struct {
	t *Transport
}

func NewStatisticsClient(t *Transport) *StatisticsClient {
	return &StatisticsClient{t: t}
}

func (c *StatisticsClient) Get(ctx context.Context, limit int) (*catalog.Statistics, error) {
	q := url.Values{}
	setInt(q, "max", limit)

	var resp struct {
		Message string             `json:"message"`
		Data    catalog.Statistics `json:"data"`
	}
	if err := c.t.do(ctx, "statistics.get", http.MethodGet, "/statistic", q, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}
