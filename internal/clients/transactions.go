package clients

import (
	"context"
	"net/http"
	"net/url"

	"libranexus/internal/circulation"
)

type TransactionsClient struct {
	t *Transport
}

func NewTransactionsClient(t *Transport) *TransactionsClient {
	return &TransactionsClient{t: t}
}

// Create submits a borrow request. The response's Data holds the invoice code.
func (c *TransactionsClient) Create(ctx context.Context, req circulation.CreateRequest) (*circulation.CreateResponse, error) {
	var resp circulation.CreateResponse
	if err := c.t.do(ctx, "transactions.create", http.MethodPost, "/transactions", nil, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *TransactionsClient) ByInvoice(ctx context.Context, invoiceCode string) (*circulation.Transaction, error) {
	q := url.Values{}
	q.Set("invoiceCode", invoiceCode)

	var tx circulation.Transaction
	if err := c.t.do(ctx, "transactions.by_invoice", http.MethodGet, "/transactions/invoice", q, nil, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

func (c *TransactionsClient) List(ctx context.Context, f circulation.Filter) ([]circulation.Transaction, error) {
	q := url.Values{}
	setString(q, "userId", f.UserID)
	setString(q, "search", f.Search)
	setString(q, "status", string(f.Status))
	setString(q, "type", string(f.Type))

	var out []circulation.Transaction
	if err := c.t.do(ctx, "transactions.list", http.MethodGet, "/transactions", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateStatus moves a transaction to status and records the kind of step
// (borrow or return) that caused it.
func (c *TransactionsClient) UpdateStatus(ctx context.Context, invoiceCode string, status circulation.Status, typ circulation.Type) (string, error) {
	q := url.Values{}
	q.Set("invoiceCode", invoiceCode)
	q.Set("status", string(status))
	setString(q, "type", string(typ))

	var resp messageBody
	if err := c.t.do(ctx, "transactions.update_status", http.MethodPut, "/transactions", q, nil, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}
