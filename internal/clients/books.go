package clients

import (
	"context"
	"net/http"
	"net/url"

	"libranexus/internal/catalog"
)

type BooksClient struct {
	t *Transport
}

func NewBooksClient(t *Transport) *BooksClient {
	return &BooksClient{t: t}
}

// List searches the catalogue. Empty filter fields are not sent.
func (c *BooksClient) List(ctx context.Context, f catalog.Filter) ([]catalog.Book, error) {
	q := url.Values{}
	setString(q, "search", f.Search)
	setString(q, "category", f.Category)
	setInt(q, "years", f.Years)

	var books []catalog.Book
	if err := c.t.do(ctx, "books.list", http.MethodGet, "/books", q, nil, &books); err != nil {
		return nil, err
	}
	return books, nil
}

func (c *BooksClient) Recommended(ctx context.Context, limit int) ([]catalog.Book, error) {
	q := url.Values{}
	setInt(q, "max", limit)

	var books []catalog.Book
	if err := c.t.do(ctx, "books.recommended", http.MethodGet, "/books/recommended", q, nil, &books); err != nil {
		return nil, err
	}
	return books, nil
}

// Get fetches one book with up to limit embedded reviews.
func (c *BooksClient) Get(ctx context.Context, id string, limit int) (*catalog.Book, error) {
	q := url.Values{}
	setInt(q, "max", limit)

	var book catalog.Book
	if err := c.t.do(ctx, "books.get", http.MethodGet, "/books/"+url.PathEscape(id), q, nil, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

func (c *BooksClient) Create(ctx context.Context, in catalog.BookInput) (*catalog.Book, error) {
	var book catalog.Book
	if err := c.t.do(ctx, "books.create", http.MethodPost, "/books", nil, in, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

func (c *BooksClient) Update(ctx context.Context, id string, in catalog.BookInput) (*catalog.Book, error) {
	var book catalog.Book
	if err := c.t.do(ctx, "books.update", http.MethodPut, "/books/"+url.PathEscape(id), nil, in, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

func (c *BooksClient) Delete(ctx context.Context, id string) error {
	return c.t.do(ctx, "books.delete", http.MethodDelete, "/books/"+url.PathEscape(id), nil, nil, nil)
}
