package portal

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"libranexus/internal/cart"
)

type cartPage struct {
	Items []cart.Entry `json:"items"`
	Count int          `json:"count"`
}

func (s *Server) writeCart(w http.ResponseWriter, status int, c cart.Service) {
	items := c.Items()
	if items == nil {
		items = []cart.Entry{}
	}
	writeJSON(w, status, cartPage{Items: items, Count: len(items)})
}

func (s *Server) handleCart(w http.ResponseWriter, r *http.Request) {
	c := sessionFrom(r.Context()).Cart
	if err := c.Initialize(r.Context()); err != nil {
		s.fail(w, r, err, "Failed to load cart")
		return
	}
	s.writeCart(w, http.StatusOK, c)
}

type addForm struct {
	BookID string `json:"bookId"`
}

// handleAddToCart looks the book up first so the cart only ever holds
// borrowable books with current titles.
func (s *Server) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	var f addForm
	if !decodeJSON(w, r, &f) {
		return
	}
	if f.BookID == "" {
		writeError(w, http.StatusBadRequest, "bookId is required")
		return
	}

	_, ctx := identity(r)
	book, err := s.lib.Books.Get(ctx, f.BookID, 0)
	if err != nil {
		s.fail(w, r, err, "Failed to fetch book details")
		return
	}
	if !book.Available() {
		writeError(w, http.StatusConflict, "This book is not available for borrowing")
		return
	}

	c := sessionFrom(r.Context()).Cart
	if err := c.Add(r.Context(), *book); err != nil {
		if !s.cartPersistFailed(w, r, err) {
			return
		}
	}
	s.writeCart(w, http.StatusOK, c)
}

func (s *Server) handleRemoveFromCart(w http.ResponseWriter, r *http.Request) {
	c := sessionFrom(r.Context()).Cart
	if err := c.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		if !s.cartPersistFailed(w, r, err) {
			return
		}
	}
	s.writeCart(w, http.StatusOK, c)
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	c := sessionFrom(r.Context()).Cart
	if err := c.Clear(r.Context()); err != nil {
		s.cartPersistFailed(w, r, err)
	}
	s.writeCart(w, http.StatusOK, c)
}

// cartPersistFailed handles a failed cart mutation and reports whether the
// request may still succeed. A write-through failure leaves the change in
// memory and is only logged. A cart that could not be loaded was not changed,
// so the error is sent and false returned.
func (s *Server) cartPersistFailed(w http.ResponseWriter, r *http.Request, err error) bool {
	if errors.Is(err, cart.ErrNotLoaded) {
		s.fail(w, r, err, "Failed to update cart")
		return false
	}
	s.log.Warn("persist cart",
		zap.String("client_id", sessionFrom(r.Context()).ClientID),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	return true
}

type checkoutForm struct {
	PaymentMethod   string `json:"paymentMethod"`
	PaymentEvidence string `json:"paymentEvidence"`
	DateFrom        string `json:"dateFrom"`
	DateTo          string `json:"dateTo"`
}

type checkoutResponse struct {
	Message     string `json:"message"`
	InvoiceCode string `json:"invoiceCode"`
	Redirect    string `json:"redirect"`
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var f checkoutForm
	if !decodeJSON(w, r, &f) {
		return
	}

	user, ctx := identity(r)
	resp, err := sessionFrom(r.Context()).Cart.Submit(ctx, cart.Checkout{
		UserID:          user.ID,
		PaymentMethod:   f.PaymentMethod,
		PaymentEvidence: f.PaymentEvidence,
		DateFrom:        f.DateFrom,
		DateTo:          f.DateTo,
	})
	if err != nil {
		s.fail(w, r, err, "Failed to create transaction")
		return
	}
	writeJSON(w, http.StatusCreated, checkoutResponse{
		Message:     "Transaction created successfully!",
		InvoiceCode: resp.Data,
		Redirect:    "/transactions/" + resp.Data,
	})
}
