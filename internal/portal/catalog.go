package portal

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"libranexus/internal/catalog"
)

const bookReviews = 10

func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := catalog.Filter{Search: q.Get("search"), Category: q.Get("category")}
	if y := q.Get("years"); y != "" {
		years, err := strconv.Atoi(y)
		if err != nil || years < 0 {
			writeError(w, http.StatusBadRequest, "years must be a non-negative number")
			return
		}
		f.Years = years
	}

	_, ctx := identity(r)
	books, err := s.lib.Books.List(ctx, f)
	if err != nil {
		s.fail(w, r, err, "Failed to fetch books")
		return
	}
	writeJSON(w, http.StatusOK, booksView(books, sessionFrom(r.Context()).Cart))
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	_, ctx := identity(r)
	book, err := s.lib.Books.Get(ctx, chi.URLParam(r, "id"), bookReviews)
	if err != nil {
		s.fail(w, r, err, "Failed to fetch book details")
		return
	}
	c := sessionFrom(r.Context()).Cart
	writeJSON(w, http.StatusOK, bookView{Book: *book, InCart: c.IsInCart(book.ID)})
}

type reviewForm struct {
	Rating  int    `json:"rating"`
	Content string `json:"content"`
}

func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	var f reviewForm
	if !decodeJSON(w, r, &f) {
		return
	}
	if f.Rating < 1 || f.Rating > 5 {
		writeError(w, http.StatusBadRequest, "Rating must be between 1 and 5")
		return
	}

	user, ctx := identity(r)
	err := s.lib.Reviews.Create(ctx, catalog.ReviewInput{
		BookID: chi.URLParam(r, "id"),
		Review: catalog.ReviewBody{AuthorID: user.ID, Rating: f.Rating, Content: f.Content},
	})
	if err != nil {
		s.fail(w, r, err, "Failed to submit review")
		return
	}
	writeJSON(w, http.StatusCreated, messageResponse{Message: "Review submitted successfully!"})
}
