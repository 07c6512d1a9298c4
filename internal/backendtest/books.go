package backendtest

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"libranexus/internal/catalog"
)

// AddBook stores a book and returns it with its new id.
func (s *Server) AddBook(in catalog.BookInput) catalog.Book {
	b := bookFrom(in)
	b.ID = uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.books[b.ID] = &b
	s.bookOrder = append(s.bookOrder, b.ID)
	return b
}

// Book returns a copy of the stored book.
func (s *Server) Book(id string) (catalog.Book, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[id]
	if !ok {
		return catalog.Book{}, false
	}
	return *b, true
}

func bookFrom(in catalog.BookInput) catalog.Book {
	return catalog.Book{
		Title:           in.Title,
		Author:          in.Author,
		Category:        in.Category,
		Year:            in.Year,
		Description:     in.Description,
		Image:           in.Image,
		Quota:           in.Quota,
		RackNumber:      in.RackNumber,
		ISBN:            in.ISBN,
		Language:        in.Language,
		AvailableCopies: in.AvailableCopies,
		LateFee:         in.LateFee,
		CanBorrow:       in.CanBorrow,
		Rating:          in.Rating,
	}
}

func matchesBook(b *catalog.Book, f catalog.Filter) bool {
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(b.Title), q) &&
			!strings.Contains(strings.ToLower(b.Author), q) &&
			!strings.Contains(strings.ToLower(b.ISBN), q) {
			return false
		}
	}
	if f.Category != "" && !strings.EqualFold(b.Category, f.Category) {
		return false
	}
	if f.Years != 0 && b.Year != f.Years {
		return false
	}
	return true
}

// listBooks needs s.mu held.
func (s *Server) listBooks(f catalog.Filter) []catalog.Book {
	out := []catalog.Book{}
	for _, id := range s.bookOrder {
		if b := s.books[id]; matchesBook(b, f) {
			out = append(out, *b)
		}
	}
	return out
}

func (s *Server) handleListBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := catalog.Filter{Search: q.Get("search"), Category: q.Get("category")}
	if y := q.Get("years"); y != "" {
		n, err := strconv.Atoi(y)
		if err != nil {
			writeError(w, http.StatusBadRequest, "years must be a number")
			return
		}
		f.Years = n
	}

	s.mu.Lock()
	books := s.listBooks(f)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, books)
}

func (s *Server) handleRecommended(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "max", 5)

	s.mu.Lock()
	books := s.listBooks(catalog.Filter{})
	s.mu.Unlock()

	sort.SliceStable(books, func(i, j int) bool { return books[i].Rating > books[j].Rating })
	if len(books) > limit {
		books = books[:limit]
	}
	writeJSON(w, http.StatusOK, books)
}

func (s *Server) handleGetBook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	limit := queryInt(r, "max", 0)

	s.mu.Lock()
	b, ok := s.books[id]
	var book catalog.Book
	if ok {
		book = *b
		book.Reviews = s.reviewsFor(id, limit)
	}
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "Book not found")
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func validBook(in catalog.BookInput) string {
	switch {
	case strings.TrimSpace(in.Title) == "":
		return "Title is required"
	case strings.TrimSpace(in.Author) == "":
		return "Author is required"
	case in.Quota < 0 || in.AvailableCopies < 0:
		return "Copies cannot be negative"
	case in.AvailableCopies > in.Quota:
		return "Available copies cannot exceed the quota"
	}
	return ""
}

func (s *Server) handleCreateBook(w http.ResponseWriter, r *http.Request) {
	var in catalog.BookInput
	if !decode(w, r, &in) {
		return
	}
	if msg := validBook(in); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	writeJSON(w, http.StatusCreated, s.AddBook(in))
}

func (s *Server) handleUpdateBook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var in catalog.BookInput
	if !decode(w, r, &in) {
		return
	}
	if msg := validBook(in); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.books[id]; !ok {
		writeError(w, http.StatusNotFound, "Book not found")
		return
	}
	b := bookFrom(in)
	b.ID = id
	s.books[id] = &b
	writeJSON(w, http.StatusOK, b)
}

func (s *Server) handleDeleteBook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.books[id]; !ok {
		writeError(w, http.StatusNotFound, "Book not found")
		return
	}
	delete(s.books, id)
	for i, bid := range s.bookOrder {
		if bid == id {
			s.bookOrder = append(s.bookOrder[:i:i], s.bookOrder[i+1:]...)
			break
		}
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Book deleted"})
}

// reviewsFor returns the newest reviews first. limit <= 0 means all. Caller
// holds s.mu.
func (s *Server) reviewsFor(bookID string, limit int) []catalog.Review {
	out := []catalog.Review{}
	for i := len(s.reviews) - 1; i >= 0; i-- {
		rv := s.reviews[i]
		if bookID != "" && rv.bookID != bookID {
			continue
		}
		out = append(out, rv.Review)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	bookID := r.URL.Query().Get("bookId")
	limit := queryInt(r, "max", 0)

	s.mu.Lock()
	reviews := s.reviewsFor(bookID, limit)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, reviews)
}

func (s *Server) handleCreateReview(w http.ResponseWriter, r *http.Request) {
	var in catalog.ReviewInput
	if !decode(w, r, &in) {
		return
	}
	c := callerFrom(r.Context())
	if in.Review.AuthorID == "" {
		in.Review.AuthorID = c.id
	}
	if in.Review.AuthorID != c.id && !c.admin() {
		writeError(w, http.StatusForbidden, "You can only review as yourself")
		return
	}
	if in.Review.Rating < 1 || in.Review.Rating > 5 {
		writeError(w, http.StatusBadRequest, "Rating must be between 1 and 5")
		return
	}
	if strings.TrimSpace(in.Review.Content) == "" {
		writeError(w, http.StatusBadRequest, "Review content is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.books[in.BookID]
	if !ok {
		writeError(w, http.StatusNotFound, "Book not found")
		return
	}
	var authorName string
	if acc, ok := s.accounts[in.Review.AuthorID]; ok {
		authorName = acc.Name
	}
	rv := storedReview{
		bookID:   b.ID,
		authorID: in.Review.AuthorID,
		Review: catalog.Review{
			ID:         uuid.NewString(),
			BookTitle:  b.Title,
			AuthorName: authorName,
			Date:       s.today(),
			Rating:     in.Review.Rating,
			Content:    in.Review.Content,
		},
	}
	s.reviews = append(s.reviews, rv)

	var sum, n int
	for _, other := range s.reviews {
		if other.bookID == b.ID {
			sum += other.Rating
			n++
		}
	}
	b.Rating = float64(sum) / float64(n)

	writeJSON(w, http.StatusCreated, rv.Review)
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "max", 5)

	s.mu.Lock()
	stats := catalog.Statistics{
		TotalBook:          len(s.books),
		TotalUser:          len(s.accounts),
		TotalTransaction:   len(s.transactions),
		TotalNotifications: len(s.notifications),
		TotalReview:        len(s.reviews),
		RecentReviews:      s.reviewsFor("", limit),
	}
	var sum int
	for _, rv := range s.reviews {
		sum += rv.Rating
	}
	if len(s.reviews) > 0 {
		stats.AverageReview = float64(sum) / float64(len(s.reviews))
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, struct {
		Message string             `json:"message"`
		Data    catalog.Statistics `json:"data"`
	}{Message: "Statistics fetched", Data: stats})
}
