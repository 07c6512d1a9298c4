// Package backendtest is an in-memory stand-in for the library REST
// backend. It speaks the same routes and JSON shapes as the real service and
// enforces the rules clients depend on: admin-only endpoints, bearer tokens,
// book availability. Tests run it under httptest; cmd/devbackend serves it.
package backendtest

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"libranexus/internal/catalog"
	"libranexus/internal/circulation"
	"libranexus/internal/membership"
	"libranexus/internal/notification"
)

type account struct {
	membership.User
	hash string
	salt string
}

type storedReview struct {
	bookID   string
	authorID string
	catalog.Review
}

// Server holds all backend state behind one mutex.
type Server struct {
	tokens *tokenIssuer
	log    *zap.Logger
	now    func() time.Time

	mu            sync.Mutex
	accounts      map[string]*account
	emails        map[string]string
	books         map[string]*catalog.Book
	bookOrder     []string
	reviews       []storedReview
	transactions  []*circulation.Transaction
	notifications []*notification.Notification
	calls         map[string]int
}

type Option func(*Server)

func WithLogger(log *zap.Logger) Option {
	return func(s *Server) { s.log = log }
}

// WithClock fixes the time used for tokens, review dates and invoices.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

func WithSecret(secret string) Option {
	return func(s *Server) { s.tokens.secret = []byte(secret) }
}

func New(opts ...Option) *Server {
	s := &Server{
		tokens:   &tokenIssuer{secret: []byte("backendtest-secret"), ttl: 24 * time.Hour},
		log:      zap.NewNop(),
		now:      time.Now,
		accounts: make(map[string]*account),
		emails:   make(map[string]string),
		books:    make(map[string]*catalog.Book),
		calls:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tokens.now = s.now
	return s
}

// Handler returns the backend's routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.countCalls)

	r.Post("/auth/login", s.handleLogin(false))
	r.Post("/auth/login/admin", s.handleLogin(true))
	r.Post("/users/register/{role}", s.handleRegister)
	r.Get("/books/recommended", s.handleRecommended)

	r.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Get("/books", s.handleListBooks)
		r.Get("/books/{id}", s.handleGetBook)
		r.Get("/reviews", s.handleListReviews)
		r.Post("/reviews", s.handleCreateReview)

		r.Get("/notifications", s.handleListNotifications)
		r.Put("/notifications", s.handleMarkRead)
		r.Delete("/notifications/{id}", s.handleDeleteNotification)

		r.Post("/transactions", s.handleCreateTransaction)
		r.Get("/transactions", s.handleListTransactions)
		r.Get("/transactions/invoice", s.handleTransactionByInvoice)

		r.Get("/users/{id}", s.handleGetUser)
		r.Put("/users/{id}", s.handleUpdateUser)

		r.Group(func(r chi.Router) {
			r.Use(requireAdmin)
			r.Post("/books", s.handleCreateBook)
			r.Put("/books/{id}", s.handleUpdateBook)
			r.Delete("/books/{id}", s.handleDeleteBook)
			r.Post("/notifications", s.handleCreateNotification)
			r.Put("/transactions", s.handleUpdateTransaction)
			r.Get("/users", s.handleListUsers)
			r.Delete("/users/{id}", s.handleDeleteUser)
			r.Get("/statistic", s.handleStatistics)
		})
	})
	return r
}

// Calls reports how many requests hit "METHOD /route/pattern".
func (s *Server) Calls(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[route]
}

func (s *Server) countCalls(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		pattern := chi.RouteContext(r.Context()).RoutePattern()
		s.mu.Lock()
		s.calls[r.Method+" "+pattern]++
		s.mu.Unlock()
	})
}

type ctxKey int

const callerKey ctxKey = iota

type caller struct {
	id   string
	role membership.Role
}

func (c caller) admin() bool { return c.role == membership.RoleAdmin }

func callerFrom(ctx context.Context) caller {
	c, _ := ctx.Value(callerKey).(caller)
	return c
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		c, err := s.tokens.validate(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}

		s.mu.Lock()
		_, exists := s.accounts[c.Subject]
		s.mu.Unlock()
		if !exists {
			writeError(w, http.StatusUnauthorized, "Account no longer exists")
			return
		}

		ctx := context.WithValue(r.Context(), callerKey, caller{id: c.Subject, role: c.Role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !callerFrom(r.Context()).admin() {
			writeError(w, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageResponse{Message: message})
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func (s *Server) today() string {
	return s.now().UTC().Format("2006-01-02")
}
