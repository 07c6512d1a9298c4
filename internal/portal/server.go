// Package portal is the browser-facing server. It keeps one session per
// browser client, guards pages before they render and turns each page or
// form action into calls on the library backend.
package portal

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"libranexus/internal/access"
	"libranexus/internal/auth"
	"libranexus/internal/clients"
	"libranexus/internal/membership"
)

const (
	clientCookie    = "client_id"
	clientCookieAge = 365 * 24 * time.Hour
)

// Options tune cookie handling.
type Options struct {
	// CookieSecure marks cookies Secure; turn on behind TLS.
	CookieSecure bool
}

type Server struct {
	lib      *clients.Library
	sessions *Registry
	log      *zap.Logger
	opts     Options
}

func New(lib *clients.Library, sessions *Registry, opts Options, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{lib: lib, sessions: sessions, log: log.Named("portal"), opts: opts}
}

// Handler returns every portal route.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(access.RouteGuard)
		r.Use(s.withSession)

		r.Get("/", s.handleHome)
		r.Get("/login", s.handleLoginPage(false))
		r.Post("/login", s.handleLogin(false))
		r.Get("/admin/login", s.handleLoginPage(true))
		r.Post("/admin/login", s.handleLogin(true))
		r.Get("/register/{kind}", s.handleRegisterPage)
		r.Post("/register/{kind}", s.handleRegister)

		r.Group(func(r chi.Router) {
			r.Use(s.requireIdentity)

			r.Post("/logout", s.handleLogout)

			r.Get("/books", s.handleBooks)
			r.Get("/books/{id}", s.handleBook)
			r.Post("/books/{id}/reviews", s.handleCreateReview)

			r.Get("/cart", s.handleCart)
			r.Post("/cart", s.handleAddToCart)
			r.Delete("/cart", s.handleClearCart)
			r.Delete("/cart/{id}", s.handleRemoveFromCart)
			r.Post("/cart/checkout", s.handleCheckout)

			r.Get("/transactions", s.handleTransactions)
			r.Get("/transactions/{invoiceCode}", s.handleTransaction)

			r.Get("/notifications", s.handleNotifications)
			r.Post("/notifications/{id}/read", s.handleMarkRead)
			r.Delete("/notifications/{id}", s.handleDeleteNotification)

			r.Get("/profile", s.handleProfile)
			r.Put("/profile", s.handleUpdateProfile)
		})

		// The gate answers "loading" while the session is still being
		// restored, so these routes do not wait for it.
		r.Route("/dashboard", func(r chi.Router) {
			r.Use(access.DashboardGate(s.stateOf))

			r.Get("/", s.handleDashboard)
			r.Get("/books", s.handleDashboardBooks)
			r.Post("/books", s.handleDashboardCreateBook)
			r.Put("/books/{id}", s.handleDashboardUpdateBook)
			r.Delete("/books/{id}", s.handleDashboardDeleteBook)
			r.Get("/users", s.handleDashboardUsers)
			r.Delete("/users/{id}", s.handleDashboardDeleteUser)
			r.Get("/transactions", s.handleDashboardTransactions)
			r.Put("/transactions", s.handleDashboardUpdateTransaction)
			r.Get("/reviews", s.handleDashboardReviews)
			r.Get("/notifications", s.handleDashboardNotifications)
			r.Post("/notifications", s.handleDashboardCreateNotification)
			r.Delete("/notifications/{id}", s.handleDashboardDeleteNotification)
		})
	})
	return r
}

type ctxKey int

const sessionKey ctxKey = iota

func sessionFrom(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionKey).(*Session)
	return s
}

// stateOf does not wait for a restore in progress. A client that holds a
// token but looks anonymous gets one more restore attempt, which is free once
// a restore has succeeded.
func (s *Server) stateOf(r *http.Request) auth.State {
	sess := sessionFrom(r.Context())
	st := sess.Auth.Snapshot()
	if st.Initializing || st.Authenticated() || !access.HasToken(r) {
		return st
	}
	if err := sess.Auth.Initialize(r.Context()); err != nil {
		s.log.Warn("session restore", zap.String("client_id", sess.ClientID), zap.Error(err))
	}
	return sess.Auth.Snapshot()
}

// withSession attaches the caller's Session, issuing a client id cookie to
// browsers that have none.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var clientID string
		if c, err := r.Cookie(clientCookie); err == nil {
			if id, err := uuid.Parse(c.Value); err == nil {
				clientID = id.String()
			}
		}
		if clientID == "" {
			clientID = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     clientCookie,
				Value:    clientID,
				Path:     "/",
				MaxAge:   int(clientCookieAge / time.Second),
				HttpOnly: true,
				Secure:   s.opts.CookieSecure,
				SameSite: http.SameSiteLaxMode,
			})
		}

		sess := s.sessions.Get(clientID)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, sess)))
	})
}

// requireIdentity waits for the session restore and sends clients whose token
// cookie no longer matches a session back to the login page.
func (s *Server) requireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r.Context())
		if err := sess.Auth.Initialize(r.Context()); err != nil {
			// Storage is unreachable; the persisted session may still be fine.
			s.log.Warn("session restore", zap.String("client_id", sess.ClientID), zap.Error(err))
			writeError(w, http.StatusServiceUnavailable, "Your session could not be restored, please try again")
			return
		}
		if !sess.Auth.Snapshot().Authenticated() {
			s.clearTokenCookie(w)
			http.Redirect(w, r, access.LoginPath, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// identity returns the signed-in user and a context that carries the bearer
// token to the backend.
func identity(r *http.Request) (membership.User, context.Context) {
	st := sessionFrom(r.Context()).Auth.Snapshot()
	var u membership.User
	if st.Identity != nil {
		u = *st.Identity
	}
	return u, clients.WithToken(r.Context(), st.Token)
}

func (s *Server) setTokenCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     access.TokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearTokenCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     access.TokenCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
