package portal

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"libranexus/internal/access"
	"libranexus/internal/cart"
	"libranexus/internal/catalog"
	"libranexus/internal/membership"
)

const homeRecommended = 8

type bookView struct {
	catalog.Book
	InCart bool `json:"inCart"`
}

func booksView(books []catalog.Book, c cart.Service) []bookView {
	out := make([]bookView, len(books))
	for i, b := range books {
		out[i] = bookView{Book: b, InCart: c.IsInCart(b.ID)}
	}
	return out
}

type homePage struct {
	User        *membership.User `json:"user,omitempty"`
	Recommended []bookView       `json:"recommended"`
	CartSize    int              `json:"cartSize"`
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	sess.Auth.Initialize(r.Context())
	sess.Cart.Initialize(r.Context())

	_, ctx := identity(r)
	books, err := s.lib.Books.Recommended(ctx, homeRecommended)
	if err != nil {
		s.fail(w, r, err, "Failed to fetch books")
		return
	}
	writeJSON(w, http.StatusOK, homePage{
		User:        sess.Auth.Snapshot().Identity,
		Recommended: booksView(books, sess.Cart),
		CartSize:    sess.Cart.Len(),
	})
}

type formPage struct {
	Page  string `json:"page"`
	Admin bool   `json:"admin,omitempty"`
	Kind  string `json:"kind,omitempty"`
}

func (s *Server) handleLoginPage(admin bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, formPage{Page: "login", Admin: admin})
	}
}

type loginResponse struct {
	Message  string          `json:"message"`
	Redirect string          `json:"redirect"`
	User     membership.User `json:"user"`
}

func (s *Server) handleLogin(admin bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := sessionFrom(r.Context())
		if !s.sessions.AllowLogin(sess, r.RemoteAddr) {
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "Too many login attempts, please wait a minute")
			return
		}

		var creds membership.Credentials
		if !decodeJSON(w, r, &creds) {
			return
		}
		if creds.Email == "" || creds.Password == "" {
			writeError(w, http.StatusBadRequest, "Email and password are required")
			return
		}

		login, fallback, message, redirect := sess.Auth.Login, "Login failed. Please check your credentials.", "Login successful!", access.HomePath
		if admin {
			login, fallback, message, redirect = sess.Auth.LoginAdmin, "Login failed. Admin access only.", "Admin login successful!", "/dashboard"
		}

		user, err := login(r.Context(), creds.Email, creds.Password)
		if err != nil {
			s.fail(w, r, err, fallback)
			return
		}
		s.setTokenCookie(w, sess.Auth.Snapshot().Token)
		s.log.Info("signed in",
			zap.String("client_id", sess.ClientID),
			zap.String("user_id", user.ID),
			zap.String("role", string(user.Role)),
		)
		writeJSON(w, http.StatusOK, loginResponse{Message: message, Redirect: redirect, User: *user})
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	err := sess.Auth.Logout(r.Context())
	s.clearTokenCookie(w)
	if err != nil {
		// The in-memory session is already gone; only the stored copy lingers.
		s.log.Warn("logout storage", zap.String("client_id", sess.ClientID), zap.Error(err))
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Logged out", Redirect: access.LoginPath})
}

var registerKinds = map[string]membership.Role{
	"student":  membership.RoleStudent,
	"lecturer": membership.RoleLecturer,
	"admin":    membership.RoleAdmin,
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	if _, ok := registerKinds[kind]; !ok {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, formPage{Page: "register", Kind: kind})
}

type registerForm struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Name            string `json:"name"`
	Phone           string `json:"phone"`
	NIM             string `json:"nim"`
	NIP             string `json:"nip"`
	Year            string `json:"year"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	role, ok := registerKinds[chi.URLParam(r, "kind")]
	if !ok {
		http.NotFound(w, r)
		return
	}

	var f registerForm
	if !decodeJSON(w, r, &f) {
		return
	}
	if f.Password != f.ConfirmPassword {
		writeError(w, http.StatusBadRequest, "Passwords do not match!")
		return
	}

	var (
		msg string
		err error
	)
	ctx := r.Context()
	redirect := access.LoginPath
	switch role {
	case membership.RoleStudent:
		msg, err = s.lib.Auth.RegisterStudent(ctx, membership.RegisterStudent{
			Email: f.Email, Password: f.Password, Name: f.Name, Phone: f.Phone, NIM: f.NIM, Year: f.Year,
		})
	case membership.RoleLecturer:
		msg, err = s.lib.Auth.RegisterLecturer(ctx, membership.RegisterLecturer{
			Email: f.Email, Password: f.Password, Name: f.Name, Phone: f.Phone, NIP: f.NIP,
		})
	case membership.RoleAdmin:
		msg, err = s.lib.Auth.RegisterAdmin(ctx, membership.RegisterAdmin{
			Email: f.Email, Password: f.Password, Name: f.Name, Phone: f.Phone,
		})
		redirect = "/admin/login"
	}
	if err != nil {
		s.fail(w, r, err, "Registration failed. Please try again.")
		return
	}

	if msg == "" {
		msg = "Registration successful! Please login."
	}
	writeJSON(w, http.StatusCreated, messageResponse{Message: msg, Redirect: redirect})
}
