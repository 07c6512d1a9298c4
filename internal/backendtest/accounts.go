package backendtest

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"libranexus/internal/membership"
)

var errEmailTaken = errors.New("email already registered")

const msgEmailTaken = "Email is already registered"

// AddUser registers an account directly and returns it with its new id.
func (s *Server) AddUser(u membership.User, password string) (membership.User, error) {
	hash, salt, err := hashPassword(password)
	if err != nil {
		return membership.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(strings.TrimSpace(u.Email))
	if _, taken := s.emails[email]; taken {
		return membership.User{}, errEmailTaken
	}
	u.ID = uuid.NewString()
	u.Email = email
	s.accounts[u.ID] = &account{User: u, hash: hash, salt: salt}
	s.emails[email] = u.ID
	return u, nil
}

func (s *Server) handleLogin(adminOnly bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req membership.Credentials
		if !decode(w, r, &req) {
			return
		}

		s.mu.Lock()
		acc, ok := s.accounts[s.emails[strings.ToLower(strings.TrimSpace(req.Email))]]
		var user membership.User
		var hash, salt string
		if ok {
			user, hash, salt = acc.User, acc.hash, acc.salt
		}
		s.mu.Unlock()

		if !ok {
			writeError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		match, err := verifyPassword(req.Password, salt, hash)
		if err != nil || !match {
			writeError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		if adminOnly && !user.IsAdmin() {
			writeError(w, http.StatusForbidden, "Only administrators can sign in here")
			return
		}

		token, err := s.tokens.issue(user.ID, user.Role)
		if err != nil {
			s.log.Error("issue token", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Could not issue token")
			return
		}
		writeJSON(w, http.StatusOK, membership.LoginResponse{
			ID:    user.ID,
			Email: user.Email,
			Name:  user.Name,
			Role:  string(user.Role),
			Token: token,
		})
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	role, err := membership.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Unknown registration type")
		return
	}

	var (
		u        membership.User
		password string
	)
	switch role {
	case membership.RoleStudent:
		var req membership.RegisterStudent
		if !decode(w, r, &req) {
			return
		}
		if req.NIM == "" {
			writeError(w, http.StatusBadRequest, "NIM is required")
			return
		}
		u = membership.User{Email: req.Email, Name: req.Name, Phone: req.Phone, NIM: req.NIM, Year: req.Year}
		password = req.Password
	case membership.RoleLecturer:
		var req membership.RegisterLecturer
		if !decode(w, r, &req) {
			return
		}
		if req.NIP == "" {
			writeError(w, http.StatusBadRequest, "NIP is required")
			return
		}
		u = membership.User{Email: req.Email, Name: req.Name, Phone: req.Phone, NIP: req.NIP}
		password = req.Password
	default:
		var req membership.RegisterAdmin
		if !decode(w, r, &req) {
			return
		}
		u = membership.User{Email: req.Email, Name: req.Name, Phone: req.Phone}
		password = req.Password
	}
	u.Role = role

	if u.Email == "" || u.Name == "" || len(password) < 6 {
		writeError(w, http.StatusBadRequest, "Name, email and a password of at least 6 characters are required")
		return
	}
	if _, err := s.AddUser(u, password); err != nil {
		if errors.Is(err, errEmailTaken) {
			writeError(w, http.StatusConflict, msgEmailTaken)
			return
		}
		s.log.Error("register", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Registration failed")
		return
	}
	writeJSON(w, http.StatusCreated, messageResponse{Message: "Registration successful"})
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	role := membership.Role(r.URL.Query().Get("role"))

	s.mu.Lock()
	users := make([]membership.User, 0, len(s.accounts))
	for _, acc := range s.accounts {
		if role == "" || acc.Role == role {
			users = append(users, acc.User)
		}
	}
	s.mu.Unlock()

	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	writeJSON(w, http.StatusOK, users)
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if c := callerFrom(r.Context()); !c.admin() && c.id != id {
		writeError(w, http.StatusForbidden, "You can only view your own profile")
		return
	}

	s.mu.Lock()
	acc, ok := s.accounts[id]
	var u membership.User
	if ok {
		u = acc.User
	}
	s.mu.Unlock()

	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c := callerFrom(r.Context())
	if !c.admin() && c.id != id {
		writeError(w, http.StatusForbidden, "You can only edit your own profile")
		return
	}

	var req membership.UserUpdate
	if !decode(w, r, &req) {
		return
	}
	var hash, salt string
	if req.Password != "" {
		var err error
		if hash, salt, err = hashPassword(req.Password); err != nil {
			writeError(w, http.StatusInternalServerError, "Could not update password")
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	if req.Role != "" && req.Role != acc.Role && !c.admin() {
		writeError(w, http.StatusForbidden, "Only administrators can change roles")
		return
	}
	if req.Email != "" {
		email := strings.ToLower(strings.TrimSpace(req.Email))
		if owner, taken := s.emails[email]; taken && owner != id {
			writeError(w, http.StatusConflict, msgEmailTaken)
			return
		}
		delete(s.emails, acc.Email)
		acc.Email = email
		s.emails[email] = id
	}
	if req.Name != "" {
		acc.Name = req.Name
	}
	if req.Phone != "" {
		acc.Phone = req.Phone
	}
	if req.Role != "" {
		acc.Role = req.Role
	}
	if hash != "" {
		acc.hash, acc.salt = hash, salt
	}
	writeJSON(w, http.StatusOK, acc.User)
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[id]
	if !ok {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	delete(s.emails, acc.Email)
	delete(s.accounts, id)
	writeJSON(w, http.StatusOK, messageResponse{Message: "User deleted"})
}
