package portal

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"libranexus/internal/auth"
	"libranexus/internal/cart"
	"libranexus/internal/clients"
)

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message  string `json:"message"`
	Redirect string `json:"redirect,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// fail reports err to the user. fallback is shown when the backend gave no
// message of its own.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := http.StatusBadGateway
	message := fallback

	var (
		authErr  *auth.Error
		validErr *cart.ValidationError
	)
	switch {
	case errors.As(err, &validErr):
		status, message = http.StatusBadRequest, validErr.Message
	case errors.Is(err, cart.ErrNotLoaded):
		status, message = http.StatusServiceUnavailable, "Your cart could not be loaded, please try again"
	case errors.Is(err, cart.ErrEmpty):
		status, message = http.StatusBadRequest, "Your cart is empty"
	case errors.Is(err, auth.ErrSuperseded):
		status, message = http.StatusConflict, "You were signed out while logging in, please try again"
	case errors.As(err, &authErr):
		message = authErr.Message
		status = http.StatusUnauthorized
		if code := clients.StatusOf(err); code >= 400 && code < 500 {
			status = code
		}
	default:
		if code := clients.StatusOf(err); code >= 400 && code < 500 {
			status = code
		} else if code == http.StatusServiceUnavailable {
			status = code
		}
		message = clients.Message(err, fallback)
	}

	log := s.log.Warn
	if status >= 500 {
		log = s.log.Error
	}
	log("request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Error(err),
	)
	writeError(w, status, message)
}
