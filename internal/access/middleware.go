package access

import (
	"encoding/json"
	"net/http"
	"strings"

	"libranexus/internal/auth"
)

// TokenCookie carries the bearer token the route guard looks for.
const TokenCookie = "token"

// Assets under staticPrefix and the exact paths in unguarded bypass the
// route guard.
const staticPrefix = "/static/"

var unguarded = map[string]bool{"/healthz": true, "/favicon.ico": true}

// HasToken reports whether r carries a non-empty token cookie.
func HasToken(r *http.Request) bool {
	c, err := r.Cookie(TokenCookie)
	return err == nil && c.Value != ""
}

// RouteGuard redirects before any page handler runs. Assets and the health
// check are never guarded.
func RouteGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if unguarded[r.URL.Path] || strings.HasPrefix(r.URL.Path, staticPrefix) {
			next.ServeHTTP(w, r)
			return
		}

		switch Route(HasToken(r), r.URL.Path) {
		case RedirectLogin:
			http.Redirect(w, r, LoginPath, http.StatusSeeOther)
		case RedirectHome:
			http.Redirect(w, r, HomePath, http.StatusSeeOther)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// DashboardGate wraps the administrative section. state resolves the session
// of the requesting client.
func DashboardGate(state func(*http.Request) auth.State) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch Dashboard(state(r)) {
			case Loading:
				w.Header().Set("Content-Type", "application/json")
				w.Header().Set("Retry-After", "1")
				w.WriteHeader(http.StatusAccepted)
				json.NewEncoder(w).Encode(map[string]string{"status": "loading"})
			case RedirectHome:
				http.Redirect(w, r, HomePath, http.StatusSeeOther)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}
