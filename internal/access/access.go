// Package access decides who may see which page. Route applies to every
// request and only looks at whether a token cookie exists; Dashboard adds the
// admin role check for the administrative section.
package access

import (
	"strings"

	"libranexus/internal/auth"
)

// Verdict is the outcome of an access check.
type Verdict int

const (
	Allow Verdict = iota
	RedirectLogin
	RedirectHome
	Loading
)

func (v Verdict) String() string {
	switch v {
	case Allow:
		return "allow"
	case RedirectLogin:
		return "redirect-login"
	case RedirectHome:
		return "redirect-home"
	case Loading:
		return "loading"
	}
	return "unknown"
}

const (
	LoginPath = "/login"
	HomePath  = "/"
)

// PublicPaths are reachable without a token. A signed-in client is sent away
// from them.
var PublicPaths = []string{
	"/login",
	"/admin/login",
	"/register/student",
	"/register/lecturer",
	"/register/admin",
}

// IsPublic matches p against PublicPaths by whole path segments, so
// /login/help is public and /loginx is not.
func IsPublic(p string) bool {
	for _, pub := range PublicPaths {
		if p == pub || strings.HasPrefix(p, pub+"/") {
			return true
		}
	}
	return false
}

// Route decides a navigation to path.
func Route(hasToken bool, path string) Verdict {
	if path == HomePath || path == "" {
		return Allow
	}
	public := IsPublic(path)
	switch {
	case !hasToken && !public:
		return RedirectLogin
	case hasToken && public:
		return RedirectHome
	}
	return Allow
}

// Dashboard decides whether st may see an administrative page.
func Dashboard(st auth.State) Verdict {
	if st.Initializing {
		return Loading
	}
	if !st.IsAdmin() {
		return RedirectHome
	}
	return Allow
}
