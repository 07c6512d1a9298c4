package membership

import "fmt"

// Role is the kind of account a user holds. It never changes within a session.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleStudent  Role = "student"
	RoleLecturer Role = "lecturer"
)

// ParseRole validates a role string returned by the backend.
func ParseRole(s string) (Role, error) {
	switch r := Role(s); r {
	case RoleAdmin, RoleStudent, RoleLecturer:
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// User is a library account. Students carry a NIM and enrollment year,
// lecturers a NIP.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  Role   `json:"role"`
	Phone string `json:"phone,omitempty"`
	NIM   string `json:"nim,omitempty"`
	NIP   string `json:"nip,omitempty"`
	Year  string `json:"year,omitempty"`
}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// Credentials is the body of both login endpoints.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is what the backend returns on a successful login.
type LoginResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
	Token string `json:"token"`
}

type RegisterStudent struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	NIM      string `json:"nim"`
	Year     string `json:"year"`
}

type RegisterLecturer struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	NIP      string `json:"nip"`
}

type RegisterAdmin struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Phone    string `json:"phone"`
}

// UserUpdate is a partial update for PUT /users/{id}. Empty fields are left
// out of the request.
type UserUpdate struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Role     Role   `json:"role,omitempty"`
	Password string `json:"password,omitempty"`
}
