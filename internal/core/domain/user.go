package domain

import (
	"strings"
	"time"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const (
	UsernameMinLen = 3
	UsernameMaxLen = 50
	PasswordMinLen = 8
	PasswordMaxLen = 128
)

// ValidRole reports whether role is one of the recognised roles. Comparison
// is exact: "Admin" and "superadmin" are rejected.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAdmin
}

// NormalizeEmail lower-cases and trims an address before it is stored or
// looked up, so the unique index sees one spelling per mailbox.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UsernameKey is the stored comparison key behind case-insensitive username
// uniqueness. It folds with Go's Unicode tables so the result does not depend
// on the database's own lower().
func UsernameKey(username string) string {
	return strings.ToLower(username)
}

// User is a registered identity as persisted by the credential store.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Principal is the resolved caller of a request. It is passed by value into
// every authorization decision.
type Principal struct {
	ID       int64
	Username string
	Role     string
}

func (p Principal) IsAdmin() bool { return p.Role == RoleAdmin }

// PrincipalOf builds the caller view of a stored user.
func PrincipalOf(u *User) Principal {
	return Principal{ID: u.ID, Username: u.Username, Role: u.Role}
}

// Session is a decoded, verified token.
type Session struct {
	ID        string
	Subject   string
	Role      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Remaining returns how long the session stays valid after now.
func (s Session) Remaining(now time.Time) time.Duration {
	if d := s.ExpiresAt.Sub(now); d > 0 {
		return d
	}
	return 0
}
