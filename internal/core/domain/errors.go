package domain

import "errors"

// Error kinds. Every error the core returns to the transport layer unwraps to
// one of these; the HTTP error handler maps kinds to status codes.
var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrInvalidOperation      = errors.New("invalid operation")
	ErrUnauthenticated       = errors.New("unauthenticated")
	ErrInsufficientPrivilege = errors.New("insufficient privileges")
	ErrNotFound              = errors.New("not found")
	ErrConflict              = errors.New("conflict")
	ErrRateLimited           = errors.New("too many requests")
)

// Error attaches a client-safe message to an error kind.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// ErrAlreadyExists is the uniqueness flavour of ErrConflict and renders as 400.
var ErrAlreadyExists = &Error{Kind: ErrConflict, Message: "already exists"}

// Authentication.
var (
	ErrInvalidCredentials = &Error{Kind: ErrUnauthenticated, Message: "Invalid credentials"}
	ErrInvalidToken       = &Error{Kind: ErrUnauthenticated, Message: "Could not validate credentials"}
	ErrNotAuthenticated   = &Error{Kind: ErrUnauthenticated, Message: "Not authenticated"}
	ErrTooManyAttempts    = &Error{Kind: ErrRateLimited, Message: "Too many login attempts, try again later"}
)

// Authorization.
var (
	ErrAdminRequired = &Error{Kind: ErrInsufficientPrivilege, Message: "Insufficient permissions"}
	ErrNotOwner      = &Error{Kind: ErrInsufficientPrivilege, Message: "Not enough permissions to access this resource"}
	ErrSelfDeletion  = &Error{Kind: ErrInvalidOperation, Message: "Cannot delete your own account"}
)

// Input.
var (
	ErrInvalidID         = &Error{Kind: ErrInvalidInput, Message: "Invalid ID"}
	ErrInvalidRole       = &Error{Kind: ErrInvalidInput, Message: "Invalid role. Allowed roles: user, admin"}
	ErrInvalidPagination = &Error{Kind: ErrInvalidInput, Message: "limit must be between 1 and 100 and offset must not be negative"}
	ErrInvalidSeverity   = &Error{Kind: ErrInvalidInput, Message: "severity must be one of: low, medium, high, critical"}
)

// Identities.
var (
	ErrUserNotFound  = &Error{Kind: ErrNotFound, Message: "User not found"}
	ErrUsernameTaken = &Error{Kind: ErrAlreadyExists, Message: "Username already registered"}
	ErrEmailTaken    = &Error{Kind: ErrAlreadyExists, Message: "Email already registered"}
)

// Vulnerability catalog.
var (
	ErrVulnerabilityNotFound = &Error{Kind: ErrNotFound, Message: "Vulnerability not found"}
	ErrVulnerabilityExists   = &Error{Kind: ErrAlreadyExists, Message: "A vulnerability with this name already exists"}
	ErrVulnerabilityDeleted  = &Error{Kind: ErrConflict, Message: "Vulnerability is already deleted"}
)

// InvalidInput returns an ErrInvalidInput carrying msg.
func InvalidInput(msg string) error {
	return &Error{Kind: ErrInvalidInput, Message: msg}
}
