package ports

import (
	"context"

	"github.com/programacion-segura/secure-api/internal/core/domain"
)

// UserRepository is the credential store. Lookups return
// domain.ErrUserNotFound when nothing matches; Create returns
// domain.ErrUsernameTaken or domain.ErrEmailTaken when a unique index rejects
// the row.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	// FindByUsername matches the stored spelling exactly.
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id int64) error
	// List returns one page ordered by id and the total number of users.
	List(ctx context.Context, offset, limit int) ([]*domain.User, int64, error)
	CountByRole(ctx context.Context, role string) (int64, error)
}
