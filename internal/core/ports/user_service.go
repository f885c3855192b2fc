package ports

import (
	"context"

	"github.com/programacion-segura/secure-api/internal/core/domain"
)

// ListUsersResult is one page of identities.
type ListUsersResult struct {
	Users []*domain.User
	Total int64
	Skip  int
	Limit int
}

// UserService administers identities on behalf of a resolved caller.
type UserService interface {
	List(ctx context.Context, caller domain.Principal, skip, limit int) (*ListUsersResult, error)
	Get(ctx context.Context, caller domain.Principal, id int64) (*domain.User, error)
	ChangeRole(ctx context.Context, caller domain.Principal, id int64, newRole string) (*domain.User, error)
	Delete(ctx context.Context, caller domain.Principal, id int64) error
}
