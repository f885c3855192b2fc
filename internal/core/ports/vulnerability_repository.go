package ports

import (
	"context"
	"time"

	"github.com/programacion-segura/secure-api/internal/core/domain"
)

// VulnerabilityRepository defines persistence operations for the catalog.
type VulnerabilityRepository interface {
	// Create inserts an active entry. A name clash with another active entry
	// (case-insensitive) returns domain.ErrVulnerabilityExists.
	Create(ctx context.Context, v *domain.Vulnerability) (*domain.Vulnerability, error)
	// FindByID returns the entry in any status.
	FindByID(ctx context.Context, id int64) (*domain.Vulnerability, error)
	FindActiveByName(ctx context.Context, name string) (*domain.Vulnerability, error)
	// List returns a page of active entries matching filter and their total count.
	List(ctx context.Context, filter domain.VulnerabilityFilter) ([]*domain.Vulnerability, int64, error)
	// MarkDeleted flips an active entry to deleted. It returns
	// domain.ErrVulnerabilityDeleted when the entry is not active and
	// domain.ErrVulnerabilityNotFound when it does not exist.
	MarkDeleted(ctx context.Context, id, deletedBy int64, reason string, at time.Time) error
}
