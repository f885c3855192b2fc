package ports

import (
	"context"

	"github.com/programacion-segura/secure-api/internal/core/domain"
)

// CreateVulnerabilityInput carries a new catalog entry. The creator is the
// caller, never a body field.
type CreateVulnerabilityInput struct {
	Name        string
	Description string
	Severity    string
}

// ListVulnerabilitiesInput carries catalog listing parameters.
type ListVulnerabilitiesInput struct {
	Page     int
	Limit    int
	Severity string // optional
}

// ListVulnerabilitiesResult is one page of active entries.
type ListVulnerabilitiesResult struct {
	Items      []*domain.Vulnerability
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// VulnerabilityService defines use-case operations for the catalog.
type VulnerabilityService interface {
	List(ctx context.Context, caller domain.Principal, in ListVulnerabilitiesInput) (*ListVulnerabilitiesResult, error)
	Get(ctx context.Context, caller domain.Principal, id int64) (*domain.Vulnerability, error)
	Create(ctx context.Context, caller domain.Principal, in CreateVulnerabilityInput) (*domain.Vulnerability, error)
	Delete(ctx context.Context, caller domain.Principal, id int64, reason string) (*domain.Vulnerability, error)
}
