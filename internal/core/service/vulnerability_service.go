package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/programacion-segura/secure-api/internal/api/metrics"
	"github.com/programacion-segura/secure-api/internal/core/domain"
	"github.com/programacion-segura/secure-api/internal/core/ports"
)

type VulnerabilityService struct {
	repo    ports.VulnerabilityRepository
	authz   Authorizer
	auditor *Auditor
	logger  zerolog.Logger
	now     func() time.Time
}

func NewVulnerabilityService(repo ports.VulnerabilityRepository, authz Authorizer, auditor *Auditor, logger zerolog.Logger) *VulnerabilityService {
	return &VulnerabilityService{
		repo:    repo,
		authz:   authz,
		auditor: auditor,
		logger:  logger.With().Str("component", "vulnerabilities").Logger(),
		now:     time.Now,
	}
}

// List returns one page of active entries, optionally filtered by severity.
func (s *VulnerabilityService) List(ctx context.Context, caller domain.Principal, in ports.ListVulnerabilitiesInput) (*ports.ListVulnerabilitiesResult, error) {
	if err := observe(s.authz.ListVulnerabilities(caller, in.Page, in.Limit)).Err(); err != nil {
		return nil, err
	}

	filter := domain.VulnerabilityFilter{Page: in.Page, Limit: in.Limit}
	if in.Severity != "" {
		sev, err := domain.ParseSeverity(in.Severity)
		if err != nil {
			return nil, err
		}
		filter.Severity = sev
	}

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list vulnerabilities: %w", err)
	}

	return &ports.ListVulnerabilitiesResult{
		Items:      items,
		Total:      total,
		Page:       in.Page,
		Limit:      in.Limit,
		TotalPages: domain.TotalPages(total, in.Limit),
	}, nil
}

// Get returns an active entry. Deleted entries are reported as not found.
func (s *VulnerabilityService) Get(ctx context.Context, caller domain.Principal, id int64) (*domain.Vulnerability, error) {
	if err := observe(s.authz.ViewVulnerability(caller)).Err(); err != nil {
		return nil, err
	}
	if id < 1 {
		return nil, domain.ErrInvalidID
	}

	v, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !v.Active() {
		return nil, domain.ErrVulnerabilityNotFound
	}
	return v, nil
}

// Create adds an active entry owned by the caller.
func (s *VulnerabilityService) Create(ctx context.Context, caller domain.Principal, in ports.CreateVulnerabilityInput) (_ *domain.Vulnerability, err error) {
	name := strings.TrimSpace(in.Name)
	target := domain.VulnerabilityNameRef(name)

	d := observe(s.authz.CreateVulnerability(caller))
	defer func() { s.auditor.Record(ctx, caller, d, target, err) }()

	if err = d.Err(); err != nil {
		return nil, err
	}

	severity, err := validateVulnerability(name, in.Description, in.Severity)
	if err != nil {
		return nil, err
	}

	// Advisory: the partial unique index decides races.
	existing, err := s.repo.FindActiveByName(ctx, name)
	switch {
	case err == nil && existing != nil:
		return nil, domain.ErrVulnerabilityExists
	case err != nil && !errors.Is(err, domain.ErrVulnerabilityNotFound):
		return nil, fmt.Errorf("create vulnerability: %w", err)
	}

	created, err := s.repo.Create(ctx, &domain.Vulnerability{
		Name:        name,
		Description: in.Description,
		Severity:    severity,
		CreatedBy:   caller.ID,
		CreatedAt:   s.now().UTC(),
		Status:      domain.VulnerabilityActive,
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("create vulnerability: %w", err)
	}

	target = domain.VulnerabilityRef(created.ID)
	metrics.VulnerabilitiesCreatedTotal.WithLabelValues(string(created.Severity)).Inc()
	s.logger.Info().
		Int64("vulnerability_id", created.ID).
		Str("severity", string(created.Severity)).
		Int64("created_by", caller.ID).
		Msg("vulnerability created")

	return created, nil
}

// Delete soft-deletes an active entry. Deleting it again is a conflict.
func (s *VulnerabilityService) Delete(ctx context.Context, caller domain.Principal, id int64, reason string) (_ *domain.Vulnerability, err error) {
	d := observe(s.authz.DeleteVulnerability(caller))
	defer func() { s.auditor.Record(ctx, caller, d, domain.VulnerabilityRef(id), err) }()

	if err = d.Err(); err != nil {
		return nil, err
	}
	if id < 1 {
		return nil, domain.ErrInvalidID
	}
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) > domain.DeleteReasonMaxLen {
		return nil, domain.InvalidInput(fmt.Sprintf("reason must be at most %d characters", domain.DeleteReasonMaxLen))
	}

	v, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err = v.CheckDelete(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err = s.repo.MarkDeleted(ctx, id, caller.ID, reason, now); err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("delete vulnerability: %w", err)
	}

	v.Status = domain.VulnerabilityDeleted
	v.DeletedAt = &now
	deletedBy := caller.ID
	v.DeletedBy = &deletedBy
	v.DeleteReason = reason

	s.logger.Info().
		Int64("vulnerability_id", id).
		Int64("deleted_by", caller.ID).
		Str("reason", reason).
		Msg("vulnerability deleted")

	return v, nil
}

func validateVulnerability(name, description, severity string) (domain.Severity, error) {
	if n := utf8.RuneCountInString(name); n < 1 || n > domain.VulnerabilityNameMaxLen {
		return "", domain.InvalidInput(fmt.Sprintf("name must be between 1 and %d characters", domain.VulnerabilityNameMaxLen))
	}
	if n := utf8.RuneCountInString(description); n < domain.VulnerabilityDescriptionMinLen || n > domain.VulnerabilityDescriptionMaxLen {
		return "", domain.InvalidInput(fmt.Sprintf("description must be between %d and %d characters",
			domain.VulnerabilityDescriptionMinLen, domain.VulnerabilityDescriptionMaxLen))
	}
	return domain.ParseSeverity(severity)
}
