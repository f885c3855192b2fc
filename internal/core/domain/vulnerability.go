package domain

import (
	"strings"
	"time"
)

// Severity is the closed set of catalog severities.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ParseSeverity accepts the canonical lower-case spelling only.
func ParseSeverity(s string) (Severity, error) {
	switch Severity(s) {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return Severity(s), nil
	}
	return "", ErrInvalidSeverity
}

// VulnerabilityStatus represents the lifecycle state of a catalog entry.
type VulnerabilityStatus string

const (
	VulnerabilityActive  VulnerabilityStatus = "active"
	VulnerabilityDeleted VulnerabilityStatus = "deleted"
)

// validTransitions defines the allowed state machine transitions. Deleted is
// terminal.
var validTransitions = map[VulnerabilityStatus][]VulnerabilityStatus{
	VulnerabilityActive: {VulnerabilityDeleted},
}

// CanTransitionTo reports whether a transition from current status to next is valid.
func (s VulnerabilityStatus) CanTransitionTo(next VulnerabilityStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

const (
	VulnerabilityNameMaxLen        = 100
	VulnerabilityDescriptionMinLen = 10
	VulnerabilityDescriptionMaxLen = 500
	DeleteReasonMaxLen             = 255
)

// Vulnerability is a catalog entry.
type Vulnerability struct {
	ID           int64               `json:"id"`
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	Severity     Severity            `json:"severity"`
	CreatedBy    int64               `json:"created_by"`
	CreatedAt    time.Time           `json:"created_at"`
	Status       VulnerabilityStatus `json:"status"`
	DeletedAt    *time.Time          `json:"deleted_at,omitempty"`
	DeletedBy    *int64              `json:"deleted_by,omitempty"`
	DeleteReason string              `json:"delete_reason,omitempty"`
}

// Active reports whether the entry is visible in the catalog.
func (v *Vulnerability) Active() bool { return v.Status == VulnerabilityActive }

// CheckDelete returns ErrVulnerabilityDeleted when v cannot move to deleted.
func (v *Vulnerability) CheckDelete() error {
	if !v.Status.CanTransitionTo(VulnerabilityDeleted) {
		return ErrVulnerabilityDeleted
	}
	return nil
}

// NameKey is the comparison key for the active-name uniqueness rule.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// VulnerabilityFilter carries catalog listing parameters. Page is 1-based.
type VulnerabilityFilter struct {
	Severity Severity
	Page     int
	Limit    int
}

// Offset converts the 1-based page into a row offset.
func (f VulnerabilityFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.Limit
}

// TotalPages returns ceil(total/limit), and 1 for an empty result.
func TotalPages(total int64, limit int) int {
	if total <= 0 || limit <= 0 {
		return 1
	}
	return int((total + int64(limit) - 1) / int64(limit))
}
