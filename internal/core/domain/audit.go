package domain

import (
	"fmt"
	"time"
)

// Outcome is the result recorded for an audited action.
type Outcome string

const (
	// OutcomeAllowed: the policy allowed the action and it completed.
	OutcomeAllowed Outcome = "allowed"
	// OutcomeDenied: the policy refused the action.
	OutcomeDenied Outcome = "denied"
	// OutcomeFailed: the policy allowed the action but it did not complete.
	OutcomeFailed Outcome = "failed"
)

// AuditRecord is one entry of the append-only audit trail.
type AuditRecord struct {
	ActorID       int64     `json:"actor_id"`
	ActorUsername string    `json:"actor_username"`
	Action        Action    `json:"action_kind"`
	TargetRef     string    `json:"target_ref"`
	Outcome       Outcome   `json:"outcome"`
	Reason        string    `json:"reason,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func UserRef(id int64) string { return fmt.Sprintf("user:%d", id) }

func VulnerabilityRef(id int64) string { return fmt.Sprintf("vulnerability:%d", id) }

// VulnerabilityNameRef identifies a catalog entry that has no id yet.
func VulnerabilityNameRef(name string) string { return "vulnerability:name=" + name }
