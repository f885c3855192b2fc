package domain

// Action names a protected operation.
type Action string

const (
	ActionListUsers           Action = "user.list"
	ActionViewUser            Action = "user.view"
	ActionDeleteUser          Action = "user.delete"
	ActionChangeRole          Action = "user.change_role"
	ActionListVulnerabilities Action = "vulnerability.list"
	ActionViewVulnerability   Action = "vulnerability.view"
	ActionCreateVulnerability Action = "vulnerability.create"
	ActionDeleteVulnerability Action = "vulnerability.delete"
)

// Audited reports whether outcomes of a are written to the audit trail.
func (a Action) Audited() bool {
	switch a {
	case ActionDeleteUser, ActionChangeRole, ActionCreateVulnerability, ActionDeleteVulnerability:
		return true
	}
	return false
}

// Decision is the result of an authorization check. Reason is nil when
// Allowed is true.
type Decision struct {
	Action  Action
	Allowed bool
	Reason  error
}

func Allow(a Action) Decision { return Decision{Action: a, Allowed: true} }

func Deny(a Action, reason error) Decision {
	return Decision{Action: a, Reason: reason}
}

// Err returns nil for an allow and the denial reason otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	if d.Reason == nil {
		return ErrInsufficientPrivilege
	}
	return d.Reason
}
