package shared

import "strings"

// ApprovalStatus is the status domain shared by two-stage approval records.
type ApprovalStatus string

const (
	StatusDraft           ApprovalStatus = "Draft"
	StatusPendingAccounts ApprovalStatus = "PendingAccounts"
	StatusPendingHOF      ApprovalStatus = "PendingHOF"
	StatusApproved        ApprovalStatus = "Approved"
	StatusRejected        ApprovalStatus = "Rejected"
)

// Valid reports whether s is a known approval status.
func (s ApprovalStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusPendingAccounts, StatusPendingHOF, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// IsPending reports whether s awaits a decision.
func (s ApprovalStatus) IsPending() bool {
	return s == StatusPendingAccounts || s == StatusPendingHOF
}

// IsTerminal reports whether s accepts no further transitions.
func (s ApprovalStatus) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// TwoStagePolicy describes who may act at each stage of the
// Draft -> PendingAccounts -> PendingHOF -> Approved chain.
type TwoStagePolicy struct {
	AccountsRoles []Role
	HOFRoles      []Role
	// RejectRoles applies at any pending stage unless GateReject is set, in
	// which case reject uses the same stage roles as approve.
	RejectRoles []Role
	GateReject  bool
	// Denied is returned when the role does not own the current stage.
	Denied *DomainError
}

// StageRoles returns the roles allowed to approve at status.
func (p TwoStagePolicy) StageRoles(status ApprovalStatus) []Role {
	switch status {
	case StatusPendingAccounts:
		return p.AccountsRoles
	case StatusPendingHOF:
		return p.HOFRoles
	}
	return nil
}

// Submit moves a draft into the first review stage.
func (p TwoStagePolicy) Submit(current ApprovalStatus) (ApprovalStatus, error) {
	if current != StatusDraft {
		return current, Wrapf(ErrInvalidState, "only Draft records can be submitted, current status is %s", current)
	}
	return StatusPendingAccounts, nil
}

// Approve resolves the next status for role approving at current.
func (p TwoStagePolicy) Approve(role Role, current ApprovalStatus) (ApprovalStatus, error) {
	if !current.IsPending() {
		return current, Wrapf(ErrInvalidState, "cannot approve a record in %s status", current)
	}
	if !Allowed(role, p.StageRoles(current)...) {
		return current, Wrapf(p.denied(), "role %s cannot approve at stage %s", role, current)
	}
	if current == StatusPendingAccounts {
		return StatusPendingHOF, nil
	}
	return StatusApproved, nil
}

// Reject validates a rejection by role at current.
func (p TwoStagePolicy) Reject(role Role, current ApprovalStatus, remarks string) (ApprovalStatus, error) {
	if strings.TrimSpace(remarks) == "" {
		return current, Wrap(ErrMissingField, "remarks are required to reject")
	}
	if !current.IsPending() {
		return current, Wrapf(ErrInvalidState, "cannot reject a record in %s status", current)
	}
	roles := p.RejectRoles
	if p.GateReject {
		roles = p.StageRoles(current)
	}
	if !Allowed(role, roles...) {
		return current, Wrapf(p.denied(), "role %s cannot reject at stage %s", role, current)
	}
	return StatusRejected, nil
}

// QueueFor lists the pending stages role is able to approve.
func (p TwoStagePolicy) QueueFor(role Role) []ApprovalStatus {
	statuses := make([]ApprovalStatus, 0, 2)
	if Allowed(role, p.AccountsRoles...) {
		statuses = append(statuses, StatusPendingAccounts)
	}
	if Allowed(role, p.HOFRoles...) {
		statuses = append(statuses, StatusPendingHOF)
	}
	return statuses
}

func (p TwoStagePolicy) denied() *DomainError {
	if p.Denied != nil {
		return p.Denied
	}
	return ErrForbidden
}
