package domain

import "fmt"

// Actor is the authenticated user performing an operation.
type Actor struct {
	UserID int64
	Role   UserRole
}

type Action string

const (
	ActionBookVisit     Action = "visit.book"
	ActionViewVisit     Action = "visit.view"
	ActionCancelVisit   Action = "visit.cancel"
	ActionWriteSummary  Action = "summary.write"
	ActionViewSummary   Action = "summary.view"
	ActionRateDoctor    Action = "rating.write"
	ActionManagePatient Action = "patient.manage"
)

// Participants identifies the users a visit-related resource belongs to.
// Zero values mean "not known / not applicable".
type Participants struct {
	PatientUserID int64
	DoctorUserID  int64
}

// Authorize is the single place that decides whether actor may perform
// action on a resource owned by p. It returns nil or an error wrapping
// ErrForbidden.
func Authorize(actor Actor, action Action, p Participants) error {
	if allowed(actor, action, p) {
		return nil
	}
	return fmt.Errorf("%w: %s для роли %s", ErrForbidden, action, actor.Role)
}

func allowed(actor Actor, action Action, p Participants) bool {
	if actor.UserID == 0 || !actor.Role.IsValid() {
		return false
	}

	ownsAsPatient := p.PatientUserID != 0 && p.PatientUserID == actor.UserID
	ownsAsDoctor := p.DoctorUserID != 0 && p.DoctorUserID == actor.UserID

	switch action {
	case ActionBookVisit, ActionCancelVisit, ActionManagePatient:
		return actor.Role.IsStaff() || (actor.Role == UserRolePatient && ownsAsPatient)
	case ActionViewVisit, ActionViewSummary:
		switch actor.Role {
		case UserRoleAdmin, UserRoleReceptionist:
			return true
		case UserRolePatient:
			return ownsAsPatient
		case UserRoleDoctor:
			return ownsAsDoctor
		}
	case ActionWriteSummary:
		return actor.Role == UserRoleAdmin || (actor.Role == UserRoleDoctor && ownsAsDoctor)
	case ActionRateDoctor:
		return actor.Role == UserRolePatient && ownsAsPatient
	}

	return false
}
