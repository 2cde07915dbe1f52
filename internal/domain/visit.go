package domain

import (
	"fmt"
	"strings"
	"time"
)

type VisitStatus string

const (
	VisitStatusPending   VisitStatus = "pending"
	VisitStatusFinished  VisitStatus = "finished"
	VisitStatusCancelled VisitStatus = "cancelled"
)

func (s VisitStatus) IsValid() bool {
	switch s {
	case VisitStatusPending, VisitStatusFinished, VisitStatusCancelled:
		return true
	}
	return false
}

func (s VisitStatus) IsTerminal() bool {
	return s == VisitStatusFinished || s == VisitStatusCancelled
}

// CanTransitionTo allows only pending -> finished and pending -> cancelled.
func (s VisitStatus) CanTransitionTo(next VisitStatus) bool {
	return s == VisitStatusPending && next.IsTerminal()
}

type Visit struct {
	ID          int64         `json:"id"`
	DoctorID    int64         `json:"doctor_id"`
	PatientID   int64         `json:"patient_id"`
	Schedule    VisitSchedule `json:"schedule"`
	VisitType   string        `json:"visit_type"`
	Status      VisitStatus   `json:"status"`
	HasSummary  bool          `json:"has_summary"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	DoctorName  string        `json:"doctor_name,omitempty"`
	PatientName string        `json:"patient_name,omitempty"`

	DoctorUserID  int64 `json:"-"`
	PatientUserID int64 `json:"-"`
}

func (v *Visit) Participants() Participants {
	return Participants{
		PatientUserID: v.PatientUserID,
		DoctorUserID:  v.DoctorUserID,
	}
}

// CanCancel reports whether the visit is still pending and starts strictly
// after now. Slot times are interpreted in loc.
func (v *Visit) CanCancel(now time.Time, loc *time.Location) bool {
	if v.Status != VisitStatusPending {
		return false
	}

	start, err := v.Schedule.Start(loc)
	if err != nil {
		return false
	}

	return start.After(now)
}

// CanAttachSummary reports whether a summary may still be recorded.
func (v *Visit) CanAttachSummary() bool {
	return v.Status == VisitStatusPending && !v.HasSummary
}

type CreateVisitDTO struct {
	DoctorID  int64  `json:"doctor_id" binding:"required"`
	PatientID int64  `json:"patient_id"`
	Date      string `json:"date" binding:"required"`
	Time      string `json:"time" binding:"required"`
	VisitType string `json:"visit_type"`
}

type VisitFilter struct {
	DoctorID  *int64       `json:"doctor_id"`
	PatientID *int64       `json:"patient_id"`
	Status    *VisitStatus `json:"status"`
	DateFrom  *string      `json:"date_from"`
	DateTo    *string      `json:"date_to"`
	Limit     int          `json:"limit"`
	Offset    int          `json:"offset"`
}

// ConflictPolicy decides what happens when a new slot overlaps an existing
// non-cancelled visit of the same doctor.
type ConflictPolicy string

const (
	ConflictPolicyAllow  ConflictPolicy = "allow"
	ConflictPolicyWarn   ConflictPolicy = "warn"
	ConflictPolicyReject ConflictPolicy = "reject"
)

func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	policy := ConflictPolicy(strings.ToLower(strings.TrimSpace(s)))
	switch policy {
	case ConflictPolicyAllow, ConflictPolicyWarn, ConflictPolicyReject:
		return policy, nil
	}
	return "", fmt.Errorf("неизвестная политика конфликтов: %q", s)
}

// BookingRequest is everything the repository needs to persist a visit
// atomically.
type BookingRequest struct {
	DoctorID        int64
	PatientID       int64
	Slot            VisitSlot
	VisitType       string
	MaxActiveVisits int
	ConflictPolicy  ConflictPolicy
	CreatedAt       time.Time
}

type BookingResult struct {
	Visit *Visit
	// Overlapping is the number of existing visits of the doctor that
	// overlap the booked slot. Only computed for warn and reject policies.
	Overlapping int
}
