package domain

import "time"

type VisitEventType string

const (
	VisitEventCreated   VisitEventType = "visit.created"
	VisitEventCancelled VisitEventType = "visit.cancelled"
	VisitEventFinished  VisitEventType = "visit.finished"
)

// VisitEvent is pushed to the patient and doctor of a visit after a
// successful state change.
type VisitEvent struct {
	Type       VisitEventType `json:"type"`
	VisitID    int64          `json:"visit_id"`
	DoctorID   int64          `json:"doctor_id"`
	PatientID  int64          `json:"patient_id"`
	Status     VisitStatus    `json:"status"`
	Schedule   VisitSlot      `json:"schedule"`
	OccurredAt time.Time      `json:"occurred_at"`
	Recipients []int64        `json:"-"`
}

func NewVisitEvent(eventType VisitEventType, visit *Visit, at time.Time) VisitEvent {
	var recipients []int64
	for _, id := range []int64{visit.PatientUserID, visit.DoctorUserID} {
		if id != 0 {
			recipients = append(recipients, id)
		}
	}

	return VisitEvent{
		Type:       eventType,
		VisitID:    visit.ID,
		DoctorID:   visit.DoctorID,
		PatientID:  visit.PatientID,
		Status:     visit.Status,
		Schedule:   visit.Schedule.VisitSlot,
		OccurredAt: at,
		Recipients: recipients,
	}
}
