package domain

import (
	"testing"
	"time"
)

func TestVisitStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to VisitStatus
		want     bool
	}{
		{VisitStatusPending, VisitStatusFinished, true},
		{VisitStatusPending, VisitStatusCancelled, true},
		{VisitStatusPending, VisitStatusPending, false},
		{VisitStatusFinished, VisitStatusPending, false},
		{VisitStatusFinished, VisitStatusCancelled, false},
		{VisitStatusCancelled, VisitStatusPending, false},
		{VisitStatusCancelled, VisitStatusFinished, false},
		{VisitStatus("unknown"), VisitStatusCancelled, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestVisit_CanCancel(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 11, 2, 10, 0, 0, 0, loc)

	visitAt := func(status VisitStatus, date, start string) *Visit {
		return &Visit{
			Status: status,
			Schedule: VisitSchedule{VisitSlot: VisitSlot{
				Date: date, TimeStart: start, TimeEnd: start,
			}},
		}
	}

	tests := []struct {
		name  string
		visit *Visit
		want  bool
	}{
		{"pending future", visitAt(VisitStatusPending, "2026-11-02", "10:30"), true},
		{"pending exactly now", visitAt(VisitStatusPending, "2026-11-02", "10:00"), false},
		{"pending past", visitAt(VisitStatusPending, "2026-11-01", "10:30"), false},
		{"finished future", visitAt(VisitStatusFinished, "2026-11-03", "10:30"), false},
		{"cancelled future", visitAt(VisitStatusCancelled, "2026-11-03", "10:30"), false},
		{"broken slot", visitAt(VisitStatusPending, "soon", "10:30"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.visit.CanCancel(now, loc); got != tt.want {
				t.Errorf("CanCancel = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestVisit_CanAttachSummary(t *testing.T) {
	if !(&Visit{Status: VisitStatusPending}).CanAttachSummary() {
		t.Error("expected pending visit without summary to accept one")
	}
	if (&Visit{Status: VisitStatusPending, HasSummary: true}).CanAttachSummary() {
		t.Error("expected visit with summary to reject another")
	}
	if (&Visit{Status: VisitStatusCancelled}).CanAttachSummary() {
		t.Error("expected cancelled visit to reject summary")
	}
}

func TestParseConflictPolicy(t *testing.T) {
	for _, s := range []string{"allow", "WARN", " reject "} {
		if _, err := ParseConflictPolicy(s); err != nil {
			t.Errorf("ParseConflictPolicy(%q): unexpected error %v", s, err)
		}
	}
	if _, err := ParseConflictPolicy("ignore"); err == nil {
		t.Error("expected error for unknown policy")
	}
}

func TestNewVisitEvent_Recipients(t *testing.T) {
	visit := &Visit{ID: 7, PatientUserID: 11, Status: VisitStatusCancelled}

	event := NewVisitEvent(VisitEventCancelled, visit, time.Now())
	if len(event.Recipients) != 1 || event.Recipients[0] != 11 {
		t.Errorf("unexpected recipients %v", event.Recipients)
	}
	if event.VisitID != 7 || event.Status != VisitStatusCancelled {
		t.Errorf("unexpected event %+v", event)
	}
}
