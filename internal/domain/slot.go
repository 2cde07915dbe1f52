package domain

import (
	"fmt"
	"strings"
	"time"
)

// DefaultVisitDuration is the slot length used when none is configured.
const DefaultVisitDuration = 30 * time.Minute

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// VisitSlot is a validated date and time window for a single visit.
type VisitSlot struct {
	Date      string `json:"date"`
	TimeStart string `json:"time_start"`
	TimeEnd   string `json:"time_end"`
}

// NewVisitSlot parses date ("YYYY-MM-DD") and start time ("HH:mm") and
// derives the end time from duration. A slot must end on the day it starts.
func NewVisitSlot(date, start string, duration time.Duration) (VisitSlot, error) {
	date = strings.TrimSpace(date)
	start = strings.TrimSpace(start)

	if date == "" || start == "" {
		return VisitSlot{}, fmt.Errorf("%w: дата и время обязательны", ErrInvalidSlot)
	}
	if duration <= 0 {
		return VisitSlot{}, fmt.Errorf("%w: длительность должна быть положительной", ErrInvalidSlot)
	}

	day, err := time.Parse(DateLayout, date)
	if err != nil {
		return VisitSlot{}, fmt.Errorf("%w: дата %q", ErrMalformedInput, date)
	}

	clock, err := time.Parse(TimeLayout, start)
	if err != nil {
		return VisitSlot{}, fmt.Errorf("%w: время %q", ErrMalformedInput, start)
	}

	begin := time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, time.UTC)
	end := begin.Add(duration)
	if !sameDay(begin, end) {
		return VisitSlot{}, fmt.Errorf("%w: визит не может переходить на следующий день", ErrInvalidSlot)
	}

	return VisitSlot{
		Date:      begin.Format(DateLayout),
		TimeStart: begin.Format(TimeLayout),
		TimeEnd:   end.Format(TimeLayout),
	}, nil
}

// Start returns the slot start in loc.
func (s VisitSlot) Start(loc *time.Location) (time.Time, error) {
	return s.at(s.TimeStart, loc)
}

func (s VisitSlot) End(loc *time.Location) (time.Time, error) {
	return s.at(s.TimeEnd, loc)
}

// Overlaps reports whether two slots share any minute. HH:mm strings
// compare correctly as text.
func (s VisitSlot) Overlaps(other VisitSlot) bool {
	if s.Date != other.Date {
		return false
	}
	return s.TimeStart < other.TimeEnd && other.TimeStart < s.TimeEnd
}

func (s VisitSlot) at(clock string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout+" "+TimeLayout, s.Date+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: слот %s %s", ErrMalformedInput, s.Date, clock)
	}
	return t, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// VisitSchedule is a persisted slot. Each visit owns exactly one.
type VisitSchedule struct {
	ID int64 `json:"id"`
	VisitSlot
}
