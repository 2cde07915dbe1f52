package config

import (
	"testing"
	"time"
)

func TestNewConfig_BookingDefaults(t *testing.T) {
	t.Setenv("BOOKING_MAX_ACTIVE_VISITS", "")
	t.Setenv("BOOKING_VISIT_DURATION", "")
	t.Setenv("BOOKING_CONFLICT_POLICY", "")
	t.Setenv("BOOKING_TIMEZONE", "UTC")

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Booking.MaxActiveVisits != 3 {
		t.Errorf("expected max active visits 3, got %d", cfg.Booking.MaxActiveVisits)
	}
	if cfg.Booking.VisitDuration != 30*time.Minute {
		t.Errorf("expected visit duration 30m, got %s", cfg.Booking.VisitDuration)
	}
	if cfg.Booking.ConflictPolicy != "reject" {
		t.Errorf("expected reject policy, got %q", cfg.Booking.ConflictPolicy)
	}
	if cfg.Booking.DefaultVisitType != "Wizyta kontrolna" {
		t.Errorf("unexpected default visit type %q", cfg.Booking.DefaultVisitType)
	}
}

func TestNewConfig_Overrides(t *testing.T) {
	t.Setenv("BOOKING_MAX_ACTIVE_VISITS", "5")
	t.Setenv("BOOKING_VISIT_DURATION", "45m")
	t.Setenv("BOOKING_TIMEZONE", "UTC")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Booking.MaxActiveVisits != 5 {
		t.Errorf("expected 5, got %d", cfg.Booking.MaxActiveVisits)
	}
	if cfg.Booking.VisitDuration != 45*time.Minute {
		t.Errorf("expected 45m, got %s", cfg.Booking.VisitDuration)
	}
	if len(cfg.HTTP.AllowedOrigins) != 2 || cfg.HTTP.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("unexpected origins %v", cfg.HTTP.AllowedOrigins)
	}
}

func TestNewConfig_RejectsBadDuration(t *testing.T) {
	t.Setenv("BOOKING_TIMEZONE", "UTC")

	for _, value := range []string{"soon", "-30m"} {
		t.Setenv("BOOKING_VISIT_DURATION", value)
		if _, err := NewConfig(); err == nil {
			t.Errorf("expected error for duration %q", value)
		}
	}
}
