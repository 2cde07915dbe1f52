package validator

import (
	"strings"
	"testing"
)

func TestValidatePESEL(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"90010112345", true},
		{"9001011234", false},
		{"900101123456", false},
		{"9001011234a", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := ValidatePESEL(tt.input); got != tt.want {
			t.Errorf("ValidatePESEL(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestValidatePostalCode(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"00-950", true},
		{"00950", false},
		{"0-0950", false},
		{"ab-cde", false},
	}

	for _, tt := range tests {
		if got := ValidatePostalCode(tt.input); got != tt.want {
			t.Errorf("ValidatePostalCode(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestValidatePhone(t *testing.T) {
	if !ValidatePhone("+48 600 700 800") {
		t.Error("expected formatted phone to be valid")
	}
	if ValidatePhone("12345") {
		t.Error("expected short phone to be invalid")
	}
}

func TestValidatePassword(t *testing.T) {
	if !ValidatePassword("abc123") {
		t.Error("expected abc123 to be valid")
	}
	if ValidatePassword("abcdef") {
		t.Error("expected password without digits to be invalid")
	}
	if ValidatePassword("a1") {
		t.Error("expected short password to be invalid")
	}
}

func TestMaxLength_CountsRunes(t *testing.T) {
	s := strings.Repeat("ż", 2000)
	if !MaxLength(s, 2000) {
		t.Error("expected 2000 runes to fit")
	}
	if MaxLength(s+"a", 2000) {
		t.Error("expected 2001 runes to exceed")
	}
}

func TestFormatName(t *testing.T) {
	if got := FormatName("anna  maria-KOWALSKA"); got != "Anna Maria-Kowalska" {
		t.Errorf("unexpected result %q", got)
	}
	if got := FormatName("łukasz"); got != "Łukasz" {
		t.Errorf("unexpected result %q", got)
	}
}

func TestFieldErrors(t *testing.T) {
	var errs FieldErrors
	if errs.HasErrors() {
		t.Fatal("expected no errors")
	}

	errs.Add("pesel", "must have 11 digits")
	errs.Add("city", "required")

	if !errs.HasErrors() {
		t.Fatal("expected errors")
	}
	if errs.Error() != "pesel: must have 11 digits; city: required" {
		t.Errorf("unexpected message %q", errs.Error())
	}
}
