package middleware

import (
	"strings"
	"testing"
	"time"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int64
		wantErr bool
	}{
		{"valid", "42", 42, false},
		{"trims whitespace", " 7 ", 7, false},
		{"empty", "", 0, true},
		{"zero", "0", 0, true},
		{"negative", "-3", 0, true},
		{"not a number", "abc", 0, true},
		{"sql injection", "1; DROP--", 0, true},
		{"overflow", "99999999999999999999", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, errMsg := ParseID(tt.input, "id")
			if tt.wantErr && errMsg == "" {
				t.Errorf("expected error, got none")
			}
			if !tt.wantErr && errMsg != "" {
				t.Errorf("unexpected error: %s", errMsg)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseOptionalFloat(t *testing.T) {
	if v, msg := ParseOptionalFloat("", "min_lat"); v != nil || msg != "" {
		t.Errorf("empty: got %v, %q", v, msg)
	}
	if v, msg := ParseOptionalFloat("-16.25", "min_lat"); v == nil || *v != -16.25 || msg != "" {
		t.Errorf("valid: got %v, %q", v, msg)
	}
	if _, msg := ParseOptionalFloat("north", "min_lat"); msg == "" {
		t.Error("expected error for non-numeric input")
	}
}

func TestParseOptionalTime(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantNil bool
		wantErr bool
	}{
		{"empty", "", time.Time{}, true, false},
		{"date only", "2025-03-01", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), false, false},
		{"rfc3339", "2025-03-01T10:30:00Z", time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC), false, false},
		{"garbage", "last tuesday", time.Time{}, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, errMsg := ParseOptionalTime(tt.input, "date_from")
			if (errMsg != "") != tt.wantErr {
				t.Fatalf("errMsg = %q, wantErr %v", errMsg, tt.wantErr)
			}
			if tt.wantNil {
				if got != nil {
					t.Errorf("got %v, want nil", got)
				}
				return
			}
			if got == nil || !got.Equal(tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateText(t *testing.T) {
	in := "  spotted near the wreck  "
	got, ok := ValidateText(&in, MaxCommentLen)
	if !ok || got == nil || *got != "spotted near the wreck" {
		t.Errorf("trim failed: got %v, %v", got, ok)
	}

	long := strings.Repeat("x", MaxSpeciesLen+1)
	if _, ok := ValidateText(&long, MaxSpeciesLen); ok {
		t.Error("expected over-long text to be rejected")
	}

	if got, ok := ValidateText(nil, MaxSpeciesLen); got != nil || !ok {
		t.Errorf("nil input: got %v, %v", got, ok)
	}
}

func TestSanitizePath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/api/users/17", "/api/users/:userId"},
		{"/api/media/42/validate", "/api/media/:id/validate"},
		{"/api/validations/9", "/api/validations/:voteId"},
		{"/api/users/me", "/api/users/me"},
		{"/health/live", "/health/live"},
	}
	for _, tt := range tests {
		if got := sanitizePath(tt.in); got != tt.want {
			t.Errorf("sanitizePath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
