package utils

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"coffee shops", "coffee_shops"},
		{"New York, NY", "New_York__NY"},
		{"café_42.csv", "café_42.csv"},
		{"../etc/passwd", ".._etc_passwd"},
		{"  padded  ", "padded"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGenerateRequestID(t *testing.T) {
	id := GenerateRequestID()
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("GenerateRequestID returned %q, not a UUID: %v", id, err)
	}
	if id == GenerateRequestID() {
		t.Fatal("two request IDs collided")
	}
}

func TestFormatDuration(t *testing.T) {
	if got := FormatDuration(1500 * time.Millisecond); got != "1.50s" {
		t.Errorf("FormatDuration(1.5s) = %q", got)
	}
	if got := FormatDuration(90 * time.Second); got != "1.5m" {
		t.Errorf("FormatDuration(90s) = %q", got)
	}
}

func TestAsCustomError(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", NewConflictError("scrape already in progress"))

	customErr, ok := AsCustomError(wrapped)
	if !ok {
		t.Fatal("expected a CustomError in the chain")
	}
	if customErr.Code != http.StatusConflict {
		t.Errorf("Code = %d, want %d", customErr.Code, http.StatusConflict)
	}

	if _, ok := AsCustomError(errors.New("plain")); ok {
		t.Error("plain error reported as CustomError")
	}
}
