package settings

import (
	"context"
	"testing"

	apperrors "go-scankey/internal/errors"
	"go-scankey/internal/kvstore"
)

func TestSettings_DefaultsAndOverrides(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	s := New(store, "https://api.scankey.tech/v1/", "")

	if got, _ := s.BaseURL(ctx); got != "https://api.scankey.tech/v1" {
		t.Errorf("default base URL = %q", got)
	}
	if s.HasAPIKey(ctx) {
		t.Error("no API key should be configured")
	}

	if err := s.SetBaseURL(ctx, " http://192.168.1.20:8001/ "); err != nil {
		t.Fatalf("SetBaseURL: %v", err)
	}
	if err := s.SetAPIKey(ctx, "  sk-123456  "); err != nil {
		t.Fatalf("SetAPIKey: %v", err)
	}

	if got, _ := s.BaseURL(ctx); got != "http://192.168.1.20:8001" {
		t.Errorf("base URL = %q", got)
	}
	if got, _ := s.APIKey(ctx); got != "sk-123456" {
		t.Errorf("api key = %q", got)
	}
	if v, _, _ := store.Get(ctx, KeyAPIKey); v != "sk-123456" {
		t.Errorf("api key not persisted under %s: %q", KeyAPIKey, v)
	}

	if err := s.SetBaseURL(ctx, ""); err != nil {
		t.Fatalf("SetBaseURL reset: %v", err)
	}
	if got, _ := s.BaseURL(ctx); got != "https://api.scankey.tech/v1" {
		t.Errorf("reset base URL = %q", got)
	}
}

func TestSettings_RejectsInvalidBaseURL(t *testing.T) {
	ctx := context.Background()
	s := New(kvstore.NewMemoryStore(), "https://api.scankey.tech/v1", "")

	err := s.SetBaseURL(ctx, "ftp://files.example.com")
	if !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if got, _ := s.BaseURL(ctx); got != "https://api.scankey.tech/v1" {
		t.Errorf("invalid URL must not be stored, got %q", got)
	}
}

func TestPreview(t *testing.T) {
	tests := []struct{ in, want string }{
		{"", ""},
		{"abc", "***"},
		{"sk-123456", "****3456"},
	}
	for _, tt := range tests {
		if got := Preview(tt.in); got != tt.want {
			t.Errorf("Preview(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
