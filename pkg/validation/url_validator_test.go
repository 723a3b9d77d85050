package validation

import (
	"testing"

	apperrors "go-scankey/internal/errors"
)

func TestNewURLValidator(t *testing.T) {
	validator := NewURLValidator()
	if validator == nil {
		t.Fatal("Expected non-nil URL validator")
	}

	expectedSchemes := []string{"http", "https"}
	if len(validator.allowedSchemes) != len(expectedSchemes) {
		t.Errorf("Expected %d schemes, got %d", len(expectedSchemes), len(validator.allowedSchemes))
	}
	for i, scheme := range expectedSchemes {
		if validator.allowedSchemes[i] != scheme {
			t.Errorf("Expected scheme %s, got %s", scheme, validator.allowedSchemes[i])
		}
	}
}

func TestValidateBaseURL_Valid(t *testing.T) {
	validator := NewURLValidator()

	tests := []struct {
		in   string
		want string
	}{
		{"https://api.scankey.tech/v1", "https://api.scankey.tech/v1"},
		{"https://api.scankey.tech/v1/", "https://api.scankey.tech/v1"},
		{"  http://192.168.1.20:8001  ", "http://192.168.1.20:8001"},
		{"HTTP://localhost:8001//", "HTTP://localhost:8001"},
	}

	for _, tt := range tests {
		got, err := validator.ValidateBaseURL(tt.in)
		if err != nil {
			t.Errorf("ValidateBaseURL(%q) unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ValidateBaseURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValidateBaseURL_Invalid(t *testing.T) {
	validator := NewURLValidator()

	tests := []struct {
		name    string
		in      string
		message string
	}{
		{"empty", "", "base URL cannot be empty"},
		{"blank", " \t\n", "base URL cannot be empty"},
		{"no scheme", "api.scankey.tech", "base URL scheme not allowed"},
		{"ftp", "ftp://example.com", "base URL scheme not allowed"},
		{"no host", "https://", "base URL must have a valid host"},
		{"path only", "http:///v1", "base URL must have a valid host"},
		{"query", "https://example.com/v1?x=1", "base URL must not carry a query or fragment"},
		{"fragment", "https://example.com/v1#top", "base URL must not carry a query or fragment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := validator.ValidateBaseURL(tt.in)
			if err == nil {
				t.Fatalf("Expected %q to fail validation", tt.in)
			}
			appErr, ok := apperrors.As(err)
			if !ok {
				t.Fatalf("Expected AppError, got: %T", err)
			}
			if appErr.Type != apperrors.ErrorTypeValidation {
				t.Errorf("Expected validation error, got %s", appErr.Type)
			}
			if appErr.Message != tt.message {
				t.Errorf("Expected %q, got %q", tt.message, appErr.Message)
			}
		})
	}
}

func TestValidateBaseURL_RestrictedHosts(t *testing.T) {
	validator := NewURLValidatorWithOptions([]string{"https"}, []string{"api.scankey.tech"})

	if _, err := validator.ValidateBaseURL("https://API.scankey.tech/v1"); err != nil {
		t.Errorf("Expected allowed host to pass, got %v", err)
	}
	if _, err := validator.ValidateBaseURL("https://evil.example/v1"); err == nil {
		t.Error("Expected disallowed host to fail")
	}
	if _, err := validator.ValidateBaseURL("http://api.scankey.tech/v1"); err == nil {
		t.Error("Expected http scheme to fail when only https is allowed")
	}
}

func TestIsHostAllowed(t *testing.T) {
	validator := NewURLValidator()
	if !validator.isHostAllowed("example.com") {
		t.Error("Expected any host to be allowed when no restrictions")
	}

	restricted := NewURLValidatorWithOptions([]string{"http", "https"}, []string{"example.com", "trusted.com"})
	if !restricted.isHostAllowed("trusted.com") {
		t.Error("Expected trusted.com to be allowed")
	}
	if restricted.isHostAllowed("malicious.com") {
		t.Error("Expected malicious.com to be disallowed")
	}
}
