package validation

import (
	"net/url"
	"strings"

	apperrors "go-scankey/internal/errors"
)

// URLValidator checks classifier base URLs entered by the user
type URLValidator struct {
	allowedSchemes []string
	allowedHosts   []string
}

// NewURLValidator accepts any http or https host
func NewURLValidator() *URLValidator {
	return &URLValidator{
		allowedSchemes: []string{"http", "https"},
		allowedHosts:   []string{}, // empty means all hosts allowed
	}
}

// NewURLValidatorWithOptions creates a URL validator with custom options
func NewURLValidatorWithOptions(schemes []string, hosts []string) *URLValidator {
	return &URLValidator{
		allowedSchemes: schemes,
		allowedHosts:   hosts,
	}
}

// ValidateBaseURL checks that baseURL can prefix the classifier endpoints
// and returns it without trailing slashes.
func (v *URLValidator) ValidateBaseURL(baseURL string) (string, error) {
	trimmed := strings.TrimSpace(baseURL)
	if trimmed == "" {
		return "", apperrors.NewValidationError("base URL cannot be empty", nil)
	}

	parsedURL, err := url.Parse(trimmed)
	if err != nil {
		return "", apperrors.NewValidationError("invalid base URL format", err)
	}

	if !v.isSchemeAllowed(strings.ToLower(parsedURL.Scheme)) {
		return "", apperrors.NewValidationError("base URL scheme not allowed", nil)
	}

	if parsedURL.Hostname() == "" {
		return "", apperrors.NewValidationError("base URL must have a valid host", nil)
	}

	if !v.isHostAllowed(parsedURL.Hostname()) {
		return "", apperrors.NewValidationError("base URL host not allowed", nil)
	}

	if parsedURL.RawQuery != "" || parsedURL.Fragment != "" {
		return "", apperrors.NewValidationError("base URL must not carry a query or fragment", nil)
	}

	return strings.TrimRight(trimmed, "/"), nil
}

func (v *URLValidator) isSchemeAllowed(scheme string) bool {
	for _, allowed := range v.allowedSchemes {
		if scheme == allowed {
			return true
		}
	}
	return false
}

// isHostAllowed returns true if no host restrictions are set
func (v *URLValidator) isHostAllowed(host string) bool {
	if len(v.allowedHosts) == 0 {
		return true
	}
	for _, allowed := range v.allowedHosts {
		if strings.EqualFold(host, allowed) {
			return true
		}
	}
	return false
}
