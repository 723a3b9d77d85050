// Package settings holds the runtime backend settings the user can change
// without restarting the agent.
package settings

import (
	"context"
	"strings"

	"go-scankey/internal/kvstore"
	"go-scankey/internal/logger"
	"go-scankey/pkg/validation"
)

// Persisted keys.
const (
	KeyBaseURL = "api_base_url"
	KeyAPIKey  = "api_key"
)

// Settings resolves the classifier base URL and API key. Persisted values
// win over the defaults taken from configuration.
type Settings struct {
	store          kvstore.Store
	validator      *validation.URLValidator
	defaultBaseURL string
	defaultAPIKey  string
}

// New creates runtime settings backed by store
func New(store kvstore.Store, defaultBaseURL, defaultAPIKey string) *Settings {
	return &Settings{
		store:          store,
		validator:      validation.NewURLValidator(),
		defaultBaseURL: strings.TrimRight(strings.TrimSpace(defaultBaseURL), "/"),
		defaultAPIKey:  strings.TrimSpace(defaultAPIKey),
	}
}

// BaseURL returns the effective base URL, without trailing slash.
func (s *Settings) BaseURL(ctx context.Context) (string, error) {
	return s.get(ctx, KeyBaseURL, s.defaultBaseURL), nil
}

// APIKey returns the effective API key, "" when none is configured.
func (s *Settings) APIKey(ctx context.Context) (string, error) {
	return s.get(ctx, KeyAPIKey, s.defaultAPIKey), nil
}

// HasAPIKey reports whether an API key is configured.
func (s *Settings) HasAPIKey(ctx context.Context) bool {
	key, _ := s.APIKey(ctx)
	return key != ""
}

// SetBaseURL validates and persists a base URL. An empty value reverts to
// the configured default.
func (s *Settings) SetBaseURL(ctx context.Context, baseURL string) error {
	if strings.TrimSpace(baseURL) == "" {
		return s.store.Remove(ctx, KeyBaseURL)
	}
	normalized, err := s.validator.ValidateBaseURL(baseURL)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, KeyBaseURL, normalized)
}

// SetAPIKey persists an API key. An empty value reverts to the configured
// default.
func (s *Settings) SetAPIKey(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return s.store.Remove(ctx, KeyAPIKey)
	}
	return s.store.Set(ctx, KeyAPIKey, key)
}

func (s *Settings) get(ctx context.Context, key, fallback string) string {
	v, ok, err := s.store.Get(ctx, key)
	if err != nil {
		logger.WithError(err).WithField("key", key).Warn("Failed to read setting, using default")
		return fallback
	}
	if v = strings.TrimSpace(v); !ok || v == "" {
		return fallback
	}
	return v
}

// Preview masks an API key down to its last four characters.
func Preview(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return "****" + key[len(key)-4:]
}
