package repository

import "errors"

var (
	// ErrCorruptData indicates a persisted list could not be decoded
	ErrCorruptData = errors.New("persisted data is corrupt")

	// ErrRepositoryUnavailable indicates the backing store is unavailable
	ErrRepositoryUnavailable = errors.New("repository unavailable")
)
