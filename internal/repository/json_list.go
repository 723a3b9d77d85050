package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"go-scankey/internal/kvstore"
	"go-scankey/internal/logger"

	"github.com/sirupsen/logrus"
)

// corruptSuffix names the key a corrupt list is copied to before reset.
const corruptSuffix = ".corrupt"

// jsonList is a whole-list JSON document under one store key. Callers
// serialize read-modify-write cycles themselves.
type jsonList[T any] struct {
	store kvstore.Store
	key   string
}

func (l jsonList[T]) load(ctx context.Context) ([]T, error) {
	raw, ok, err := l.store.Get(ctx, l.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRepositoryUnavailable, err)
	}
	if !ok || raw == "" {
		return []T{}, nil
	}

	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		l.quarantine(ctx, raw, err)
		return []T{}, nil
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

func (l jsonList[T]) save(ctx context.Context, items []T) error {
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", l.key, err)
	}
	if err := l.store.Set(ctx, l.key, string(data)); err != nil {
		return fmt.Errorf("%w: %v", ErrRepositoryUnavailable, err)
	}
	return nil
}

func (l jsonList[T]) clear(ctx context.Context) error {
	if err := l.store.Remove(ctx, l.key); err != nil {
		return fmt.Errorf("%w: %v", ErrRepositoryUnavailable, err)
	}
	return nil
}

// quarantine keeps an undecodable list under key+".corrupt" so it can be
// recovered by hand, and lets the caller continue with an empty list.
func (l jsonList[T]) quarantine(ctx context.Context, raw string, cause error) {
	entry := logger.WithError(fmt.Errorf("%w: %v", ErrCorruptData, cause)).WithFields(logrus.Fields{
		"key":    l.key,
		"backup": l.key + corruptSuffix,
		"bytes":  len(raw),
	})
	if err := l.store.Set(ctx, l.key+corruptSuffix, raw); err != nil {
		entry.WithField("backup_error", err.Error()).Error("Corrupt list could not be backed up")
		return
	}
	entry.Warn("Corrupt list backed up and reset")
}
