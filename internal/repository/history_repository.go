package repository

import (
	"context"
	"strings"
	"sync"

	apperrors "go-scankey/internal/errors"
	"go-scankey/internal/kvstore"
	"go-scankey/pkg/models"
)

const (
	// HistoryKey is the store key of the history list
	HistoryKey = "history"
	// DefaultHistoryLimit caps the number of history entries
	DefaultHistoryLimit = 50
)

// KVHistoryRepository keeps the history as one JSON list in a kvstore.Store.
type KVHistoryRepository struct {
	mu    sync.Mutex
	list  jsonList[models.HistoryEntry]
	limit int
}

// NewKVHistoryRepository creates a history repository; limit <= 0 uses the default of 50.
func NewKVHistoryRepository(store kvstore.Store, limit int) *KVHistoryRepository {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &KVHistoryRepository{
		list:  jsonList[models.HistoryEntry]{store: store, key: HistoryKey},
		limit: limit,
	}
}

// Save implements HistoryRepository. Entries past the limit are evicted from
// the old end.
func (r *KVHistoryRepository) Save(ctx context.Context, entry models.HistoryEntry) (bool, error) {
	if strings.TrimSpace(entry.InputID) == "" {
		return false, apperrors.NewValidationError("history entry requires an input_id", nil)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.list.load(ctx)
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.InputID == entry.InputID {
			return false, nil
		}
	}

	entries = append([]models.HistoryEntry{entry}, entries...)
	if len(entries) > r.limit {
		entries = entries[:r.limit]
	}
	if err := r.list.save(ctx, entries); err != nil {
		return false, err
	}
	return true, nil
}

// Load implements HistoryRepository.
func (r *KVHistoryRepository) Load(ctx context.Context) ([]models.HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list.load(ctx)
}

// Clear implements HistoryRepository.
func (r *KVHistoryRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list.clear(ctx)
}

// Limit returns the configured cap.
func (r *KVHistoryRepository) Limit() int {
	return r.limit
}
