package repository

import (
	"context"

	"go-scankey/pkg/models"
)

// HistoryRepository stores the bounded, most-recent-first scan history
type HistoryRepository interface {
	// Save prepends entry unless its input_id is already stored. It reports
	// whether the history changed.
	Save(ctx context.Context, entry models.HistoryEntry) (bool, error)

	// Load returns the history, most recent first
	Load(ctx context.Context) ([]models.HistoryEntry, error)

	// Clear empties the history
	Clear(ctx context.Context) error
}

// FeedbackRepository persists undelivered feedback, most recent first
type FeedbackRepository interface {
	// Push prepends item and returns the new queue length
	Push(ctx context.Context, item models.FeedbackItem) (int, error)

	// List returns the queue, most recent first
	List(ctx context.Context) ([]models.FeedbackItem, error)

	// Remove deletes the items with the given IDs and returns the remaining length
	Remove(ctx context.Context, ids ...string) (int, error)

	// Len returns the queue length
	Len(ctx context.Context) (int, error)
}
