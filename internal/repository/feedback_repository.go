package repository

import (
	"context"
	"sync"

	"go-scankey/internal/kvstore"
	"go-scankey/pkg/models"
)

// PendingFeedbackKey is the store key of the offline feedback queue
const PendingFeedbackKey = "pending_feedback_queue"

// KVFeedbackRepository keeps the feedback queue as one JSON list, most
// recent first. Every mutation is a locked whole-list read-modify-write.
type KVFeedbackRepository struct {
	mu   sync.Mutex
	list jsonList[models.FeedbackItem]
}

// NewKVFeedbackRepository creates a feedback repository over store
func NewKVFeedbackRepository(store kvstore.Store) *KVFeedbackRepository {
	return &KVFeedbackRepository{
		list: jsonList[models.FeedbackItem]{store: store, key: PendingFeedbackKey},
	}
}

// Push implements FeedbackRepository.
func (r *KVFeedbackRepository) Push(ctx context.Context, item models.FeedbackItem) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items, err := r.list.load(ctx)
	if err != nil {
		return 0, err
	}
	items = append([]models.FeedbackItem{item}, items...)
	if err := r.list.save(ctx, items); err != nil {
		return 0, err
	}
	return len(items), nil
}

// List implements FeedbackRepository.
func (r *KVFeedbackRepository) List(ctx context.Context) ([]models.FeedbackItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list.load(ctx)
}

// Remove implements FeedbackRepository. Unknown IDs are ignored, and items
// pushed since the caller listed the queue are kept.
func (r *KVFeedbackRepository) Remove(ctx context.Context, ids ...string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	items, err := r.list.load(ctx)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return len(items), nil
	}

	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	kept := items[:0]
	for _, item := range items {
		if _, ok := drop[item.ID]; !ok {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(items) {
		return len(items), nil
	}
	if err := r.list.save(ctx, kept); err != nil {
		return 0, err
	}
	return len(kept), nil
}

// Len implements FeedbackRepository.
func (r *KVFeedbackRepository) Len(ctx context.Context) (int, error) {
	items, err := r.List(ctx)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}
