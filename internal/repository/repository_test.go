package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	apperrors "go-scankey/internal/errors"
	"go-scankey/internal/kvstore"
	"go-scankey/pkg/models"
)

func entry(id string) models.HistoryEntry {
	return models.HistoryEntry{InputID: id, Title: "JMA TE5", Confidence: 0.9, SavedAt: time.Unix(0, 0).UTC()}
}

func ids(entries []models.HistoryEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.InputID
	}
	return out
}

func TestHistory_SaveDedupAndOrder(t *testing.T) {
	ctx := context.Background()
	repo := NewKVHistoryRepository(kvstore.NewMemoryStore(), 0)

	tests := []struct {
		id      string
		changed bool
	}{
		{"a", true},
		{"b", true},
		{"a", false},
		{"c", true},
	}
	for _, tt := range tests {
		changed, err := repo.Save(ctx, entry(tt.id))
		if err != nil {
			t.Fatalf("Save(%s): %v", tt.id, err)
		}
		if changed != tt.changed {
			t.Errorf("Save(%s) changed = %v, want %v", tt.id, changed, tt.changed)
		}
	}

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if fmt.Sprint(ids(got)) != "[c b a]" {
		t.Errorf("history = %v, want [c b a]", ids(got))
	}
}

func TestHistory_CapEvictsOldest(t *testing.T) {
	ctx := context.Background()
	repo := NewKVHistoryRepository(kvstore.NewMemoryStore(), 0)

	for i := 0; i < DefaultHistoryLimit+5; i++ {
		if _, err := repo.Save(ctx, entry(fmt.Sprintf("scan-%d", i))); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	got, _ := repo.Load(ctx)
	if len(got) != DefaultHistoryLimit {
		t.Fatalf("len = %d, want %d", len(got), DefaultHistoryLimit)
	}
	if got[0].InputID != "scan-54" || got[len(got)-1].InputID != "scan-5" {
		t.Errorf("unexpected bounds %s .. %s", got[0].InputID, got[len(got)-1].InputID)
	}
}

func TestHistory_ClearAndValidation(t *testing.T) {
	ctx := context.Background()
	repo := NewKVHistoryRepository(kvstore.NewMemoryStore(), 3)

	if _, err := repo.Save(ctx, entry("")); !apperrors.IsType(err, apperrors.ErrorTypeValidation) {
		t.Errorf("expected validation error, got %v", err)
	}

	repo.Save(ctx, entry("a"))
	if err := repo.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	got, err := repo.Load(ctx)
	if err != nil || len(got) != 0 {
		t.Errorf("after Clear got %v, %v", got, err)
	}
}

func TestHistory_ConcurrentSaves(t *testing.T) {
	ctx := context.Background()
	repo := NewKVHistoryRepository(kvstore.NewMemoryStore(), 0)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			repo.Save(ctx, entry(fmt.Sprintf("scan-%d", i)))
			repo.Save(ctx, entry(fmt.Sprintf("scan-%d", i)))
		}(i)
	}
	wg.Wait()

	got, _ := repo.Load(ctx)
	if len(got) != 20 {
		t.Errorf("len = %d, want 20 (no lost or duplicated entries)", len(got))
	}
}

func feedbackItem(id string) models.FeedbackItem {
	return models.FeedbackItem{
		ID:        id,
		CreatedAt: time.Unix(1700000000, 0).UTC(),
		Payload:   models.FeedbackPayload{InputID: "scan-" + id, Source: models.SourceAppReal},
	}
}

func itemIDs(items []models.FeedbackItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestFeedback_PushListRemove(t *testing.T) {
	ctx := context.Background()
	repo := NewKVFeedbackRepository(kvstore.NewMemoryStore())

	for i, id := range []string{"1", "2", "3"} {
		n, err := repo.Push(ctx, feedbackItem(id))
		if err != nil {
			t.Fatalf("Push: %v", err)
		}
		if n != i+1 {
			t.Errorf("Push(%s) length = %d, want %d", id, n, i+1)
		}
	}

	items, _ := repo.List(ctx)
	if fmt.Sprint(itemIDs(items)) != "[3 2 1]" {
		t.Errorf("queue = %v, want most recent first [3 2 1]", itemIDs(items))
	}

	left, err := repo.Remove(ctx, "2", "unknown")
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if left != 2 {
		t.Errorf("left = %d, want 2", left)
	}
	items, _ = repo.List(ctx)
	if fmt.Sprint(itemIDs(items)) != "[3 1]" {
		t.Errorf("queue = %v, want [3 1]", itemIDs(items))
	}
	if n, _ := repo.Len(ctx); n != 2 {
		t.Errorf("Len = %d", n)
	}
}

func TestFeedback_RemoveKeepsItemsPushedMeanwhile(t *testing.T) {
	ctx := context.Background()
	repo := NewKVFeedbackRepository(kvstore.NewMemoryStore())

	repo.Push(ctx, feedbackItem("old"))
	snapshot, _ := repo.List(ctx)

	repo.Push(ctx, feedbackItem("new"))
	left, _ := repo.Remove(ctx, snapshot[0].ID)

	items, _ := repo.List(ctx)
	if left != 1 || len(items) != 1 || items[0].ID != "new" {
		t.Errorf("queue = %v, want [new]", itemIDs(items))
	}
}

func TestFeedback_CorruptQueueIsBackedUp(t *testing.T) {
	ctx := context.Background()
	store := kvstore.NewMemoryStore()
	store.Set(ctx, PendingFeedbackKey, `{not json`)

	repo := NewKVFeedbackRepository(store)
	items, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("corrupt queue should read as empty, got %v", items)
	}

	backup, ok, _ := store.Get(ctx, PendingFeedbackKey+".corrupt")
	if !ok || backup != `{not json` {
		t.Errorf("backup = %q, %v", backup, ok)
	}

	if n, err := repo.Push(ctx, feedbackItem("1")); err != nil || n != 1 {
		t.Errorf("Push after corruption = %d, %v", n, err)
	}
}

func TestFeedback_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	store, err := kvstore.NewSQLiteStore(t.TempDir() + "/queue.db")
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer store.Close()

	NewKVFeedbackRepository(store).Push(ctx, feedbackItem("1"))

	items, err := NewKVFeedbackRepository(store).List(ctx)
	if err != nil || len(items) != 1 || items[0].Payload.InputID != "scan-1" {
		t.Fatalf("reloaded queue = %v, %v", items, err)
	}
	if !items[0].CreatedAt.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("createdAt = %v", items[0].CreatedAt)
	}
}

// flakyStore fails its next failSets/failRemoves writes.
type flakyStore struct {
	*kvstore.MemoryStore
	failSets    int
	failRemoves int
}

func (f *flakyStore) Set(ctx context.Context, key, value string) error {
	if f.failSets > 0 {
		f.failSets--
		return kvstore.ErrUnavailable
	}
	return f.MemoryStore.Set(ctx, key, value)
}

func (f *flakyStore) Remove(ctx context.Context, key string) error {
	if f.failRemoves > 0 {
		f.failRemoves--
		return kvstore.ErrUnavailable
	}
	return f.MemoryStore.Remove(ctx, key)
}

func TestFeedback_FailedPrimaryWriteKeepsEveryItem(t *testing.T) {
	ctx := context.Background()
	primary := &flakyStore{MemoryStore: kvstore.NewMemoryStore()}
	repo := NewKVFeedbackRepository(kvstore.NewFallbackStore("flaky", primary))

	repo.Push(ctx, feedbackItem("z"))
	primary.failSets = 1
	repo.Push(ctx, feedbackItem("a"))
	repo.Push(ctx, feedbackItem("b"))

	items, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if fmt.Sprint(itemIDs(items)) != "[b a z]" {
		t.Fatalf("queue = %v, want [b a z]", itemIDs(items))
	}

	persisted, err := NewKVFeedbackRepository(primary).List(ctx)
	if err != nil || len(persisted) != 3 {
		t.Errorf("primary queue = %v, %v, want all 3 items after the next successful write", itemIDs(persisted), err)
	}
}

func TestHistory_FailedPrimaryRemoveStaysCleared(t *testing.T) {
	ctx := context.Background()
	primary := &flakyStore{MemoryStore: kvstore.NewMemoryStore()}
	repo := NewKVHistoryRepository(kvstore.NewFallbackStore("flaky", primary), 0)

	if _, err := repo.Save(ctx, entry("a")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	primary.failRemoves = 1
	if err := repo.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	got, err := repo.Load(ctx)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("history after Clear = %v, want empty", ids(got))
	}
}
