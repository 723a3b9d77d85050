package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go-scankey/internal/connectivity"
	apperrors "go-scankey/internal/errors"
	"go-scankey/internal/kvstore"
	"go-scankey/internal/observer"
	"go-scankey/internal/repository"
	"go-scankey/pkg/models"
)

type fakeSender struct {
	mu     sync.Mutex
	fail   map[string]bool
	err    error
	sent   []models.FeedbackPayload
	called int
}

func (s *fakeSender) SendFeedback(_ context.Context, p models.FeedbackPayload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.called++
	if s.err != nil || s.fail[p.InputID] {
		if s.err != nil {
			return s.err
		}
		return apperrors.NewHTTPError(503, "unavailable")
	}
	s.sent = append(s.sent, p)
	return nil
}

func (s *fakeSender) inputs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, len(s.sent))
	for i, p := range s.sent {
		ids[i] = p.InputID
	}
	return ids
}

type keyStub bool

func (k keyStub) HasAPIKey(context.Context) bool { return bool(k) }

func payload(id string) models.FeedbackPayload {
	return models.FeedbackPayload{
		InputID:          id,
		ChosenIDModelRef: models.StringPtr("ref-" + id),
		Source:           models.SourceAppReal,
	}
}

func newQueue(sender *fakeSender, mon connectivity.Monitor, keys KeyChecker, opts ...QueueOption) *FeedbackQueue {
	n := 0
	q := NewFeedbackQueue(repository.NewKVFeedbackRepository(kvstore.NewMemoryStore()), sender, mon, keys, opts...)
	q.newID = func() string {
		n++
		return fmt.Sprintf("item-%d", n)
	}
	return q
}

func TestFeedbackQueue_OfflineThenFlush(t *testing.T) {
	ctx := context.Background()
	sender := &fakeSender{}
	mon := connectivity.NewStatic(false)
	q := newQueue(sender, mon, keyStub(true))

	res := q.Send(ctx, payload("scan-1"))
	if !res.Queued || res.Pending != 1 {
		t.Fatalf("Send offline = %+v, want queued with 1 pending", res)
	}
	if sender.called != 0 {
		t.Errorf("sender must not be called while offline")
	}

	// Still offline: nothing is attempted.
	if got := q.FlushAll(ctx); got.Sent != 0 || got.Left != 1 {
		t.Errorf("offline FlushAll = %+v", got)
	}

	mon.Set(true)
	if got := q.FlushAll(ctx); got.Sent != 1 || got.Left != 0 {
		t.Fatalf("FlushAll = %+v, want {1 0}", got)
	}
	if q.Len(ctx) != 0 {
		t.Errorf("queue not empty after flush")
	}
	if len(sender.sent) != 1 || sender.sent[0].Source != "app_real_queued" {
		t.Errorf("delivered %+v", sender.sent)
	}
}

func TestFeedbackQueue_SendOnline(t *testing.T) {
	ctx := context.Background()
	sender := &fakeSender{}
	q := newQueue(sender, connectivity.NewStatic(true), keyStub(true))

	res := q.Send(ctx, payload("scan-1"))
	if res.Queued || res.Pending != 0 {
		t.Errorf("Send online = %+v", res)
	}
	if len(sender.sent) != 1 || sender.sent[0].Source != models.SourceAppReal {
		t.Errorf("direct delivery must keep the source: %+v", sender.sent)
	}
}

func TestFeedbackQueue_DeliveryFailureQueues(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"server error", apperrors.NewHTTPError(500, "boom")},
		{"auth error", apperrors.NewAuthError(401, "bad key")},
		{"plain transport error", errors.New("connection reset")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			q := newQueue(&fakeSender{err: tt.err}, connectivity.NewStatic(true), keyStub(true))

			res := q.Send(ctx, payload("scan-1"))
			if !res.Queued || res.Pending != 1 {
				t.Errorf("Send = %+v, want queued", res)
			}
		})
	}
}

func TestFeedbackQueue_QueuedSuffixAppliedOnce(t *testing.T) {
	ctx := context.Background()
	q := newQueue(&fakeSender{}, connectivity.NewStatic(false), keyStub(true))

	p := payload("scan-1")
	p.Source = "app_manual_queued"
	q.Send(ctx, p)
	q.Send(ctx, payload("scan-2"))

	items, err := q.Items(ctx)
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	want := map[string]string{"scan-1": "app_manual_queued", "scan-2": "app_real_queued"}
	for _, it := range items {
		if it.Payload.Source != want[it.Payload.InputID] {
			t.Errorf("%s source = %q, want %q", it.Payload.InputID, it.Payload.Source, want[it.Payload.InputID])
		}
	}
}

func TestFeedbackQueue_FlushOneIsFIFO(t *testing.T) {
	ctx := context.Background()
	sender := &fakeSender{}
	mon := connectivity.NewStatic(false)
	q := newQueue(sender, mon, keyStub(true))

	for _, id := range []string{"a", "b", "c"} {
		q.Send(ctx, payload(id))
	}
	if q.FlushOne(ctx) {
		t.Fatal("FlushOne must not deliver while offline")
	}

	mon.Set(true)
	for i := 0; i < 3; i++ {
		if !q.FlushOne(ctx) {
			t.Fatalf("FlushOne %d failed", i)
		}
	}
	if q.FlushOne(ctx) {
		t.Error("FlushOne on an empty queue must report false")
	}

	got := sender.inputs()
	want := []string{"a", "b", "c"}
	for i := range want {
		if i >= len(got) || got[i] != want[i] {
			t.Fatalf("delivery order = %v, want %v", got, want)
		}
	}
}

func TestFeedbackQueue_PartialFlushKeepsOrder(t *testing.T) {
	ctx := context.Background()
	sender := &fakeSender{}
	mon := connectivity.NewStatic(false)
	q := newQueue(sender, mon, keyStub(true))

	for _, id := range []string{"a", "b", "c", "d"} {
		q.Send(ctx, payload(id))
	}

	sender.fail = map[string]bool{"b": true, "d": true}
	mon.Set(true)
	got := q.FlushAll(ctx)
	if got.Sent != 2 || got.Left != 2 {
		t.Fatalf("FlushAll = %+v, want {2 2}", got)
	}

	items, _ := q.Items(ctx)
	if len(items) != 2 || items[0].Payload.InputID != "d" || items[1].Payload.InputID != "b" {
		t.Errorf("remaining items out of order: %+v", items)
	}

	sender.fail = nil
	if got := q.FlushAll(ctx); got.Sent != 2 || got.Left != 0 {
		t.Errorf("second FlushAll = %+v", got)
	}
	order := sender.inputs()
	want := []string{"a", "c", "b", "d"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("delivery order = %v, want %v", order, want)
		}
	}
}

func TestFeedbackQueue_NoKeyShortCircuits(t *testing.T) {
	ctx := context.Background()
	sender := &fakeSender{}
	q := newQueue(sender, connectivity.NewStatic(true), keyStub(false))

	if res := q.Send(ctx, payload("scan-1")); !res.Queued {
		t.Errorf("Send without key = %+v, want queued", res)
	}
	if got := q.FlushAll(ctx); got.Sent != 0 || got.Left != 1 {
		t.Errorf("FlushAll without key = %+v", got)
	}
	if sender.called != 0 {
		t.Errorf("sender called %d times without a key", sender.called)
	}
}

func TestFeedbackQueue_FlushOnReconnect(t *testing.T) {
	ctx := context.Background()
	sender := &fakeSender{}
	mon := connectivity.NewStatic(false)
	metrics := observer.NewMetricsObserver()
	events := observer.NewSyncEventPublisher()
	events.Subscribe(metrics)
	q := newQueue(sender, mon, keyStub(true), WithQueueEvents(events), WithSendTimeout(time.Second))

	q.Send(ctx, payload("a"))
	q.Send(ctx, payload("b"))

	stop := q.FlushOnReconnect(ctx)
	defer stop()
	mon.Set(true)

	deadline := time.Now().Add(2 * time.Second)
	for q.Len(ctx) != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("queue not flushed after reconnect, %d left", q.Len(ctx))
		}
		time.Sleep(10 * time.Millisecond)
	}

	got := metrics.GetMetrics()
	if got["feedback_queued"] != int64(2) {
		t.Errorf("feedback_queued = %v", got["feedback_queued"])
	}
	// The flush event is published after the last removal.
	for got["feedback_flushed"] != int64(2) && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
		got = metrics.GetMetrics()
	}
	if got["feedback_flushed"] != int64(2) {
		t.Errorf("feedback_flushed = %v", got["feedback_flushed"])
	}
}

func TestFeedbackQueue_ClockStampsItems(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	q := newQueue(&fakeSender{}, connectivity.NewStatic(false), keyStub(true), WithQueueClock(func() time.Time { return at }))

	q.Send(ctx, payload("scan-1"))
	items, _ := q.Items(ctx)
	if len(items) != 1 || !items[0].CreatedAt.Equal(at) || items[0].CreatedAt.Location() != time.UTC {
		t.Errorf("createdAt = %v", items)
	}
	if items[0].ID != "item-1" {
		t.Errorf("id = %q", items[0].ID)
	}
}
