package service

import (
	"context"
	"sync"
	"time"

	"go-scankey/internal/connectivity"
	apperrors "go-scankey/internal/errors"
	"go-scankey/internal/logger"
	"go-scankey/internal/observer"
	"go-scankey/internal/repository"
	"go-scankey/pkg/models"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// FeedbackSender delivers one feedback payload to the backend.
type FeedbackSender interface {
	SendFeedback(ctx context.Context, payload models.FeedbackPayload) error
}

// KeyChecker reports whether a backend credential is configured.
type KeyChecker interface {
	HasAPIKey(ctx context.Context) bool
}

// SendResult is the outcome of FeedbackQueue.Send.
type SendResult struct {
	Queued  bool
	Pending int
}

// FlushResult is the outcome of FeedbackQueue.FlushAll.
type FlushResult struct {
	Sent int
	Left int
}

// FeedbackQueue delivers feedback immediately when possible and otherwise
// keeps it in a persisted queue for later replay. It never surfaces a
// delivery error: every failure ends with the payload queued.
type FeedbackQueue struct {
	repo    repository.FeedbackRepository
	sender  FeedbackSender
	monitor connectivity.Monitor
	keys    KeyChecker
	events  observer.Subject
	timeout time.Duration
	now     func() time.Time
	newID   func() string

	// flushMu serializes flushes so one item is never delivered twice by
	// overlapping flush passes.
	flushMu sync.Mutex
}

// QueueOption configures a FeedbackQueue
type QueueOption func(*FeedbackQueue)

// WithSendTimeout bounds every delivery attempt.
func WithSendTimeout(d time.Duration) QueueOption {
	return func(q *FeedbackQueue) {
		q.timeout = d
	}
}

// WithQueueEvents publishes feedback events to s.
func WithQueueEvents(s observer.Subject) QueueOption {
	return func(q *FeedbackQueue) {
		q.events = s
	}
}

// WithQueueClock overrides the clock used for createdAt.
func WithQueueClock(now func() time.Time) QueueOption {
	return func(q *FeedbackQueue) {
		q.now = now
	}
}

// NewFeedbackQueue creates a feedback queue
func NewFeedbackQueue(
	repo repository.FeedbackRepository,
	sender FeedbackSender,
	monitor connectivity.Monitor,
	keys KeyChecker,
	opts ...QueueOption,
) *FeedbackQueue {
	q := &FeedbackQueue{
		repo:    repo,
		sender:  sender,
		monitor: monitor,
		keys:    keys,
		events:  observer.Nop{},
		timeout: 10 * time.Second,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Send delivers payload when online with a configured key, and queues it
// otherwise or when delivery fails.
func (q *FeedbackQueue) Send(ctx context.Context, payload models.FeedbackPayload) SendResult {
	if q.deliverable(ctx) {
		err := q.deliver(ctx, payload)
		if err == nil {
			q.events.NotifyObservers(ctx, observer.Event{
				EventType: observer.FeedbackSent,
				InputID:   payload.InputID,
				Success:   true,
			})
			return SendResult{Queued: false, Pending: q.Len(ctx)}
		}
		logger.WithError(err).WithField("input_id", payload.InputID).Warn("Feedback delivery failed, queueing")
	}

	n, err := q.Queue(ctx, payload)
	if err != nil {
		logger.WithError(err).WithField("input_id", payload.InputID).Error("Failed to persist queued feedback")
	}
	return SendResult{Queued: true, Pending: n}
}

// Queue prepends payload to the persisted queue and returns its new length.
// The stored payload's source carries the queued suffix.
func (q *FeedbackQueue) Queue(ctx context.Context, payload models.FeedbackPayload) (int, error) {
	item := models.FeedbackItem{
		ID:        q.newID(),
		CreatedAt: q.now().UTC(),
		Payload:   payload.Queued(),
	}
	n, err := q.repo.Push(ctx, item)
	if err != nil {
		return 0, err
	}
	q.events.NotifyObservers(ctx, observer.Event{
		EventType: observer.FeedbackQueued,
		InputID:   payload.InputID,
		Metadata:  map[string]interface{}{"pending": n},
	})
	return n, nil
}

// FlushAll tries every queued item, oldest first. Delivered items are
// removed one by one; failed items stay queued in their original order.
func (q *FeedbackQueue) FlushAll(ctx context.Context) FlushResult {
	q.flushMu.Lock()
	defer q.flushMu.Unlock()

	items, err := q.repo.List(ctx)
	if err != nil {
		logger.WithError(err).Error("Failed to read feedback queue")
		return FlushResult{}
	}
	if len(items) == 0 || !q.deliverable(ctx) {
		return FlushResult{Left: len(items)}
	}

	sent := 0
	for i := len(items) - 1; i >= 0; i-- {
		if ctx.Err() != nil {
			break
		}
		item := items[i]
		if err := q.deliver(ctx, item.Payload); err != nil {
			logger.WithError(err).WithFields(logrus.Fields{
				"item_id":  item.ID,
				"input_id": item.Payload.InputID,
			}).Debug("Queued feedback still undeliverable")
			continue
		}
		if _, err := q.repo.Remove(ctx, item.ID); err != nil {
			logger.WithError(err).WithField("item_id", item.ID).Error("Delivered feedback could not be dequeued")
			continue
		}
		sent++
	}

	left := len(items)
	if sent > 0 {
		left = q.Len(ctx)
	}
	q.events.NotifyObservers(ctx, observer.Event{
		EventType: observer.FeedbackFlushed,
		Success:   sent > 0,
		Metadata:  map[string]interface{}{"sent": sent, "left": left, "mode": "all"},
	})
	return FlushResult{Sent: sent, Left: left}
}

// FlushOne tries only the oldest queued item and reports whether it was
// delivered and removed.
func (q *FeedbackQueue) FlushOne(ctx context.Context) bool {
	q.flushMu.Lock()
	defer q.flushMu.Unlock()

	items, err := q.repo.List(ctx)
	if err != nil {
		logger.WithError(err).Error("Failed to read feedback queue")
		return false
	}
	if len(items) == 0 || !q.deliverable(ctx) {
		return false
	}

	oldest := items[len(items)-1]
	if err := q.deliver(ctx, oldest.Payload); err != nil {
		logger.WithError(err).WithField("item_id", oldest.ID).Debug("Oldest queued feedback still undeliverable")
		return false
	}
	left, err := q.repo.Remove(ctx, oldest.ID)
	if err != nil {
		logger.WithError(err).WithField("item_id", oldest.ID).Error("Delivered feedback could not be dequeued")
		return false
	}
	q.events.NotifyObservers(ctx, observer.Event{
		EventType: observer.FeedbackFlushed,
		Success:   true,
		Metadata:  map[string]interface{}{"sent": 1, "left": left, "mode": "one"},
	})
	return true
}

// Len returns the number of queued items, 0 when the queue cannot be read.
func (q *FeedbackQueue) Len(ctx context.Context) int {
	n, err := q.repo.Len(ctx)
	if err != nil {
		logger.WithError(err).Warn("Failed to read feedback queue length")
		return 0
	}
	return n
}

// Items returns the queued items, most recent first.
func (q *FeedbackQueue) Items(ctx context.Context) ([]models.FeedbackItem, error) {
	return q.repo.List(ctx)
}

// FlushOnReconnect runs FlushAll in the background each time the monitor
// reports the backend online again. The returned function stops watching.
func (q *FeedbackQueue) FlushOnReconnect(ctx context.Context) (stop func()) {
	return q.monitor.Subscribe(func(online bool) {
		if !online {
			return
		}
		go func() {
			result := q.FlushAll(ctx)
			logger.WithFields(logrus.Fields{
				"sent": result.Sent,
				"left": result.Left,
			}).Info("Flushed feedback queue after reconnect")
		}()
	})
}

func (q *FeedbackQueue) deliverable(ctx context.Context) bool {
	return q.monitor.Online() && q.keys.HasAPIKey(ctx)
}

func (q *FeedbackQueue) deliver(ctx context.Context, payload models.FeedbackPayload) error {
	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}
	if err := q.sender.SendFeedback(ctx, payload); err != nil {
		if _, ok := apperrors.As(err); ok {
			return err
		}
		return apperrors.FromTransport(err)
	}
	return nil
}
