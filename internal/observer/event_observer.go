package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Event is something observable that happened in the agent.
type Event struct {
	EventType     EventType              `json:"event_type"`
	Timestamp     time.Time              `json:"timestamp"`
	InputID       string                 `json:"input_id,omitempty"`
	Attempt       int                    `json:"attempt,omitempty"`
	TotalAttempts int                    `json:"total_attempts,omitempty"`
	Duration      time.Duration          `json:"duration"`
	Success       bool                   `json:"success"`
	ErrorType     string                 `json:"error_type,omitempty"`
	ErrorMessage  string                 `json:"error_message,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of event
type EventType string

const (
	// AnalyzeStarted when an analyze call begins
	AnalyzeStarted EventType = "analyze_started"
	// AttemptStarted before each upload attempt
	AttemptStarted EventType = "attempt_started"
	// AttemptFailed when one upload attempt fails
	AttemptFailed EventType = "attempt_failed"
	// AnalyzeCompleted when a normalized result was produced
	AnalyzeCompleted EventType = "analyze_completed"
	// AnalyzeFailed when every attempt failed
	AnalyzeFailed EventType = "analyze_failed"
	// FeedbackSent when feedback reached the backend
	FeedbackSent EventType = "feedback_sent"
	// FeedbackQueued when feedback was stored for later delivery
	FeedbackQueued EventType = "feedback_queued"
	// FeedbackFlushed after a queue flush
	FeedbackFlushed EventType = "feedback_flushed"
	// ConnectivityChanged when the online state flips
	ConnectivityChanged EventType = "connectivity_changed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event Event)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event Event)
}

// LoggingObserver logs events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event Event) {
	fields := logrus.Fields{
		"event_type": event.EventType,
		"success":    event.Success,
	}
	if event.InputID != "" {
		fields["input_id"] = event.InputID
	}
	if event.Attempt > 0 {
		fields["attempt"] = event.Attempt
		fields["total_attempts"] = event.TotalAttempts
	}
	if event.Duration > 0 {
		fields["duration_ms"] = event.Duration.Milliseconds()
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
		fields["error_type"] = event.ErrorType
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case AnalyzeStarted:
		entry.Info("Key analysis started")
	case AttemptStarted:
		entry.Debug("Upload attempt started")
	case AttemptFailed:
		entry.Warn("Upload attempt failed")
	case AnalyzeCompleted:
		entry.Info("Key analysis completed")
	case AnalyzeFailed:
		entry.Error("Key analysis failed")
	case FeedbackSent:
		entry.Info("Feedback delivered")
	case FeedbackQueued:
		entry.Warn("Feedback queued for later delivery")
	case FeedbackFlushed:
		entry.Info("Feedback queue flushed")
	case ConnectivityChanged:
		entry.Info("Connectivity changed")
	default:
		entry.Info("Event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsObserver collects counters from events
type MetricsObserver struct {
	mu                sync.RWMutex
	analysesTotal     int64
	analysesSucceeded int64
	analysesFailed    int64
	attemptsTotal     int64
	attemptsFailed    int64
	fallbackSuccesses int64
	feedbackSent      int64
	feedbackQueued    int64
	feedbackFlushed   int64
	connectivityFlips int64
	online            bool
	totalAnalyzeTime  time.Duration
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{}
}

// OnEvent handles events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event Event) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case AnalyzeStarted:
		o.analysesTotal++
	case AttemptStarted:
		o.attemptsTotal++
	case AttemptFailed:
		o.attemptsFailed++
	case AnalyzeCompleted:
		o.analysesSucceeded++
		o.totalAnalyzeTime += event.Duration
		if event.Attempt > 1 {
			o.fallbackSuccesses++
		}
	case AnalyzeFailed:
		o.analysesFailed++
	case FeedbackSent:
		o.feedbackSent++
	case FeedbackQueued:
		o.feedbackQueued++
	case FeedbackFlushed:
		if sent, ok := event.Metadata["sent"].(int); ok {
			o.feedbackFlushed += int64(sent)
		}
	case ConnectivityChanged:
		o.connectivityFlips++
		o.online = event.Success
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current metrics
func (o *MetricsObserver) GetMetrics() map[string]interface{} {
	o.mu.RLock()
	defer o.mu.RUnlock()

	avgAnalyzeTime := time.Duration(0)
	if o.analysesSucceeded > 0 {
		avgAnalyzeTime = o.totalAnalyzeTime / time.Duration(o.analysesSucceeded)
	}

	return map[string]interface{}{
		"analyses_total":       o.analysesTotal,
		"analyses_succeeded":   o.analysesSucceeded,
		"analyses_failed":      o.analysesFailed,
		"attempts_total":       o.attemptsTotal,
		"attempts_failed":      o.attemptsFailed,
		"fallback_successes":   o.fallbackSuccesses,
		"feedback_sent":        o.feedbackSent,
		"feedback_queued":      o.feedbackQueued,
		"feedback_flushed":     o.feedbackFlushed,
		"connectivity_changes": o.connectivityFlips,
		"online":               o.online,
		"avg_analyze_ms":       avgAnalyzeTime.Milliseconds(),
	}
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
	inline    bool
}

// NewEventPublisher creates a publisher that notifies observers concurrently
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// NewSyncEventPublisher creates a publisher that notifies observers in order
// on the caller's goroutine.
func NewSyncEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
		inline:    true,
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers notifies all observers of an event
func (p *EventPublisher) NotifyObservers(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, observer := range observers {
		if p.inline {
			notify(ctx, observer, event)
			continue
		}
		go notify(ctx, observer, event)
	}
}

func notify(ctx context.Context, obs Observer, event Event) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("observer", obs.GetObserverName()).
				WithField("panic", r).
				Error("Observer panicked while handling event")
		}
	}()
	obs.OnEvent(ctx, event)
}

// Nop discards events. It is the default publisher of components built
// without one.
type Nop struct{}

// NotifyObservers does nothing
func (Nop) NotifyObservers(context.Context, Event) {}

// Subscribe does nothing
func (Nop) Subscribe(Observer) {}

// Unsubscribe does nothing
func (Nop) Unsubscribe(Observer) {}
