// Package upload runs the analyze upload policy: ordered attempts with
// per-attempt deadlines, no retry on credential errors, and normalization
// of the first successful response.
package upload

import (
	"context"
	"time"

	"go-scankey/internal/classifier"
	apperrors "go-scankey/internal/errors"
	"go-scankey/internal/imaging"
	"go-scankey/internal/normalizer"
	"go-scankey/internal/observer"
	"go-scankey/internal/strategy"
	"go-scankey/pkg/models"
)

// AnalyzeOptions are per-call settings.
type AnalyzeOptions struct {
	Source       string
	WorkshopMode bool
	// OnAttempt is called before each attempt with its 1-based number.
	OnAttempt func(n, total int)
}

// Coordinator uploads a key pair and returns the normalized result.
type Coordinator struct {
	classifier    classifier.Classifier
	normalizer    *normalizer.Normalizer
	strategy      strategy.UploadStrategy
	compressor    imaging.Compressor
	events        observer.Subject
	defaultSource string
}

// Option configures a Coordinator
type Option func(*Coordinator)

// WithCompressor sets the compressor used when a photo has no compressed image.
func WithCompressor(c imaging.Compressor) Option {
	return func(co *Coordinator) {
		co.compressor = c
	}
}

// WithEvents publishes analyze events to s.
func WithEvents(s observer.Subject) Option {
	return func(co *Coordinator) {
		co.events = s
	}
}

// WithDefaultSource sets the source sent when AnalyzeOptions.Source is empty.
func WithDefaultSource(source string) Option {
	return func(co *Coordinator) {
		co.defaultSource = source
	}
}

// NewCoordinator creates an upload coordinator
func NewCoordinator(c classifier.Classifier, n *normalizer.Normalizer, s strategy.UploadStrategy, opts ...Option) *Coordinator {
	co := &Coordinator{
		classifier:    c,
		normalizer:    n,
		strategy:      s,
		events:        observer.Nop{},
		defaultSource: "app",
	}
	for _, opt := range opts {
		opt(co)
	}
	return co
}

// StrategyName reports the active upload strategy.
func (c *Coordinator) StrategyName() string {
	return c.strategy.GetStrategyName()
}

// Analyze runs the planned attempts in order and stops at the first success.
// Attempt n+1 only starts after attempt n failed with a retryable error. The
// returned error is the last attempt's *errors.AppError.
func (c *Coordinator) Analyze(ctx context.Context, front, back models.Photo, opts AnalyzeOptions) (*models.AnalysisResult, error) {
	if front.Original.Empty() || back.Original.Empty() {
		return nil, apperrors.NewValidationError("front and back photos are required", nil)
	}

	if strategy.NeedsCompressed(c.strategy) {
		front = c.withCompressed(front)
		back = c.withCompressed(back)
	}

	source := opts.Source
	if source == "" {
		source = c.defaultSource
	}

	attempts := c.strategy.Plan(front, back)
	total := len(attempts)
	started := time.Now()
	c.events.NotifyObservers(ctx, observer.Event{
		EventType:     observer.AnalyzeStarted,
		TotalAttempts: total,
		Metadata:      map[string]interface{}{"strategy": c.strategy.GetStrategyName()},
	})

	var lastErr *apperrors.AppError
	for _, attempt := range attempts {
		if opts.OnAttempt != nil {
			opts.OnAttempt(attempt.Number, total)
		}
		c.events.NotifyObservers(ctx, observer.Event{
			EventType:     observer.AttemptStarted,
			Attempt:       attempt.Number,
			TotalAttempts: total,
			Metadata:      map[string]interface{}{"images": attempt.Label},
		})

		body, err := c.runAttempt(ctx, attempt, source, opts.WorkshopMode)
		if err == nil {
			result := c.normalizer.NormalizeJSON(body)
			c.events.NotifyObservers(ctx, observer.Event{
				EventType:     observer.AnalyzeCompleted,
				InputID:       result.InputID,
				Attempt:       attempt.Number,
				TotalAttempts: total,
				Duration:      time.Since(started),
				Success:       true,
				Metadata: map[string]interface{}{
					"top_confidence":  result.Top().Confidence,
					"high_confidence": result.HighConfidence,
					"low_confidence":  result.LowConfidence,
				},
			})
			return result, nil
		}

		lastErr = asAppError(err).WithAttempt(attempt.Number)
		c.events.NotifyObservers(ctx, observer.Event{
			EventType:     observer.AttemptFailed,
			Attempt:       attempt.Number,
			TotalAttempts: total,
			ErrorType:     string(lastErr.Type),
			ErrorMessage:  lastErr.Message,
		})

		if !apperrors.IsRetryable(lastErr) || ctx.Err() != nil {
			break
		}
	}

	if lastErr == nil {
		lastErr = apperrors.NewInternalError("upload strategy planned no attempts", nil)
	}
	c.events.NotifyObservers(ctx, observer.Event{
		EventType:     observer.AnalyzeFailed,
		Attempt:       lastErr.Attempt,
		TotalAttempts: total,
		Duration:      time.Since(started),
		ErrorType:     string(lastErr.Type),
		ErrorMessage:  lastErr.Message,
	})
	return nil, lastErr
}

func (c *Coordinator) runAttempt(ctx context.Context, attempt strategy.Attempt, source string, workshop bool) ([]byte, error) {
	if attempt.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, attempt.Timeout)
		defer cancel()
	}
	return c.classifier.Analyze(ctx, classifier.AnalyzeRequest{
		Front:           attempt.Front,
		Back:            attempt.Back,
		DuplicateFields: attempt.DuplicateFields,
		Source:          source,
		WorkshopMode:    workshop,
	})
}

func (c *Coordinator) withCompressed(p models.Photo) models.Photo {
	if !p.Compressed.Empty() {
		return p
	}
	if c.compressor == nil {
		p.Compressed = p.Original
		return p
	}
	p.Compressed = c.compressor.Compress(p.Original)
	return p
}

func asAppError(err error) *apperrors.AppError {
	if appErr, ok := apperrors.As(err); ok {
		return appErr
	}
	return apperrors.FromTransport(err)
}
