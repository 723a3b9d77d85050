package container

import (
	"context"
	"fmt"
	"net/http"

	"go-scankey/internal/classifier"
	"go-scankey/internal/config"
	"go-scankey/internal/connectivity"
	"go-scankey/internal/factory"
	"go-scankey/internal/imaging"
	"go-scankey/internal/kvstore"
	"go-scankey/internal/logger"
	"go-scankey/internal/normalizer"
	"go-scankey/internal/observer"
	"go-scankey/internal/ocr"
	"go-scankey/internal/repository"
	"go-scankey/internal/service"
	"go-scankey/internal/settings"
	"go-scankey/internal/transport"
	"go-scankey/internal/upload"

	"github.com/sirupsen/logrus"
)

// Container holds all application dependencies
type Container struct {
	store         kvstore.Store
	settings      *settings.Settings
	classifier    *classifier.HTTPClient
	events        *observer.EventPublisher
	metrics       *observer.MetricsObserver
	coordinator   *upload.Coordinator
	monitor       *connectivity.ProbeMonitor
	feedbackQueue *service.FeedbackQueue
	scanService   service.ScanService
	handler       http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	components := factory.NewComponentFactory(cfg)

	// Build dependency graph
	store, err := components.StoreFactory.CreateStore(ctx, factory.StoreType(cfg.StoreBackend))
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	uploadStrategy, err := components.StrategyFactory.CreateStrategy(cfg.UploadStrategy)
	if err != nil {
		closeStore(store)
		return nil, fmt.Errorf("failed to create upload strategy: %w", err)
	}

	events := observer.NewEventPublisher()
	metrics := observer.NewMetricsObserver()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(metrics)

	runtimeSettings := settings.New(store, cfg.APIBaseURL, cfg.APIKey)
	client := classifier.NewHTTPClient(runtimeSettings)

	coordinator := upload.NewCoordinator(
		client,
		normalizer.New(normalizer.WithCacheSize(cfg.NormalizerCacheSize)),
		uploadStrategy,
		upload.WithCompressor(imaging.NewJPEGCompressor(cfg.CompressMaxEdge, cfg.CompressQuality)),
		upload.WithEvents(events),
		upload.WithDefaultSource(cfg.ScanSource),
	)

	monitor := connectivity.NewProbeMonitor(client, cfg.ProbeInterval, cfg.HealthTimeout, events)

	historyRepo := repository.NewKVHistoryRepository(store, cfg.HistoryLimit)
	feedbackRepo := repository.NewKVFeedbackRepository(store)
	feedbackQueue := service.NewFeedbackQueue(feedbackRepo, client, monitor, runtimeSettings,
		service.WithSendTimeout(cfg.FeedbackTimeout),
		service.WithQueueEvents(events),
	)

	reader := ocr.NewReader(cfg.OCRLanguage)
	scanService := service.NewScanService(coordinator, historyRepo, reader,
		service.WithQualityChecker(imaging.NewLaplacianChecker(imaging.DefaultQualityThresholds())),
	)

	handler := transport.NewHandler(transport.Dependencies{
		Scans:        scanService,
		Feedback:     feedbackQueue,
		Settings:     runtimeSettings,
		Monitor:      monitor,
		Upstream:     client,
		Metrics:      metrics,
		StrategyName: coordinator.StrategyName(),
	}, cfg)

	logger.WithFields(logrus.Fields{
		"store":         cfg.StoreBackend,
		"strategy":      coordinator.StrategyName(),
		"ocr_available": reader.Available(),
		"history_limit": historyRepo.Limit(),
	}).Info("Container initialized")

	return &Container{
		store:         store,
		settings:      runtimeSettings,
		classifier:    client,
		events:        events,
		metrics:       metrics,
		coordinator:   coordinator,
		monitor:       monitor,
		feedbackQueue: feedbackQueue,
		scanService:   scanService,
		handler:       handler,
	}, nil
}

// Start runs the connectivity probe and replays queued feedback whenever the
// backend comes back. Both stop when ctx is done.
func (c *Container) Start(ctx context.Context) {
	stop := c.feedbackQueue.FlushOnReconnect(ctx)
	go func() {
		<-ctx.Done()
		stop()
	}()
	go c.monitor.Run(ctx)

	// Anything left over from the previous run.
	go func() {
		result := c.feedbackQueue.FlushAll(ctx)
		if result.Sent > 0 || result.Left > 0 {
			logger.WithFields(logrus.Fields{
				"sent": result.Sent,
				"left": result.Left,
			}).Info("Startup feedback flush")
		}
	}()
}

// Close releases the store backend
func (c *Container) Close() error {
	return closeStore(c.store)
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// FeedbackQueue returns the offline feedback queue
func (c *Container) FeedbackQueue() *service.FeedbackQueue {
	return c.feedbackQueue
}

// ScanService returns the scan service
func (c *Container) ScanService() service.ScanService {
	return c.scanService
}

// Metrics returns the event metrics collector
func (c *Container) Metrics() *observer.MetricsObserver {
	return c.metrics
}

func closeStore(s kvstore.Store) error {
	if closer, ok := s.(kvstore.Closer); ok {
		return closer.Close()
	}
	return nil
}
