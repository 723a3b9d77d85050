package connectivity

import (
	"context"
	"sync"
	"time"

	apperrors "go-scankey/internal/errors"
	"go-scankey/internal/logger"
	"go-scankey/internal/observer"
	"go-scankey/pkg/models"

	"github.com/sirupsen/logrus"
)

// HealthChecker is the backend call used as a reachability probe.
type HealthChecker interface {
	Health(ctx context.Context) (*models.HealthStatus, error)
}

// ProbeMonitor polls the backend health endpoint. Any HTTP answer counts as
// online; transport failures, timeouts and a missing base URL count as
// offline.
type ProbeMonitor struct {
	*broadcaster
	checker  HealthChecker
	interval time.Duration
	timeout  time.Duration
	events   observer.Subject

	mu   sync.Mutex
	last *models.HealthStatus
}

// NewProbeMonitor creates a monitor that starts optimistic (online) until the
// first probe says otherwise.
func NewProbeMonitor(checker HealthChecker, interval, timeout time.Duration, events observer.Subject) *ProbeMonitor {
	if events == nil {
		events = observer.Nop{}
	}
	return &ProbeMonitor{
		broadcaster: newBroadcaster(true),
		checker:     checker,
		interval:    interval,
		timeout:     timeout,
		events:      events,
	}
}

// Probe checks the backend once and updates the state.
func (m *ProbeMonitor) Probe(ctx context.Context) bool {
	probeCtx := ctx
	if m.timeout > 0 {
		var cancel context.CancelFunc
		probeCtx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	health, err := m.checker.Health(probeCtx)
	online := reachable(err)

	m.mu.Lock()
	if err == nil {
		m.last = health
	}
	m.mu.Unlock()

	if m.set(online) {
		fields := logrus.Fields{"online": online}
		if err != nil {
			fields["error"] = err.Error()
		}
		logger.WithFields(fields).Info("Backend connectivity changed")
		m.events.NotifyObservers(ctx, observer.Event{
			EventType: observer.ConnectivityChanged,
			Success:   online,
		})
	}
	return online
}

// LastHealth returns the most recent successful health answer, or nil.
func (m *ProbeMonitor) LastHealth() *models.HealthStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// Run probes immediately and then every interval until ctx is done.
func (m *ProbeMonitor) Run(ctx context.Context) {
	m.Probe(ctx)
	if m.interval <= 0 {
		return
	}

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Probe(ctx)
		}
	}
}

func reachable(err error) bool {
	if err == nil {
		return true
	}
	appErr, ok := apperrors.As(err)
	if !ok {
		return false
	}
	switch appErr.Type {
	case apperrors.ErrorTypeHTTP, apperrors.ErrorTypeAuth, apperrors.ErrorTypeInvalidResponse:
		return true
	}
	return false
}
