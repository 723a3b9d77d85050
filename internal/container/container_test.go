package container

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"go-scankey/internal/config"
	"go-scankey/internal/logger"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.SetOutput(io.Discard)
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Host:                     "127.0.0.1",
		Port:                     "0",
		RequestTimeout:           5 * time.Second,
		MaxRequestBodySize:       1 << 20,
		APIBaseURL:               "http://127.0.0.1:1",
		ScanSource:               "app",
		UploadStrategy:           "quality_fallback",
		CompressedAttemptTimeout: time.Second,
		OriginalAttemptTimeout:   time.Second,
		FeedbackTimeout:          time.Second,
		HealthTimeout:            time.Second,
		ProbeInterval:            time.Minute,
		CompressMaxEdge:          640,
		CompressQuality:          70,
		HistoryLimit:             50,
		StoreBackend:             "sqlite",
		StoreNamespace:           "test",
		SQLitePath:               filepath.Join(t.TempDir(), "agent.db"),
		OCRLanguage:              "eng",
	}
}

func TestNewContainer(t *testing.T) {
	c, err := NewContainer(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("NewContainer: %v", err)
	}
	defer c.Close()

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("health status = %d", rec.Code)
	}
	if c.FeedbackQueue() == nil || c.ScanService() == nil || c.Metrics() == nil {
		t.Error("container left a component unwired")
	}
}

func TestNewContainer_UnknownStrategy(t *testing.T) {
	cfg := testConfig(t)
	cfg.UploadStrategy = "shotgun"
	if _, err := NewContainer(context.Background(), cfg); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
}

func TestNewContainer_UnknownStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.StoreBackend = "etcd"
	if _, err := NewContainer(context.Background(), cfg); err == nil {
		t.Fatal("expected error for unknown store")
	}
}
