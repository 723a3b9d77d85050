package transport

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go-scankey/internal/config"
	"go-scankey/internal/connectivity"
	apperrors "go-scankey/internal/errors"
	"go-scankey/internal/logger"
	"go-scankey/internal/observer"
	"go-scankey/internal/service"
	"go-scankey/internal/settings"
	"go-scankey/internal/upload"
	"go-scankey/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Dependencies are the services exposed over the local HTTP API.
type Dependencies struct {
	Scans        service.ScanService
	Feedback     *service.FeedbackQueue
	Settings     *settings.Settings
	Monitor      connectivity.Monitor
	Upstream     connectivity.HealthChecker
	Metrics      *observer.MetricsObserver
	StrategyName string
}

type handler struct {
	deps Dependencies
	cfg  *config.Config
}

func NewHandler(deps Dependencies, cfg *config.Config) http.Handler {
	r := gin.Default()

	// Add middleware
	r.Use(
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	h := &handler{deps: deps, cfg: cfg}

	// Configure routes
	r.GET("/health", h.healthCheck)
	r.GET("/metrics", h.metrics)
	r.POST("/analyze", h.analyzeKey)
	r.POST("/ocr", h.readText)
	r.POST("/photos/quality", h.photoQuality)

	fb := r.Group("/feedback")
	fb.POST("", h.sendFeedback)
	fb.GET("/queue", h.feedbackQueue)
	fb.POST("/flush", h.flushFeedback)

	r.GET("/history", h.history)
	r.POST("/history", h.saveHistory)
	r.DELETE("/history", h.clearHistory)

	r.GET("/settings", h.getSettings)
	r.PUT("/settings", h.updateSettings)

	r.NoRoute(func(c *gin.Context) {
		err := apperrors.NewNotFoundError(c.Request.Method+" "+c.Request.URL.Path, nil)
		respondError(c, apperrors.GetStatusCode(err), "Route not found", err)
	})

	return r
}

func (h *handler) analyzeKey(c *gin.Context) {
	startTime := time.Now()
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
	defer cancel()

	// Log request start
	logger.WithFields(logrus.Fields{
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"user_agent": c.Request.UserAgent(),
		"ip":         c.ClientIP(),
	}).Info("Processing key analysis request")

	front, err := photoFromForm(c, "front")
	if err != nil {
		respondError(c, apperrors.GetStatusCode(err), "invalid front photo", err)
		return
	}
	back, err := photoFromForm(c, "back")
	if err != nil {
		respondError(c, apperrors.GetStatusCode(err), "invalid back photo", err)
		return
	}

	opts := upload.AnalyzeOptions{
		Source:       c.PostForm("source"),
		WorkshopMode: formBool(c.PostForm("modo_taller"), h.cfg.WorkshopMode),
		OnAttempt: func(n, total int) {
			logger.WithFields(logrus.Fields{
				"attempt":        n,
				"total_attempts": total,
			}).Debug("Uploading key photos")
		},
	}

	resp, err := h.deps.Scans.Analyze(ctx, front, back, opts)
	if err != nil {
		respondError(c, apperrors.GetStatusCode(err), "key analysis failed", err)
		return
	}

	if formBool(c.PostForm("save_history"), false) {
		if _, err := h.deps.Scans.SaveToHistory(ctx, resp.Result); err != nil {
			logger.WithError(err).WithField("input_id", resp.Result.InputID).Warn("Failed to save scan to history")
		}
	}

	// Log successful completion
	logger.WithFields(logrus.Fields{
		"input_id":           resp.Result.InputID,
		"attempts":           resp.Attempts,
		"next_view":          resp.NextView,
		"top_confidence":     resp.Result.Top().Confidence,
		"processing_time_ms": time.Since(startTime).Milliseconds(),
	}).Info("Key analysis completed successfully")

	c.JSON(http.StatusOK, resp)
}

func (h *handler) readText(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
	defer cancel()

	img, err := imageFromForm(c, "image")
	if err != nil {
		respondError(c, apperrors.GetStatusCode(err), "invalid image", err)
		return
	}
	if img.Empty() {
		respondError(c, http.StatusBadRequest, "invalid image", apperrors.NewValidationError("image is required", nil))
		return
	}

	var brands []string
	if raw := strings.TrimSpace(c.PostForm("brands")); raw != "" {
		for _, b := range strings.Split(raw, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brands = append(brands, b)
			}
		}
	}

	resp, err := h.deps.Scans.ReadText(ctx, img.Bytes, c.PostForm("expected_text"), brands)
	if err != nil {
		respondError(c, apperrors.GetStatusCode(err), "text recognition failed", err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *handler) photoQuality(c *gin.Context) {
	images := make(map[string]models.ImageData, 2)
	for _, field := range []string{"front", "back"} {
		img, err := imageFromForm(c, field)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "invalid photo", err)
			return
		}
		if !img.Empty() {
			images[field] = img
		}
	}
	if len(images) == 0 {
		respondError(c, http.StatusBadRequest, "invalid photo",
			apperrors.NewValidationError("front or back photo is required", nil))
		return
	}
	c.JSON(http.StatusOK, h.deps.Scans.AssessPhotos(images))
}

func (h *handler) sendFeedback(c *gin.Context) {
	var payload models.FeedbackPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request format", err)
		return
	}
	if payload.Source == "" {
		payload.Source = models.SourceAppReal
		if payload.IsCorrection() {
			payload.Source = models.SourceAppManual
		}
	}

	result := h.deps.Feedback.Send(c.Request.Context(), payload)
	status := http.StatusOK
	if result.Queued {
		status = http.StatusAccepted
	}
	c.JSON(status, models.SendFeedbackResponse{Queued: result.Queued, Pending: result.Pending})
}

func (h *handler) feedbackQueue(c *gin.Context) {
	items, err := h.deps.Feedback.Items(c.Request.Context())
	if err != nil {
		respondError(c, http.StatusInternalServerError, "failed to read feedback queue", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"pending": len(items),
		"items":   items,
	})
}

func (h *handler) flushFeedback(c *gin.Context) {
	ctx := c.Request.Context()
	switch mode := c.DefaultQuery("mode", "all"); mode {
	case "all":
		result := h.deps.Feedback.FlushAll(ctx)
		c.JSON(http.StatusOK, models.FlushResponse{Mode: mode, Sent: result.Sent, Left: result.Left})
	case "one":
		sent := 0
		if h.deps.Feedback.FlushOne(ctx) {
			sent = 1
		}
		c.JSON(http.StatusOK, models.FlushResponse{Mode: mode, Sent: sent, Left: h.deps.Feedback.Len(ctx)})
	default:
		respondError(c, http.StatusBadRequest, "invalid flush mode",
			apperrors.NewValidationError("mode must be \"all\" or \"one\"", nil))
	}
}

func (h *handler) history(c *gin.Context) {
	entries, err := h.deps.Scans.History(c.Request.Context())
	if err != nil {
		respondError(c, apperrors.GetStatusCode(err), "failed to read history", err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

func (h *handler) saveHistory(c *gin.Context) {
	var result models.AnalysisResult
	if err := c.ShouldBindJSON(&result); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request format", err)
		return
	}
	added, err := h.deps.Scans.SaveToHistory(c.Request.Context(), &result)
	if err != nil {
		respondError(c, apperrors.GetStatusCode(err), "failed to save history", err)
		return
	}
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"added": added})
}

func (h *handler) clearHistory(c *gin.Context) {
	if err := h.deps.Scans.ClearHistory(c.Request.Context()); err != nil {
		respondError(c, apperrors.GetStatusCode(err), "failed to clear history", err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) getSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.settingsResponse(c.Request.Context()))
}

func (h *handler) updateSettings(c *gin.Context) {
	ctx := c.Request.Context()
	var req models.SettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request format", err)
		return
	}
	if req.BaseURL != nil {
		if err := h.deps.Settings.SetBaseURL(ctx, *req.BaseURL); err != nil {
			respondError(c, apperrors.GetStatusCode(err), "invalid base URL", err)
			return
		}
	}
	if req.APIKey != nil {
		if err := h.deps.Settings.SetAPIKey(ctx, *req.APIKey); err != nil {
			respondError(c, apperrors.GetStatusCode(err), "failed to save API key", err)
			return
		}
	}
	c.JSON(http.StatusOK, h.settingsResponse(ctx))
}

func (h *handler) settingsResponse(ctx context.Context) models.SettingsResponse {
	base, _ := h.deps.Settings.BaseURL(ctx)
	key, _ := h.deps.Settings.APIKey(ctx)
	resp := models.SettingsResponse{BaseURL: base, APIKeySet: key != ""}
	if key != "" {
		resp.APIKeyPreview = settings.Preview(key)
	}
	return resp
}

func (h *handler) healthCheck(c *gin.Context) {
	body := gin.H{
		"status":   "available",
		"version":  "1.0.0",
		"time":     time.Now().UTC().Format(time.RFC3339),
		"online":   h.deps.Monitor.Online(),
		"strategy": h.deps.StrategyName,
		"pending":  h.deps.Feedback.Len(c.Request.Context()),
	}

	// ?deep=true also asks the classifier backend
	if formBool(c.Query("deep"), false) && h.deps.Upstream != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.cfg.HealthTimeout)
		defer cancel()
		status, err := h.deps.Upstream.Health(ctx)
		if err != nil {
			body["backend"] = gin.H{"ok": false, "error": err.Error()}
		} else {
			body["backend"] = status
		}
	}
	c.JSON(http.StatusOK, body)
}

func (h *handler) metrics(c *gin.Context) {
	if h.deps.Metrics == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}
	c.JSON(http.StatusOK, h.deps.Metrics.GetMetrics())
}

// photoFromForm reads the original image from field and the optional
// compressed variant from field+"_compressed".
func photoFromForm(c *gin.Context, field string) (models.Photo, error) {
	original, err := imageFromForm(c, field)
	if err != nil {
		return models.Photo{}, err
	}
	if original.Empty() {
		return models.Photo{}, apperrors.NewValidationError(field+" photo is required", nil)
	}
	compressed, err := imageFromForm(c, field+"_compressed")
	if err != nil {
		return models.Photo{}, err
	}
	return models.Photo{Original: original, Compressed: compressed}, nil
}

// imageFromForm returns an empty ImageData when field is absent.
func imageFromForm(c *gin.Context, field string) (models.ImageData, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return models.ImageData{}, nil
		}
		return models.ImageData{}, apperrors.NewValidationError("invalid multipart form", err)
	}
	data, err := readFormFile(fh)
	if err != nil {
		return models.ImageData{}, apperrors.NewValidationError("unreadable upload "+field, err)
	}
	return models.ImageData{Filename: fh.Filename, Bytes: data}, nil
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

func formBool(v string, fallback bool) bool {
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			err := c.Errors.Last()
			respondError(c, determineStatusCode(err.Err), "request processing failed", err.Err)
		}
	}
}

func determineStatusCode(err error) int {
	// Check if it's a custom app error first
	if _, ok := apperrors.As(err); ok {
		return apperrors.GetStatusCode(err)
	}

	// Fallback to context-based errors
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	fields := logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}
	resp := models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: message,
	}
	if appErr, ok := apperrors.As(err); ok {
		resp.Type = string(appErr.Type)
		resp.Message = message + ": " + appErr.Message
		fields["error_type"] = appErr.Type
		if appErr.Attempt > 0 {
			fields["attempt"] = appErr.Attempt
		}
	} else if err != nil {
		resp.Message = message + ": " + err.Error()
	}

	// Log the error with context
	logger.WithError(err).WithFields(fields).Error("Request failed")

	c.AbortWithStatusJSON(code, resp)
}
