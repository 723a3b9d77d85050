package service

import (
	"context"
	"errors"
	"time"

	apperrors "go-scankey/internal/errors"
	"go-scankey/internal/imaging"
	"go-scankey/internal/normalizer"
	"go-scankey/internal/ocr"
	"go-scankey/internal/repository"
	"go-scankey/internal/upload"
	"go-scankey/pkg/models"
)

// ScanService is the scan-side surface of the agent: analyze, history, OCR.
type ScanService interface {
	Analyze(ctx context.Context, front, back models.Photo, opts upload.AnalyzeOptions) (*models.AnalyzeResponse, error)

	SaveToHistory(ctx context.Context, result *models.AnalysisResult) (bool, error)
	History(ctx context.Context) ([]models.HistoryEntry, error)
	ClearHistory(ctx context.Context) error

	ReadText(ctx context.Context, img []byte, expected string, brands []string) (*models.OCRResponse, error)
	AssessPhotos(images map[string]models.ImageData) map[string]models.PhotoQuality
}

// scanService implements ScanService
type scanService struct {
	coordinator *upload.Coordinator
	history     repository.HistoryRepository
	reader      ocr.Reader
	quality     imaging.QualityChecker
	now         func() time.Time
}

// ScanOption configures the scan service
type ScanOption func(*scanService)

// WithQualityChecker reports photo quality alongside analyze results.
func WithQualityChecker(q imaging.QualityChecker) ScanOption {
	return func(s *scanService) {
		s.quality = q
	}
}

// NewScanService creates a new scan service
func NewScanService(
	coordinator *upload.Coordinator,
	history repository.HistoryRepository,
	reader ocr.Reader,
	opts ...ScanOption,
) ScanService {
	if reader == nil {
		reader = ocr.Unavailable{}
	}
	s := &scanService{
		coordinator: coordinator,
		history:     history,
		reader:      reader,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analyze runs the upload policy and pairs the result with its follow-up view.
func (s *scanService) Analyze(ctx context.Context, front, back models.Photo, opts upload.AnalyzeOptions) (*models.AnalyzeResponse, error) {
	attempts := 0
	observe := opts.OnAttempt
	opts.OnAttempt = func(n, total int) {
		attempts = n
		if observe != nil {
			observe(n, total)
		}
	}

	result, err := s.coordinator.Analyze(ctx, front, back, opts)
	if err != nil {
		return nil, err
	}
	resp := &models.AnalyzeResponse{
		Result:   result,
		NextView: string(normalizer.NextView(result)),
		Attempts: attempts,
	}
	if s.quality != nil {
		resp.PhotoQuality = s.AssessPhotos(map[string]models.ImageData{
			"front": front.Original,
			"back":  back.Original,
		})
	}
	return resp, nil
}

// AssessPhotos scores each named image. Images that cannot be decoded are
// left out. Without a quality checker the result is empty.
func (s *scanService) AssessPhotos(images map[string]models.ImageData) map[string]models.PhotoQuality {
	out := make(map[string]models.PhotoQuality, len(images))
	if s.quality == nil {
		return out
	}
	for name, img := range images {
		if q, ok := s.quality.Assess(img); ok {
			out[name] = q
		}
	}
	return out
}

// SaveToHistory stores the metadata projection of result.
func (s *scanService) SaveToHistory(ctx context.Context, result *models.AnalysisResult) (bool, error) {
	if result == nil {
		return false, apperrors.NewValidationError("result is required", nil)
	}
	return s.history.Save(ctx, models.NewHistoryEntry(result, s.now()))
}

// History returns the stored history, most recent first.
func (s *scanService) History(ctx context.Context) ([]models.HistoryEntry, error) {
	return s.history.Load(ctx)
}

// ClearHistory empties the history.
func (s *scanService) ClearHistory(ctx context.Context) error {
	return s.history.Clear(ctx)
}

// ReadText runs OCR on img and scores the text. Without an OCR engine it
// answers Available=false rather than failing.
func (s *scanService) ReadText(ctx context.Context, img []byte, expected string, brands []string) (*models.OCRResponse, error) {
	if len(img) == 0 {
		return nil, apperrors.NewValidationError("image is required", nil)
	}
	if !s.reader.Available() {
		return &models.OCRResponse{Available: false}, nil
	}

	text, err := s.reader.Read(ctx, img)
	if err != nil {
		if errors.Is(err, ocr.ErrUnavailable) {
			return &models.OCRResponse{Available: false}, nil
		}
		return nil, apperrors.NewInternalError("text recognition failed", err)
	}
	return ScoreText(text, expected, brands), nil
}

// ScoreText builds the OCR response for already extracted text.
func ScoreText(text, expected string, brands []string) *models.OCRResponse {
	resp := &models.OCRResponse{
		Available: true,
		Text:      ocr.Normalize(text),
	}
	if brand, score, ok := ocr.SuggestBrand(text, brands); ok {
		resp.SuggestedBrand = &brand
		resp.BrandScore = score
	}
	if expected != "" {
		cmp := ocr.Compare(text, expected)
		resp.ExpectedText = ocr.Normalize(expected)
		resp.MatchScore = cmp.Similarity
		resp.WER = cmp.WER
		resp.CER = cmp.CER
	}
	return resp
}
