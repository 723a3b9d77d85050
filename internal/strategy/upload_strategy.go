// Package strategy decides which images are uploaded on each analyze attempt.
package strategy

import (
	"time"

	"go-scankey/pkg/models"
)

// Strategy names accepted by configuration.
const (
	QualityFallbackName = "quality_fallback"
	FieldAliasName      = "field_alias"
)

// Attempt is one planned upload.
type Attempt struct {
	Number int
	// Label names the image quality used, for logs and events.
	Label           string
	Front           models.ImageData
	Back            models.ImageData
	DuplicateFields bool
	Timeout         time.Duration
}

// UploadStrategy plans the ordered attempts for one analyze call.
type UploadStrategy interface {
	Plan(front, back models.Photo) []Attempt
	GetStrategyName() string
}

// QualityFallbackStrategy uploads the compressed images first and falls back
// to the originals when that attempt fails.
type QualityFallbackStrategy struct {
	CompressedTimeout time.Duration
	OriginalTimeout   time.Duration
	DuplicateFields   bool
}

// NewQualityFallbackStrategy creates the two-attempt strategy
func NewQualityFallbackStrategy(compressedTimeout, originalTimeout time.Duration, duplicateFields bool) UploadStrategy {
	return &QualityFallbackStrategy{
		CompressedTimeout: compressedTimeout,
		OriginalTimeout:   originalTimeout,
		DuplicateFields:   duplicateFields,
	}
}

// Plan returns the compressed attempt followed by the original attempt.
func (s *QualityFallbackStrategy) Plan(front, back models.Photo) []Attempt {
	return []Attempt{
		{
			Number:          1,
			Label:           "compressed",
			Front:           front.Compressed,
			Back:            back.Compressed,
			DuplicateFields: s.DuplicateFields,
			Timeout:         s.CompressedTimeout,
		},
		{
			Number:          2,
			Label:           "original",
			Front:           front.Original,
			Back:            back.Original,
			DuplicateFields: s.DuplicateFields,
			Timeout:         s.OriginalTimeout,
		},
	}
}

// GetStrategyName returns the strategy name
func (s *QualityFallbackStrategy) GetStrategyName() string {
	return QualityFallbackName
}

// FieldAliasStrategy sends the original images once, under both field name
// conventions the backend has used.
type FieldAliasStrategy struct {
	Timeout time.Duration
}

// NewFieldAliasStrategy creates the single-attempt strategy
func NewFieldAliasStrategy(timeout time.Duration) UploadStrategy {
	return &FieldAliasStrategy{Timeout: timeout}
}

// Plan returns a single attempt with duplicated field names.
func (s *FieldAliasStrategy) Plan(front, back models.Photo) []Attempt {
	return []Attempt{{
		Number:          1,
		Label:           "original",
		Front:           front.Original,
		Back:            back.Original,
		DuplicateFields: true,
		Timeout:         s.Timeout,
	}}
}

// GetStrategyName returns the strategy name
func (s *FieldAliasStrategy) GetStrategyName() string {
	return FieldAliasName
}

// NeedsCompressed reports whether any planned attempt of s uploads the
// compressed images.
func NeedsCompressed(s UploadStrategy) bool {
	_, ok := s.(*QualityFallbackStrategy)
	return ok
}
