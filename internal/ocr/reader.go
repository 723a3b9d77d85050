// Package ocr reads stamped text off key photos when an OCR engine is
// compiled in, and scores extracted text against expected values.
package ocr

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by Read when no OCR engine is available.
var ErrUnavailable = errors.New("ocr engine not available")

// Reader extracts text from an encoded image.
type Reader interface {
	Available() bool
	Read(ctx context.Context, img []byte) (string, error)
}

// Unavailable is the Reader used when the agent is built without OCR.
type Unavailable struct{}

// Available always reports false
func (Unavailable) Available() bool { return false }

// Read always fails with ErrUnavailable
func (Unavailable) Read(context.Context, []byte) (string, error) {
	return "", ErrUnavailable
}
