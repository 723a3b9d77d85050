//go:build !tesseract

package ocr

// NewReader returns the Unavailable reader; build with -tags tesseract to
// enable the tesseract engine.
func NewReader(language string) Reader {
	return Unavailable{}
}
