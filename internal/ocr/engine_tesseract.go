//go:build tesseract

package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// TesseractReader runs tesseract through gosseract. A client is created per
// call since gosseract clients are not safe for concurrent use.
type TesseractReader struct {
	language string
}

// NewReader returns a tesseract backed reader
func NewReader(language string) Reader {
	if strings.TrimSpace(language) == "" {
		language = "eng"
	}
	return &TesseractReader{language: language}
}

// Available reports true
func (r *TesseractReader) Available() bool { return true }

// Read implements Reader.
func (r *TesseractReader) Read(ctx context.Context, img []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(strings.Split(r.language, "+")...); err != nil {
		return "", fmt.Errorf("set language: %w", err)
	}
	// Key blades carry upper-case codes and digits.
	if err := client.SetWhitelist("ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-/ "); err != nil {
		return "", fmt.Errorf("set whitelist: %w", err)
	}
	if err := client.SetImageFromBytes(img); err != nil {
		return "", fmt.Errorf("load image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("recognize: %w", err)
	}
	return strings.TrimSpace(text), nil
}
