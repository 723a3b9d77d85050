// Package imaging produces the reduced-size images sent on the first upload attempt.
package imaging

import (
	"bytes"
	"image"
	"image/jpeg"
	_ "image/png"
	"path"
	"strings"

	"go-scankey/pkg/models"

	"golang.org/x/image/draw"
)

// Compressor derives a smaller upload image from an original.
type Compressor interface {
	Compress(img models.ImageData) models.ImageData
}

// JPEGCompressor downsizes the long edge to MaxEdge and re-encodes as JPEG.
// Images it cannot decode are returned unchanged.
type JPEGCompressor struct {
	MaxEdge int
	Quality int
}

// NewJPEGCompressor creates a compressor with the given limits
func NewJPEGCompressor(maxEdge, quality int) *JPEGCompressor {
	return &JPEGCompressor{MaxEdge: maxEdge, Quality: quality}
}

// Compress implements Compressor.
func (c *JPEGCompressor) Compress(img models.ImageData) models.ImageData {
	if img.Empty() {
		return img
	}

	src, _, err := image.Decode(bytes.NewReader(img.Bytes))
	if err != nil {
		return img
	}

	scaled := downscale(src, c.MaxEdge, draw.CatmullRom)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: c.quality()}); err != nil {
		return img
	}
	// Re-encoding a small, already compressed JPEG can grow it.
	if scaled == src && buf.Len() >= len(img.Bytes) {
		return img
	}

	return models.ImageData{
		Filename:    jpegName(img.Filename),
		ContentType: "image/jpeg",
		Bytes:       buf.Bytes(),
	}
}

func (c *JPEGCompressor) quality() int {
	if c.Quality < 1 || c.Quality > 100 {
		return jpeg.DefaultQuality
	}
	return c.Quality
}

// downscale resizes src with the given interpolator so that neither side
// exceeds maxEdge. src is returned as is when it already fits.
func downscale(src image.Image, maxEdge int, scaler draw.Scaler) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if maxEdge <= 0 || (w <= maxEdge && h <= maxEdge) {
		return src
	}

	var nw, nh int
	if w >= h {
		nw = maxEdge
		nh = max(1, h*maxEdge/w)
	} else {
		nh = maxEdge
		nw = max(1, w*maxEdge/h)
	}

	dst := image.NewRGBA(image.Rect(0, 0, nw, nh))
	scaler.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

func jpegName(name string) string {
	if name == "" {
		return ""
	}
	ext := path.Ext(name)
	if strings.EqualFold(ext, ".jpg") || strings.EqualFold(ext, ".jpeg") {
		return name
	}
	return strings.TrimSuffix(name, ext) + ".jpg"
}
