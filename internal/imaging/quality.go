package imaging

import (
	"bytes"
	"image"
	"image/color"

	"go-scankey/pkg/models"

	"golang.org/x/image/draw"
	"gonum.org/v1/gonum/stat"
)

// Quality warnings.
const (
	WarningBlurry      = "blurry"
	WarningTooDark     = "too_dark"
	WarningOverexposed = "overexposed"
	WarningTooSmall    = "too_small"
)

// QualityThresholds bound what counts as a usable key photo.
type QualityThresholds struct {
	// BlurVariance is the Laplacian variance below which a photo is blurry.
	BlurVariance float64
	// MinBrightness is the mean luminance (0..1) below which a photo is too dark.
	MinBrightness float64
	// MaxClippedRate is the share of near-white pixels above which a photo is overexposed.
	MaxClippedRate float64
	// MinEdge is the smallest acceptable short side in pixels.
	MinEdge int
	// SampleEdge caps the long side analysed; larger photos are downscaled first.
	SampleEdge int
}

// DefaultQualityThresholds returns thresholds tuned for key photos taken on a
// plain background.
func DefaultQualityThresholds() QualityThresholds {
	return QualityThresholds{
		BlurVariance:   100,
		MinBrightness:  0.15,
		MaxClippedRate: 0.25,
		MinEdge:        240,
		SampleEdge:     640,
	}
}

// QualityChecker assesses a photo before it is uploaded.
type QualityChecker interface {
	Assess(img models.ImageData) (models.PhotoQuality, bool)
}

// LaplacianChecker scores sharpness with the variance of the Laplacian and
// exposure with the luminance histogram.
type LaplacianChecker struct {
	Thresholds QualityThresholds
}

// NewLaplacianChecker creates a checker with t
func NewLaplacianChecker(t QualityThresholds) *LaplacianChecker {
	return &LaplacianChecker{Thresholds: t}
}

// Assess implements QualityChecker. ok is false when img cannot be decoded.
func (c *LaplacianChecker) Assess(img models.ImageData) (models.PhotoQuality, bool) {
	if img.Empty() {
		return models.PhotoQuality{}, false
	}
	src, _, err := image.Decode(bytes.NewReader(img.Bytes))
	if err != nil {
		return models.PhotoQuality{}, false
	}

	t := c.Thresholds
	b := src.Bounds()
	q := models.PhotoQuality{Width: b.Dx(), Height: b.Dy(), Warnings: []string{}}

	gray := toGray(downscale(src, t.SampleEdge, draw.NearestNeighbor))
	lum, clipped := luminance(gray)
	q.Brightness = stat.Mean(lum, nil)
	q.ClippedRate = clipped
	q.Sharpness = laplacianVariance(gray)

	q.Blurry = q.Sharpness < t.BlurVariance
	q.TooDark = q.Brightness < t.MinBrightness
	q.Overexposed = q.ClippedRate > t.MaxClippedRate

	if min(q.Width, q.Height) < t.MinEdge {
		q.Warnings = append(q.Warnings, WarningTooSmall)
	}
	if q.Blurry {
		q.Warnings = append(q.Warnings, WarningBlurry)
	}
	if q.TooDark {
		q.Warnings = append(q.Warnings, WarningTooDark)
	}
	if q.Overexposed {
		q.Warnings = append(q.Warnings, WarningOverexposed)
	}
	return q, true
}

func toGray(src image.Image) *image.Gray {
	if g, ok := src.(*image.Gray); ok {
		return g
	}
	b := src.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			gray.Set(x, y, color.GrayModel.Convert(src.At(b.Min.X+x, b.Min.Y+y)))
		}
	}
	return gray
}

// luminance returns per-pixel luminance in [0,1] and the share of pixels at
// or above 250/255.
func luminance(gray *image.Gray) ([]float64, float64) {
	b := gray.Bounds()
	lum := make([]float64, 0, b.Dx()*b.Dy())
	clipped := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			v := gray.GrayAt(x, y).Y
			if v >= 250 {
				clipped++
			}
			lum = append(lum, float64(v)/255)
		}
	}
	if len(lum) == 0 {
		return []float64{0}, 0
	}
	return lum, float64(clipped) / float64(len(lum))
}

// laplacianVariance applies the [0 1 0; 1 -4 1; 0 1 0] kernel and returns
// the variance of the response.
func laplacianVariance(gray *image.Gray) float64 {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 3 || h < 3 {
		return 0
	}

	data := make([]float64, 0, (w-2)*(h-2))
	for y := b.Min.Y + 1; y < b.Max.Y-1; y++ {
		for x := b.Min.X + 1; x < b.Max.X-1; x++ {
			center := float64(gray.GrayAt(x, y).Y)
			top := float64(gray.GrayAt(x, y-1).Y)
			bottom := float64(gray.GrayAt(x, y+1).Y)
			left := float64(gray.GrayAt(x-1, y).Y)
			right := float64(gray.GrayAt(x+1, y).Y)
			data = append(data, -4*center+top+bottom+left+right)
		}
	}
	return stat.Variance(data, nil)
}
