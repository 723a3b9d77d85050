package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"go-scankey/pkg/models"
)

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func TestJPEGCompressor_Downscales(t *testing.T) {
	tests := []struct {
		name         string
		w, h         int
		maxEdge      int
		wantW, wantH int
	}{
		{"landscape", 400, 200, 100, 100, 50},
		{"portrait", 150, 600, 120, 30, 120},
	}

	c := NewJPEGCompressor(0, 70)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c.MaxEdge = tt.maxEdge
			out := c.Compress(models.ImageData{Filename: "front.png", ContentType: "image/png", Bytes: encodePNG(t, tt.w, tt.h)})

			if out.ContentType != "image/jpeg" {
				t.Fatalf("content type = %q", out.ContentType)
			}
			if out.Filename != "front.jpg" {
				t.Errorf("filename = %q", out.Filename)
			}
			cfg, err := jpeg.DecodeConfig(bytes.NewReader(out.Bytes))
			if err != nil {
				t.Fatalf("output is not JPEG: %v", err)
			}
			if cfg.Width != tt.wantW || cfg.Height != tt.wantH {
				t.Errorf("size = %dx%d, want %dx%d", cfg.Width, cfg.Height, tt.wantW, tt.wantH)
			}
		})
	}
}

func TestJPEGCompressor_SmallImageKeepsSize(t *testing.T) {
	c := NewJPEGCompressor(100, 70)
	out := c.Compress(models.ImageData{Filename: "back.png", Bytes: encodePNG(t, 80, 60)})

	cfg, _, err := image.DecodeConfig(bytes.NewReader(out.Bytes))
	if err != nil {
		t.Fatalf("output is not an image: %v", err)
	}
	if cfg.Width != 80 || cfg.Height != 60 {
		t.Errorf("size = %dx%d, want 80x60", cfg.Width, cfg.Height)
	}
}

func TestJPEGCompressor_PassThrough(t *testing.T) {
	c := NewJPEGCompressor(100, 70)

	garbage := models.ImageData{Filename: "front.heic", Bytes: []byte("not an image")}
	if out := c.Compress(garbage); !bytes.Equal(out.Bytes, garbage.Bytes) || out.Filename != garbage.Filename {
		t.Errorf("undecodable input must be returned unchanged, got %+v", out)
	}

	empty := models.ImageData{}
	if out := c.Compress(empty); !out.Empty() {
		t.Error("empty input must stay empty")
	}
}
