package strategy

import (
	"testing"
	"time"

	"go-scankey/pkg/models"
)

func photo(name string) models.Photo {
	return models.Photo{
		Original:   models.ImageData{Filename: name + ".jpg", Bytes: []byte(name + "-original")},
		Compressed: models.ImageData{Filename: name + ".jpg", Bytes: []byte(name + "-small")},
	}
}

func TestQualityFallbackStrategy_Plan(t *testing.T) {
	s := NewQualityFallbackStrategy(12*time.Second, 15*time.Second, true)
	attempts := s.Plan(photo("front"), photo("back"))

	if len(attempts) != 2 {
		t.Fatalf("expected 2 attempts, got %d", len(attempts))
	}

	tests := []struct {
		attempt   Attempt
		number    int
		front     string
		back      string
		timeout   time.Duration
		duplicate bool
	}{
		{attempts[0], 1, "front-small", "back-small", 12 * time.Second, true},
		{attempts[1], 2, "front-original", "back-original", 15 * time.Second, true},
	}
	for _, tt := range tests {
		if tt.attempt.Number != tt.number {
			t.Errorf("attempt number = %d, want %d", tt.attempt.Number, tt.number)
		}
		if string(tt.attempt.Front.Bytes) != tt.front || string(tt.attempt.Back.Bytes) != tt.back {
			t.Errorf("attempt %d uploads %q/%q, want %q/%q", tt.number,
				tt.attempt.Front.Bytes, tt.attempt.Back.Bytes, tt.front, tt.back)
		}
		if tt.attempt.Timeout != tt.timeout {
			t.Errorf("attempt %d timeout = %v, want %v", tt.number, tt.attempt.Timeout, tt.timeout)
		}
		if tt.attempt.DuplicateFields != tt.duplicate {
			t.Errorf("attempt %d duplicate = %v", tt.number, tt.attempt.DuplicateFields)
		}
	}

	if s.GetStrategyName() != QualityFallbackName {
		t.Errorf("unexpected name %s", s.GetStrategyName())
	}
	if !NeedsCompressed(s) {
		t.Error("quality fallback uploads compressed images")
	}
}

func TestFieldAliasStrategy_Plan(t *testing.T) {
	s := NewFieldAliasStrategy(15 * time.Second)
	attempts := s.Plan(photo("front"), photo("back"))

	if len(attempts) != 1 {
		t.Fatalf("expected 1 attempt, got %d", len(attempts))
	}
	a := attempts[0]
	if string(a.Front.Bytes) != "front-original" || string(a.Back.Bytes) != "back-original" {
		t.Errorf("field alias must upload originals, got %q/%q", a.Front.Bytes, a.Back.Bytes)
	}
	if !a.DuplicateFields {
		t.Error("field alias must duplicate field names")
	}
	if s.GetStrategyName() != FieldAliasName {
		t.Errorf("unexpected name %s", s.GetStrategyName())
	}
	if NeedsCompressed(s) {
		t.Error("field alias never uploads compressed images")
	}
}
