package models

import (
	"testing"
	"time"
)

func TestCandidate_Title(t *testing.T) {
	tests := []struct {
		name string
		c    Candidate
		want string
	}{
		{"brand and model", Candidate{Brand: StringPtr("JMA"), Model: StringPtr("TE5")}, "JMA TE5"},
		{"model only", Candidate{Model: StringPtr("TE5")}, "TE5"},
		{"brand only", Candidate{Brand: StringPtr("JMA")}, "JMA"},
		{"reference", Candidate{IDModelRef: StringPtr("JMA-TE5")}, "JMA-TE5"},
		{"type", Candidate{Type: StringPtr("serreta")}, "serreta"},
		{"nothing known", Candidate{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.c.Title(); got != tt.want {
				t.Errorf("Title() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAnalysisResult_TopOfEmpty(t *testing.T) {
	var r *AnalysisResult
	if top := r.Top(); top.Confidence != 0 || top.CompatibilityTags == nil {
		t.Errorf("Top() of nil result = %+v", top)
	}
}

func TestFeedbackPayload_Queued(t *testing.T) {
	tests := []struct {
		source string
		want   string
	}{
		{SourceAppReal, "app_real_queued"},
		{"app_manual_queued", "app_manual_queued"},
		{"", "_queued"},
	}
	for _, tt := range tests {
		p := FeedbackPayload{InputID: "scan-1", Source: tt.source}
		q := p.Queued()
		if q.Source != tt.want {
			t.Errorf("Queued(%q).Source = %q, want %q", tt.source, q.Source, tt.want)
		}
		if q.Queued().Source != tt.want {
			t.Errorf("Queued applied twice to %q", tt.source)
		}
		if p.Source != tt.source {
			t.Error("Queued must not modify the receiver")
		}
	}
}

func TestFeedbackPayload_IsCorrection(t *testing.T) {
	if (FeedbackPayload{ChosenIDModelRef: StringPtr("ref")}).IsCorrection() {
		t.Error("a confirmation is not a correction")
	}
	if !(FeedbackPayload{CorrectOrientation: StringPtr("left")}).IsCorrection() {
		t.Error("a corrected orientation is a correction")
	}
}

func TestNewHistoryEntry(t *testing.T) {
	saved := time.Date(2026, 5, 4, 10, 0, 0, 0, time.FixedZone("CEST", 7200))
	result := &AnalysisResult{
		InputID:        "scan-3",
		Timestamp:      "2026-05-04T08:00:00Z",
		HighConfidence: true,
		Results: []Candidate{
			{Rank: 1, Brand: StringPtr("TESA"), Model: StringPtr("T60"), IDModelRef: StringPtr("TESA-T60"), Confidence: 0.96},
			{Rank: 2, Confidence: 0.1},
			{Rank: 3, Confidence: 0.05},
		},
	}

	e := NewHistoryEntry(result, saved)
	if e.InputID != "scan-3" || e.Title != "TESA T60" || e.Confidence != 0.96 {
		t.Errorf("entry = %+v", e)
	}
	if !e.HighConfidence || e.LowConfidence || e.AnalysisTimestamp != result.Timestamp {
		t.Errorf("flags/timestamp not projected: %+v", e)
	}
	if e.SavedAt.Location() != time.UTC || !e.SavedAt.Equal(saved) {
		t.Errorf("saved_at = %v", e.SavedAt)
	}
}

func TestPhotoQuality_Usable(t *testing.T) {
	if !(PhotoQuality{}).Usable() {
		t.Error("no warnings means usable")
	}
	if (PhotoQuality{Warnings: []string{"blurry"}}).Usable() {
		t.Error("a warning makes the photo unusable")
	}
}
