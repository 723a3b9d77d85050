package models

import "time"

// HistoryEntry is the metadata-only projection of an AnalysisResult kept in
// the scan history. It never carries image bytes or image URIs.
type HistoryEntry struct {
	InputID           string    `json:"input_id" binding:"required"`
	Title             string    `json:"title"`
	Brand             *string   `json:"brand"`
	Model             *string   `json:"model"`
	Type              *string   `json:"type"`
	IDModelRef        *string   `json:"id_model_ref"`
	Confidence        float64   `json:"confidence"`
	HighConfidence    bool      `json:"high_confidence"`
	LowConfidence     bool      `json:"low_confidence"`
	AnalysisTimestamp string    `json:"analysis_timestamp"`
	SavedAt           time.Time `json:"saved_at"`
}

// NewHistoryEntry projects the top candidate of a result into a history entry.
func NewHistoryEntry(result *AnalysisResult, savedAt time.Time) HistoryEntry {
	top := result.Top()
	return HistoryEntry{
		InputID:           result.InputID,
		Title:             top.Title(),
		Brand:             top.Brand,
		Model:             top.Model,
		Type:              top.Type,
		IDModelRef:        top.IDModelRef,
		Confidence:        top.Confidence,
		HighConfidence:    result.HighConfidence,
		LowConfidence:     result.LowConfidence,
		AnalysisTimestamp: result.Timestamp,
		SavedAt:           savedAt.UTC(),
	}
}
