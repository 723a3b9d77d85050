package models

// Confidence tier thresholds applied to the top candidate.
const (
	HighConfidenceThreshold = 0.95
	LowConfidenceThreshold  = 0.60

	// ResultCount is the exact number of candidates in every AnalysisResult.
	ResultCount = 3
)

// AnalysisResult is the canonical, always-valid result of one scan.
// It is never mutated after normalization.
type AnalysisResult struct {
	InputID              string               `json:"input_id"`
	Timestamp            string               `json:"timestamp"`
	ManufacturerHint     ManufacturerHint     `json:"manufacturer_hint"`
	Results              []Candidate          `json:"results"`
	HighConfidence       bool                 `json:"high_confidence"`
	LowConfidence        bool                 `json:"low_confidence"`
	ShouldStoreSample    bool                 `json:"should_store_sample"`
	ManualCorrectionHint ManualCorrectionHint `json:"manual_correction_hint"`
	Debug                Debug                `json:"debug"`
}

// Top returns the highest ranked candidate.
func (r *AnalysisResult) Top() Candidate {
	if r == nil || len(r.Results) == 0 {
		return Candidate{CompatibilityTags: []string{}}
	}
	return r.Results[0]
}

// Candidate is one ranked classification guess for a scanned key.
type Candidate struct {
	Rank              int       `json:"rank"`
	IDModelRef        *string   `json:"id_model_ref"`
	Type              *string   `json:"type"`
	Brand             *string   `json:"brand"`
	Model             *string   `json:"model"`
	Orientation       *string   `json:"orientation"`
	HeadColor         *string   `json:"head_color"`
	VisualState       *string   `json:"visual_state"`
	Patentada         bool      `json:"patentada"`
	CompatibilityTags []string  `json:"compatibility_tags"`
	Confidence        float64   `json:"confidence"`
	ExplainText       string    `json:"explain_text"`
	CropBBox          *CropBBox `json:"crop_bbox"`
}

// Title is the display label, "brand model" when both are known.
func (c Candidate) Title() string {
	switch {
	case c.Brand != nil && c.Model != nil:
		return *c.Brand + " " + *c.Model
	case c.Model != nil:
		return *c.Model
	case c.Brand != nil:
		return *c.Brand
	case c.IDModelRef != nil:
		return *c.IDModelRef
	case c.Type != nil:
		return *c.Type
	}
	return ""
}

// CropBBox is a fractional crop region of the source photo, every side in [0,1].
type CropBBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// ManufacturerHint is a secondary, lower-weight brand signal (typically OCR).
type ManufacturerHint struct {
	Found      bool    `json:"found"`
	Name       *string `json:"name"`
	Confidence float64 `json:"confidence"`
}

// ManualCorrectionHint lists the fields the correction form should ask for.
type ManualCorrectionHint struct {
	Fields []string `json:"fields"`
}

// Debug carries backend diagnostics.
type Debug struct {
	ProcessingTimeMS float64 `json:"processing_time_ms"`
	ModelVersion     *string `json:"model_version"`
}

// HealthStatus is the classifier health check response.
type HealthStatus struct {
	OK           bool    `json:"ok"`
	EngineLoaded *bool   `json:"engine_loaded,omitempty"`
	EngineError  *string `json:"engine_error,omitempty"`
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}
