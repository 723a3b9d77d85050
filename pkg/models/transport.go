package models

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Type    string `json:"type,omitempty"`
	Message string `json:"message,omitempty"`
}

// AnalyzeResponse is returned by the local /analyze endpoint.
type AnalyzeResponse struct {
	Result       *AnalysisResult         `json:"result"`
	NextView     string                  `json:"next_view"`
	Attempts     int                     `json:"attempts"`
	PhotoQuality map[string]PhotoQuality `json:"photo_quality,omitempty"`
}

// SendFeedbackResponse reports whether feedback went to the offline queue.
type SendFeedbackResponse struct {
	Queued  bool `json:"queued"`
	Pending int  `json:"pending"`
}

// FlushResponse reports a queue flush outcome.
type FlushResponse struct {
	Mode string `json:"mode"`
	Sent int    `json:"sent"`
	Left int    `json:"left"`
}

// SettingsRequest updates the runtime backend settings. Nil fields are left untouched.
type SettingsRequest struct {
	BaseURL *string `json:"base_url"`
	APIKey  *string `json:"api_key"`
}

// SettingsResponse never echoes the API key itself.
type SettingsResponse struct {
	BaseURL       string `json:"base_url"`
	APIKeySet     bool   `json:"api_key_set"`
	APIKeyPreview string `json:"api_key_preview,omitempty"`
}

// OCRResponse is returned by the local /ocr endpoint.
type OCRResponse struct {
	Available      bool    `json:"available"`
	Text           string  `json:"text"`
	SuggestedBrand *string `json:"suggested_brand"`
	BrandScore     float64 `json:"brand_score"`
	ExpectedText   string  `json:"expected_text,omitempty"`
	MatchScore     float64 `json:"match_score,omitempty"`
	WER            float64 `json:"word_error_rate,omitempty"`
	CER            float64 `json:"character_error_rate,omitempty"`
}
