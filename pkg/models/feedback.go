package models

import (
	"strings"
	"time"
)

// QueuedSourceSuffix marks feedback that was delivered from the offline queue.
const QueuedSourceSuffix = "_queued"

// Feedback sources sent by the app.
const (
	SourceAppReal   = "app_real"
	SourceAppManual = "app_manual"
)

// FeedbackPayload is the feedback wire contract sent to the classifier.
type FeedbackPayload struct {
	InputID            string  `json:"input_id" binding:"required"`
	ChosenIDModelRef   *string `json:"chosen_id_model_ref"`
	Source             string  `json:"source"`
	OCRText            *string `json:"ocr_text"`
	CorrectBrand       *string `json:"correct_brand"`
	CorrectModel       *string `json:"correct_model"`
	CorrectType        *string `json:"correct_type"`
	CorrectOrientation *string `json:"correct_orientation"`
}

// IsCorrection reports whether the user supplied any corrected field.
func (p FeedbackPayload) IsCorrection() bool {
	return p.CorrectBrand != nil || p.CorrectModel != nil || p.CorrectType != nil || p.CorrectOrientation != nil
}

// Queued returns a copy whose source carries the queued suffix exactly once.
func (p FeedbackPayload) Queued() FeedbackPayload {
	if !strings.HasSuffix(p.Source, QueuedSourceSuffix) {
		p.Source += QueuedSourceSuffix
	}
	return p
}

// FeedbackItem is one persisted, not yet delivered feedback submission.
type FeedbackItem struct {
	ID        string          `json:"id"`
	CreatedAt time.Time       `json:"createdAt"`
	Payload   FeedbackPayload `json:"payload"`
}
