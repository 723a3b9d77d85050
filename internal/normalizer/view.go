package normalizer

import "go-scankey/pkg/models"

// ViewIntent tells the presentation layer where a result should lead.
type ViewIntent string

const (
	// ViewManualCorrection opens the correction form straight away.
	ViewManualCorrection ViewIntent = "manual_correction"
	// ViewConfirmDuplicate offers the one-tap "accept and duplicate" action.
	ViewConfirmDuplicate ViewIntent = "confirm_duplicate"
	// ViewReviewCandidates lets the user pick among the ranked candidates.
	ViewReviewCandidates ViewIntent = "review_candidates"
)

// NextView decides the follow-up view for a normalized result.
func NextView(result *models.AnalysisResult) ViewIntent {
	switch {
	case result == nil || result.LowConfidence:
		return ViewManualCorrection
	case result.HighConfidence:
		return ViewConfirmDuplicate
	}
	return ViewReviewCandidates
}
