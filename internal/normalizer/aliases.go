package normalizer

// Ordered alias tables: the first key present with a non-null value wins.
var (
	candidateListKeys = []string{"results", "candidates", "predictions"}

	confidenceKeys   = []string{"confidence", "score", "prob", "probability", "similarity"}
	idModelRefKeys   = []string{"id_model_ref", "model_ref", "ref", "id", "label"}
	typeKeys         = []string{"type", "tipo", "kind"}
	brandKeys        = []string{"brand", "marca", "manufacturer"}
	modelKeys        = []string{"model", "modelo"}
	titleKeys        = []string{"title", "name", "display_name", "label"}
	orientationKeys  = []string{"orientation", "orientacion"}
	headColorKeys    = []string{"head_color", "color_cabeza", "color"}
	visualStateKeys  = []string{"visual_state", "estado", "state"}
	tagsKeys         = []string{"compatibility_tags", "tags", "compat_tags"}
	explainKeys      = []string{"explain_text", "explanation", "reason"}
	patentKeys       = []string{"patentada", "patent", "patented"}
	cropBBoxKeys     = []string{"crop_bbox", "bbox", "crop"}
	bboxXKeys        = []string{"x", "left"}
	bboxYKeys        = []string{"y", "top"}
	bboxWKeys        = []string{"w", "width"}
	bboxHKeys        = []string{"h", "height"}
	hintKeys         = []string{"manufacturer_hint", "manufacturer", "brand_hint"}
	hintNameKeys     = []string{"name", "brand", "marca"}
	hintFoundKeys    = []string{"found", "detected"}
	inputIDKeys      = []string{"input_id", "inputId", "scan_id", "request_id"}
	timestampKeys    = []string{"timestamp", "ts", "created_at"}
	debugKeys        = []string{"debug", "meta"}
	procTimeKeys     = []string{"processing_time_ms", "latency_ms"}
	modelVersionKeys = []string{"model_version", "version"}
	shouldStoreKeys  = []string{"should_store_sample"}
	correctionKeys   = []string{"manual_correction_hint"}
)

// defaultCorrectionFields are asked for when the backend sends no hint.
var defaultCorrectionFields = []string{"marca", "modelo", "tipo", "orientacion", "ocr_text"}

// lookup returns the first non-null value among keys.
func lookup(obj map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}
