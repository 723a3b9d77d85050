package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	apperrors "go-scankey/internal/errors"
	"go-scankey/pkg/models"
)

// requiredRootFields must be present on every AnalysisResult document.
var requiredRootFields = []string{
	"input_id", "timestamp", "results", "high_confidence", "low_confidence", "manufacturer_hint",
}

// Violation is one broken contract rule.
type Violation struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (v Violation) String() string {
	return v.Path + ": " + v.Message
}

// ContractReport collects every violation found in a document.
type ContractReport struct {
	Violations []Violation `json:"violations"`
}

// Valid reports whether the document satisfied the contract.
func (r *ContractReport) Valid() bool {
	return len(r.Violations) == 0
}

// Err returns nil for a valid document, otherwise a validation error listing every violation.
func (r *ContractReport) Err() error {
	if r.Valid() {
		return nil
	}
	lines := make([]string, len(r.Violations))
	for i, v := range r.Violations {
		lines[i] = v.String()
	}
	return apperrors.NewValidationError(
		fmt.Sprintf("%d contract violation(s): %s", len(r.Violations), strings.Join(lines, "; ")), nil)
}

func (r *ContractReport) add(path, format string, args ...any) {
	r.Violations = append(r.Violations, Violation{Path: path, Message: fmt.Sprintf(format, args...)})
}

// ContractOptions tunes the validator.
type ContractOptions struct {
	// StrictFlags additionally requires the confidence flags to match the
	// 0.95 / 0.60 thresholds, rejecting server-side overrides.
	StrictFlags bool
}

// ContractValidator checks documents claiming to be a normalized AnalysisResult.
type ContractValidator struct {
	opts ContractOptions
}

// NewContractValidator creates a validator with the given options
func NewContractValidator(opts ContractOptions) *ContractValidator {
	return &ContractValidator{opts: opts}
}

// Validate checks doc against the normalized response contract.
func (v *ContractValidator) Validate(doc []byte) *ContractReport {
	report := &ContractReport{}

	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		report.add("$", "document is not valid JSON: %v", err)
		return report
	}
	root, ok := raw.(map[string]any)
	if !ok {
		report.add("$", "document must be a JSON object")
		return report
	}

	for _, key := range requiredRootFields {
		if _, ok := root[key]; !ok {
			report.add(key, "missing required root field")
		}
	}

	if _, ok := root["input_id"]; ok {
		if s, isString := root["input_id"].(string); !isString || strings.TrimSpace(s) == "" {
			report.add("input_id", "must be a non-empty string")
		}
	}
	if _, ok := root["timestamp"]; ok {
		if _, isString := root["timestamp"].(string); !isString {
			report.add("timestamp", "must be a string")
		}
	}

	top, hasTop := v.validateResults(root, report)
	v.validateFlags(root, top, hasTop, report)
	validateHint(root, report)
	validateDebug(root, report)
	return report
}

// validateResults returns the top confidence when it is a valid number.
func (v *ContractValidator) validateResults(root map[string]any, report *ContractReport) (float64, bool) {
	value, present := root["results"]
	if !present {
		return 0, false
	}
	results, ok := value.([]any)
	if !ok {
		report.add("results", "must be an array")
		return 0, false
	}
	if len(results) != models.ResultCount {
		report.add("results", "must have exactly %d elements (found %d)", models.ResultCount, len(results))
	}

	var top float64
	hasTop := false
	var prev float64
	hasPrev := false
	for i, item := range results {
		path := fmt.Sprintf("results[%d]", i)
		cand, ok := item.(map[string]any)
		if !ok {
			report.add(path, "must be an object")
			hasPrev = false
			continue
		}

		conf, isNum := number(cand["confidence"])
		switch {
		case !isNum:
			report.add(path+".confidence", "must be a number (found %v)", cand["confidence"])
		case conf < 0 || conf > 1:
			report.add(path+".confidence", "out of range [0,1]: %v", conf)
		}
		if isNum {
			if hasPrev && conf > prev {
				report.add(path+".confidence",
					"ordering violated: %v is greater than the previous confidence %v (results must be in descending confidence order)",
					conf, prev)
			}
			prev, hasPrev = conf, true
			if i == 0 {
				top, hasTop = conf, true
			}
		} else {
			hasPrev = false
		}

		if rank, isNum := number(cand["rank"]); !isNum || rank != float64(i+1) {
			report.add(path+".rank", "must be %d (found %v)", i+1, cand["rank"])
		}

		if _, isList := cand["compatibility_tags"].([]any); !isList {
			report.add(path+".compatibility_tags", "must be an array")
		}

		if bbox, present := cand["crop_bbox"]; present && bbox != nil {
			validateBBox(path+".crop_bbox", bbox, report)
		}
	}
	return top, hasTop
}

func validateBBox(path string, value any, report *ContractReport) {
	bbox, ok := value.(map[string]any)
	if !ok {
		report.add(path, "must be an object or null")
		return
	}
	for _, dim := range []string{"x", "y", "w", "h"} {
		f, isNum := number(bbox[dim])
		if !isNum {
			report.add(path+"."+dim, "must be numeric")
			continue
		}
		if f < 0 || f > 1 {
			report.add(path+"."+dim, "out of range [0,1]: %v", f)
		}
	}
}

func (v *ContractValidator) validateFlags(root map[string]any, top float64, hasTop bool, report *ContractReport) {
	high, highOK := root["high_confidence"].(bool)
	low, lowOK := root["low_confidence"].(bool)
	if _, present := root["high_confidence"]; present && !highOK {
		report.add("high_confidence", "must be a boolean")
	}
	if _, present := root["low_confidence"]; present && !lowOK {
		report.add("low_confidence", "must be a boolean")
	}
	if highOK && lowOK && high && low {
		report.add("high_confidence", "high_confidence and low_confidence must not both be true")
	}

	if !v.opts.StrictFlags || !hasTop {
		return
	}
	expectedHigh := top >= models.HighConfidenceThreshold
	expectedLow := top < models.LowConfidenceThreshold
	if highOK && high != expectedHigh {
		report.add("high_confidence", "inconsistent with top confidence %v: expected %v, found %v", top, expectedHigh, high)
	}
	if lowOK && low != expectedLow {
		report.add("low_confidence", "inconsistent with top confidence %v: expected %v, found %v", top, expectedLow, low)
	}
}

func validateHint(root map[string]any, report *ContractReport) {
	value, present := root["manufacturer_hint"]
	if !present {
		return
	}
	hint, ok := value.(map[string]any)
	if !ok {
		report.add("manufacturer_hint", "must be an object")
		return
	}
	if _, isBool := hint["found"].(bool); !isBool {
		report.add("manufacturer_hint.found", "must be a boolean")
	}
	conf, isNum := number(hint["confidence"])
	switch {
	case !isNum:
		report.add("manufacturer_hint.confidence", "must be numeric")
	case conf < 0 || conf > 1:
		report.add("manufacturer_hint.confidence", "out of range [0,1]: %v", conf)
	}
	if name, present := hint["name"]; present && name != nil {
		if _, isString := name.(string); !isString {
			report.add("manufacturer_hint.name", "must be a string or null")
		}
	}
}

func validateDebug(root map[string]any, report *ContractReport) {
	value, present := root["debug"]
	if !present || value == nil {
		return
	}
	dbg, ok := value.(map[string]any)
	if !ok {
		report.add("debug", "must be an object")
		return
	}
	if pt, present := dbg["processing_time_ms"]; present && pt != nil {
		if _, isNum := number(pt); !isNum {
			report.add("debug.processing_time_ms", "must be numeric")
		}
	}
}

func number(v any) (float64, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	f, err := n.Float64()
	if err != nil {
		return 0, false
	}
	return f, true
}
