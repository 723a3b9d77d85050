// Package normalizer turns loosely shaped classifier responses into the
// canonical AnalysisResult: exactly three candidates, ordered by confidence,
// ranked 1..3, with consistent confidence tier flags.
package normalizer

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go-scankey/pkg/models"

	"github.com/cespare/xxhash/v2"
)

const placeholderExplain = "No further viable candidates."

// Normalizer is safe for concurrent use.
type Normalizer struct {
	cache *resultCache
	now   func() time.Time
}

// Option configures a Normalizer
type Option func(*Normalizer)

// WithCacheSize bounds the memoization cache; n <= 0 means unbounded.
func WithCacheSize(n int) Option {
	return func(nz *Normalizer) {
		nz.cache = newResultCache(n)
	}
}

// WithClock overrides the clock used for generated IDs and timestamps.
func WithClock(now func() time.Time) Option {
	return func(nz *Normalizer) {
		nz.now = now
	}
}

// New creates a normalizer with an unbounded cache
func New(opts ...Option) *Normalizer {
	nz := &Normalizer{
		cache: newResultCache(0),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(nz)
	}
	return nz
}

// NormalizeJSON decodes body and normalizes it. Undecodable bodies degrade to
// a placeholder-only result keyed by the hash of the bytes.
func (n *Normalizer) NormalizeJSON(body []byte) *models.AnalysisResult {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return n.normalizeKeyed(map[string]any{}, contentKey(body))
	}
	return n.Normalize(raw)
}

// Normalize converts a decoded payload into an AnalysisResult. It never
// fails; repeated calls with the same input_id (or the same content when the
// id is absent) return the identical *AnalysisResult.
func (n *Normalizer) Normalize(raw any) *models.AnalysisResult {
	obj, ok := asObject(raw)
	if !ok {
		obj = map[string]any{}
	}

	key := ""
	if id := optString(obj, inputIDKeys); id != nil {
		key = "id:" + *id
	} else if encoded, err := json.Marshal(raw); err == nil {
		key = contentKey(encoded)
	}
	return n.normalizeKeyed(obj, key)
}

// CacheLen reports the number of memoized results.
func (n *Normalizer) CacheLen() int {
	return n.cache.len()
}

func contentKey(b []byte) string {
	return "h:" + strconv.FormatUint(xxhash.Sum64(b), 36)
}

func (n *Normalizer) normalizeKeyed(obj map[string]any, key string) *models.AnalysisResult {
	if key != "" {
		if cached, ok := n.cache.get(key); ok {
			return cached
		}
	}
	result := n.build(obj, key)
	if key == "" {
		return result
	}
	return n.cache.putIfAbsent(key, result)
}

// build assembles the result. key is the memoization key; for payloads
// without an input_id its content hash disambiguates the generated id.
func (n *Normalizer) build(obj map[string]any, key string) *models.AnalysisResult {
	now := n.now()

	candidates := extractCandidates(obj)
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Confidence > candidates[j].Confidence
	})
	if len(candidates) > models.ResultCount {
		candidates = candidates[:models.ResultCount]
	}
	for len(candidates) < models.ResultCount {
		candidates = append(candidates, placeholder())
	}
	for i := range candidates {
		candidates[i].Rank = i + 1
	}

	high, low := confidenceFlags(obj, candidates[0].Confidence)

	result := &models.AnalysisResult{
		InputID:              generatedID(now, key),
		Timestamp:            timestamp(obj, now),
		ManufacturerHint:     manufacturerHint(obj),
		Results:              candidates,
		HighConfidence:       high,
		LowConfidence:        low,
		ManualCorrectionHint: correctionHint(obj),
		Debug:                debugInfo(obj),
	}
	if id := optString(obj, inputIDKeys); id != nil {
		result.InputID = *id
	}
	if v, ok := lookup(obj, shouldStoreKeys); ok {
		result.ShouldStoreSample = truthy(v)
	}
	return result
}

func generatedID(now time.Time, key string) string {
	id := fmt.Sprintf("scan-%d", now.UnixMilli())
	if hash, ok := strings.CutPrefix(key, "h:"); ok {
		id += "-" + hash
	}
	return id
}

// timestamp reads the payload time as RFC 3339 or as a unix epoch in
// seconds or milliseconds, and renders it as UTC RFC 3339. Anything else
// falls back to now.
func timestamp(obj map[string]any, now time.Time) string {
	v, ok := lookup(obj, timestampKeys)
	if !ok {
		return now.UTC().Format(time.RFC3339)
	}
	if s, isString := v.(string); isString {
		if t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s)); err == nil {
			return t.UTC().Format(time.RFC3339)
		}
	}
	if f, ok := toFloat(v); ok && f > 0 {
		if f >= epochMillisThreshold {
			return time.UnixMilli(int64(f)).UTC().Format(time.RFC3339)
		}
		return time.Unix(int64(f), 0).UTC().Format(time.RFC3339)
	}
	return now.UTC().Format(time.RFC3339)
}

// epochMillisThreshold separates epoch milliseconds from epoch seconds;
// 1e11 seconds lies in the year 5138.
const epochMillisThreshold = 1e11

func extractCandidates(obj map[string]any) []models.Candidate {
	var list []any
	for _, k := range candidateListKeys {
		if l, ok := asList(obj[k]); ok {
			list = l
			break
		}
	}

	out := make([]models.Candidate, 0, len(list))
	for _, item := range list {
		switch v := item.(type) {
		case map[string]any:
			out = append(out, normalizeCandidate(v))
		case string:
			out = append(out, normalizeCandidate(map[string]any{"title": v}))
		}
	}
	return out
}

func normalizeCandidate(obj map[string]any) models.Candidate {
	c := models.Candidate{
		IDModelRef:        optString(obj, idModelRefKeys),
		Type:              optString(obj, typeKeys),
		Brand:             optString(obj, brandKeys),
		Model:             optString(obj, modelKeys),
		Orientation:       optString(obj, orientationKeys),
		HeadColor:         optString(obj, headColorKeys),
		VisualState:       optString(obj, visualStateKeys),
		Confidence:        unitFloat(obj, confidenceKeys),
		CompatibilityTags: []string{},
	}

	if c.Brand == nil && c.Model == nil {
		if title := optString(obj, titleKeys); title != nil {
			c.Brand, c.Model = splitTitle(*title)
		}
	}
	if v, ok := lookup(obj, tagsKeys); ok {
		c.CompatibilityTags = stringList(v)
	}
	if s := optString(obj, explainKeys); s != nil {
		c.ExplainText = *s
	}
	if v, ok := lookup(obj, patentKeys); ok {
		c.Patentada = truthy(v)
	}
	if v, ok := lookup(obj, cropBBoxKeys); ok {
		c.CropBBox = cropBBox(v)
	}
	return c
}

// splitTitle reads "JMA TE5" as brand JMA, model TE5. A single token is a
// model with unknown brand.
func splitTitle(title string) (brand, model *string) {
	fields := strings.Fields(title)
	switch len(fields) {
	case 0:
		return nil, nil
	case 1:
		return nil, &fields[0]
	}
	rest := strings.Join(fields[1:], " ")
	return &fields[0], &rest
}

func cropBBox(v any) *models.CropBBox {
	var vals [4]float64
	switch t := v.(type) {
	case map[string]any:
		for i, keys := range [][]string{bboxXKeys, bboxYKeys, bboxWKeys, bboxHKeys} {
			raw, ok := lookup(t, keys)
			if !ok {
				return nil
			}
			f, ok := toFloat(raw)
			if !ok {
				return nil
			}
			vals[i] = f
		}
	case []any:
		if len(t) != 4 {
			return nil
		}
		for i, raw := range t {
			f, ok := toFloat(raw)
			if !ok {
				return nil
			}
			vals[i] = f
		}
	default:
		return nil
	}
	return &models.CropBBox{
		X: clamp01(vals[0]),
		Y: clamp01(vals[1]),
		W: clamp01(vals[2]),
		H: clamp01(vals[3]),
	}
}

func placeholder() models.Candidate {
	return models.Candidate{
		Confidence:        0,
		CompatibilityTags: []string{},
		ExplainText:       placeholderExplain,
	}
}

// confidenceFlags applies the 0.95 / 0.60 tiers. Explicit booleans from the
// server win, unless together they would claim both tiers at once.
func confidenceFlags(obj map[string]any, top float64) (high, low bool) {
	computedHigh := top >= models.HighConfidenceThreshold
	computedLow := top < models.LowConfidenceThreshold

	high, low = computedHigh, computedLow
	if v, ok := explicitBool(obj, "high_confidence"); ok {
		high = v
	}
	if v, ok := explicitBool(obj, "low_confidence"); ok {
		low = v
	}
	if high && low {
		return computedHigh, computedLow
	}
	return high, low
}

func manufacturerHint(obj map[string]any) models.ManufacturerHint {
	hint := models.ManufacturerHint{}
	v, ok := lookup(obj, hintKeys)
	if !ok {
		return hint
	}
	switch t := v.(type) {
	case map[string]any:
		hint.Name = optString(t, hintNameKeys)
		hint.Confidence = unitFloat(t, confidenceKeys)
		if f, ok := lookup(t, hintFoundKeys); ok {
			hint.Found = truthy(f)
		} else {
			hint.Found = hint.Name != nil
		}
	case string:
		if name := strings.TrimSpace(t); name != "" {
			hint.Found = true
			hint.Name = &name
		}
	}
	return hint
}

func debugInfo(obj map[string]any) models.Debug {
	d := models.Debug{}
	v, ok := lookup(obj, debugKeys)
	if !ok {
		return d
	}
	dbg, ok := asObject(v)
	if !ok {
		return d
	}
	if raw, ok := lookup(dbg, procTimeKeys); ok {
		if f, ok := toFloat(raw); ok && f > 0 {
			d.ProcessingTimeMS = f
		}
	}
	d.ModelVersion = optString(dbg, modelVersionKeys)
	return d
}

func correctionHint(obj map[string]any) models.ManualCorrectionHint {
	if v, ok := lookup(obj, correctionKeys); ok {
		if h, ok := asObject(v); ok {
			if fields := stringList(h["fields"]); len(fields) > 0 {
				return models.ManualCorrectionHint{Fields: fields}
			}
		}
	}
	fields := make([]string, len(defaultCorrectionFields))
	copy(fields, defaultCorrectionFields)
	return models.ManualCorrectionHint{Fields: fields}
}
