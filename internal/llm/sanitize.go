package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
)

// ErrNotJSONObject means the model reply could not be read as a JSON object.
var ErrNotJSONObject = errors.New("model reply is not a JSON object")

// CoerceReport lists what the coercion pass had to repair.
type CoerceReport struct {
	Missing []string // required fields absent or empty in the reply
	Fixed   []string // fields rewritten to fit the schema
}

// DecodeAnalysis parses a model reply, coerces it toward the analysis schema in a
// single pass, validates the result and returns the typed value. Missing fields
// are reported, never fatal; only unparseable or still-invalid documents fail.
func DecodeAnalysis(raw []byte, logger *slog.Logger) (AnalysisResult, CoerceReport, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var m map[string]any
	if err := json.Unmarshal(stripFences(raw), &m); err != nil {
		return AnalysisResult{}, CoerceReport{}, fmt.Errorf("%w: %v", ErrNotJSONObject, err)
	}
	if m == nil {
		return AnalysisResult{}, CoerceReport{}, fmt.Errorf("%w: reply is null", ErrNotJSONObject)
	}

	doc, rep := CoerceAnalysis(m)
	if len(rep.Fixed) > 0 {
		logger.Warn("llm.analysis.coerced", "fixed", rep.Fixed)
	}
	if err := ValidateAnalysis(doc); err != nil {
		return AnalysisResult{}, rep, err
	}

	b, err := json.Marshal(doc)
	if err != nil {
		return AnalysisResult{}, rep, fmt.Errorf("sanitize: encode: %w", err)
	}
	var out AnalysisResult
	if err := json.Unmarshal(b, &out); err != nil {
		return AnalysisResult{}, rep, fmt.Errorf("unmarshal analysis: %w", err)
	}
	out.EnsureLists()
	return out, rep, nil
}

// CoerceAnalysis rewrites a decoded reply into the analysis shape:
//   - summary/details become strings ("" when absent)
//   - list fields that are not arrays become empty arrays
//   - list items of the wrong type are converted or dropped
//   - missing reference/outcome ids are generated
//   - probabilities become percentages clamped to [0, 100]
//   - unknown top-level keys are dropped
func CoerceAnalysis(m map[string]any) (map[string]any, CoerceReport) {
	var rep CoerceReport
	for _, k := range AnalysisFields {
		if isBlank(m[k]) {
			rep.Missing = append(rep.Missing, k)
		}
	}
	fix := func(what string) { rep.Fixed = append(rep.Fixed, what) }

	out := map[string]any{
		"summary": coerceText(m["summary"], "summary", fix),
		"details": coerceText(m["details"], "details", fix),
	}

	recs := make([]any, 0)
	for i, v := range asList(m["recommendations"], "recommendations", fix) {
		s := strings.TrimSpace(stringify(v))
		if s == "" {
			fix(fmt.Sprintf("recommendations[%d](empty)", i))
			continue
		}
		if _, ok := v.(string); !ok {
			fix(fmt.Sprintf("recommendations[%d](type)", i))
		}
		recs = append(recs, s)
	}
	out["recommendations"] = recs

	refs := make([]any, 0)
	for i, v := range asList(m["references"], "references", fix) {
		obj, ok := v.(map[string]any)
		if !ok {
			fix(fmt.Sprintf("references[%d](type)", i))
			continue
		}
		refs = append(refs, map[string]any{
			"id":          idOr(obj["id"], fmt.Sprintf("ref_%d", len(refs)+1)),
			"title":       stringify(obj["title"]),
			"description": stringify(obj["description"]),
		})
	}
	out["references"] = refs

	outs := make([]any, 0)
	for i, v := range asList(m["outcomes"], "outcomes", fix) {
		obj, ok := v.(map[string]any)
		if !ok {
			fix(fmt.Sprintf("outcomes[%d](type)", i))
			continue
		}
		p, changed := NormalizeProbability(obj["probability"])
		if changed {
			fix(fmt.Sprintf("outcomes[%d].probability", i))
		}
		outs = append(outs, map[string]any{
			"id":          idOr(obj["id"], fmt.Sprintf("outcome_%d", len(outs)+1)),
			"scenario":    stringify(obj["scenario"]),
			"probability": p,
			"reasoning":   stringify(obj["reasoning"]),
		})
	}
	out["outcomes"] = outs

	for k := range m {
		if _, known := out[k]; !known {
			fix(k + "(unknown)")
		}
	}
	return out, rep
}

// NormalizeProbability maps a model-supplied probability onto [0, 100].
// Values in (0, 1) are read as fractions; 1 means 1%. Strings like "75%" are parsed.
// The second result reports whether the value had to be changed.
func NormalizeProbability(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return 0, true
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(t), "%")), 64)
		if err != nil {
			return 0, true
		}
		return clampPercent(n), true
	default:
		return 0, true
	}
	p := clampPercent(f)
	return p, p != f
}

func clampPercent(f float64) float64 {
	if math.IsNaN(f) {
		return 0
	}
	if f > 0 && f < 1 {
		f *= 100
	}
	return math.Max(0, math.Min(100, f))
}

func coerceText(v any, key string, fix func(string)) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		fix(key + "(type)")
		return stringify(t)
	}
}

func asList(v any, key string, fix func(string)) []any {
	if l, ok := v.([]any); ok {
		return l
	}
	if v != nil {
		fix(key + "(not array)")
	}
	return nil
}

func idOr(v any, def string) string {
	if s := strings.TrimSpace(stringify(v)); s != "" {
		return s
	}
	return def
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	}
	return false
}

// stripFences removes a ```json fence some models wrap around JSON mode output.
func stripFences(raw []byte) []byte {
	s := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(s, "```") {
		return raw
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return []byte(strings.TrimSpace(s))
}
