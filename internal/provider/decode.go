package provider

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Outcome tells the caller how a provider response was transformed, so
// "transformed successfully", "transformed with defaults", and
// "unrecoverable" stay distinguishable without reading logs.
type Outcome int

const (
	// OutcomeStrict: the response validated against the schema as-is.
	OutcomeStrict Outcome = iota
	// OutcomeLenient: a legacy/unknown shape was mapped best-effort.
	OutcomeLenient
	// OutcomeMinimal: mapping failed; a minimal-but-valid record was substituted.
	OutcomeMinimal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeStrict:
		return "strict"
	case OutcomeLenient:
		return "lenient"
	default:
		return "minimal"
	}
}

// Decode turns a raw provider reply into a NormalizedAnalysis. Responses that
// are not parseable as structured data at all fail (counted as a provider
// failure); everything else yields a valid record, worst case Minimal.
func Decode(raw []byte, providerName, model string) (NormalizedAnalysis, Outcome, error) {
	content := StripCodeFences(string(raw))
	if !json.Valid([]byte(content)) {
		return NormalizedAnalysis{}, OutcomeMinimal,
			fmt.Errorf("%s: response is not structured JSON", providerName)
	}

	if err := ValidateJSONAgainstSchema(BuildAnalysisJSONSchema(), []byte(content)); err == nil {
		var out NormalizedAnalysis
		if uerr := json.Unmarshal([]byte(content), &out); uerr == nil {
			out.Metadata.Provider = providerName
			out.Metadata.Model = model
			out.Metadata.ProcessingSteps = append(out.Metadata.ProcessingSteps, "decode:strict")
			out.Summary.Confidence = normalizeConfidence(out.Summary.Confidence)
			out.ApplyDefaults()
			return out, OutcomeStrict, nil
		}
	}

	out, ok := lenientMap(content, providerName, model)
	if !ok {
		min := Minimal(providerName, model)
		return min, OutcomeMinimal, nil
	}
	return out, OutcomeLenient, nil
}

// lenientMap maps known legacy response generations onto the common shape.
// Field mapping is best-effort: absent or malformed parts get defaults.
func lenientMap(content, providerName, model string) (NormalizedAnalysis, bool) {
	var m map[string]any
	if err := json.Unmarshal([]byte(content), &m); err != nil {
		return NormalizedAnalysis{}, false
	}

	out := Minimal(providerName, model)
	out.Metadata.ProcessingSteps = []string{"decode:lenient"}

	// summary may be a nested object or flattened top-level keys
	summary, _ := m["summary"].(map[string]any)
	if summary == nil {
		summary = m
	}
	if g := firstString(summary, "grade", "note", "overall_grade", "mark"); g != "" {
		out.Summary.Grade = g
	} else if n := firstNumber(summary, "grade", "note"); n >= 1 && n <= 6 && n == float32(int(n)) {
		out.Summary.Grade = strconv.Itoa(int(n))
	}
	out.Summary.Score = firstNumber(summary, "score", "points", "achieved_points")
	out.Summary.MaxScore = firstNumber(summary, "max_score", "maxScore", "total_points")
	out.Summary.Percentage = firstNumber(summary, "percentage", "percent")
	if out.Summary.Percentage == 0 && out.Summary.MaxScore > 0 {
		out.Summary.Percentage = 100 * out.Summary.Score / out.Summary.MaxScore
	}
	out.Summary.Subject = firstString(summary, "subject", "fach")
	out.Summary.ChildName = firstString(summary, "child_name", "student", "name")
	out.Summary.Confidence = normalizeConfidence(firstNumber(summary, "confidence", "certainty"))

	out.Strengths = stringList(m, "strengths", "positives")
	out.Weaknesses = stringList(m, "weaknesses", "areas_for_improvement", "negatives")

	if recs, ok := m["recommendations"].([]any); ok {
		for _, r := range recs {
			switch v := r.(type) {
			case string:
				if s := strings.TrimSpace(v); s != "" {
					out.Recommendations = append(out.Recommendations, Recommendation{Priority: "medium", Action: s})
				}
			case map[string]any:
				rec := Recommendation{
					Priority:  firstString(v, "priority"),
					Category:  firstString(v, "category", "area"),
					Action:    firstString(v, "action", "text", "recommendation"),
					Timeframe: firstString(v, "timeframe", "timeline"),
					Rationale: firstString(v, "rationale", "reason"),
				}
				if rec.Priority == "" {
					rec.Priority = "medium"
				}
				if rec.Action != "" {
					out.Recommendations = append(out.Recommendations, rec)
				}
			}
		}
	}

	if secs, ok := m["sections"].([]any); ok {
		for _, s := range secs {
			if v, ok := s.(map[string]any); ok {
				sec := SectionPerformance{
					Name:    firstString(v, "name", "section", "title"),
					Score:   firstString(v, "score", "result"),
					Comment: firstString(v, "comment", "notes"),
				}
				if sec.Name != "" {
					out.Sections = append(out.Sections, sec)
				}
			}
		}
	}

	if fb, ok := m["teacher_feedback"].(map[string]any); ok {
		out.TeacherFeedback.Comments = stringList(fb, "comments")
		out.TeacherFeedback.MarkSymbols = stringList(fb, "mark_symbols", "marks")
	} else if s := firstString(m, "teacher_feedback", "teacher_comment"); s != "" {
		out.TeacherFeedback.Comments = []string{s}
	}

	if dev, ok := m["development"].(map[string]any); ok {
		out.Development.FocusAreas = stringList(dev, "focus_areas", "areas")
		out.Development.Outlook = firstString(dev, "outlook", "notes")
	}

	out.ApplyDefaults()
	return out, true
}

// normalizeConfidence accepts either a 0..1 or 0..100 scale and returns 0..1.
func normalizeConfidence(v float32) float32 {
	if v > 1 {
		v = v / 100
	}
	if v > 1 {
		v = 1
	}
	if v < 0 {
		v = 0
	}
	return v
}

// StripCodeFences removes a surrounding markdown code fence, which several
// models emit even when asked for bare JSON.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k].(string); ok {
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		}
	}
	return ""
}

func firstNumber(m map[string]any, keys ...string) float32 {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			return float32(v)
		case json.Number:
			if f, err := v.Float64(); err == nil {
				return float32(f)
			}
		}
	}
	return 0
}

func stringList(m map[string]any, keys ...string) []string {
	for _, k := range keys {
		if arr, ok := m[k].([]any); ok {
			out := make([]string, 0, len(arr))
			for _, e := range arr {
				if s, ok := e.(string); ok {
					if s = strings.TrimSpace(s); s != "" {
						out = append(out, s)
					}
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return []string{}
}
