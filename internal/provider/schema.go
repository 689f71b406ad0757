package provider

// BuildAnalysisJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. It is handed to the providers as a structured-output
// constraint and used locally to validate their replies.
func BuildAnalysisJSONSchema() map[string]any {
	rec := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"priority":  map[string]any{"type": "string", "enum": []string{"high", "medium", "low"}},
			"category":  map[string]any{"type": "string"},
			"action":    map[string]any{"type": "string", "minLength": 1},
			"timeframe": map[string]any{"type": "string"},
			"rationale": map[string]any{"type": "string"},
		},
		"required": []string{"action"},
	}
	section := map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"name":    map[string]any{"type": "string"},
			"score":   map[string]any{"type": "string"},
			"comment": map[string]any{"type": "string"},
		},
		"required": []string{"name"},
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"summary": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"grade":      map[string]any{"type": "string"},
					"score":      map[string]any{"type": "number", "minimum": 0},
					"max_score":  map[string]any{"type": "number", "minimum": 0},
					"percentage": map[string]any{"type": "number", "minimum": 0, "maximum": 100},
					"subject":    map[string]any{"type": "string"},
					"child_name": map[string]any{"type": "string"},
					"confidence": map[string]any{"type": "number", "minimum": 0},
				},
				"required": []string{"grade"},
			},
			"sections": map[string]any{"type": "array", "items": section},
			"teacher_feedback": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"comments":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"mark_symbols": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
				},
			},
			"strengths":       map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"weaknesses":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"recommendations": map[string]any{"type": "array", "items": rec},
			"development": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties": map[string]any{
					"focus_areas": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"outlook":     map[string]any{"type": "string"},
				},
			},
		},
		"required": []string{"summary", "strengths", "weaknesses", "recommendations"},
	}
}
