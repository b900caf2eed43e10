// Package schema holds the JSON Schemas of the result documents.
package schema

// CandidateSchema describes best_result.
func CandidateSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"text":       map[string]any{"type": "string"},
			"method":     map[string]any{"type": "string", "minLength": 1},
			"confidence": map[string]any{"type": "number", "minimum": 0.0, "maximum": 1.0},
			"length":     map[string]any{"type": "integer", "minimum": 0},
		},
		"required": []string{"text", "method", "confidence"},
	}
}

// ImageResultSchema describes one image's result: either best_result with
// all_results, or error.
func ImageResultSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"file_path":   map[string]any{"type": "string", "minLength": 1},
			"timestamp":   map[string]any{"type": "string", "format": "date-time"},
			"best_result": CandidateSchema(),
			"all_results": map[string]any{"type": "object"},
			"error":       map[string]any{"type": "string", "minLength": 1},
		},
		"required": []string{"file_path", "timestamp"},
		"oneOf": []any{
			map[string]any{"required": []string{"best_result", "all_results"}, "not": map[string]any{"required": []string{"error"}}},
			map[string]any{"required": []string{"error"}, "not": map[string]any{"required": []string{"best_result"}}},
		},
	}
}

// BatchSchema describes the directory run document.
func BatchSchema() map[string]any {
	count := map[string]any{"type": "integer", "minimum": 0}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"metadata": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"run_id":          map[string]any{"type": "string"},
					"processing_date": map[string]any{"type": "string", "format": "date-time"},
					"input_folder":    map[string]any{"type": "string"},
					"total_images":    count,
					"successful":      count,
					"failed":          count,
				},
				"required": []string{"processing_date", "input_folder", "total_images", "successful", "failed"},
			},
			"results": map[string]any{
				"type":                 "object",
				"additionalProperties": ImageResultSchema(),
			},
		},
		"required": []string{"metadata", "results"},
	}
}
