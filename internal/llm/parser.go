package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mfigueira/caixinha/internal/model"
)

// rawClassification is the JSON shape the model is instructed to return.
type rawClassification struct {
	Data       map[string]any `json:"data"`
	Intent     string         `json:"intent"`
	Confidence float64        `json:"confidence"`
}

// parseClassification extracts a ClassificationResult from model output.
// Models occasionally wrap JSON in markdown fences or stray prose, so the
// parser cuts from the first { to the last } before decoding.
func parseClassification(content string) (*model.ClassificationResult, error) {
	trimmed := strings.TrimSpace(content)

	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON object in model response: %q", truncate(trimmed, 120))
	}

	var raw rawClassification
	if err := json.Unmarshal([]byte(trimmed[start:end+1]), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}

	if raw.Intent == "" {
		return nil, fmt.Errorf("model response missing intent")
	}

	if raw.Confidence < 0 {
		raw.Confidence = 0
	}
	if raw.Confidence > 1 {
		raw.Confidence = 1
	}

	data := raw.Data
	if data == nil {
		data = map[string]any{}
	}

	return &model.ClassificationResult{
		Intent:     raw.Intent,
		Confidence: raw.Confidence,
		Source:     model.SourceModel,
		Data:       data,
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
