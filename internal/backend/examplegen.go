package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/policyforge/policyforge/internal/policy"
)

// Examples generates synthetic labeled examples that probe the boundaries of
// a machine policy. The model is asked for eight; anything non-empty with
// usable text is accepted.
func (g *Generator) Examples(ctx context.Context, machine policy.Document) ([]policy.GeneratedExample, error) {
	machineJSON, err := documentJSON(machine)
	if err != nil {
		return nil, err
	}
	raw, err := g.llm.Complete(ctx, examplesPrompt(machineJSON))
	if err != nil {
		return nil, fmt.Errorf("backend: %s: %w", TaskExamples, err)
	}
	data, err := extractJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("backend: %s: %w", TaskExamples, err)
	}
	if !gjson.GetBytes(data, "examples").IsArray() {
		return nil, fmt.Errorf("backend: %s: completion is missing the examples list", TaskExamples)
	}
	var envelope struct {
		Examples []policy.GeneratedExample `json:"examples"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("backend: %s: decode examples: %w", TaskExamples, err)
	}
	out := envelope.Examples[:0]
	for _, example := range envelope.Examples {
		if strings.TrimSpace(example.Text) == "" {
			continue
		}
		out = append(out, example)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("backend: %s: model returned no usable examples", TaskExamples)
	}
	return out, nil
}
