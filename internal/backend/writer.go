package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/policyforge/policyforge/internal/policy"
)

// Generator turns LLM completions into validated policy documents. All
// methods are stateless; a single Generator is shared across requests.
type Generator struct {
	llm LLMClient
}

// NewGenerator requires a non-nil LLM client.
func NewGenerator(llm LLMClient) (*Generator, error) {
	if llm == nil {
		return nil, fmt.Errorf("backend: llm client is required")
	}
	return &Generator{llm: llm}, nil
}

// InitialPolicy writes the first machine policy draft from an enriched intent.
func (g *Generator) InitialPolicy(ctx context.Context, intent string) (policy.Document, error) {
	if strings.TrimSpace(intent) == "" {
		return policy.Document{}, fmt.Errorf("backend: intent is empty")
	}
	return g.completeDocument(ctx, initialPolicyPrompt(intent), policy.VariantMachine)
}

// DerivedPolicies writes the public and moderator documents from a machine
// policy. The machine document itself is never modified here.
func (g *Generator) DerivedPolicies(ctx context.Context, machine policy.Document) (public, moderator policy.Document, err error) {
	machineJSON, err := documentJSON(machine)
	if err != nil {
		return policy.Document{}, policy.Document{}, err
	}
	public, err = g.completeDocument(ctx, publicPolicyPrompt(machineJSON), policy.VariantPublic)
	if err != nil {
		return policy.Document{}, policy.Document{}, err
	}
	moderator, err = g.completeDocument(ctx, moderatorPolicyPrompt(machineJSON), policy.VariantModerator)
	if err != nil {
		return policy.Document{}, policy.Document{}, err
	}
	return public, moderator, nil
}

func (g *Generator) completeDocument(ctx context.Context, prompt Prompt, variant policy.Variant) (policy.Document, error) {
	raw, err := g.llm.Complete(ctx, prompt)
	if err != nil {
		return policy.Document{}, fmt.Errorf("backend: %s: %w", prompt.Task, err)
	}
	data, err := extractJSON(raw)
	if err != nil {
		return policy.Document{}, fmt.Errorf("backend: %s: %w", prompt.Task, err)
	}
	doc, err := policy.Decode(variant, data)
	if err != nil {
		return policy.Document{}, fmt.Errorf("backend: %s: model returned an unusable policy: %w", prompt.Task, err)
	}
	return doc, nil
}

func documentJSON(doc policy.Document) (string, error) {
	if doc.Empty() {
		return "", fmt.Errorf("backend: machine policy is empty")
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("backend: encode machine policy: %w", err)
	}
	return string(data), nil
}

// extractJSON pulls the JSON object out of a model completion, tolerating
// markdown code fences and prose around the object.
func extractJSON(raw string) ([]byte, error) {
	text := strings.TrimSpace(raw)
	if start := strings.Index(text, "```"); start >= 0 {
		rest := text[start+3:]
		if nl := strings.IndexByte(rest, '\n'); nl >= 0 {
			rest = rest[nl+1:]
		}
		if end := strings.Index(rest, "```"); end >= 0 {
			text = strings.TrimSpace(rest[:end])
		}
	}
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("completion contains no JSON object")
	}
	text = text[start : end+1]
	if !gjson.Valid(text) {
		return nil, fmt.Errorf("completion contains malformed JSON")
	}
	return []byte(text), nil
}
