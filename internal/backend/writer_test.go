package backend

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/policyforge/policyforge/internal/policy"
)

// promptLLM hands a fixed completion back and records the prompts it saw.
type promptLLM struct {
	completion string
	err        error
	prompts    []Prompt
}

func (p *promptLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	p.prompts = append(p.prompts, prompt)
	if p.err != nil {
		return "", p.err
	}
	return p.completion, nil
}

func TestInitialPolicyDecodesScriptedCompletion(t *testing.T) {
	gen, err := NewGenerator(ScriptedClient{})
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	doc, err := gen.InitialPolicy(context.Background(), "Platform Type: forum")
	if err != nil {
		t.Fatalf("InitialPolicy: %v", err)
	}
	if doc.Variant() != policy.VariantMachine {
		t.Fatalf("variant = %v", doc.Variant())
	}
	if doc.Name() != "Scripted Harassment Policy" {
		t.Errorf("name = %q", doc.Name())
	}
	items, ok := doc.Items(policy.FieldViolationCriteria)
	if !ok {
		t.Fatalf("violation criteria field missing")
	}
	if len(items) == 0 {
		t.Errorf("expected violation criteria")
	}
	format := doc.OutputFormat()
	if format == nil || !format.ConfidenceRequired {
		t.Errorf("output format = %+v", format)
	}
}

func TestInitialPolicyRejectsEmptyIntent(t *testing.T) {
	gen, _ := NewGenerator(ScriptedClient{})
	if _, err := gen.InitialPolicy(context.Background(), "   "); err == nil {
		t.Fatalf("expected error for empty intent")
	}
}

func TestDerivedPoliciesUsesBothPrompts(t *testing.T) {
	gen, _ := NewGenerator(ScriptedClient{})
	machine, err := gen.InitialPolicy(context.Background(), "intent")
	if err != nil {
		t.Fatalf("InitialPolicy: %v", err)
	}
	public, moderator, err := gen.DerivedPolicies(context.Background(), machine)
	if err != nil {
		t.Fatalf("DerivedPolicies: %v", err)
	}
	if public.Variant() != policy.VariantPublic || moderator.Variant() != policy.VariantModerator {
		t.Fatalf("variants = %v, %v", public.Variant(), moderator.Variant())
	}
	if moderator.Severity() != "high" {
		t.Errorf("severity = %q", moderator.Severity())
	}
	if prose, ok := public.Prose(policy.FieldSummary); !ok || prose == "" {
		t.Errorf("public summary = %q, present %v", prose, ok)
	}
}

func TestDerivedPoliciesRejectsEmptyMachine(t *testing.T) {
	gen, _ := NewGenerator(ScriptedClient{})
	if _, _, err := gen.DerivedPolicies(context.Background(), policy.Document{}); err == nil {
		t.Fatalf("expected error for empty machine policy")
	}
}

func TestCompleteDocumentSurfacesLLMError(t *testing.T) {
	llm := &promptLLM{err: errors.New("model unavailable")}
	gen, _ := NewGenerator(llm)
	_, err := gen.InitialPolicy(context.Background(), "intent")
	if err == nil || !strings.Contains(err.Error(), "model unavailable") {
		t.Fatalf("err = %v", err)
	}
}

func TestExtractJSONStripsCodeFence(t *testing.T) {
	raw := "Here is the policy:\n```json\n{\"name\": \"P\"}\n```\nDone."
	data, err := extractJSON(raw)
	if err != nil {
		t.Fatalf("extractJSON: %v", err)
	}
	if string(data) != `{"name": "P"}` {
		t.Errorf("data = %s", data)
	}
}

func TestExtractJSONFindsBareObject(t *testing.T) {
	data, err := extractJSON("Sure! {\"name\": \"P\"} hope that helps")
	if err != nil {
		t.Fatalf("extractJSON: %v", err)
	}
	if string(data) != `{"name": "P"}` {
		t.Errorf("data = %s", data)
	}
}

func TestExtractJSONRejectsProse(t *testing.T) {
	if _, err := extractJSON("I cannot produce that policy."); err == nil {
		t.Fatalf("expected error for prose completion")
	}
	if _, err := extractJSON("{\"name\": "); err == nil {
		t.Fatalf("expected error for truncated JSON")
	}
}

func TestRefineRequiresReviewedExamples(t *testing.T) {
	gen, _ := NewGenerator(ScriptedClient{})
	machine, _ := gen.InitialPolicy(context.Background(), "intent")
	if _, err := gen.Refine(context.Background(), machine, nil); err == nil {
		t.Fatalf("expected error for missing reviewed examples")
	}
}

func TestRefineSendsMachineAndLabels(t *testing.T) {
	llm := &promptLLM{completion: scriptedMachinePolicy}
	gen, _ := NewGenerator(llm)
	machine, err := policy.Decode(policy.VariantMachine, []byte(scriptedMachinePolicy))
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	reviewed := []policy.ExampleRecord{{Text: "spam spam", Label: policy.LabelViolation}}
	if _, err := gen.Refine(context.Background(), machine, reviewed); err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if len(llm.prompts) != 1 || llm.prompts[0].Task != TaskRefinePolicy {
		t.Fatalf("prompts = %+v", llm.prompts)
	}
	user := llm.prompts[0].User
	if !strings.Contains(user, "spam spam") || !strings.Contains(user, "Scripted Harassment Policy") {
		t.Errorf("refine prompt missing inputs:\n%s", user)
	}
}

func TestExamplesParsesAndFiltersBlanks(t *testing.T) {
	llm := &promptLLM{completion: `{"examples": [
		{"text": "insult aimed at a user", "label": "violation"},
		{"text": "   ", "label": "violation"},
		{"text": "mild teasing between friends"}
	]}`}
	gen, _ := NewGenerator(llm)
	machine, _ := policy.Decode(policy.VariantMachine, []byte(scriptedMachinePolicy))
	examples, err := gen.Examples(context.Background(), machine)
	if err != nil {
		t.Fatalf("Examples: %v", err)
	}
	if len(examples) != 2 {
		t.Fatalf("examples = %d, want 2 after filtering", len(examples))
	}
	if examples[1].Label != "" {
		t.Errorf("missing label should stay empty at this layer, got %q", examples[1].Label)
	}
}

func TestExamplesRejectsMissingList(t *testing.T) {
	llm := &promptLLM{completion: `{"items": []}`}
	gen, _ := NewGenerator(llm)
	machine, _ := policy.Decode(policy.VariantMachine, []byte(scriptedMachinePolicy))
	if _, err := gen.Examples(context.Background(), machine); err == nil {
		t.Fatalf("expected error when examples list is absent")
	}
}
