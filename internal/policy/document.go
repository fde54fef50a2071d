package policy

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for document edit contract violations.
var (
	ErrUnknownField  = errors.New("unknown field")
	ErrKindMismatch  = errors.New("field kind mismatch")
	ErrIndexRange    = errors.New("index out of range")
	ErrLastItem      = errors.New("cannot remove the last item")
	ErrMissingName   = errors.New("document name is required")
	ErrUnknownLabel  = errors.New("unknown example label")
	ErrNoSuchVariant = errors.New("unknown policy variant")
)

// OutputFormat is the machine variant's structured classification hint. The
// orchestrator passes it through untouched; only the backend interprets it.
type OutputFormat struct {
	Type               string   `json:"type"`
	Labels             []string `json:"labels"`
	ConfidenceRequired bool     `json:"confidence_required"`
}

func (f *OutputFormat) clone() *OutputFormat {
	if f == nil {
		return nil
	}
	out := OutputFormat{Type: f.Type, ConfidenceRequired: f.ConfidenceRequired}
	if len(f.Labels) > 0 {
		out.Labels = append([]string{}, f.Labels...)
	}
	return &out
}

// Document is one policy document. The variant tag decides which canonical
// fields are meaningful; a field that is absent is simply not rendered or
// edited; absence is a valid state, not an error.
type Document struct {
	variant  Variant
	name     string
	prose    map[FieldKey]string
	items    map[FieldKey][]string
	output   *OutputFormat // machine only, opaque passthrough
	severity string        // moderator only, opaque passthrough
}

// New creates an empty document for the variant. The name is immutable for
// the rest of the session.
func New(variant Variant, name string) (Document, error) {
	if !variant.Valid() {
		return Document{}, fmt.Errorf("policy: %w: %s", ErrNoSuchVariant, variant)
	}
	if strings.TrimSpace(name) == "" {
		return Document{}, fmt.Errorf("policy: %w", ErrMissingName)
	}
	return Document{variant: variant, name: name}, nil
}

// Variant returns the document's variant tag.
func (d Document) Variant() Variant { return d.variant }

// Name returns the immutable document name.
func (d Document) Name() string { return d.name }

// Empty reports whether the document is the zero value (never generated).
func (d Document) Empty() bool { return d.variant == "" }

// Prose returns a prose field's text. The second result is false when the
// field is absent from this document.
func (d Document) Prose(key FieldKey) (string, bool) {
	text, ok := d.prose[key]
	return text, ok
}

// Items returns a copy of a list field's items. The second result is false
// when the field is absent from this document.
func (d Document) Items(key FieldKey) ([]string, bool) {
	items, ok := d.items[key]
	if !ok {
		return nil, false
	}
	return append([]string{}, items...), true
}

// OutputFormat returns a copy of the machine classification hint, or nil.
func (d Document) OutputFormat() *OutputFormat { return d.output.clone() }

// Severity returns the moderator severity passthrough ("" when absent).
func (d Document) Severity() string { return d.severity }

func (d Document) clone() Document {
	out := Document{variant: d.variant, name: d.name, severity: d.severity, output: d.output.clone()}
	if len(d.prose) > 0 {
		out.prose = make(map[FieldKey]string, len(d.prose))
		for key, text := range d.prose {
			out.prose[key] = text
		}
	}
	if len(d.items) > 0 {
		out.items = make(map[FieldKey][]string, len(d.items))
		for key, items := range d.items {
			out.items[key] = append([]string{}, items...)
		}
	}
	return out
}

// UpdateProse replaces a prose field wholesale and returns the new document.
// Unknown keys, keys outside this variant, and list-kinded keys are rejected.
func (d Document) UpdateProse(key FieldKey, text string) (Document, error) {
	spec, err := lookupFor(d.variant, key)
	if err != nil {
		return Document{}, err
	}
	if spec.Kind != KindProse {
		return Document{}, fmt.Errorf("policy: %w: %s holds a list", ErrKindMismatch, key)
	}
	out := d.clone()
	if out.prose == nil {
		out.prose = map[FieldKey]string{}
	}
	out.prose[key] = text
	return out, nil
}

// UpdateItems replaces a list field wholesale and returns the new document.
// A list keeps at least one item, so an empty replacement is rejected just
// like removing the sole remaining item.
func (d Document) UpdateItems(key FieldKey, items []string) (Document, error) {
	spec, err := lookupFor(d.variant, key)
	if err != nil {
		return Document{}, err
	}
	if spec.Kind != KindList {
		return Document{}, fmt.Errorf("policy: %w: %s holds prose", ErrKindMismatch, key)
	}
	if len(items) == 0 {
		return Document{}, fmt.Errorf("policy: %w: %s cannot be replaced with an empty list", ErrLastItem, key)
	}
	out := d.clone()
	if out.items == nil {
		out.items = map[FieldKey][]string{}
	}
	out.items[key] = append([]string{}, items...)
	return out, nil
}

// ReplaceItem replaces one item of a list field.
func (d Document) ReplaceItem(key FieldKey, index int, text string) (Document, error) {
	items, err := d.listFor(key)
	if err != nil {
		return Document{}, err
	}
	if index < 0 || index >= len(items) {
		return Document{}, fmt.Errorf("policy: %w: %s[%d]", ErrIndexRange, key, index)
	}
	out := d.clone()
	out.items[key][index] = text
	return out, nil
}

// AppendItem appends a (possibly empty) item to a list field.
func (d Document) AppendItem(key FieldKey, text string) (Document, error) {
	if _, err := d.listFor(key); err != nil {
		return Document{}, err
	}
	out := d.clone()
	out.items[key] = append(out.items[key], text)
	return out, nil
}

// RemoveItem drops one item from a list field. A list keeps at least one
// item; removing the sole remaining item is rejected so that API misuse
// cannot empty a list the UI still renders.
func (d Document) RemoveItem(key FieldKey, index int) (Document, error) {
	items, err := d.listFor(key)
	if err != nil {
		return Document{}, err
	}
	if index < 0 || index >= len(items) {
		return Document{}, fmt.Errorf("policy: %w: %s[%d]", ErrIndexRange, key, index)
	}
	if len(items) == 1 {
		return Document{}, fmt.Errorf("policy: %w: %s", ErrLastItem, key)
	}
	out := d.clone()
	out.items[key] = append(out.items[key][:index], out.items[key][index+1:]...)
	return out, nil
}

func (d Document) listFor(key FieldKey) ([]string, error) {
	spec, err := lookupFor(d.variant, key)
	if err != nil {
		return nil, err
	}
	if spec.Kind != KindList {
		return nil, fmt.Errorf("policy: %w: %s holds prose", ErrKindMismatch, key)
	}
	items, ok := d.items[key]
	if !ok {
		return nil, fmt.Errorf("policy: %w: %s is not set", ErrUnknownField, key)
	}
	return items, nil
}

// wireDocument is the flat JSON object the generation backend exchanges.
type wireDocument struct {
	Name                 string        `json:"name"`
	Summary              string        `json:"summary,omitempty"`
	Description          string        `json:"description,omitempty"`
	Rationale            string        `json:"rationale,omitempty"`
	Scope                string        `json:"scope,omitempty"`
	ViolationCriteria    []string      `json:"violation_criteria,omitempty"`
	ViolationExamples    []string      `json:"violation_examples,omitempty"`
	NonViolationExamples []string      `json:"non_violation_examples,omitempty"`
	EdgeCaseGuidance     []string      `json:"edge_case_guidance,omitempty"`
	EdgeCaseNotes        []string      `json:"edge_case_notes,omitempty"`
	EnforcementGuidance  []string      `json:"enforcement_guidance,omitempty"`
	FAQ                  []string      `json:"faq,omitempty"`
	Severity             string        `json:"severity,omitempty"`
	OutputFormat         *OutputFormat `json:"output_format,omitempty"`
}

func (w *wireDocument) proseFor(key FieldKey) string {
	switch key {
	case FieldSummary:
		return w.Summary
	case FieldDescription:
		return w.Description
	case FieldRationale:
		return w.Rationale
	case FieldScope:
		return w.Scope
	}
	return ""
}

func (w *wireDocument) itemsFor(key FieldKey) []string {
	switch key {
	case FieldViolationCriteria:
		return w.ViolationCriteria
	case FieldViolationExamples:
		return w.ViolationExamples
	case FieldNonViolationExamples:
		return w.NonViolationExamples
	case FieldEdgeCaseGuidance:
		return w.EdgeCaseGuidance
	case FieldEdgeCaseNotes:
		return w.EdgeCaseNotes
	case FieldEnforcementGuidance:
		return w.EnforcementGuidance
	case FieldFAQ:
		return w.FAQ
	}
	return nil
}

func (w *wireDocument) setProse(key FieldKey, text string) {
	switch key {
	case FieldSummary:
		w.Summary = text
	case FieldDescription:
		w.Description = text
	case FieldRationale:
		w.Rationale = text
	case FieldScope:
		w.Scope = text
	}
}

func (w *wireDocument) setItems(key FieldKey, items []string) {
	switch key {
	case FieldViolationCriteria:
		w.ViolationCriteria = items
	case FieldViolationExamples:
		w.ViolationExamples = items
	case FieldNonViolationExamples:
		w.NonViolationExamples = items
	case FieldEdgeCaseGuidance:
		w.EdgeCaseGuidance = items
	case FieldEdgeCaseNotes:
		w.EdgeCaseNotes = items
	case FieldEnforcementGuidance:
		w.EnforcementGuidance = items
	case FieldFAQ:
		w.FAQ = items
	}
}

// MarshalJSON renders the document as the flat backend wire object.
func (d Document) MarshalJSON() ([]byte, error) {
	wire := wireDocument{Name: d.name, Severity: d.severity, OutputFormat: d.output}
	for key, text := range d.prose {
		wire.setProse(key, text)
	}
	for key, items := range d.items {
		wire.setItems(key, items)
	}
	return json.Marshal(wire)
}

// Decode builds a document of the given variant from backend wire JSON.
// Fields outside the variant's canonical subset are ignored; absent fields
// stay absent.
func Decode(variant Variant, data []byte) (Document, error) {
	var wire wireDocument
	if err := json.Unmarshal(data, &wire); err != nil {
		return Document{}, fmt.Errorf("policy: decode %s document: %w", variant, err)
	}
	doc, err := New(variant, wire.Name)
	if err != nil {
		return Document{}, err
	}
	for _, spec := range Fields(variant) {
		switch spec.Kind {
		case KindProse:
			if text := wire.proseFor(spec.Key); text != "" {
				if doc.prose == nil {
					doc.prose = map[FieldKey]string{}
				}
				doc.prose[spec.Key] = text
			}
		case KindList:
			if items := wire.itemsFor(spec.Key); len(items) > 0 {
				if doc.items == nil {
					doc.items = map[FieldKey][]string{}
				}
				doc.items[spec.Key] = append([]string{}, items...)
			}
		}
	}
	if variant == VariantMachine {
		doc.output = wire.OutputFormat.clone()
	}
	if variant == VariantModerator {
		doc.severity = wire.Severity
	}
	return doc, nil
}
