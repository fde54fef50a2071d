package policy

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
)

func machineFixture(t *testing.T) Document {
	t.Helper()
	doc, err := Decode(VariantMachine, []byte(`{
		"name": "Harassment",
		"description": "Detects targeted harassment",
		"scope": "All text surfaces",
		"violation_criteria": ["threatens a named person", "dehumanizing slurs"],
		"non_violation_examples": ["heated but impersonal debate"],
		"edge_case_guidance": ["quoted abuse for reporting purposes is allowed"],
		"output_format": {"type": "classification", "labels": ["violation", "non-violation"], "confidence_required": true}
	}`))
	if err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return doc
}

func TestUpdateProseChangesOnlyTargetField(t *testing.T) {
	doc := machineFixture(t)
	updated, err := doc.UpdateProse(FieldScope, "Comments only")
	if err != nil {
		t.Fatalf("update prose: %v", err)
	}
	if scope, _ := updated.Prose(FieldScope); scope != "Comments only" {
		t.Fatalf("scope not updated, got %q", scope)
	}
	if scope, _ := doc.Prose(FieldScope); scope != "All text surfaces" {
		t.Fatalf("original document mutated, scope now %q", scope)
	}
	if desc, _ := updated.Prose(FieldDescription); desc != "Detects targeted harassment" {
		t.Fatalf("unrelated prose field changed: %q", desc)
	}
	before, _ := doc.Items(FieldViolationCriteria)
	after, _ := updated.Items(FieldViolationCriteria)
	if !reflect.DeepEqual(before, after) {
		t.Fatalf("unrelated list field changed: %v vs %v", before, after)
	}
}

func TestUpdateProseRejectsUnknownAndMismatchedKeys(t *testing.T) {
	doc := machineFixture(t)
	if _, err := doc.UpdateProse("made_up_field", "x"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
	if _, err := doc.UpdateProse(FieldViolationCriteria, "x"); !errors.Is(err, ErrKindMismatch) {
		t.Fatalf("expected ErrKindMismatch, got %v", err)
	}
	// summary is a public field; it is not meaningful on a machine document.
	if _, err := doc.UpdateProse(FieldSummary, "x"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField for cross-variant key, got %v", err)
	}
}

func TestUpdateItemsReplacesWholesaleButNeverEmpties(t *testing.T) {
	doc := machineFixture(t)
	updated, err := doc.UpdateItems(FieldViolationCriteria, []string{"single tightened rule"})
	if err != nil {
		t.Fatalf("update items: %v", err)
	}
	items, _ := updated.Items(FieldViolationCriteria)
	if !reflect.DeepEqual(items, []string{"single tightened rule"}) {
		t.Fatalf("items = %v", items)
	}
	if before, _ := doc.Items(FieldViolationCriteria); len(before) != 2 {
		t.Fatalf("original document mutated: %v", before)
	}

	if _, err := doc.UpdateItems(FieldViolationCriteria, nil); !errors.Is(err, ErrLastItem) {
		t.Fatalf("nil replacement must be rejected with ErrLastItem, got %v", err)
	}
	if _, err := doc.UpdateItems(FieldViolationCriteria, []string{}); !errors.Is(err, ErrLastItem) {
		t.Fatalf("empty replacement must be rejected with ErrLastItem, got %v", err)
	}
	if _, err := doc.UpdateItems(FieldScope, []string{"x"}); !errors.Is(err, ErrKindMismatch) {
		t.Fatalf("expected ErrKindMismatch for prose key, got %v", err)
	}
	items, _ = doc.Items(FieldViolationCriteria)
	if len(items) != 2 {
		t.Fatalf("rejected replacement touched state: %v", items)
	}
}

func TestListItemEditing(t *testing.T) {
	doc := machineFixture(t)
	doc, err := doc.ReplaceItem(FieldViolationCriteria, 1, "slurs targeting a protected class")
	if err != nil {
		t.Fatalf("replace item: %v", err)
	}
	doc, err = doc.AppendItem(FieldViolationCriteria, "")
	if err != nil {
		t.Fatalf("append item: %v", err)
	}
	items, _ := doc.Items(FieldViolationCriteria)
	want := []string{"threatens a named person", "slurs targeting a protected class", ""}
	if !reflect.DeepEqual(items, want) {
		t.Fatalf("unexpected items: %v", items)
	}
	doc, err = doc.RemoveItem(FieldViolationCriteria, 2)
	if err != nil {
		t.Fatalf("remove item: %v", err)
	}
	if items, _ = doc.Items(FieldViolationCriteria); len(items) != 2 {
		t.Fatalf("expected 2 items after removal, got %v", items)
	}
	if _, err := doc.ReplaceItem(FieldViolationCriteria, 5, "x"); !errors.Is(err, ErrIndexRange) {
		t.Fatalf("expected ErrIndexRange, got %v", err)
	}
}

func TestRemoveItemKeepsAtLeastOne(t *testing.T) {
	doc := machineFixture(t)
	if _, err := doc.RemoveItem(FieldNonViolationExamples, 0); !errors.Is(err, ErrLastItem) {
		t.Fatalf("expected ErrLastItem, got %v", err)
	}
	// The failed removal must not have touched the document.
	items, _ := doc.Items(FieldNonViolationExamples)
	if len(items) != 1 || items[0] != "heated but impersonal debate" {
		t.Fatalf("document corrupted by rejected removal: %v", items)
	}
}

func TestDecodeIgnoresFieldsOutsideVariant(t *testing.T) {
	doc, err := Decode(VariantPublic, []byte(`{
		"name": "Harassment",
		"summary": "Be kind",
		"violation_criteria": ["machine-only field"],
		"violation_examples": ["insulting a user"]
	}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := doc.Items(FieldViolationCriteria); ok {
		t.Fatalf("public document absorbed a machine-only field")
	}
	if summary, _ := doc.Prose(FieldSummary); summary != "Be kind" {
		t.Fatalf("summary lost: %q", summary)
	}
}

func TestDecodeRequiresName(t *testing.T) {
	if _, err := Decode(VariantMachine, []byte(`{"description": "no name"}`)); !errors.Is(err, ErrMissingName) {
		t.Fatalf("expected ErrMissingName, got %v", err)
	}
}

func TestMarshalRoundTripsWireShape(t *testing.T) {
	doc := machineFixture(t)
	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	again, err := Decode(VariantMachine, data)
	if err != nil {
		t.Fatalf("decode marshaled form: %v", err)
	}
	if again.Name() != doc.Name() {
		t.Fatalf("name lost in wire form")
	}
	format := again.OutputFormat()
	if format == nil || format.Type != "classification" || !format.ConfidenceRequired {
		t.Fatalf("output_format not preserved: %+v", format)
	}
	if labels := format.Labels; len(labels) != 2 || labels[0] != "violation" {
		t.Fatalf("output_format labels not preserved: %v", labels)
	}
}

func TestOutputFormatCopyIsNotAliased(t *testing.T) {
	doc := machineFixture(t)
	format := doc.OutputFormat()
	format.Labels[0] = "tampered"
	if doc.OutputFormat().Labels[0] != "violation" {
		t.Fatalf("OutputFormat exposed internal state")
	}
}
