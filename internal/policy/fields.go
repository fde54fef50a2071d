// Package policy models the three moderation policy document variants and
// the synthetic example sets reviewed against the machine variant. Documents
// are immutable value objects: every edit returns a new value, so the public,
// moderator, and machine documents can never alias each other's state.
package policy

import "fmt"

// Variant identifies which of the three policy documents a value belongs to.
type Variant string

const (
	VariantPublic    Variant = "public"
	VariantModerator Variant = "moderator"
	VariantMachine   Variant = "machine"
)

// Valid reports whether the variant is one of the three known kinds.
func (v Variant) Valid() bool {
	switch v {
	case VariantPublic, VariantModerator, VariantMachine:
		return true
	}
	return false
}

// String returns the wire name of the variant.
func (v Variant) String() string { return string(v) }

// FieldKind distinguishes how a field is edited and rendered.
type FieldKind int

const (
	// KindProse fields hold opaque formatted text edited as a whole.
	KindProse FieldKind = iota
	// KindList fields hold an ordered sequence of short items edited per-item.
	KindList
)

// FieldKey names a content field. The canonical table below is the single
// authority on each key's kind and the variants it is meaningful for; field
// identity is fixed and external to any document instance.
type FieldKey string

const (
	FieldSummary              FieldKey = "summary"
	FieldRationale            FieldKey = "rationale"
	FieldScope                FieldKey = "scope"
	FieldDescription          FieldKey = "description"
	FieldViolationExamples    FieldKey = "violation_examples"
	FieldNonViolationExamples FieldKey = "non_violation_examples"
	FieldFAQ                  FieldKey = "faq"
	FieldEdgeCaseNotes        FieldKey = "edge_case_notes"
	FieldEnforcementGuidance  FieldKey = "enforcement_guidance"
	FieldViolationCriteria    FieldKey = "violation_criteria"
	FieldEdgeCaseGuidance     FieldKey = "edge_case_guidance"
)

// FieldSpec describes one entry of the canonical field table.
type FieldSpec struct {
	Key      FieldKey
	Kind     FieldKind
	Title    string
	Variants []Variant
}

// AppliesTo reports whether the field is meaningful for the given variant.
func (s FieldSpec) AppliesTo(v Variant) bool {
	for _, candidate := range s.Variants {
		if candidate == v {
			return true
		}
	}
	return false
}

// fieldTable is the canonical field order used for rendering and iteration.
var fieldTable = []FieldSpec{
	{Key: FieldSummary, Kind: KindProse, Title: "Summary", Variants: []Variant{VariantPublic}},
	{Key: FieldDescription, Kind: KindProse, Title: "Description", Variants: []Variant{VariantModerator, VariantMachine}},
	{Key: FieldRationale, Kind: KindProse, Title: "Rationale", Variants: []Variant{VariantPublic, VariantModerator}},
	{Key: FieldScope, Kind: KindProse, Title: "Scope", Variants: []Variant{VariantPublic, VariantModerator, VariantMachine}},
	{Key: FieldViolationCriteria, Kind: KindList, Title: "Violation criteria", Variants: []Variant{VariantMachine}},
	{Key: FieldViolationExamples, Kind: KindList, Title: "Violation examples", Variants: []Variant{VariantPublic, VariantModerator}},
	{Key: FieldNonViolationExamples, Kind: KindList, Title: "Non-violation examples", Variants: []Variant{VariantPublic, VariantModerator, VariantMachine}},
	{Key: FieldEdgeCaseGuidance, Kind: KindList, Title: "Edge case guidance", Variants: []Variant{VariantMachine}},
	{Key: FieldEdgeCaseNotes, Kind: KindList, Title: "Edge case notes", Variants: []Variant{VariantModerator}},
	{Key: FieldEnforcementGuidance, Kind: KindList, Title: "Enforcement guidance", Variants: []Variant{VariantModerator}},
	{Key: FieldFAQ, Kind: KindList, Title: "FAQ", Variants: []Variant{VariantPublic}},
}

// Fields returns the canonical field specs for a variant, in table order.
func Fields(v Variant) []FieldSpec {
	specs := make([]FieldSpec, 0, len(fieldTable))
	for _, spec := range fieldTable {
		if spec.AppliesTo(v) {
			specs = append(specs, spec)
		}
	}
	return specs
}

// Lookup resolves a field key against the canonical table.
func Lookup(key FieldKey) (FieldSpec, bool) {
	for _, spec := range fieldTable {
		if spec.Key == key {
			return spec, true
		}
	}
	return FieldSpec{}, false
}

// Title returns the display title for a field key, falling back to the raw
// key when the table does not know it.
func Title(key FieldKey) string {
	if spec, ok := Lookup(key); ok {
		return spec.Title
	}
	return string(key)
}

func lookupFor(v Variant, key FieldKey) (FieldSpec, error) {
	spec, ok := Lookup(key)
	if !ok {
		return FieldSpec{}, fmt.Errorf("policy: %w: %s", ErrUnknownField, key)
	}
	if !spec.AppliesTo(v) {
		return FieldSpec{}, fmt.Errorf("policy: %w: %s is not a %s field", ErrUnknownField, key, v)
	}
	return spec, nil
}
