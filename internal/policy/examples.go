package policy

import "fmt"

// Label classifies a synthetic example during review.
type Label string

const (
	LabelViolation    Label = "violation"
	LabelBorderline   Label = "borderline"
	LabelNonViolation Label = "non-violation"
)

// ParseLabel normalizes a backend-supplied label. Missing or unrecognized
// labels default to borderline so the reviewer is forced to look at them.
func ParseLabel(raw string) Label {
	switch Label(raw) {
	case LabelViolation, LabelBorderline, LabelNonViolation:
		return Label(raw)
	}
	return LabelBorderline
}

// Valid reports whether the label is one of the three review classes.
func (l Label) Valid() bool {
	switch l {
	case LabelViolation, LabelBorderline, LabelNonViolation:
		return true
	}
	return false
}

// ExampleRecord is one synthetic test case. Text is immutable once
// generated; only the label changes during review.
type ExampleRecord struct {
	Text  string `json:"text"`
	Label Label  `json:"label"`
}

// GeneratedExample is the raw backend shape before labels are defaulted.
type GeneratedExample struct {
	Text  string `json:"text"`
	Label string `json:"label,omitempty"`
}

// ExampleSet is the ordered set of synthetic examples generated against one
// machine policy revision. A new generation call replaces the whole set;
// sets are never merged, deduplicated, or reordered.
type ExampleSet struct {
	records []ExampleRecord
}

// FromGenerated builds a fresh example set, defaulting missing labels to
// borderline and preserving generation order.
func FromGenerated(raw []GeneratedExample) ExampleSet {
	records := make([]ExampleRecord, len(raw))
	for i, example := range raw {
		records[i] = ExampleRecord{Text: example.Text, Label: ParseLabel(example.Label)}
	}
	return ExampleSet{records: records}
}

// Len returns the number of examples.
func (s ExampleSet) Len() int { return len(s.records) }

// Empty reports whether the set was never generated.
func (s ExampleSet) Empty() bool { return s.records == nil }

// At returns the record at index.
func (s ExampleSet) At(index int) (ExampleRecord, error) {
	if index < 0 || index >= len(s.records) {
		return ExampleRecord{}, fmt.Errorf("policy: %w: example %d of %d", ErrIndexRange, index, len(s.records))
	}
	return s.records[index], nil
}

// Records returns a copy of all records in presentation order.
func (s ExampleSet) Records() []ExampleRecord {
	return append([]ExampleRecord{}, s.records...)
}

// Labels returns the labels in presentation order.
func (s ExampleSet) Labels() []Label {
	labels := make([]Label, len(s.records))
	for i, record := range s.records {
		labels[i] = record.Label
	}
	return labels
}

// Relabel returns a new set with exactly one record's label replaced.
func (s ExampleSet) Relabel(index int, label Label) (ExampleSet, error) {
	if index < 0 || index >= len(s.records) {
		return ExampleSet{}, fmt.Errorf("policy: %w: example %d of %d", ErrIndexRange, index, len(s.records))
	}
	if !label.Valid() {
		return ExampleSet{}, fmt.Errorf("policy: %w: %s", ErrUnknownLabel, label)
	}
	records := append([]ExampleRecord{}, s.records...)
	records[index].Label = label
	return ExampleSet{records: records}, nil
}
