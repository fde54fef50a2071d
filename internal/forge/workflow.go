// Package forge implements the workflow orchestrator: the single stateful
// controller that sequences intent submission, policy generation, example
// labeling, refinement, derived-document generation, and export, while
// keeping the three policy document variants consistent as the user edits
// individual fields in place.
package forge

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/policyforge/policyforge/internal/generation"
	"github.com/policyforge/policyforge/internal/logbook"
	"github.com/policyforge/policyforge/internal/policy"
)

// Contract errors. Both are defensive: they report a caller precondition
// violation without mutating any workflow state.
var (
	// ErrBusy rejects an action while another backend call is in flight.
	// Presentation gating is the first net; this guard is the second.
	ErrBusy = fmt.Errorf("forge: another generation call is in flight")
	// ErrStateViolation reports an action or edit invoked before its
	// precondition holds (wrong stage, document not yet generated).
	ErrStateViolation = fmt.Errorf("forge: action precondition not met")
)

// errSlot selects which stage-scoped error field a transition writes.
// Refinement keeps its own slot because the labeling stage and the main
// pipeline can fail independently while the user retries either.
type errSlot int

const (
	slotMain errSlot = iota
	slotRefine
)

// Workflow owns the full orchestrator state. Exactly one instance exists per
// session; presentation components hold a reference, read Snapshot, and
// invoke the action methods; no other mutator exists.
//
// A backend response always replaces the relevant document or set wholesale.
// A field edit made while the corresponding call is in flight is therefore
// discarded when the response lands; this mirrors the source system's
// behavior and is intentional.
type Workflow struct {
	client    generation.Client
	book      *logbook.Logbook
	sessionID string

	mu        sync.Mutex
	stage     Stage
	intent    generation.EnrichedIntent
	machine   policy.Document
	public    policy.Document
	moderator policy.Document
	examples  policy.ExampleSet
	loading   bool
	lastErr   string
	refineErr string
}

// Option customizes workflow construction.
type Option func(*Workflow)

// WithLogbook attaches a session logbook.
func WithLogbook(book *logbook.Logbook) Option {
	return func(w *Workflow) { w.book = book }
}

// New constructs the workflow orchestrator. The generation client is a
// constructor-time invariant, not a runtime lookup.
func New(client generation.Client, opts ...Option) (*Workflow, error) {
	if client == nil {
		return nil, fmt.Errorf("forge: generation client is required")
	}
	w := &Workflow{
		client:    client,
		sessionID: uuid.NewString(),
		stage:     StageDefineIntent,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w, nil
}

// SessionID identifies this workflow session in logs and artifacts.
func (w *Workflow) SessionID() string { return w.sessionID }

// State is a read-only view of the workflow for presentation components.
type State struct {
	Stage     Stage
	SessionID string
	Loading   bool
	LastErr   string
	RefineErr string
	Intent    generation.EnrichedIntent
	Machine   policy.Document
	Public    policy.Document
	Moderator policy.Document
	Examples  policy.ExampleSet
}

// Snapshot returns the current workflow state. Documents are immutable
// values, so the snapshot stays coherent however long the caller holds it.
func (w *Workflow) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return State{
		Stage:     w.stage,
		SessionID: w.sessionID,
		Loading:   w.loading,
		LastErr:   w.lastErr,
		RefineErr: w.refineErr,
		Intent:    w.intent,
		Machine:   w.machine,
		Public:    w.public,
		Moderator: w.moderator,
		Examples:  w.examples,
	}
}

// IntentInput carries the intent form fields before submission. Everything
// except AdditionalContext is required.
type IntentInput struct {
	PlatformType      string
	Industry          string
	UserBehavior      string
	RealWorldConcerns string
	ModerationStyle   string
	AdditionalContext string
}

// ValidationError lists missing required intent fields. It is caught at the
// form boundary and never stored as workflow error state.
type ValidationError struct {
	Missing []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("forge: missing required intent fields: %s", strings.Join(e.Missing, ", "))
}

// Validate checks the required form fields.
func (in IntentInput) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"platform type", in.PlatformType},
		{"industry", in.Industry},
		{"user behavior", in.UserBehavior},
		{"real-world concerns", in.RealWorldConcerns},
		{"moderation style", in.ModerationStyle},
	}
	var missing []string
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			missing = append(missing, field.name)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Missing: missing}
	}
	return nil
}

func (in IntentInput) request() generation.IntentRequest {
	return generation.IntentRequest{
		PlatformType:      in.PlatformType,
		Industry:          in.Industry,
		UserBehavior:      in.UserBehavior,
		RealWorldConcerns: in.RealWorldConcerns,
		ModerationStyle:   in.ModerationStyle,
		AdditionalContext: in.AdditionalContext,
	}
}

// SubmitIntent runs the stage 0 transition: enrich the intent, generate the
// first machine policy, advance to review.
func (w *Workflow) SubmitIntent(ctx context.Context, input IntentInput) (err error) {
	if err := input.Validate(); err != nil {
		return err
	}
	if err := w.begin(StageDefineIntent, slotMain, "submit intent"); err != nil {
		return err
	}
	var enriched generation.EnrichedIntent
	var machine policy.Document
	defer w.settle(slotMain, &err, func() {
		w.intent = enriched
		w.machine = machine
		w.advanceLocked(StageReviewMachine)
	})
	enriched, err = w.client.SubmitIntent(ctx, input.request())
	if err != nil {
		return err
	}
	machine, err = w.client.GenerateInitialPolicy(ctx, enriched)
	return err
}

// GenerateExamples runs the stage 1 transition. The new set replaces any
// prior set entirely.
func (w *Workflow) GenerateExamples(ctx context.Context) (err error) {
	if err := w.begin(StageReviewMachine, slotMain, "generate examples"); err != nil {
		return err
	}
	machine := w.machineSnapshot()
	var set policy.ExampleSet
	defer w.settle(slotMain, &err, func() {
		w.examples = set
		w.advanceLocked(StageLabelExamples)
	})
	set, err = w.client.GenerateExamples(ctx, machine)
	return err
}

// RefinePolicy runs the stage 2 transition: send the machine policy and the
// reviewed examples, replace the machine policy with the refined version.
// Failures land in the refine-scoped error field.
func (w *Workflow) RefinePolicy(ctx context.Context) (err error) {
	if err := w.begin(StageLabelExamples, slotRefine, "refine policy"); err != nil {
		return err
	}
	w.mu.Lock()
	machine := w.machine
	reviewed := w.examples
	w.mu.Unlock()
	var refined policy.Document
	defer w.settle(slotRefine, &err, func() {
		w.machine = refined
		w.advanceLocked(StageReviewRefined)
	})
	refined, err = w.client.RefinePolicy(ctx, machine, reviewed)
	return err
}

// GenerateDerivedPolicies runs the stage 3 transition: compute the public
// and moderator documents from the refined machine policy.
func (w *Workflow) GenerateDerivedPolicies(ctx context.Context) (err error) {
	if err := w.begin(StageReviewRefined, slotMain, "generate derived policies"); err != nil {
		return err
	}
	machine := w.machineSnapshot()
	var derived generation.DerivedPolicies
	defer w.settle(slotMain, &err, func() {
		w.public = derived.Public
		w.moderator = derived.Moderator
		w.advanceLocked(StageReviewDerived)
	})
	derived, err = w.client.GenerateDerivedPolicies(ctx, machine)
	return err
}

// Advance moves from the final review stage to download. It is the only
// transition without a backend dependency and cannot fail once its
// precondition holds.
func (w *Workflow) Advance() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.loading {
		return ErrBusy
	}
	if w.stage != StageReviewDerived {
		return fmt.Errorf("%w: advance requires stage %s, currently %s", ErrStateViolation, StageReviewDerived, w.stage)
	}
	w.advanceLocked(StageDownload)
	return nil
}

// UpdateProse edits one prose field of a generated document in place. Edits
// are synchronous and never change the stage.
func (w *Workflow) UpdateProse(variant policy.Variant, key policy.FieldKey, text string) error {
	return w.edit(variant, func(doc policy.Document) (policy.Document, error) {
		return doc.UpdateProse(key, text)
	})
}

// ReplaceItem edits one item of a list field.
func (w *Workflow) ReplaceItem(variant policy.Variant, key policy.FieldKey, index int, text string) error {
	return w.edit(variant, func(doc policy.Document) (policy.Document, error) {
		return doc.ReplaceItem(key, index, text)
	})
}

// AppendItem appends a new (possibly empty) item to a list field.
func (w *Workflow) AppendItem(variant policy.Variant, key policy.FieldKey, text string) error {
	return w.edit(variant, func(doc policy.Document) (policy.Document, error) {
		return doc.AppendItem(key, text)
	})
}

// RemoveItem removes one item from a list field; the model rejects removing
// the last remaining item.
func (w *Workflow) RemoveItem(variant policy.Variant, key policy.FieldKey, index int) error {
	return w.edit(variant, func(doc policy.Document) (policy.Document, error) {
		return doc.RemoveItem(key, index)
	})
}

// Relabel reclassifies one synthetic example. Valid only once the example
// set exists.
func (w *Workflow) Relabel(index int, label policy.Label) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.examples.Empty() {
		return fmt.Errorf("%w: no example set has been generated", ErrStateViolation)
	}
	relabeled, err := w.examples.Relabel(index, label)
	if err != nil {
		return err
	}
	w.examples = relabeled
	return nil
}

// Documents returns the three final documents once all of them exist.
func (w *Workflow) Documents() (public, moderator, machine policy.Document, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.public.Empty() || w.moderator.Empty() || w.machine.Empty() {
		return policy.Document{}, policy.Document{}, policy.Document{}, fmt.Errorf("%w: all three documents must be generated before export", ErrStateViolation)
	}
	return w.public, w.moderator, w.machine, nil
}

func (w *Workflow) edit(variant policy.Variant, apply func(policy.Document) (policy.Document, error)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	target := w.documentRef(variant)
	if target == nil {
		return fmt.Errorf("%w: unknown variant %s", ErrStateViolation, variant)
	}
	if target.Empty() {
		return fmt.Errorf("%w: %s policy has not been generated", ErrStateViolation, variant)
	}
	updated, err := apply(*target)
	if err != nil {
		return err
	}
	*target = updated
	return nil
}

func (w *Workflow) documentRef(variant policy.Variant) *policy.Document {
	switch variant {
	case policy.VariantMachine:
		return &w.machine
	case policy.VariantPublic:
		return &w.public
	case policy.VariantModerator:
		return &w.moderator
	}
	return nil
}

func (w *Workflow) machineSnapshot() policy.Document {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.machine
}

// begin acquires the loading flag for one transition, clearing that
// transition's error slot. It rejects re-entry while a call is outstanding
// and any invocation outside the required stage.
func (w *Workflow) begin(required Stage, slot errSlot, action string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.loading {
		return ErrBusy
	}
	if w.stage != required {
		return fmt.Errorf("%w: %s requires stage %s, currently %s", ErrStateViolation, action, required, w.stage)
	}
	w.loading = true
	w.setErrLocked(slot, "")
	w.book.Info("action started: %s", action)
	return nil
}

// settle releases the loading flag on every outcome. On success it applies
// the state replacement; on failure it records the stage-scoped error and
// leaves all previously generated state untouched. A panic in the underlying
// call still clears the flag before propagating.
func (w *Workflow) settle(slot errSlot, errp *error, apply func()) {
	recovered := recover()
	w.mu.Lock()
	w.loading = false
	switch {
	case recovered != nil:
		w.setErrLocked(slot, fmt.Sprintf("unexpected failure: %v", recovered))
		w.book.Error("action panicked: %v", recovered)
	case *errp != nil:
		w.setErrLocked(slot, (*errp).Error())
		w.book.Error("action failed: %v", *errp)
	default:
		apply()
	}
	w.mu.Unlock()
	if recovered != nil {
		panic(recovered)
	}
}

func (w *Workflow) setErrLocked(slot errSlot, message string) {
	if slot == slotRefine {
		w.refineErr = message
		return
	}
	w.lastErr = message
}

// advanceLocked moves the stage forward by one step. Callers hold the mutex.
func (w *Workflow) advanceLocked(to Stage) {
	if to <= w.stage {
		return
	}
	w.book.Stage(w.stage.String(), to.String())
	w.stage = to
}
