package tui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/policyforge/policyforge/internal/artifact"
	"github.com/policyforge/policyforge/internal/forge"
	"github.com/policyforge/policyforge/internal/generation"
	"github.com/policyforge/policyforge/internal/policy"
)

// fakeClient walks the happy path with fixed documents.
type fakeClient struct{}

func (fakeClient) SubmitIntent(context.Context, generation.IntentRequest) (generation.EnrichedIntent, error) {
	return generation.EnrichedIntent{Intent: "enriched"}, nil
}

func (fakeClient) GenerateInitialPolicy(context.Context, generation.EnrichedIntent) (policy.Document, error) {
	return testMachineDoc(), nil
}

func (fakeClient) GenerateExamples(context.Context, policy.Document) (policy.ExampleSet, error) {
	return policy.FromGenerated([]policy.GeneratedExample{
		{Text: "first", Label: "violation"},
		{Text: "second", Label: "borderline"},
	}), nil
}

func (fakeClient) RefinePolicy(context.Context, policy.Document, policy.ExampleSet) (policy.Document, error) {
	return testMachineDoc(), nil
}

func (fakeClient) GenerateDerivedPolicies(context.Context, policy.Document) (generation.DerivedPolicies, error) {
	public, err := policy.Decode(policy.VariantPublic, []byte(`{"name": "Test Policy", "summary": "be nice"}`))
	if err != nil {
		return generation.DerivedPolicies{}, err
	}
	moderator, err := policy.Decode(policy.VariantModerator, []byte(`{"name": "Test Policy", "description": "guidance", "severity": "low"}`))
	if err != nil {
		return generation.DerivedPolicies{}, err
	}
	return generation.DerivedPolicies{Public: public, Moderator: moderator}, nil
}

func testMachineDoc() policy.Document {
	doc, err := policy.Decode(policy.VariantMachine, []byte(`{
		"name": "Test Policy",
		"description": "detects bad content",
		"scope": "all posts",
		"violation_criteria": ["rule one", "rule two"],
		"non_violation_examples": ["fine content"],
		"edge_case_guidance": ["ask a human"]
	}`))
	if err != nil {
		panic(err)
	}
	return doc
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	app, err := NewApp(t.TempDir(), WithClient(fakeClient{}))
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	return app
}

// drain executes a command tree and feeds every resulting message back into
// the app, skipping spinner ticks.
func drain(t *testing.T, app *App, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		return
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, sub := range batch {
			drain(t, app, sub)
		}
		return
	}
	if msg == nil {
		return
	}
	if _, ok := msg.(spinner.TickMsg); ok {
		return
	}
	_, next := app.Update(msg)
	drain(t, app, next)
}

func key(s string) tea.KeyMsg {
	switch s {
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func press(t *testing.T, app *App, keys ...string) {
	t.Helper()
	for _, k := range keys {
		_, cmd := app.Update(key(k))
		drain(t, app, cmd)
	}
}

func typeText(t *testing.T, app *App, text string) {
	t.Helper()
	press(t, app, text)
}

func fillIntentForm(t *testing.T, app *App) {
	t.Helper()
	for _, value := range []string{"forum", "gaming", "harassment", "safety", "strict"} {
		typeText(t, app, value)
		press(t, app, "tab")
	}
}

func TestNewAppInitializesProject(t *testing.T) {
	dir := t.TempDir()
	app, err := NewApp(dir, WithClient(fakeClient{}))
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	if got := app.Workflow().Snapshot().Stage; got != forge.StageDefineIntent {
		t.Errorf("initial stage = %v", got)
	}
	if _, err := os.Stat(filepath.Join(dir, ".forge", "logs")); err != nil {
		t.Errorf("forge dir not initialized: %v", err)
	}
}

func TestIntentFormSubmitAdvancesToReview(t *testing.T) {
	app := newTestApp(t)
	fillIntentForm(t, app)
	press(t, app, "ctrl+s")
	state := app.Workflow().Snapshot()
	if state.Stage != forge.StageReviewMachine {
		t.Fatalf("stage = %v, last err %q", state.Stage, state.LastErr)
	}
	view := app.View()
	if !strings.Contains(view, "Test Policy") {
		t.Errorf("view should show the generated policy name:\n%s", view)
	}
}

func TestIncompleteFormStaysOnIntentStage(t *testing.T) {
	app := newTestApp(t)
	typeText(t, app, "forum")
	press(t, app, "ctrl+s")
	state := app.Workflow().Snapshot()
	if state.Stage != forge.StageDefineIntent {
		t.Fatalf("stage = %v", state.Stage)
	}
	if state.LastErr != "" {
		t.Errorf("validation failure must stay out of workflow error state, got %q", state.LastErr)
	}
	if app.statusMsg == "" || !strings.Contains(app.statusMsg, "missing required") {
		t.Errorf("status = %q", app.statusMsg)
	}
}

func TestLabelKeysRelabelExamples(t *testing.T) {
	app := newTestApp(t)
	fillIntentForm(t, app)
	press(t, app, "ctrl+s", "g")
	if got := app.Workflow().Snapshot().Stage; got != forge.StageLabelExamples {
		t.Fatalf("stage = %v", got)
	}
	press(t, app, "down", "n")
	labels := app.Workflow().Snapshot().Examples.Labels()
	if labels[1] != policy.LabelNonViolation {
		t.Fatalf("labels = %v", labels)
	}
	if labels[0] != policy.LabelViolation {
		t.Errorf("unreviewed label changed: %v", labels)
	}
}

func TestFullPipelineReachesDownloadAndExports(t *testing.T) {
	app := newTestApp(t)
	fillIntentForm(t, app)
	press(t, app, "ctrl+s", "g", "r", "g", "c")
	state := app.Workflow().Snapshot()
	if state.Stage != forge.StageDownload {
		t.Fatalf("stage = %v, lastErr %q refineErr %q", state.Stage, state.LastErr, state.RefineErr)
	}
	press(t, app, "s")
	if len(app.exported) != 6 {
		t.Fatalf("exported = %v", app.exported)
	}
	for _, path := range app.exported {
		if _, err := os.Stat(path); err != nil {
			t.Errorf("missing artifact %s: %v", path, err)
		}
	}
	manifest, err := artifact.NewStore(app.config.OutputDir()).Load()
	if err != nil {
		t.Fatalf("manifest: %v", err)
	}
	if manifest.PolicyName != "Test Policy" || len(manifest.Files) != 6 {
		t.Errorf("manifest = %+v", manifest)
	}
}

func TestEditProseFieldUpdatesDocument(t *testing.T) {
	app := newTestApp(t)
	fillIntentForm(t, app)
	press(t, app, "ctrl+s")
	// Row zero is the description prose field; replace its content.
	press(t, app, "e")
	app.docView.input.SetValue("tightened description")
	press(t, app, "ctrl+s")
	state := app.Workflow().Snapshot()
	if state.Stage != forge.StageReviewMachine {
		t.Fatalf("field edit must not change the stage, got %v", state.Stage)
	}
	prose, ok := state.Machine.Prose(policy.FieldDescription)
	if !ok || prose != "tightened description" {
		t.Fatalf("description = %q (present %v)", prose, ok)
	}
}

func TestDeleteLastListItemIsRejected(t *testing.T) {
	app := newTestApp(t)
	fillIntentForm(t, app)
	press(t, app, "ctrl+s")
	// Rows for the machine fixture: description, scope, two violation
	// criteria, then the single non-violation example.
	press(t, app, "down", "down", "down", "down")
	row, ok := app.docView.selected()
	if !ok || row.key != policy.FieldNonViolationExamples {
		t.Fatalf("selected row = %+v", row)
	}
	press(t, app, "d")
	items, _ := app.Workflow().Snapshot().Machine.Items(policy.FieldNonViolationExamples)
	if len(items) != 1 {
		t.Fatalf("last item must survive deletion, items = %v", items)
	}
	if app.statusMsg == "" {
		t.Errorf("expected a status message for the rejected delete")
	}
}

func TestAppendItemGrowsList(t *testing.T) {
	app := newTestApp(t)
	fillIntentForm(t, app)
	press(t, app, "ctrl+s")
	press(t, app, "down", "down") // first violation criterion
	row, ok := app.docView.selected()
	if !ok || row.key != policy.FieldViolationCriteria {
		t.Fatalf("selected row = %+v", row)
	}
	press(t, app, "a")
	items, _ := app.Workflow().Snapshot().Machine.Items(policy.FieldViolationCriteria)
	if len(items) != 3 {
		t.Fatalf("items = %v", items)
	}
}

func TestAbsentFieldsGetNoRows(t *testing.T) {
	app := newTestApp(t)
	fillIntentForm(t, app)
	press(t, app, "ctrl+s", "g", "r", "g")
	if got := app.Workflow().Snapshot().Stage; got != forge.StageReviewDerived {
		t.Fatalf("stage = %v", got)
	}
	// The public document carries only a summary; the other public fields
	// must not show up as rows, so there is nothing dead to select or edit.
	if len(app.docView.rows) != 1 {
		t.Fatalf("rows = %+v", app.docView.rows)
	}
	if row := app.docView.rows[0]; row.key != policy.FieldSummary || row.text != "be nice" {
		t.Fatalf("row = %+v", row)
	}
	for _, title := range []string{"Rationale", "Violation examples", "FAQ"} {
		if strings.Contains(app.View(), title) {
			t.Errorf("view renders absent field %q", title)
		}
	}
}

func TestDerivedStageSwitchesVariants(t *testing.T) {
	app := newTestApp(t)
	fillIntentForm(t, app)
	press(t, app, "ctrl+s", "g", "r", "g")
	if got := app.Workflow().Snapshot().Stage; got != forge.StageReviewDerived {
		t.Fatalf("stage = %v", got)
	}
	if !strings.Contains(app.View(), "be nice") {
		t.Errorf("derived view should start on the public document")
	}
	press(t, app, "tab")
	if app.docView.doc.Variant() != policy.VariantModerator {
		t.Errorf("tab should switch to the moderator document, got %v", app.docView.doc.Variant())
	}
}
