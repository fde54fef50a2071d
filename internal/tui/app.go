// Package tui is the terminal frontend for the policy forge workflow. It
// follows the Elm architecture bubbletea imposes: one model, one Update
// dispatching messages, one View rendering the current stage.
package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/policyforge/policyforge/internal/artifact"
	"github.com/policyforge/policyforge/internal/config"
	"github.com/policyforge/policyforge/internal/export"
	"github.com/policyforge/policyforge/internal/forge"
	"github.com/policyforge/policyforge/internal/generation"
	"github.com/policyforge/policyforge/internal/logbook"
	"github.com/policyforge/policyforge/internal/policy"
)

// actionDoneMsg reports a finished workflow transition. The error is also
// recorded in the workflow's stage-scoped error slots; it rides along here so
// the status line can react immediately.
type actionDoneMsg struct {
	action string
	err    error
}

type exportDoneMsg struct {
	paths []string
	err   error
}

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithClient overrides the generation client the workflow talks to.
func WithClient(client generation.Client) AppOption {
	return func(a *App) {
		if client != nil {
			a.client = client
		}
	}
}

// App is the main application model. It holds the workflow reference plus
// every piece of presentation state.
type App struct {
	config *config.Config
	book   *logbook.Logbook
	client generation.Client
	flow   *forge.Workflow

	state forge.State
	spin  spinner.Model

	form     *intentForm
	docView  *documentView
	exView   *exampleView
	viewFor  forge.Stage
	variant  policy.Variant
	exported []string

	statusMsg string
	width     int
	height    int
}

// NewApp wires config, logbook, generation client, and workflow for a
// project directory.
func NewApp(projectDir string, opts ...AppOption) (*App, error) {
	if err := config.InitForgeDir(projectDir); err != nil {
		return nil, err
	}
	cfg, err := config.NewConfig(projectDir)
	if err != nil {
		return nil, err
	}
	book, err := logbook.New(cfg.SessionLogPath())
	if err != nil {
		book = nil
	}
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = stageStyle
	app := &App{
		config:  cfg,
		book:    book,
		spin:    spin,
		form:    newIntentForm(),
		variant: policy.VariantPublic,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	if app.client == nil {
		timeout := time.Duration(cfg.Project.Backend.TimeoutSeconds) * time.Second
		client, err := generation.NewHTTPClient(cfg.BackendURL(), generation.WithTimeout(timeout))
		if err != nil {
			return nil, err
		}
		app.client = client
	}
	flow, err := forge.New(app.client, forge.WithLogbook(book))
	if err != nil {
		return nil, err
	}
	app.flow = flow
	app.state = flow.Snapshot()
	if book != nil {
		book.Info("session %s opened", flow.SessionID())
	}
	return app, nil
}

// Workflow exposes the orchestrator, mainly for tests.
func (a *App) Workflow() *forge.Workflow { return a.flow }

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return nil
}

// refresh re-reads the workflow snapshot and rebuilds whichever stage view
// the current stage needs. An in-progress field edit is left alone.
func (a *App) refresh() {
	a.state = a.flow.Snapshot()
	switch a.state.Stage {
	case forge.StageReviewMachine, forge.StageReviewRefined:
		if a.docView == nil || a.viewFor != a.state.Stage {
			a.docView = newDocumentView(a.state.Machine)
			a.viewFor = a.state.Stage
		} else if !a.docView.editing {
			a.docView.setDocument(a.state.Machine)
		}
	case forge.StageLabelExamples:
		if a.exView == nil {
			a.exView = newExampleView(a.state.Examples)
		} else {
			a.exView.setExamples(a.state.Examples)
		}
		a.viewFor = a.state.Stage
	case forge.StageReviewDerived:
		doc := a.derivedDocument()
		if a.docView == nil || a.viewFor != a.state.Stage {
			a.docView = newDocumentView(doc)
			a.viewFor = a.state.Stage
		} else if !a.docView.editing {
			a.docView.setDocument(doc)
		}
	}
}

func (a *App) derivedDocument() policy.Document {
	switch a.variant {
	case policy.VariantModerator:
		return a.state.Moderator
	case policy.VariantMachine:
		return a.state.Machine
	default:
		return a.state.Public
	}
}

// action runs one workflow transition off the Update loop and keeps the
// spinner ticking while it is in flight.
func (a *App) action(name string, fn func(context.Context) error) tea.Cmd {
	a.statusMsg = ""
	call := func() tea.Msg {
		return actionDoneMsg{action: name, err: fn(context.Background())}
	}
	cmd := tea.Batch(a.spin.Tick, call)
	a.state = a.flow.Snapshot()
	return cmd
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case spinner.TickMsg:
		if !a.state.Loading {
			return a, nil
		}
		var cmd tea.Cmd
		a.spin, cmd = a.spin.Update(msg)
		return a, cmd

	case actionDoneMsg:
		a.refresh()
		if msg.err != nil {
			a.statusMsg = fmt.Sprintf("%s failed: %v", msg.action, msg.err)
		} else {
			a.statusMsg = fmt.Sprintf("%s complete", msg.action)
		}
		return a, nil

	case exportDoneMsg:
		if msg.err != nil {
			a.statusMsg = fmt.Sprintf("export failed: %v", msg.err)
			return a, nil
		}
		a.exported = msg.paths
		a.statusMsg = fmt.Sprintf("wrote %d files", len(msg.paths))
		return a, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		return a.handleKey(msg)
	}
	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Action keys are gated while a call is in flight; the workflow enforces
	// the same rule underneath.
	loading := a.state.Loading
	switch a.state.Stage {

	case forge.StageDefineIntent:
		if msg.String() == "ctrl+s" && !loading {
			input := a.form.Input()
			return a, a.action("submit intent", func(ctx context.Context) error {
				return a.flow.SubmitIntent(ctx, input)
			})
		}
		return a, a.form.Update(msg)

	case forge.StageReviewMachine:
		if cmd, handled := a.handleDocumentKey(msg, loading); handled {
			return a, cmd
		}
		if msg.String() == "g" && !loading {
			return a, a.action("generate examples", a.flow.GenerateExamples)
		}
		return a, a.docView.Update(msg)

	case forge.StageLabelExamples:
		if index, label, ok := a.exView.selectedLabel(msg.String()); ok && !loading {
			if err := a.flow.Relabel(index, label); err != nil {
				a.statusMsg = err.Error()
			}
			a.refresh()
			return a, nil
		}
		if msg.String() == "r" && !loading {
			return a, a.action("refine policy", a.flow.RefinePolicy)
		}
		a.exView.Update(msg)
		return a, nil

	case forge.StageReviewRefined:
		if cmd, handled := a.handleDocumentKey(msg, loading); handled {
			return a, cmd
		}
		if msg.String() == "g" && !loading {
			return a, a.action("generate derived policies", a.flow.GenerateDerivedPolicies)
		}
		return a, a.docView.Update(msg)

	case forge.StageReviewDerived:
		if cmd, handled := a.handleDocumentKey(msg, loading); handled {
			return a, cmd
		}
		switch msg.String() {
		case "tab":
			a.variant = nextVariant(a.variant)
			a.docView = newDocumentView(a.derivedDocument())
			return a, nil
		case "c":
			if !loading {
				if err := a.flow.Advance(); err != nil {
					a.statusMsg = err.Error()
				}
				a.refresh()
			}
			return a, nil
		}
		return a, a.docView.Update(msg)

	case forge.StageDownload:
		switch msg.String() {
		case "s", "enter":
			return a, a.exportBundle()
		case "q":
			return a, tea.Quit
		}
	}
	return a, nil
}

// handleDocumentKey covers the keys shared by every document review stage:
// entering, saving, and discarding a field edit, plus list item add/remove.
func (a *App) handleDocumentKey(msg tea.KeyMsg, loading bool) (tea.Cmd, bool) {
	if a.docView == nil {
		return nil, false
	}
	if a.docView.editing {
		switch msg.String() {
		case "ctrl+s":
			if edit, ok := a.docView.commitEdit(); ok {
				if err := a.applyEdit(edit); err != nil {
					a.statusMsg = err.Error()
				}
				a.refresh()
			}
			return nil, true
		case "esc":
			a.docView.cancelEdit()
			return nil, true
		}
		return a.docView.Update(msg), true
	}
	if loading {
		return nil, false
	}
	switch msg.String() {
	case "e":
		return a.docView.startEdit(), true
	case "a":
		if row, ok := a.docView.selected(); ok && row.kind == policy.KindList {
			if err := a.flow.AppendItem(a.docView.doc.Variant(), row.key, ""); err != nil {
				a.statusMsg = err.Error()
			}
			a.refresh()
		}
		return nil, true
	case "d":
		if row, ok := a.docView.selected(); ok && row.kind == policy.KindList && row.index >= 0 {
			if err := a.flow.RemoveItem(a.docView.doc.Variant(), row.key, row.index); err != nil {
				a.statusMsg = err.Error()
			}
			a.refresh()
		}
		return nil, true
	}
	return nil, false
}

func (a *App) applyEdit(edit docEdit) error {
	if edit.kind == policy.KindProse {
		return a.flow.UpdateProse(edit.variant, edit.key, edit.text)
	}
	return a.flow.ReplaceItem(edit.variant, edit.key, edit.index, edit.text)
}

func (a *App) exportBundle() tea.Cmd {
	public, moderator, machine, err := a.flow.Documents()
	if err != nil {
		a.statusMsg = err.Error()
		return nil
	}
	dir := a.config.OutputDir()
	sessionID := a.flow.SessionID()
	return func() tea.Msg {
		paths, err := export.WriteBundle(dir, public, moderator, machine)
		if err != nil {
			return exportDoneMsg{err: err}
		}
		if _, err := artifact.NewStore(dir).Write(sessionID, machine.Name(), paths); err != nil {
			return exportDoneMsg{err: err}
		}
		return exportDoneMsg{paths: paths}
	}
}

func nextVariant(v policy.Variant) policy.Variant {
	switch v {
	case policy.VariantPublic:
		return policy.VariantModerator
	case policy.VariantModerator:
		return policy.VariantMachine
	default:
		return policy.VariantPublic
	}
}

// View renders the current state to a string.
func (a *App) View() string {
	a.refresh()
	var content string
	switch a.state.Stage {
	case forge.StageDefineIntent:
		content = a.form.View()
	case forge.StageReviewMachine, forge.StageReviewRefined:
		content = a.docView.View() + "\n" + helpStyle.Render(a.docView.helpLine()+"  g=generate next")
	case forge.StageLabelExamples:
		content = a.exView.View() + "\n" + helpStyle.Render("up/down=select  v/b/n=label  r=refine policy")
	case forge.StageReviewDerived:
		content = a.docView.View() + "\n" + helpStyle.Render(a.docView.helpLine()+"  tab=switch document  c=continue")
	case forge.StageDownload:
		content = a.renderDownload()
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Render("⬡ POLICY FORGE"),
		a.renderStageRail(),
		content,
		a.renderStatusLine(),
		a.renderLogPanel(),
	)
}

func (a *App) renderStageRail() string {
	parts := make([]string, 0, int(forge.StageDownload)+1)
	for stage := forge.StageDefineIntent; stage <= forge.StageDownload; stage++ {
		name := stage.String()
		switch {
		case stage == a.state.Stage:
			parts = append(parts, stageStyle.Render(name))
		case stage < a.state.Stage:
			parts = append(parts, stageDoneStyle.Render(name))
		default:
			parts = append(parts, stagePendingStyle.Render(name))
		}
	}
	return strings.Join(parts, stagePendingStyle.Render(" → ")) + "\n"
}

func (a *App) renderDownload() string {
	var sb strings.Builder
	sb.WriteString(stageStyle.Render("Download"))
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("Output directory: %s\n", a.config.OutputDir()))
	if len(a.exported) > 0 {
		sb.WriteString("\n")
		for _, path := range a.exported {
			sb.WriteString(stageDoneStyle.Render("✓ ") + filepath.Base(path) + "\n")
		}
	}
	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render("s=save bundle  q=quit"))
	return sb.String()
}

func (a *App) renderStatusLine() string {
	if a.state.Loading {
		return a.spin.View() + " generating…"
	}
	var lines []string
	if a.statusMsg != "" {
		lines = append(lines, a.statusMsg)
	}
	if a.state.LastErr != "" {
		lines = append(lines, errorStyle.Render(a.state.LastErr))
	}
	if a.state.RefineErr != "" && a.state.Stage == forge.StageLabelExamples {
		lines = append(lines, errorStyle.Render(a.state.RefineErr))
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderLogPanel() string {
	if a.book == nil {
		return ""
	}
	lines := a.book.Tail(6)
	if len(lines) == 0 {
		return ""
	}
	fileName := filepath.Base(a.book.Path())
	head := logHeadStyle.Render("LOG · " + fileName)
	body := logBodyStyle.Render(strings.Join(lines, "\n"))
	return panelStyle.Render(head + "\n" + body)
}
