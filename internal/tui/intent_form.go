package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/policyforge/policyforge/internal/forge"
)

var intentFieldLabels = []string{
	"Platform type",
	"Industry",
	"Target behavior",
	"Real-world concerns",
	"Moderation style",
	"Additional context (optional)",
}

var intentFieldHints = []string{
	"social media, marketplace, messaging app",
	"gaming, e-commerce, education",
	"the behavior or content to detect",
	"risks, brand concerns, legal requirements",
	"aggressive takedown, warn first, only clear violations",
	"anything else the policy writer should know",
}

// intentForm is the stage-zero input form. It owns the six text inputs and
// nothing else; submission is the App's job.
type intentForm struct {
	inputs []textinput.Model
	focus  int
}

func newIntentForm() *intentForm {
	form := &intentForm{inputs: make([]textinput.Model, len(intentFieldLabels))}
	for i := range form.inputs {
		input := textinput.New()
		input.Placeholder = intentFieldHints[i]
		input.CharLimit = 500
		input.Width = 64
		form.inputs[i] = input
	}
	form.inputs[0].Focus()
	return form
}

func (f *intentForm) setFocus(index int) tea.Cmd {
	if index < 0 {
		index = len(f.inputs) - 1
	}
	if index >= len(f.inputs) {
		index = 0
	}
	f.focus = index
	var cmd tea.Cmd
	for i := range f.inputs {
		if i == index {
			cmd = f.inputs[i].Focus()
		} else {
			f.inputs[i].Blur()
		}
	}
	return cmd
}

func (f *intentForm) Update(msg tea.Msg) tea.Cmd {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "tab", "down", "enter":
			return f.setFocus(f.focus + 1)
		case "shift+tab", "up":
			return f.setFocus(f.focus - 1)
		}
	}
	var cmds []tea.Cmd
	for i := range f.inputs {
		var cmd tea.Cmd
		f.inputs[i], cmd = f.inputs[i].Update(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return tea.Batch(cmds...)
}

func (f *intentForm) Input() forge.IntentInput {
	value := func(i int) string { return strings.TrimSpace(f.inputs[i].Value()) }
	return forge.IntentInput{
		PlatformType:      value(0),
		Industry:          value(1),
		UserBehavior:      value(2),
		RealWorldConcerns: value(3),
		ModerationStyle:   value(4),
		AdditionalContext: value(5),
	}
}

func (f *intentForm) View() string {
	var sb strings.Builder
	sb.WriteString(stageStyle.Render("Define intent"))
	sb.WriteString("\n\n")
	for i, input := range f.inputs {
		label := intentFieldLabels[i]
		if i == f.focus {
			sb.WriteString(selectedStyle.Render("> " + label))
		} else {
			sb.WriteString(fieldTitleStyle.Render("  " + label))
		}
		sb.WriteString("\n  ")
		sb.WriteString(input.View())
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(helpStyle.Render("tab/shift+tab=move  ctrl+s=submit  ctrl+c=quit"))
	return sb.String()
}
