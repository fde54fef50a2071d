package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/policyforge/policyforge/internal/policy"
)

// exampleView lists the synthetic examples for label review. Relabeling goes
// through the App so the workflow stays the single mutator.
type exampleView struct {
	set policy.ExampleSet
	sel int
}

func newExampleView(set policy.ExampleSet) *exampleView {
	return &exampleView{set: set}
}

func (v *exampleView) setExamples(set policy.ExampleSet) {
	v.set = set
	if v.sel >= set.Len() {
		v.sel = set.Len() - 1
	}
	if v.sel < 0 {
		v.sel = 0
	}
}

// selectedLabel maps a key press to a relabel request for the current row.
func (v *exampleView) selectedLabel(key string) (int, policy.Label, bool) {
	if v.set.Empty() {
		return 0, "", false
	}
	switch key {
	case "v":
		return v.sel, policy.LabelViolation, true
	case "b":
		return v.sel, policy.LabelBorderline, true
	case "n":
		return v.sel, policy.LabelNonViolation, true
	}
	return 0, "", false
}

func (v *exampleView) Update(msg tea.Msg) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return
	}
	switch key.String() {
	case "up", "k":
		if v.sel > 0 {
			v.sel--
		}
	case "down", "j":
		if v.sel < v.set.Len()-1 {
			v.sel++
		}
	}
}

func labelStyleFor(label policy.Label) string {
	switch label {
	case policy.LabelViolation:
		return labelViolationStyle.Render(string(label))
	case policy.LabelBorderline:
		return labelBorderlineStyle.Render(string(label))
	default:
		return labelAllowedStyle.Render(string(label))
	}
}

func (v *exampleView) View() string {
	var sb strings.Builder
	sb.WriteString(stageStyle.Render("Label examples"))
	sb.WriteString("\n\n")
	for i := 0; i < v.set.Len(); i++ {
		record, err := v.set.At(i)
		if err != nil {
			continue
		}
		indicator := "  "
		if i == v.sel {
			indicator = selectedStyle.Render("> ")
		}
		sb.WriteString(fmt.Sprintf("%s[%s] %s\n", indicator, labelStyleFor(record.Label), record.Text))
	}
	return sb.String()
}
