package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/policyforge/policyforge/internal/policy"
)

// docRow is one selectable line of a document view: a prose field, or a
// single item of a list field.
type docRow struct {
	key   policy.FieldKey
	kind  policy.FieldKind
	index int // item index for list rows, -1 for prose
	text  string
}

// docEdit describes a committed edit for the App to apply to the workflow.
type docEdit struct {
	variant policy.Variant
	key     policy.FieldKey
	kind    policy.FieldKind
	index   int
	text    string
}

// documentView browses and edits one policy document. It renders the
// canonical fields in table order; the App applies committed edits and then
// feeds the updated document back in.
type documentView struct {
	doc     policy.Document
	rows    []docRow
	sel     int
	editing bool
	input   textarea.Model
}

func newDocumentView(doc policy.Document) *documentView {
	input := textarea.New()
	input.SetWidth(70)
	input.SetHeight(4)
	view := &documentView{input: input}
	view.setDocument(doc)
	return view
}

// setDocument replaces the displayed document and rebuilds the row table,
// keeping the selection in range. Fields the document does not carry get no
// rows at all; the view shows only what the model actually generated.
func (v *documentView) setDocument(doc policy.Document) {
	v.doc = doc
	v.rows = v.rows[:0]
	for _, spec := range policy.Fields(doc.Variant()) {
		switch spec.Kind {
		case policy.KindProse:
			text, ok := doc.Prose(spec.Key)
			if !ok {
				continue
			}
			v.rows = append(v.rows, docRow{key: spec.Key, kind: spec.Kind, index: -1, text: text})
		case policy.KindList:
			items, ok := doc.Items(spec.Key)
			if !ok {
				continue
			}
			for i, item := range items {
				v.rows = append(v.rows, docRow{key: spec.Key, kind: spec.Kind, index: i, text: item})
			}
		}
	}
	if v.sel >= len(v.rows) {
		v.sel = len(v.rows) - 1
	}
	if v.sel < 0 {
		v.sel = 0
	}
}

func (v *documentView) selected() (docRow, bool) {
	if v.sel < 0 || v.sel >= len(v.rows) {
		return docRow{}, false
	}
	return v.rows[v.sel], true
}

func (v *documentView) startEdit() tea.Cmd {
	row, ok := v.selected()
	if !ok {
		return nil
	}
	v.editing = true
	v.input.SetValue(row.text)
	return v.input.Focus()
}

func (v *documentView) cancelEdit() {
	v.editing = false
	v.input.Blur()
}

// commitEdit closes the editor and reports the edit to apply. The second
// result is false when nothing was being edited.
func (v *documentView) commitEdit() (docEdit, bool) {
	row, ok := v.selected()
	if !v.editing || !ok {
		return docEdit{}, false
	}
	v.editing = false
	v.input.Blur()
	return docEdit{
		variant: v.doc.Variant(),
		key:     row.key,
		kind:    row.kind,
		index:   row.index,
		text:    v.input.Value(),
	}, true
}

func (v *documentView) Update(msg tea.Msg) tea.Cmd {
	if v.editing {
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return cmd
	}
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "up", "k":
			if v.sel > 0 {
				v.sel--
			}
		case "down", "j":
			if v.sel < len(v.rows)-1 {
				v.sel++
			}
		}
	}
	return nil
}

func (v *documentView) View() string {
	var sb strings.Builder
	sb.WriteString(stageStyle.Render(fmt.Sprintf("%s policy · %s", strings.Title(v.doc.Variant().String()), v.doc.Name())))
	sb.WriteString("\n")
	var lastKey policy.FieldKey
	for i, row := range v.rows {
		if row.key != lastKey {
			sb.WriteString("\n")
			sb.WriteString(fieldTitleStyle.Render(policy.Title(row.key)))
			sb.WriteString("\n")
			lastKey = row.key
		}
		indicator := "  "
		if i == v.sel {
			indicator = selectedStyle.Render("> ")
		}
		text := row.text
		if text == "" {
			text = detailStyle.Render("(empty)")
		}
		if row.kind == policy.KindList && row.index >= 0 {
			text = "- " + row.text
		}
		sb.WriteString(indicator + text + "\n")
		if v.editing && i == v.sel {
			sb.WriteString(v.input.View())
			sb.WriteString("\n")
		}
	}
	if format := v.doc.OutputFormat(); format != nil {
		sb.WriteString("\n")
		sb.WriteString(fieldTitleStyle.Render("Output format"))
		sb.WriteString(fmt.Sprintf("\n  type=%s labels=%s confidence=%t\n",
			format.Type, strings.Join(format.Labels, ","), format.ConfidenceRequired))
	}
	if severity := v.doc.Severity(); severity != "" {
		sb.WriteString("\n")
		sb.WriteString(fieldTitleStyle.Render("Severity"))
		sb.WriteString("\n  " + severity + "\n")
	}
	return sb.String()
}

func (v *documentView) helpLine() string {
	if v.editing {
		return "ctrl+s=save  esc=discard"
	}
	return "up/down=select  e=edit  a=add item  d=delete item"
}
