// Package export projects final policy documents into downloadable
// artifacts. Rendering is a pure function of document state; no workflow
// behavior lives here.
package export

import (
	"fmt"
	"strings"

	"github.com/policyforge/policyforge/internal/policy"
)

// RenderMarkdown renders one document as a standalone markdown artifact:
// the document name as title, then one section per canonical field in table
// order. Prose is emitted verbatim, lists as one bullet per item. Fields
// with empty or absent values produce no heading at all. The name is used
// only as the title, never as a body field.
func RenderMarkdown(doc policy.Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", doc.Name())
	for _, spec := range policy.Fields(doc.Variant()) {
		switch spec.Kind {
		case policy.KindProse:
			text, ok := doc.Prose(spec.Key)
			if !ok || strings.TrimSpace(text) == "" {
				continue
			}
			fmt.Fprintf(&b, "\n## %s\n\n%s\n", spec.Title, strings.TrimRight(text, "\n"))
		case policy.KindList:
			items, ok := doc.Items(spec.Key)
			if !ok || len(items) == 0 {
				continue
			}
			fmt.Fprintf(&b, "\n## %s\n", spec.Title)
			for _, item := range items {
				fmt.Fprintf(&b, "- %s\n", item)
			}
		}
	}
	if severity := doc.Severity(); severity != "" {
		fmt.Fprintf(&b, "\n## Severity\n\n%s\n", capitalize(severity))
	}
	if format := doc.OutputFormat(); format != nil {
		fmt.Fprintf(&b, "\n## Output format\n")
		fmt.Fprintf(&b, "- Type: `%s`\n", format.Type)
		fmt.Fprintf(&b, "- Labels: `%s`\n", strings.Join(format.Labels, ", "))
		fmt.Fprintf(&b, "- Confidence required: `%t`\n", format.ConfidenceRequired)
	}
	return b.String()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
