package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/policyforge/policyforge/internal/policy"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Artifact is one rendered document ready to be written or downloaded.
type Artifact struct {
	Filename string
	Variant  policy.Variant
	Markdown string
	HTML     string
}

// RenderHTML converts a document's markdown artifact into an HTML preview.
func RenderHTML(doc policy.Document) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(RenderMarkdown(doc)), &buf); err != nil {
		return "", fmt.Errorf("export: render %s policy html: %w", doc.Variant(), err)
	}
	return buf.String(), nil
}

// Bundle renders the three final documents into artifacts. Filenames share
// one slug derived from the machine policy name.
func Bundle(public, moderator, machine policy.Document) ([]Artifact, error) {
	slug := Slug(machine.Name())
	docs := []policy.Document{public, moderator, machine}
	artifacts := make([]Artifact, 0, len(docs))
	for _, doc := range docs {
		if doc.Empty() {
			return nil, fmt.Errorf("export: all three documents are required before bundling")
		}
		html, err := RenderHTML(doc)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, Artifact{
			Filename: fmt.Sprintf("%s_%s.md", slug, doc.Variant()),
			Variant:  doc.Variant(),
			Markdown: RenderMarkdown(doc),
			HTML:     html,
		})
	}
	return artifacts, nil
}

// WriteBundle renders and writes the artifact files (markdown plus HTML
// preview per variant) into dir, returning the written paths.
func WriteBundle(dir string, public, moderator, machine policy.Document) ([]string, error) {
	artifacts, err := Bundle(public, moderator, machine)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("export: ensure output dir: %w", err)
	}
	var paths []string
	for _, artifact := range artifacts {
		mdPath := filepath.Join(dir, artifact.Filename)
		if err := os.WriteFile(mdPath, []byte(artifact.Markdown), 0o644); err != nil {
			return nil, fmt.Errorf("export: write %s: %w", artifact.Filename, err)
		}
		paths = append(paths, mdPath)
		htmlPath := strings.TrimSuffix(mdPath, ".md") + ".html"
		if err := os.WriteFile(htmlPath, []byte(artifact.HTML), 0o644); err != nil {
			return nil, fmt.Errorf("export: write %s: %w", filepath.Base(htmlPath), err)
		}
		paths = append(paths, htmlPath)
	}
	return paths, nil
}

// Slug derives a filesystem-safe name from a policy title.
func Slug(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteRune('-')
				lastDash = true
			}
		}
	}
	slug := strings.TrimRight(b.String(), "-")
	if slug == "" {
		return "policy"
	}
	return slug
}
