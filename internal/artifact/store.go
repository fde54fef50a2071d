// Package artifact records what an export produced: a manifest next to the
// bundle listing every file with its variant and format, so a later session
// (or an external consumer) can verify the bundle without re-running the
// workflow.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

const manifestName = "manifest.json"

// State describes an exported file during a manifest check.
type State string

const (
	StateReady   State = "ready"
	StateMissing State = "missing"
	StateError   State = "error"
)

// File is one exported document file.
type File struct {
	Path    string `json:"path"`
	Variant string `json:"variant"`
	Format  string `json:"format"`
}

// Manifest describes one export of the three policy documents.
type Manifest struct {
	SessionID  string    `json:"session_id"`
	PolicyName string    `json:"policy_name"`
	CreatedAt  time.Time `json:"created_at"`
	Files      []File    `json:"files"`
}

// CheckResult reports the on-disk state of one manifest entry.
type CheckResult struct {
	File  File
	State State
	Err   error
}

// Store manages manifest IO rooted at the export directory.
type Store struct {
	dir string
	now func() time.Time
}

// StoreOption customizes a Store during construction.
type StoreOption func(*Store)

// WithClock overrides the clock used for the manifest timestamp.
func WithClock(clock func() time.Time) StoreOption {
	return func(s *Store) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewStore builds a store for an export directory.
func NewStore(dir string, opts ...StoreOption) *Store {
	store := &Store{dir: dir, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	return store
}

// Path returns the manifest location.
func (s *Store) Path() string {
	return filepath.Join(s.dir, manifestName)
}

// Write persists the manifest, stamping CreatedAt. File paths are stored
// relative to the export directory so the bundle stays relocatable.
func (s *Store) Write(sessionID, policyName string, paths []string) (Manifest, error) {
	manifest := Manifest{
		SessionID:  sessionID,
		PolicyName: policyName,
		CreatedAt:  s.now().UTC(),
	}
	for _, path := range paths {
		rel, err := filepath.Rel(s.dir, path)
		if err != nil {
			rel = path
		}
		manifest.Files = append(manifest.Files, File{
			Path:    rel,
			Variant: variantOf(rel),
			Format:  formatOf(rel),
		})
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return Manifest{}, fmt.Errorf("artifact: create export dir: %w", err)
	}
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return Manifest{}, fmt.Errorf("artifact: encode manifest: %w", err)
	}
	if err := os.WriteFile(s.Path(), data, 0o644); err != nil {
		return Manifest{}, fmt.Errorf("artifact: write manifest: %w", err)
	}
	return manifest, nil
}

// Load reads the manifest back from the export directory.
func (s *Store) Load() (Manifest, error) {
	data, err := os.ReadFile(s.Path())
	if err != nil {
		return Manifest{}, err
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return Manifest{}, fmt.Errorf("artifact: parse manifest: %w", err)
	}
	return manifest, nil
}

// Check inspects every manifest entry on disk.
func (s *Store) Check(manifest Manifest) []CheckResult {
	results := make([]CheckResult, 0, len(manifest.Files))
	for _, file := range manifest.Files {
		result := CheckResult{File: file, State: StateReady}
		info, err := os.Stat(filepath.Join(s.dir, file.Path))
		switch {
		case errors.Is(err, fs.ErrNotExist):
			result.State = StateMissing
		case err != nil:
			result.State = StateError
			result.Err = err
		case info.IsDir():
			result.State = StateError
			result.Err = fmt.Errorf("artifact: %s is a directory", file.Path)
		}
		results = append(results, result)
	}
	return results
}

// variantOf recovers the document variant from the bundle naming scheme
// (<slug>_<variant>.<ext>).
func variantOf(path string) string {
	base := filepath.Base(path)
	base = base[:len(base)-len(filepath.Ext(base))]
	for _, variant := range []string{"public", "moderator", "machine"} {
		suffix := "_" + variant
		if len(base) > len(suffix) && base[len(base)-len(suffix):] == suffix {
			return variant
		}
	}
	return ""
}

func formatOf(path string) string {
	switch filepath.Ext(path) {
	case ".md":
		return "markdown"
	case ".html":
		return "html"
	default:
		return ""
	}
}
