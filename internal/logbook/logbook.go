// Package logbook persists session activity to a plain text file under
// .forge/logs so a user can reconstruct what the workflow did (stage
// transitions, generation calls, failures, exports) after the terminal
// session is gone. Components take a *Logbook by injection and must tolerate
// a nil logbook.
package logbook

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level is the severity of one entry.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Logbook appends timestamped entries to a single session log file.
type Logbook struct {
	path  string
	clock func() time.Time

	mu   sync.Mutex
	file *os.File
}

// Option customizes logbook construction.
type Option func(*Logbook)

// WithClock injects a deterministic clock for tests.
func WithClock(clock func() time.Time) Option {
	return func(l *Logbook) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// New opens (or creates) the log file at path, creating parent directories.
func New(path string, opts ...Option) (*Logbook, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("logbook: ensure log dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logbook: open %s: %w", path, err)
	}
	lb := &Logbook{path: path, file: file, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(lb)
		}
	}
	return lb, nil
}

// Path returns the file backing this logbook.
func (l *Logbook) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Close releases the file handle.
func (l *Logbook) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// Append writes one entry. Logging never fails the caller.
func (l *Logbook) Append(level Level, format string, args ...any) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return
	}
	message := strings.TrimSpace(fmt.Sprintf(format, args...))
	fmt.Fprintf(l.file, "%s %-5s %s\n", l.clock().UTC().Format(time.RFC3339), level, message)
}

// Info appends an informational entry.
func (l *Logbook) Info(format string, args ...any) { l.Append(LevelInfo, format, args...) }

// Warn appends a warning entry.
func (l *Logbook) Warn(format string, args ...any) { l.Append(LevelWarn, format, args...) }

// Error appends an error entry.
func (l *Logbook) Error(format string, args ...any) { l.Append(LevelError, format, args...) }

// Stage records a workflow stage transition.
func (l *Logbook) Stage(from, to string) {
	l.Info("stage %s -> %s", from, to)
}

// Tail returns up to maxLines of the most recent entries for display in the
// TUI activity footer.
func (l *Logbook) Tail(maxLines int) []string {
	if l == nil || maxLines <= 0 {
		return nil
	}
	l.mu.Lock()
	path := l.path
	l.mu.Unlock()
	file, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer file.Close()
	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if len(lines) > maxLines {
		lines = lines[len(lines)-maxLines:]
	}
	return lines
}
