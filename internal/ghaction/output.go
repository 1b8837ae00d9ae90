package ghaction

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// Output keys written for later workflow steps.
const (
	KeyTask             = "task"
	KeyTaskSummary      = "task_summary"
	KeyTaskType         = "task_type"
	KeyAgent            = "agent"
	KeyFilesCreated     = "files_created"
	KeyFilesFailed      = "files_failed"
	KeyChangesMade      = "changes_made"
	KeyGenerationSource = "generation_source"
	KeyRunID            = "run_id"
)

var flatten = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// OutputWriter appends key=value lines in the runner's step-output format.
type OutputWriter struct {
	mu sync.Mutex
	w  io.Writer
	c  io.Closer
}

// NewOutputWriter appends to the file at path, or writes to stdout when path
// is empty.
func NewOutputWriter(path string) (*OutputWriter, error) {
	if path == "" {
		return &OutputWriter{w: os.Stdout}, nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening step output file: %w", err)
	}
	return &OutputWriter{w: f, c: f}, nil
}

// NewOutputWriterTo writes to w.
func NewOutputWriterTo(w io.Writer) *OutputWriter {
	return &OutputWriter{w: w}
}

// Set writes one output. Line breaks in value become spaces so the value
// stays on one line.
func (o *OutputWriter) Set(key, value string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, err := fmt.Fprintf(o.w, "%s=%s\n", key, flatten.Replace(value)); err != nil {
		return fmt.Errorf("writing output %q: %w", key, err)
	}
	return nil
}

// SetAll writes kv in order, stopping at the first error.
func (o *OutputWriter) SetAll(kv ...[2]string) error {
	for _, p := range kv {
		if err := o.Set(p[0], p[1]); err != nil {
			return err
		}
	}
	return nil
}

// Bool formats b the way workflow expressions compare it.
func Bool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// Join formats a file list as a comma-separated value.
func Join(paths []string) string {
	return strings.Join(paths, ", ")
}

func (o *OutputWriter) Close() error {
	if o.c == nil {
		return nil
	}
	return o.c.Close()
}
