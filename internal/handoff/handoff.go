// Package handoff carries state from the generate step to the apply step of a
// workflow, which run as separate processes.
package handoff

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"

	"github.com/aiteam-orchestrator/aiteam/internal/classify"
	"github.com/aiteam-orchestrator/aiteam/internal/generate"
	"github.com/aiteam-orchestrator/aiteam/internal/projectctx"
)

const (
	// FileName is the handoff file name when no run ID is known.
	FileName = "aiteam-handoff.json.zst"

	formatVersion = 1
)

// ErrNotFound is returned by Load when no handoff exists at the path.
var ErrNotFound = errors.New("handoff not found")

// State is what the generate step leaves for the apply step.
type State struct {
	Version      int                     `json:"version"`
	RunID        string                  `json:"run_id"`
	CreatedAt    time.Time               `json:"created_at"`
	Task         classify.TaskDescriptor `json:"task"`
	ContextFlags []string                `json:"context_flags,omitempty"`
	Generation   generate.Result         `json:"generation"`
}

// NewRunID returns a fresh identifier for one pipeline run.
func NewRunID() string {
	return uuid.NewString()
}

// New builds a State for desc and res, stamped with the current time.
func New(runID string, desc classify.TaskDescriptor, res generate.Result) *State {
	return &State{
		Version:      formatVersion,
		RunID:        runID,
		CreatedAt:    time.Now().UTC(),
		Task:         desc,
		ContextFlags: desc.Context.List(),
		Generation:   res,
	}
}

// Descriptor returns the task with its project context restored.
func (s *State) Descriptor() classify.TaskDescriptor {
	d := s.Task
	d.Context = projectctx.New(s.ContextFlags...)
	return d
}

// DefaultPath is the handoff location used when none is configured. dir is
// the runner's per-job temp dir (RUNNER_TEMP) and falls back to the system
// temp dir. A non-empty runID is folded into the file name so jobs sharing a
// temp dir do not pick up each other's handoff.
func DefaultPath(dir, runID string) string {
	if dir == "" {
		dir = os.TempDir()
	}
	name := FileName
	if id := sanitizeRunID(runID); id != "" {
		name = "aiteam-handoff-" + id + ".json.zst"
	}
	return filepath.Join(dir, name)
}

func sanitizeRunID(runID string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return -1
	}, runID)
}

// Save writes s to path as zstd-compressed JSON. The file is replaced
// atomically so a concurrent reader never sees a partial write.
func Save(path string, s *State) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating handoff dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".aiteam-handoff-*")
	if err != nil {
		return fmt.Errorf("creating handoff file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err = encode(tmp, s); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("closing handoff file: %w", err)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("moving handoff into place: %w", err)
	}
	return nil
}

// Load reads a State written by Save.
func Load(path string) (*State, error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	} else if err != nil {
		return nil, fmt.Errorf("opening handoff: %w", err)
	}
	defer func() { _ = f.Close() }()

	return decode(f)
}

// Remove deletes the handoff at path; a missing file is not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func encode(w io.Writer, s *State) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("creating zstd writer: %w", err)
	}
	if err := json.NewEncoder(zw).Encode(s); err != nil {
		_ = zw.Close()
		return fmt.Errorf("encoding handoff: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("flushing handoff: %w", err)
	}
	return nil
}

func decode(r io.Reader) (*State, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("creating zstd reader: %w", err)
	}
	defer zr.Close()

	var s State
	if err := json.NewDecoder(zr).Decode(&s); err != nil {
		return nil, fmt.Errorf("decoding handoff: %w", err)
	}
	if s.Version != formatVersion {
		return nil, fmt.Errorf("unsupported handoff version %d (want %d)", s.Version, formatVersion)
	}
	return &s, nil
}
