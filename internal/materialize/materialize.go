// Package materialize writes extracted file blocks into a working tree.
package materialize

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aiteam-orchestrator/aiteam/internal/extract"
	"github.com/aiteam-orchestrator/aiteam/internal/template"
)

const (
	DefaultBackupSuffix = ".backup"
	DefaultSummaryFile  = "AI-TEAM-README.md"
)

// ErrUnsafePath is returned for block paths that are absolute or leave the root.
var ErrUnsafePath = errors.New("path escapes the working tree")

// Options configures a materialization.
type Options struct {
	BackupSuffix string
	// SummaryFile is written after the blocks when at least one block was
	// written. Empty means DefaultSummaryFile; "-" disables the summary.
	SummaryFile string

	Agent    string
	TaskType string
	Task     string
	RunID    string

	// Now is used for the summary timestamp; nil means time.Now.
	Now func() time.Time
}

// Failure records one block that could not be written.
type Failure struct {
	Path string `json:"path" yaml:"path"`
	Err  error  `json:"-" yaml:"-"`
}

func (f Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Path, f.Err)
}

// Result lists what was written. Written holds paths as declared by the
// blocks, in block order, followed by the summary file.
type Result struct {
	Written []string  `json:"written" yaml:"written"`
	Failed  []Failure `json:"failed,omitempty" yaml:"failed,omitempty"`
}

// Changed reports whether anything was written.
func (r *Result) Changed() bool {
	return len(r.Written) > 0
}

// FailedPaths returns the paths of failed blocks.
func (r *Result) FailedPaths() []string {
	out := make([]string, 0, len(r.Failed))
	for _, f := range r.Failed {
		out = append(out, f.Path)
	}
	return out
}

// Materialize writes blocks under root in order. A failing block is recorded
// and the rest are still attempted. All file system access goes through an
// [os.Root], so symlinks inside the tree cannot lead a write outside it.
func Materialize(blocks []extract.Block, root string, opts Options) *Result {
	if opts.BackupSuffix == "" {
		opts.BackupSuffix = DefaultBackupSuffix
	}
	if opts.SummaryFile == "" {
		opts.SummaryFile = DefaultSummaryFile
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	res := &Result{}

	tree, err := os.OpenRoot(root)
	if err != nil {
		slog.Warn("Failed to open working tree", "root", root, "error", err)
		for _, b := range blocks {
			res.Failed = append(res.Failed, Failure{Path: b.Path, Err: err})
		}
		return res
	}
	defer tree.Close()

	w := &writer{tree: tree, root: root, backupSuffix: opts.BackupSuffix}
	claimed := map[string]bool{}
	for _, b := range blocks {
		local, err := w.write(b.Path, b.Content)
		if err != nil {
			slog.Warn("Failed to write file", "path", b.Path, "error", err)
			res.Failed = append(res.Failed, Failure{Path: b.Path, Err: err})
			continue
		}
		slog.Debug("Wrote file", "path", b.Path, "bytes", len(b.Content))
		res.Written = append(res.Written, b.Path)
		claimed[local] = true
	}

	if len(res.Written) == 0 || opts.SummaryFile == "-" {
		return res
	}
	// A block that already claimed the summary path wins over the generated summary.
	if local, err := localPath(opts.SummaryFile); err == nil && claimed[local] {
		return res
	}

	content, err := RenderSummary(res.Written, opts)
	if err == nil {
		_, err = w.write(opts.SummaryFile, content)
	}
	if err != nil {
		slog.Warn("Failed to write summary", "path", opts.SummaryFile, "error", err)
		res.Failed = append(res.Failed, Failure{Path: opts.SummaryFile, Err: err})
	} else {
		res.Written = append(res.Written, opts.SummaryFile)
	}
	return res
}

// ResolvePath joins rel onto root, rejecting absolute paths and paths that
// climb out of root. It is a lexical check; Materialize additionally refuses
// to follow symlinks that leave root.
func ResolvePath(root, rel string) (string, error) {
	local, err := localPath(rel)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, local), nil
}

// localPath cleans rel into a root-relative path in OS form.
func localPath(rel string) (string, error) {
	clean := strings.TrimSpace(rel)
	if clean == "" {
		return "", fmt.Errorf("%w: empty path", ErrUnsafePath)
	}
	clean = filepath.FromSlash(clean)
	if filepath.IsAbs(clean) || filepath.VolumeName(clean) != "" || strings.HasPrefix(clean, string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s is absolute", ErrUnsafePath, rel)
	}
	clean = filepath.Clean(clean)
	if !filepath.IsLocal(clean) || clean == "." {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, rel)
	}
	return clean, nil
}

type writer struct {
	tree         *os.Root
	root         string
	backupSuffix string
}

// write stores content at rel and returns the cleaned local path.
func (w *writer) write(rel, content string) (string, error) {
	local, err := localPath(rel)
	if err != nil {
		return "", err
	}

	if dir := filepath.Dir(local); dir != "." {
		if err := w.tree.MkdirAll(dir, 0o755); err != nil {
			return "", w.wrap(local, fmt.Errorf("creating directory for %s: %w", rel, err))
		}
	}

	info, err := w.tree.Lstat(local)
	switch {
	case err == nil && info.Mode().IsRegular():
		if bak, err := w.backup(local); err != nil {
			slog.Warn("Failed to back up existing file", "path", rel, "error", err)
		} else {
			slog.Debug("Backed up existing file", "path", rel, "backup", bak)
		}
	case err == nil && info.IsDir():
		return "", fmt.Errorf("writing %s: target is a directory", rel)
	case err != nil && !errors.Is(err, os.ErrNotExist):
		return "", w.wrap(local, fmt.Errorf("checking %s: %w", rel, err))
	}

	if err := w.tree.WriteFile(local, []byte(content), 0o644); err != nil {
		return "", w.wrap(local, fmt.Errorf("writing %s: %w", rel, err))
	}
	return local, nil
}

// wrap marks err as ErrUnsafePath when local resolves outside the root
// through a symlink.
func (w *writer) wrap(local string, err error) error {
	if escapes(w.root, local) {
		return fmt.Errorf("%w: %w", ErrUnsafePath, err)
	}
	return err
}

// escapes reports whether the deepest existing ancestor of local, with
// symlinks resolved, lies outside root.
func escapes(root, local string) bool {
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return false
	}
	for p := filepath.Join(root, local); ; p = filepath.Dir(p) {
		if real, err := filepath.EvalSymlinks(p); err == nil {
			rel, err := filepath.Rel(realRoot, real)
			return err != nil || !filepath.IsLocal(rel) && rel != "."
		}
		if p == root || p == filepath.Dir(p) {
			return false
		}
	}
}

// backup copies local to the first free name among local+suffix,
// local+suffix+".1", local+suffix+".2", ... and returns that name.
func (w *writer) backup(local string) (string, error) {
	dst := local + w.backupSuffix
	for n := 1; ; n++ {
		if _, err := w.tree.Lstat(dst); errors.Is(err, os.ErrNotExist) {
			break
		} else if err != nil {
			return "", fmt.Errorf("checking backup %s: %w", dst, err)
		}
		dst = local + w.backupSuffix + "." + strconv.Itoa(n)
	}

	if err := w.copyFile(local, dst); err != nil {
		return "", err
	}
	return dst, nil
}

// copyFile copies src to dst and keeps the source's mode and modification time.
func (w *writer) copyFile(src, dst string) error {
	in, err := w.tree.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", src, err)
	}

	out, err := w.tree.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying to %s: %w", dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", dst, err)
	}
	return w.tree.Chtimes(dst, info.ModTime(), info.ModTime())
}

const summaryTemplate = `# AI Team: {{.Agent}}

**Task type:** {{.TaskType}}
{{- if .RunID}}
**Run:** {{.RunID}}
{{- end}}

## Task

{{truncate 500 .Task}}

## Generated files

{{range .Files}}- ` + "`{{.}}`" + `
{{end}}
---
Generated on {{.Timestamp}} by {{.Agent}}.
`

// RenderSummary renders the summary manifest for files.
func RenderSummary(files []string, opts Options) (string, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	return template.Render(summaryTemplate, &template.Context{
		RunID:     opts.RunID,
		Timestamp: now().UTC().Format("2006-01-02 15:04:05 MST"),
		Task:      opts.Task,
		TaskType:  opts.TaskType,
		Agent:     opts.Agent,
		Files:     files,
	})
}
