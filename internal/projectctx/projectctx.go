// Package projectctx derives lightweight project signals from a handful of
// well-known files in the working tree. The signals only steer the
// classifier's fallback and the built-in templates; probing is best-effort
// and never fails the run.
package projectctx

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Flag names set by Probe.
const (
	FlagAIProject   = "ai_project"
	FlagTogetherAPI = "together_api"

	// framework:<name> and language:<name> are parameterised flags.
	frameworkPrefix = "framework:"
	languagePrefix  = "language:"
)

// maxProbeBytes caps how much of each file is read.
const maxProbeBytes = 256 * 1024

// DefaultFiles are the files inspected by Probe, relative to the root.
var DefaultFiles = []string{
	"package.json",
	"lib/api-config.js",
	"README.md",
	".env.example",
	"go.mod",
}

var aiKeywords = []string{"together", "openai", "anthropic", "llm", "ai-team"}

// frameworks is checked in order; the first hit wins.
var frameworks = []string{"react", "vue", "express"}

// Context is the set of signals found in the working tree.
type Context struct {
	Flags map[string]bool
}

// New builds a Context with the given flags set.
func New(flags ...string) Context {
	c := Context{Flags: map[string]bool{}}
	for _, f := range flags {
		c.Flags[f] = true
	}
	return c
}

// Has reports whether flag is set.
func (c Context) Has(flag string) bool {
	return c.Flags[flag]
}

// IsAIProject reports whether the project looks AI-integration flavoured.
func (c Context) IsAIProject() bool {
	return c.Has(FlagAIProject)
}

// Framework returns the detected web framework or "unknown".
func (c Context) Framework() string {
	return c.prefixed(frameworkPrefix, "unknown")
}

// Language returns the detected primary language, defaulting to javascript.
func (c Context) Language() string {
	return c.prefixed(languagePrefix, "javascript")
}

// List returns the flags in sorted order.
func (c Context) List() []string {
	out := make([]string, 0, len(c.Flags))
	for f, ok := range c.Flags {
		if ok {
			out = append(out, f)
		}
	}
	slices.Sort(out)
	return out
}

// Vars flattens the context into template variables.
func (c Context) Vars() map[string]string {
	return map[string]string{
		"framework":    c.Framework(),
		"language":     c.Language(),
		"ai_project":   fmt.Sprint(c.IsAIProject()),
		"together_api": fmt.Sprint(c.Has(FlagTogetherAPI)),
	}
}

func (c Context) prefixed(prefix, fallback string) string {
	for _, f := range c.List() {
		if name, ok := strings.CutPrefix(f, prefix); ok {
			return name
		}
	}
	return fallback
}

// ProbeOption configures Probe.
type ProbeOption func(*probeOptions)

type probeOptions struct {
	files []string
}

// WithFiles overrides the list of files inspected.
func WithFiles(files ...string) ProbeOption {
	return func(o *probeOptions) {
		if len(files) > 0 {
			o.files = files
		}
	}
}

// Probe inspects the known files under root. Missing files are skipped.
// Read failures never abort probing: they are returned alongside the
// partially-populated context for the caller to log.
func Probe(root string, opts ...ProbeOption) (Context, []error) {
	o := probeOptions{files: DefaultFiles}
	for _, fn := range opts {
		fn(&o)
	}

	ctx := New()
	var errs []error

	for _, name := range o.files {
		content, err := readLower(filepath.Join(root, name))
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, fmt.Errorf("probing %s: %w", name, err))
			}
			continue
		}
		apply(&ctx, name, content)
	}

	return ctx, errs
}

func apply(ctx *Context, name, content string) {
	for _, kw := range aiKeywords {
		if strings.Contains(content, kw) {
			ctx.Flags[FlagAIProject] = true
			break
		}
	}
	if strings.Contains(content, "together") {
		ctx.Flags[FlagTogetherAPI] = true
	}

	if ctx.Framework() == "unknown" {
		for _, fw := range frameworks {
			if strings.Contains(content, fw) {
				ctx.Flags[frameworkPrefix+fw] = true
				break
			}
		}
	}

	switch filepath.Base(name) {
	case "go.mod":
		ctx.Flags[languagePrefix+"go"] = true
	case "package.json":
		if strings.Contains(content, "typescript") {
			ctx.Flags[languagePrefix+"typescript"] = true
		}
	}
}

func readLower(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", path)
	}

	data, err := io.ReadAll(io.LimitReader(f, maxProbeBytes))
	if err != nil {
		return "", err
	}
	return strings.ToLower(string(data)), nil
}
