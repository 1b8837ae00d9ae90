package template

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// Context holds all variables available for template resolution.
type Context struct {
	// Run metadata
	RunID     string
	Timestamp string

	// Classification
	Task     string
	TaskType string
	Agent    string

	// Files written so far (summary manifest only)
	Files []string

	// Extra values supplied by a generator (project flags, page titles, ...)
	Vars map[string]string
}

var funcs = template.FuncMap{
	"truncate": truncate,
	"join":     strings.Join,
	"oneline":  oneline,
}

// Render resolves template expressions in the given string.
// Uses Go's text/template syntax: {{.Agent}}, {{.Vars.framework}}.
// Returns the input unchanged if it contains no template delimiters.
func Render(tmpl string, ctx *Context) (string, error) {
	// Fast path: no template delimiters means no work to do.
	if !strings.Contains(tmpl, "{{") {
		return tmpl, nil
	}

	t, err := template.New("").Funcs(funcs).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("template: parse: %w", err)
	}

	var buf bytes.Buffer
	if err := t.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("template: render: %w", err)
	}

	return buf.String(), nil
}

// MustRender is Render for templates compiled into the binary, where a
// failure is a programming error.
func MustRender(tmpl string, ctx *Context) string {
	out, err := Render(tmpl, ctx)
	if err != nil {
		panic(err)
	}
	return out
}

// truncate cuts s to at most n runes.
func truncate(n int, s string) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func oneline(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
