// Package templates holds the built-in, offline generators used when no
// model is configured or the model call fails. Each task type has one
// template whose output is a set of fenced `lang:path` blocks.
package templates

import (
	"embed"
	"fmt"
	"strings"

	"github.com/aiteam-orchestrator/aiteam/internal/classify"
	"github.com/aiteam-orchestrator/aiteam/internal/extract"
	"github.com/aiteam-orchestrator/aiteam/internal/template"
)

//go:embed data/*.tmpl
var data embed.FS

const titleWidth = 60

// Render produces the built-in generation for desc. Unknown task types use
// the general template.
func Render(desc classify.TaskDescriptor) (string, error) {
	src, err := source(desc.TaskType)
	if err != nil {
		return "", err
	}

	task := sanitize(desc.RawText)
	vars := desc.Context.Vars()
	vars["title"] = title(task)

	out, err := template.Render(src, &template.Context{
		Task:     task,
		TaskType: desc.TaskType.String(),
		Agent:    desc.Agent,
		Vars:     vars,
	})
	if err != nil {
		return "", fmt.Errorf("rendering %s template: %w", desc.TaskType, err)
	}
	return out, nil
}

// Has reports whether t has its own template.
func Has(t classify.TaskType) bool {
	_, err := data.ReadFile(fileFor(t))
	return err == nil
}

// DefaultPath is the fallback file name handed to the extractor when the
// generated text carries no file markers.
func DefaultPath(t classify.TaskType, language string) string {
	if t == classify.TypeFrontend {
		return "index.html"
	}
	if language == "" {
		language = "javascript"
	}
	return "generated-code." + extract.ExtensionFor(language)
}

func source(t classify.TaskType) (string, error) {
	b, err := data.ReadFile(fileFor(t))
	if err != nil {
		b, err = data.ReadFile(fileFor(classify.TypeGeneral))
		if err != nil {
			return "", fmt.Errorf("loading template: %w", err)
		}
	}
	return string(b), nil
}

func fileFor(t classify.TaskType) string {
	return "data/" + string(t) + ".tmpl"
}

// sanitize keeps user text from opening or closing blocks in the output.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "```", "'''")
	s = strings.ReplaceAll(s, "~~~", "---")
	return strings.ReplaceAll(s, extract.HeaderPrefix, "File:")
}

func title(task string) string {
	line, _, _ := strings.Cut(strings.TrimSpace(task), "\n")
	line = strings.Join(strings.Fields(line), " ")
	if line == "" {
		return classify.PlaceholderTask
	}
	r := []rune(line)
	if len(r) > titleWidth {
		return strings.TrimSpace(string(r[:titleWidth]))
	}
	return line
}
