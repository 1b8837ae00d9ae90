// Package wizard asks for a task interactively when the tool is run by hand
// from a terminal without any task input.
package wizard

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"

	"github.com/aiteam-orchestrator/aiteam/internal/classify"
)

// autoDetect is the select value meaning "let the classifier decide".
const autoDetect = ""

// Answer holds the fields collected by PromptTask.
type Answer struct {
	Task string
	// TaskType is set only when the user picked a type instead of
	// auto-detection.
	TaskType classify.TaskType
}

// Override reports whether the user chose a task type explicitly.
func (a *Answer) Override() bool {
	return a.TaskType != ""
}

// Interactive reports whether in is a terminal a person can type into.
func Interactive(in io.Reader) bool {
	f, ok := in.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// PromptTask runs a huh form collecting the task text and an optional task
// type.
func PromptTask(in io.Reader, out io.Writer) (*Answer, error) {
	var (
		task     string
		taskType = autoDetect
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Task").
				Description("What should the team build?").
				Placeholder("Add a contact form to the landing page").
				Value(&task).
				Validate(validateTask),
			huh.NewSelect[string]().
				Title("Task type").
				Options(typeOptions()...).
				Value(&taskType),
		),
	).
		WithInput(in).
		WithOutput(out)

	// Use accessible mode for non-TTY input (e.g., tests, piped input).
	if !Interactive(in) {
		form = form.WithAccessible(true)
	}

	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("task prompt failed: %w", err)
	}

	return newAnswer(task, taskType), nil
}

func typeOptions() []huh.Option[string] {
	opts := []huh.Option[string]{huh.NewOption("auto-detect", autoDetect)}
	for _, t := range classify.AllTypes() {
		opts = append(opts, huh.NewOption(fmt.Sprintf("%s (%s)", t, t.Agent()), string(t)))
	}
	return opts
}

func validateTask(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("task is required")
	}
	return nil
}

func newAnswer(task, taskType string) *Answer {
	a := &Answer{Task: strings.TrimSpace(task)}
	if t, ok := classify.ParseTaskType(taskType); ok {
		a.TaskType = t
	}
	return a
}
