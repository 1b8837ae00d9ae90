// Package generate turns a classified task into raw model text, falling back
// to the built-in templates whenever the model cannot answer.
package generate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aiteam-orchestrator/aiteam/internal/classify"
	"github.com/aiteam-orchestrator/aiteam/internal/execution"
	"github.com/aiteam-orchestrator/aiteam/internal/templates"
)

const DefaultTimeout = 60 * time.Second

// Source identifies where generated text came from.
type Source string

const (
	SourceModel    Source = "model"
	SourceTemplate Source = "template"
)

// Result is the outcome of one generation.
type Result struct {
	Text           string `yaml:"text" json:"text"`
	Source         Source `yaml:"source" json:"source"`
	FallbackReason string `yaml:"fallback_reason,omitempty" json:"fallback_reason,omitempty"`
	ModelID        string `yaml:"model_id,omitempty" json:"model_id,omitempty"`
}

// Generator asks Engine for code once per task.
type Generator struct {
	// Engine may be nil, in which case templates are used directly.
	Engine  execution.AgentEngine
	Timeout time.Duration
	Model   string
	RunID   string
}

// Generate never fails because of the model. An error is returned only when
// the template fallback itself cannot be rendered.
func (g *Generator) Generate(ctx context.Context, desc classify.TaskDescriptor) (*Result, error) {
	if g.Engine == nil {
		return fromTemplate(desc, "no engine configured")
	}

	timeout := g.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	resp, err := g.Engine.Execute(ctx, &execution.ExecutionRequest{
		RunID:        g.RunID,
		SystemPrompt: SystemPrompt(desc),
		Message:      BuildPrompt(desc),
		Task:         desc,
		ModelID:      g.Model,
		Timeout:      timeout,
	})

	switch {
	case err != nil:
		return fromTemplate(desc, fmt.Sprintf("engine error: %v", err))
	case resp == nil:
		return fromTemplate(desc, "engine returned no response")
	case !resp.Success:
		return fromTemplate(desc, "engine reported failure: "+resp.ErrorMsg)
	case strings.TrimSpace(resp.FinalOutput) == "":
		return fromTemplate(desc, "engine returned blank output")
	}

	if resp.ModelID == execution.EngineTemplate {
		return &Result{Text: resp.FinalOutput, Source: SourceTemplate, ModelID: resp.ModelID}, nil
	}

	slog.Debug("Model generation succeeded", "model", resp.ModelID, "durationMs", resp.DurationMs, "bytes", len(resp.FinalOutput))
	return &Result{
		Text:    resp.FinalOutput,
		Source:  SourceModel,
		ModelID: resp.ModelID,
	}, nil
}

func fromTemplate(desc classify.TaskDescriptor, reason string) (*Result, error) {
	slog.Warn("Falling back to built-in template", "taskType", desc.TaskType, "reason", reason)

	text, err := templates.Render(desc)
	if err != nil {
		return nil, fmt.Errorf("rendering %s template: %w", desc.TaskType, err)
	}
	return &Result{
		Text:           text,
		Source:         SourceTemplate,
		FallbackReason: reason,
		ModelID:        "template",
	}, nil
}
