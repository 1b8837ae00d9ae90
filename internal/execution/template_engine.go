package execution

import (
	"context"
	"fmt"
	"time"

	"github.com/aiteam-orchestrator/aiteam/internal/templates"
)

// TemplateEngine answers every request with the built-in template for the
// request's task type. It never touches the network.
type TemplateEngine struct{}

// NewTemplateEngine creates a new offline engine
func NewTemplateEngine() *TemplateEngine {
	return &TemplateEngine{}
}

func (e *TemplateEngine) Initialize(ctx context.Context) error {
	return nil
}

func (e *TemplateEngine) Execute(ctx context.Context, req *ExecutionRequest) (*ExecutionResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil req was passed to TemplateEngine.Execute")
	}
	start := time.Now()

	out, err := templates.Render(req.Task)
	if err != nil {
		return nil, fmt.Errorf("rendering built-in template: %w", err)
	}

	return &ExecutionResponse{
		FinalOutput: out,
		ModelID:     EngineTemplate,
		DurationMs:  time.Since(start).Milliseconds(),
		Success:     true,
	}, nil
}

func (e *TemplateEngine) Shutdown(ctx context.Context) error {
	return nil
}
