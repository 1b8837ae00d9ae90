package execution

import (
	"context"
	"time"

	"github.com/aiteam-orchestrator/aiteam/internal/classify"
)

// AgentEngine is the interface for obtaining raw generated text
type AgentEngine interface {
	// Initialize sets up the engine
	Initialize(ctx context.Context) error

	// Execute sends one prompt and returns the model's answer
	Execute(ctx context.Context, req *ExecutionRequest) (*ExecutionResponse, error)

	// Shutdown cleans up resources
	Shutdown(ctx context.Context) error
}

// Engine names accepted by New and the project config.
const (
	EngineTogether = "together"
	EngineCopilot  = "copilot-sdk"
	EngineTemplate = "template"
)

// ExecutionRequest represents a single generation request
type ExecutionRequest struct {
	RunID string

	// SystemPrompt carries the persona; engines without a system role prepend it.
	SystemPrompt string
	Message      string

	// Task is the classified task the prompt was built from.
	Task classify.TaskDescriptor

	// ModelID overrides the engine's default model when set.
	ModelID   string
	MaxTokens int
	// Temperature is passed through as is, zero included; nil means the
	// engine default.
	Temperature *float64

	// Timeout bounds the whole request and must be positive.
	Timeout time.Duration
}

// Usage reports token accounting when the backend provides it.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ExecutionResponse represents the result of an execution
type ExecutionResponse struct {
	FinalOutput string
	ModelID     string
	DurationMs  int64
	Usage       *Usage
	// ErrorMsg is set when the backend answered but the answer is unusable.
	ErrorMsg  string
	Success   bool
	SessionID string
}

// Usable reports whether the response carries text worth extracting.
func (r *ExecutionResponse) Usable() bool {
	return r != nil && r.Success && hasText(r.FinalOutput)
}

func hasText(s string) bool {
	for _, r := range s {
		switch r {
		case ' ', '\t', '\n', '\r':
		default:
			return true
		}
	}
	return false
}
