package execution

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	copilot "github.com/github/copilot-sdk/go"

	"github.com/aiteam-orchestrator/aiteam/internal/utils"
)

// CopilotEngine integrates with GitHub Copilot SDK
type CopilotEngine struct {
	defaultModelID string

	client copilotClient

	startOnce sync.Once
	startErr  error

	workspacesMu sync.Mutex
	workspaces   []string // scratch directories to clean up at Shutdown
}

// CopilotEngineBuilder builds a CopilotEngine with options
type CopilotEngineBuilder struct {
	engine *CopilotEngine
}

type CopilotEngineBuilderOptions struct {
	NewCopilotClient func(clientOptions *copilot.ClientOptions) copilotClient
}

// NewCopilotEngineBuilder creates a builder for CopilotEngine
//   - defaultModelID - used if the request has no model ID. Can be blank, which means the copilot
//     CLI will choose its own fallback model.
func NewCopilotEngineBuilder(defaultModelID string, options *CopilotEngineBuilderOptions) *CopilotEngineBuilder {
	var client copilotClient

	copilotOptions := &copilot.ClientOptions{
		LogLevel:  "error",
		AutoStart: copilot.Bool(false),
	}

	if options == nil || options.NewCopilotClient == nil {
		client = newCopilotClient(copilotOptions)
	} else {
		client = options.NewCopilotClient(copilotOptions)
	}

	return &CopilotEngineBuilder{
		engine: &CopilotEngine{
			defaultModelID: defaultModelID,
			client:         client,
		},
	}
}

func (b *CopilotEngineBuilder) Build() *CopilotEngine {
	return b.engine
}

// Initialize sets up the Copilot client
func (e *CopilotEngine) Initialize(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// Execute sends the prompt in a fresh session rooted in an empty scratch
// directory, so the agent cannot touch the working tree. Tool use is denied;
// only the assistant's text is collected.
func (e *CopilotEngine) Execute(ctx context.Context, req *ExecutionRequest) (*ExecutionResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil req was passed to CopilotEngine.Execute")
	}

	if req.Timeout <= 0 {
		return nil, fmt.Errorf("positive Timeout is required")
	}

	e.startOnce.Do(func() {
		// NOTE: copilot client has an 'autostart' feature, but it runs into issues
		// when it tries to autostart from separate goroutines.
		e.startErr = e.client.Start(ctx)
	})

	if e.startErr != nil {
		return nil, fmt.Errorf("copilot failed to start: %w", e.startErr)
	}

	modelID := e.defaultModelID
	if req.ModelID != "" {
		modelID = req.ModelID
	}

	start := time.Now()

	workspaceDir, err := e.scratchDir()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	session, err := e.client.CreateSession(ctx, textOnlySession(modelID, workspaceDir))
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	eventsCollector := NewSessionEventsCollector()

	unsubscribe := session.On(eventsCollector.On)
	defer unsubscribe()

	unsubscribe = session.On(utils.SessionToSlog)
	defer unsubscribe()

	_, err = session.SendAndWait(ctx, copilot.MessageOptions{
		Prompt: joinPrompt(req.SystemPrompt, req.Message),
	})

	var errMsg string

	if err != nil {
		// errors reported inline by the conversation also come back here; keep them on the response
		errMsg = err.Error()
	} else if msg := eventsCollector.ErrorMessage(); msg != "" {
		errMsg = msg
	}

	output := joinStrings(eventsCollector.OutputParts())

	return &ExecutionResponse{
		FinalOutput: output,
		ModelID:     modelID,
		DurationMs:  time.Since(start).Milliseconds(),
		ErrorMsg:    errMsg,
		Success:     errMsg == "",
		SessionID:   session.SessionID(),
	}, nil
}

// Shutdown cleans up resources
func (e *CopilotEngine) Shutdown(ctx context.Context) error {
	if err := e.client.Stop(); err != nil {
		// Log but continue cleanup
		slog.Info("failed to stop client", "error", err)
	}

	workspaces := func() []string {
		e.workspacesMu.Lock()
		defer e.workspacesMu.Unlock()
		workspaces := e.workspaces
		e.workspaces = nil
		return workspaces
	}()

	for _, ws := range workspaces {
		if ws != "" {
			if err := os.RemoveAll(ws); err != nil {
				slog.Warn("failed to cleanup scratch workspace", "path", ws, "error", err)
			}
		}
	}

	return nil
}

func (e *CopilotEngine) scratchDir() (string, error) {
	dir, err := os.MkdirTemp("", "aiteam-copilot-*")
	if err != nil {
		return "", fmt.Errorf("failed to create scratch workspace: %w", err)
	}

	e.workspacesMu.Lock()
	e.workspaces = append(e.workspaces, dir)
	e.workspacesMu.Unlock()

	return dir, nil
}

func joinPrompt(system, message string) string {
	if strings.TrimSpace(system) == "" {
		return message
	}
	return system + "\n\n" + message
}

func joinStrings(parts []string) string {
	var builder strings.Builder
	for _, p := range parts {
		builder.WriteString(p)
	}
	return builder.String()
}
