package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultTogetherEndpoint = "https://api.together.xyz/v1/chat/completions"
	DefaultTogetherModel    = "meta-llama/Llama-3.3-70B-Instruct-Turbo"

	defaultMaxTokens   = 4000
	defaultTemperature = 0.7

	// maxErrorBody caps how much of a failed response is kept for logging.
	maxErrorBody = 2048
)

// ErrEmptyCompletion is returned when the backend answers without any choices.
var ErrEmptyCompletion = errors.New("completion response has no choices")

// TogetherOptions configures a TogetherEngine.
type TogetherOptions struct {
	// Endpoint is the full chat-completions URL; empty means DefaultTogetherEndpoint.
	Endpoint string
	APIKey   string
	// Model is the default model; empty means DefaultTogetherModel.
	Model string
	// HTTPClient is used for requests; nil means a client with no timeout of
	// its own, since every request carries a deadline.
	HTTPClient *http.Client
}

// TogetherEngine talks to an OpenAI-compatible chat-completions endpoint.
// Each Execute is a single request with no retry.
type TogetherEngine struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

// NewTogetherEngine creates an engine for the Together.ai chat API.
func NewTogetherEngine(opts TogetherOptions) *TogetherEngine {
	e := &TogetherEngine{
		endpoint: opts.Endpoint,
		apiKey:   opts.APIKey,
		model:    opts.Model,
		client:   opts.HTTPClient,
	}
	if e.endpoint == "" {
		e.endpoint = DefaultTogetherEndpoint
	}
	if e.model == "" {
		e.model = DefaultTogetherModel
	}
	if e.client == nil {
		e.client = &http.Client{}
	}
	return e
}

// Initialize checks that a key is present.
func (e *TogetherEngine) Initialize(ctx context.Context) error {
	if strings.TrimSpace(e.apiKey) == "" {
		return errors.New("together engine requires an API key")
	}
	return ctx.Err()
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage *Usage `json:"usage"`
}

// Execute sends req as one chat completion. Transport failures and non-2xx
// statuses are returned as errors.
func (e *TogetherEngine) Execute(ctx context.Context, req *ExecutionRequest) (*ExecutionResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("nil req was passed to TogetherEngine.Execute")
	}
	if req.Timeout <= 0 {
		return nil, fmt.Errorf("positive Timeout is required")
	}

	model := e.model
	if req.ModelID != "" {
		model = req.ModelID
	}

	body := chatRequest{
		Model:       model,
		MaxTokens:   req.MaxTokens,
		Temperature: defaultTemperature,
	}
	if body.MaxTokens <= 0 {
		body.MaxTokens = defaultMaxTokens
	}
	if req.Temperature != nil {
		body.Temperature = *req.Temperature
	}
	if req.SystemPrompt != "" {
		body.Messages = append(body.Messages, chatMessage{Role: "system", Content: req.SystemPrompt})
	}
	body.Messages = append(body.Messages, chatMessage{Role: "user", Content: req.Message})

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding chat request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, req.Timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)

	start := time.Now()
	slog.Debug("Sending chat completion", "endpoint", e.endpoint, "model", model, "bytes", len(payload))

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("chat request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &HTTPStatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, ErrEmptyCompletion
	}

	out := &ExecutionResponse{
		FinalOutput: parsed.Choices[0].Message.Content,
		ModelID:     model,
		DurationMs:  time.Since(start).Milliseconds(),
		Usage:       parsed.Usage,
		Success:     true,
		SessionID:   parsed.ID,
	}
	if parsed.Model != "" {
		out.ModelID = parsed.Model
	}
	if !hasText(out.FinalOutput) {
		out.Success = false
		out.ErrorMsg = "model returned an empty answer"
	}

	slog.Debug("Chat completion received", "model", out.ModelID, "durationMs", out.DurationMs, "finish", parsed.Choices[0].FinishReason)
	return out, nil
}

// Shutdown releases idle connections.
func (e *TogetherEngine) Shutdown(ctx context.Context) error {
	e.client.CloseIdleConnections()
	return nil
}

// HTTPStatusError is returned for non-2xx answers from the model endpoint.
type HTTPStatusError struct {
	StatusCode int
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("model endpoint returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("model endpoint returned HTTP %d: %s", e.StatusCode, e.Body)
}
