package generate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiteam-orchestrator/aiteam/internal/classify"
	"github.com/aiteam-orchestrator/aiteam/internal/execution"
	"github.com/aiteam-orchestrator/aiteam/internal/extract"
	"github.com/aiteam-orchestrator/aiteam/internal/projectctx"
)

type stubEngine struct {
	resp *execution.ExecutionResponse
	err  error

	calls int
	last  *execution.ExecutionRequest
}

func (s *stubEngine) Initialize(ctx context.Context) error { return nil }

func (s *stubEngine) Execute(ctx context.Context, req *execution.ExecutionRequest) (*execution.ExecutionResponse, error) {
	s.calls++
	s.last = req
	return s.resp, s.err
}

func (s *stubEngine) Shutdown(ctx context.Context) error { return nil }

func frontendTask() classify.TaskDescriptor {
	return classify.Classify("Build a landing page with CSS", projectctx.New("framework:react"))
}

func TestGenerate_ModelAnswer(t *testing.T) {
	engine := &stubEngine{resp: &execution.ExecutionResponse{
		FinalOutput: "```html:index.html\n<p>hi</p>\n```",
		ModelID:     "some-model",
		Success:     true,
	}}
	g := &Generator{Engine: engine, Model: "requested-model", RunID: "run-1"}

	res, err := g.Generate(context.Background(), frontendTask())
	require.NoError(t, err)

	assert.Equal(t, SourceModel, res.Source)
	assert.Equal(t, "some-model", res.ModelID)
	assert.Empty(t, res.FallbackReason)
	assert.Equal(t, engine.resp.FinalOutput, res.Text)

	require.Equal(t, 1, engine.calls)
	assert.Equal(t, DefaultTimeout, engine.last.Timeout)
	assert.Equal(t, "requested-model", engine.last.ModelID)
	assert.Equal(t, "run-1", engine.last.RunID)
	assert.Equal(t, classify.TypeFrontend, engine.last.Task.TaskType)
	assert.Contains(t, engine.last.SystemPrompt, "Frontend")
	assert.Contains(t, engine.last.Message, "Build a landing page with CSS")
	assert.Contains(t, engine.last.Message, "Framework: react")
}

func TestGenerate_FallsBack(t *testing.T) {
	tests := []struct {
		name   string
		engine execution.AgentEngine
		reason string
	}{
		{name: "no engine", engine: nil, reason: "no engine configured"},
		{name: "engine error", engine: &stubEngine{err: errors.New("HTTP 500")}, reason: "engine error: HTTP 500"},
		{name: "nil response", engine: &stubEngine{}, reason: "engine returned no response"},
		{
			name:   "unsuccessful",
			engine: &stubEngine{resp: &execution.ExecutionResponse{FinalOutput: "partial", ErrorMsg: "quota"}},
			reason: "engine reported failure: quota",
		},
		{
			name:   "blank output",
			engine: &stubEngine{resp: &execution.ExecutionResponse{FinalOutput: " \n\t", Success: true}},
			reason: "engine returned blank output",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			g := &Generator{Engine: tc.engine, Timeout: time.Second}
			res, err := g.Generate(context.Background(), frontendTask())
			require.NoError(t, err)

			assert.Equal(t, SourceTemplate, res.Source)
			assert.Equal(t, tc.reason, res.FallbackReason)

			paths := blockPaths(res.Text)
			assert.Equal(t, []string{"index.html", "styles.css", "script.js"}, paths)
		})
	}
}

func TestGenerate_TemplateEngine(t *testing.T) {
	g := &Generator{Engine: execution.NewTemplateEngine()}
	desc := classify.Classify("write a readme guide", projectctx.New())

	res, err := g.Generate(context.Background(), desc)
	require.NoError(t, err)
	assert.Equal(t, SourceTemplate, res.Source)
	assert.Empty(t, res.FallbackReason)
	assert.Equal(t, []string{"docs/AI-TEAM-GUIDE.md"}, blockPaths(res.Text))
}

func TestGenerate_TogetherUnauthorizedFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	}))
	t.Cleanup(srv.Close)

	engine := execution.NewTogetherEngine(execution.TogetherOptions{Endpoint: srv.URL, APIKey: "k"})
	g := &Generator{Engine: engine, Timeout: 5 * time.Second}

	res, err := g.Generate(context.Background(), classify.Classify("", projectctx.New()))
	require.NoError(t, err)
	assert.Equal(t, SourceTemplate, res.Source)
	assert.Contains(t, res.FallbackReason, "HTTP 401")
	assert.NotEmpty(t, blockPaths(res.Text))
}

func TestBuildPrompt(t *testing.T) {
	desc := classify.Classify("Add a login form", projectctx.New(projectctx.FlagAIProject, "framework:nextjs", "language:typescript"))
	msg := BuildPrompt(desc)

	assert.Contains(t, msg, "Add a login form")
	assert.Contains(t, msg, "Framework: nextjs")
	assert.Contains(t, msg, "Primary language: typescript")
	assert.Contains(t, msg, "already integrates AI models")
	assert.Contains(t, msg, "<language>:<relative/path>")

	plain := BuildPrompt(classify.Classify("Add a login form", projectctx.New()))
	assert.NotContains(t, plain, "already integrates AI models")
}

func TestSystemPrompt(t *testing.T) {
	for _, tt := range classify.AllTypes() {
		desc := classify.TaskDescriptor{TaskType: tt, Agent: tt.Agent()}
		sp := SystemPrompt(desc)
		assert.Contains(t, sp, tt.Agent(), "type %s", tt)
		assert.NotContains(t, sp, "%!", "type %s", tt)
	}
}

func blockPaths(text string) []string {
	var paths []string
	for _, b := range extract.Extract(text, extract.Options{}) {
		paths = append(paths, b.Path)
	}
	return paths
}
