// Package ghaction is the boundary with the GitHub Actions runner: it reads
// the step environment and writes step outputs.
package ghaction

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/aiteam-orchestrator/aiteam/internal/classify"
)

// Workflow event names that carry a task.
const (
	EventIssues           = "issues"
	EventIssueComment     = "issue_comment"
	EventWorkflowDispatch = "workflow_dispatch"
)

var (
	ErrMissingAPIKey = errors.New("TOGETHER_API_KEY is required")
	ErrInvalidAPIKey = errors.New("TOGETHER_API_KEY is malformed")
)

var apiKeyPattern = regexp.MustCompile(`^[a-zA-Z0-9]{40,}$`)

// Env is the subset of the runner environment the tool reads.
type Env struct {
	EventName   string `mapstructure:"GITHUB_EVENT_NAME"`
	IssueTitle  string `mapstructure:"ISSUE_TITLE"`
	IssueBody   string `mapstructure:"ISSUE_BODY"`
	CommentBody string `mapstructure:"COMMENT_BODY"`
	ManualTask  string `mapstructure:"MANUAL_TASK"`
	APIKey      string `mapstructure:"TOGETHER_API_KEY"`
	Repository  string `mapstructure:"GITHUB_REPOSITORY"`
	RunID       string `mapstructure:"GITHUB_RUN_ID"`
	RunnerTemp  string `mapstructure:"RUNNER_TEMP"`
	OutputPath  string `mapstructure:"GITHUB_OUTPUT"`
	Workspace   string `mapstructure:"GITHUB_WORKSPACE"`
	Task        string `mapstructure:"TASK"`
	TaskType    string `mapstructure:"TASK_TYPE"`
	Agent       string `mapstructure:"AGENT"`
	InGitHubCI  bool   `mapstructure:"GITHUB_ACTIONS"`
	ModelEngine string `mapstructure:"AITEAM_ENGINE"`
	ModelName   string `mapstructure:"AITEAM_MODEL"`
	HandoffPath string `mapstructure:"AITEAM_HANDOFF"`
}

// LoadEnv decodes environ, in os.Environ form, into an Env. Unknown
// variables are ignored.
func LoadEnv(environ []string) (Env, error) {
	raw := make(map[string]any, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		raw[k] = v
	}

	var env Env
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &env,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return Env{}, err
	}
	if err := dec.Decode(raw); err != nil {
		return Env{}, fmt.Errorf("decoding environment: %w", err)
	}
	return env, nil
}

// TaskText derives the task from the triggering event. Events that carry no
// task yield classify.PlaceholderTask.
func (e Env) TaskText() string {
	var text string
	switch e.EventName {
	case EventIssues:
		text = e.IssueTitle + "\n" + e.IssueBody
	case EventIssueComment:
		text = e.CommentBody
	case EventWorkflowDispatch:
		text = e.ManualTask
	}
	if strings.TrimSpace(text) == "" {
		return classify.PlaceholderTask
	}
	return text
}

// HasEventTask reports whether the event itself supplied task text.
func (e Env) HasEventTask() bool {
	return e.TaskText() != classify.PlaceholderTask
}

// ValidateAPIKey checks the model credential before any generation runs.
func ValidateAPIKey(key string) error {
	if key == "" {
		return ErrMissingAPIKey
	}
	if !apiKeyPattern.MatchString(key) {
		return fmt.Errorf("%w: expected at least 40 alphanumeric characters", ErrInvalidAPIKey)
	}
	return nil
}
