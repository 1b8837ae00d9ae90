package generate

import (
	"fmt"
	"strings"

	"github.com/aiteam-orchestrator/aiteam/internal/classify"
)

var focus = map[classify.TaskType]string{
	classify.TypeFrontend:        "accessible, responsive HTML, CSS and browser JavaScript",
	classify.TypeBackend:         "HTTP handlers, validation and clear error responses",
	classify.TypeTesting:         "focused unit tests that cover edge cases",
	classify.TypeBugFix:          "the smallest change that fixes the reported problem, plus a regression test",
	classify.TypeRefactor:        "behaviour-preserving restructuring with no new features",
	classify.TypeDocumentation:   "clear, example-driven documentation",
	classify.TypeAuthIntegration: "safe credential handling; never hard-code secrets",
	classify.TypeConfiguration:   "configuration files and setup scripts with sensible defaults",
	classify.TypeAIModels:        "a small, testable client for an OpenAI-compatible chat API",
	classify.TypeAIEnhancement:   "integrating AI features into the existing project",
	classify.TypeGeneral:         "complete, production-ready code",
}

type promptData struct {
	Agent     string
	TaskType  classify.TaskType
	Task      string
	Framework string
	Language  string
	AIProject bool
}

// SystemPrompt returns the persona message for desc.
func SystemPrompt(desc classify.TaskDescriptor) string {
	return fmt.Sprintf("You are the %s of an automated software team. You write %s.", desc.Agent, focusFor(desc.TaskType))
}

// BuildPrompt returns the user message for desc.
func BuildPrompt(desc classify.TaskDescriptor) string {
	return renderPrompt(promptData{
		Agent:     desc.Agent,
		TaskType:  desc.TaskType,
		Task:      desc.RawText,
		Framework: desc.Context.Framework(),
		Language:  desc.Context.Language(),
		AIProject: desc.Context.IsAIProject(),
	})
}

func focusFor(t classify.TaskType) string {
	if f, ok := focus[t]; ok {
		return f
	}
	return focus[classify.TypeGeneral]
}

func renderPrompt(data promptData) string {
	var b strings.Builder
	b.WriteString("Implement the following task for this repository.\n\n")
	b.WriteString("Task:\n")
	b.WriteString(strings.TrimSpace(data.Task))
	b.WriteString("\n\n")
	b.WriteString("Project:\n")
	b.WriteString(fmt.Sprintf("- Task type: %s\n", data.TaskType))
	b.WriteString(fmt.Sprintf("- Framework: %s\n", data.Framework))
	b.WriteString(fmt.Sprintf("- Primary language: %s\n", data.Language))
	if data.AIProject {
		b.WriteString("- The project already integrates AI models.\n")
	}
	b.WriteString("\n")
	b.WriteString("Answer format:\n")
	b.WriteString("- Return every file as a fenced code block whose info string is <language>:<relative/path>.\n")
	b.WriteString("  Example:\n")
	b.WriteString("  ```javascript:src/app.js\n")
	b.WriteString("  console.log('hello');\n")
	b.WriteString("  ```\n")
	b.WriteString("- Paths are relative to the repository root and must not start with / or contain ..\n")
	b.WriteString("- Give each file's complete content; do not elide with comments like \"rest unchanged\".\n")
	b.WriteString("- Keep explanations short and outside the code blocks.\n")
	return b.String()
}
