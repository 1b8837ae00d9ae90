package classify

import (
	"strings"

	"github.com/aiteam-orchestrator/aiteam/internal/projectctx"
)

// TaskType is the classification bucket that selects a generator and labels
// the resulting pull request.
type TaskType string

const (
	TypeBugFix          TaskType = "bug_fix"
	TypeAIModels        TaskType = "ai_models"
	TypeAuthIntegration TaskType = "auth_integration"
	TypeConfiguration   TaskType = "configuration"
	TypeTesting         TaskType = "testing"
	TypeFrontend        TaskType = "frontend"
	TypeBackend         TaskType = "backend"
	TypeRefactor        TaskType = "refactor"
	TypeDocumentation   TaskType = "documentation"

	// TypeAIEnhancement is the fallback for unmatched text in AI-flavoured projects.
	TypeAIEnhancement TaskType = "ai_enhancement"
	// TypeGeneral is the generic fallback.
	TypeGeneral TaskType = "general"
)

// PlaceholderTask replaces empty input so a descriptor never carries blank text.
const PlaceholderTask = "General task"

// summaryWidth is the display width of TaskDescriptor.Summary.
const summaryWidth = 100

var agents = map[TaskType]string{
	TypeBugFix:          "Bug Hunter",
	TypeAIModels:        "AI Models Specialist",
	TypeAuthIntegration: "Security Specialist",
	TypeConfiguration:   "DevOps Specialist",
	TypeTesting:         "QA Engineer",
	TypeFrontend:        "Frontend Specialist",
	TypeBackend:         "Backend Specialist",
	TypeRefactor:        "Code Architect",
	TypeDocumentation:   "Technical Writer",
	TypeAIEnhancement:   "AI Integration Specialist",
	TypeGeneral:         "Full-Stack Developer",
}

// legacy names accepted by ParseTaskType.
var aliases = map[string]TaskType{
	"feature":          TypeGeneral,
	"fullstack":        TypeGeneral,
	"bugfix":           TypeBugFix,
	"ai_bug_fix":       TypeBugFix,
	"ai_testing":       TypeTesting,
	"ai_frontend":      TypeFrontend,
	"ai_backend":       TypeBackend,
	"ai_documentation": TypeDocumentation,
	"docs":             TypeDocumentation,
	"config":           TypeConfiguration,
	"auth":             TypeAuthIntegration,
}

// AllTypes returns the closed set of task types.
func AllTypes() []TaskType {
	return []TaskType{
		TypeBugFix,
		TypeAIModels,
		TypeAuthIntegration,
		TypeConfiguration,
		TypeTesting,
		TypeFrontend,
		TypeBackend,
		TypeRefactor,
		TypeDocumentation,
		TypeAIEnhancement,
		TypeGeneral,
	}
}

// Valid reports whether t belongs to the closed set.
func (t TaskType) Valid() bool {
	_, ok := agents[t]
	return ok
}

// Agent returns the persona label for t.
func (t TaskType) Agent() string {
	if a, ok := agents[t]; ok {
		return a
	}
	return agents[TypeGeneral]
}

func (t TaskType) String() string {
	return string(t)
}

// ParseTaskType maps a task type name, including the legacy names emitted by
// older workflow files, onto the closed set.
func ParseTaskType(s string) (TaskType, bool) {
	name := strings.ToLower(strings.TrimSpace(s))
	if t := TaskType(name); t.Valid() {
		return t, true
	}
	if t, ok := aliases[name]; ok {
		return t, true
	}
	return TypeGeneral, false
}

// TaskDescriptor is the classified form of one invocation's input.
type TaskDescriptor struct {
	RawText  string             `json:"task" yaml:"task"`
	Summary  string             `json:"task_summary" yaml:"task_summary"`
	TaskType TaskType           `json:"task_type" yaml:"task_type"`
	Agent    string             `json:"agent" yaml:"agent"`
	Context  projectctx.Context `json:"-" yaml:"-"`
}
