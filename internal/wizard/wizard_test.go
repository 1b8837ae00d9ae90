package wizard

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiteam-orchestrator/aiteam/internal/classify"
)

func TestTypeOptions(t *testing.T) {
	opts := typeOptions()
	require.Len(t, opts, len(classify.AllTypes())+1)

	assert.Equal(t, autoDetect, opts[0].Value)
	assert.Equal(t, "auto-detect", opts[0].Key)

	for i, tt := range classify.AllTypes() {
		assert.Equal(t, string(tt), opts[i+1].Value)
		assert.Contains(t, opts[i+1].Key, tt.Agent())
	}
}

func TestValidateTask(t *testing.T) {
	assert.NoError(t, validateTask("add a page"))
	assert.EqualError(t, validateTask(""), "task is required")
	assert.EqualError(t, validateTask(" \t "), "task is required")
}

func TestNewAnswer(t *testing.T) {
	tests := []struct {
		name     string
		task     string
		taskType string
		want     Answer
		override bool
	}{
		{"auto", "  build it  ", autoDetect, Answer{Task: "build it"}, false},
		{"explicit", "x", "frontend", Answer{Task: "x", TaskType: classify.TypeFrontend}, true},
		{"legacy alias", "x", "docs", Answer{Task: "x", TaskType: classify.TypeDocumentation}, true},
		{"unknown", "x", "nonsense", Answer{Task: "x"}, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := newAnswer(tc.task, tc.taskType)
			assert.Equal(t, tc.want, *got)
			assert.Equal(t, tc.override, got.Override())
		})
	}
}

func TestInteractive(t *testing.T) {
	assert.False(t, Interactive(strings.NewReader("task\n")))

	f, err := os.Create(filepath.Join(t.TempDir(), "input"))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	assert.False(t, Interactive(f), "regular files are not terminals")
}
