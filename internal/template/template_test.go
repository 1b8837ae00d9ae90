package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name    string
		tmpl    string
		ctx     *Context
		want    string
		wantErr bool
	}{
		{
			name: "agent",
			tmpl: "Generated by {{.Agent}}",
			ctx:  &Context{Agent: "Bug Hunter"},
			want: "Generated by Bug Hunter",
		},
		{
			name: "task type and run id",
			tmpl: "{{.TaskType}}/{{.RunID}}",
			ctx:  &Context{TaskType: "frontend", RunID: "abc-123"},
			want: "frontend/abc-123",
		},
		{
			name: "user-defined Vars",
			tmpl: "framework={{.Vars.framework}}",
			ctx:  &Context{Vars: map[string]string{"framework": "react"}},
			want: "framework=react",
		},
		{
			name: "range over files",
			tmpl: "{{range .Files}}- {{.}}\n{{end}}",
			ctx:  &Context{Files: []string{"a.txt", "b.txt"}},
			want: "- a.txt\n- b.txt\n",
		},
		{
			name: "truncate helper",
			tmpl: "{{truncate 5 .Task}}",
			ctx:  &Context{Task: "héllo world"},
			want: "héllo",
		},
		{
			name: "oneline helper",
			tmpl: "{{oneline .Task}}",
			ctx:  &Context{Task: "fix\nthe   bug\r\n"},
			want: "fix the bug",
		},
		{
			name: "join helper",
			tmpl: `{{join .Files ", "}}`,
			ctx:  &Context{Files: []string{"a", "b"}},
			want: "a, b",
		},
		{
			name: "no templates passthrough",
			tmpl: "plain string with no templates",
			ctx:  &Context{Agent: "ignored"},
			want: "plain string with no templates",
		},
		{
			name: "empty string input",
			tmpl: "",
			ctx:  &Context{},
			want: "",
		},
		{
			name:    "missing field",
			tmpl:    "{{.NoSuchField}}",
			ctx:     &Context{},
			wantErr: true,
		},
		{
			name:    "missing Vars key",
			tmpl:    "{{.Vars.missing}}",
			ctx:     &Context{Vars: map[string]string{}},
			wantErr: true,
		},
		{
			name:    "invalid template syntax",
			tmpl:    "bad {{.Unclosed",
			ctx:     &Context{},
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Render(tc.tmpl, tc.ctx)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "template:")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMustRenderPanicsOnBadTemplate(t *testing.T) {
	require.Panics(t, func() {
		MustRender("{{.Nope}}", &Context{})
	})
	require.Equal(t, "ok", MustRender("ok", nil))
}
