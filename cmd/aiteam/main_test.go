package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aiteam-orchestrator/aiteam/internal/ghaction"
)

func TestConfigError(t *testing.T) {
	err := configErr(ghaction.ErrMissingAPIKey)

	assert.Equal(t, "configuration error: TOGETHER_API_KEY is required", err.Error())
	assert.ErrorIs(t, err, ghaction.ErrMissingAPIKey)
	assert.Nil(t, configErr(nil))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, ExitSuccess},
		{"config error", &ConfigError{Err: errors.New("bad")}, ExitConfigError},
		{"wrapped config error", fmt.Errorf("generate: %w", configErr(ghaction.ErrInvalidAPIKey)), ExitConfigError},
		{"joined config error", errors.Join(errors.New("context"), &ConfigError{Err: errors.New("bad")}), ExitConfigError},
		{"runtime error", errors.New("disk full"), ExitError},
		{"bare sentinel", ghaction.ErrMissingAPIKey, ExitError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}
