package execution

import (
	"fmt"
	"strings"
)

// Config selects and configures an engine.
type Config struct {
	Engine   string
	Model    string
	Endpoint string
	APIKey   string
}

// New builds the engine named by cfg.Engine. An empty name selects the
// together engine when an API key is present and the template engine
// otherwise.
func New(cfg Config) (AgentEngine, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Engine))
	if name == "" {
		name = EngineTemplate
		if cfg.APIKey != "" {
			name = EngineTogether
		}
	}

	switch name {
	case EngineTogether:
		return NewTogetherEngine(TogetherOptions{
			Endpoint: cfg.Endpoint,
			APIKey:   cfg.APIKey,
			Model:    cfg.Model,
		}), nil
	case EngineCopilot:
		return NewCopilotEngineBuilder(cfg.Model, nil).Build(), nil
	case EngineTemplate:
		return NewTemplateEngine(), nil
	default:
		return nil, fmt.Errorf("unknown engine %q (want %s, %s or %s)", cfg.Engine, EngineTogether, EngineCopilot, EngineTemplate)
	}
}
