// Package projectconfig provides the ProjectConfig struct and loader for
// .aiteam.yaml project-level configuration files.
package projectconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aiteam-orchestrator/aiteam/internal/utils"
	"github.com/aiteam-orchestrator/aiteam/internal/validation"
)

// FileName is the config file looked up by Load.
const FileName = ".aiteam.yaml"

// Default values for project configuration. New() references them and no
// other code should duplicate them.
const (
	// DefaultEngine is empty: the engine is picked from the available
	// credentials at run time.
	DefaultEngine  = ""
	DefaultTimeout = 60

	DefaultBackupSuffix = ".backup"
	DefaultSummaryFile  = "AI-TEAM-README.md"
)

// maxWalkUp bounds the directory walk in findConfigFile.
const maxWalkUp = 10

// OutputConfig controls how generated files land in the tree.
type OutputConfig struct {
	BackupSuffix string `yaml:"backup_suffix,omitempty"`
	SummaryFile  string `yaml:"summary_file,omitempty"`
	// Handoff is the file passed from generate to apply; empty means the
	// temp dir default.
	Handoff string `yaml:"handoff,omitempty"`
}

// ProjectConfig is the top-level configuration loaded from .aiteam.yaml.
type ProjectConfig struct {
	Engine        string       `yaml:"engine,omitempty"`
	Model         string       `yaml:"model,omitempty"`
	Endpoint      string       `yaml:"endpoint,omitempty"`
	Timeout       int          `yaml:"timeout,omitempty"`
	RequireAPIKey *bool        `yaml:"require_api_key,omitempty"`
	Output        OutputConfig `yaml:"output,omitempty"`

	// Path is the file the config was read from; empty for defaults.
	Path string `yaml:"-"`
}

// InvalidError is returned when the config file does not match the schema.
type InvalidError struct {
	Path     string
	Problems []string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("%s is invalid:\n  %s", e.Path, strings.Join(e.Problems, "\n  "))
}

// New returns a ProjectConfig with all hard-coded defaults populated.
func New() *ProjectConfig {
	return &ProjectConfig{
		Engine:        DefaultEngine,
		Timeout:       DefaultTimeout,
		RequireAPIKey: utils.Ptr(true),
		Output: OutputConfig{
			BackupSuffix: DefaultBackupSuffix,
			SummaryFile:  DefaultSummaryFile,
		},
	}
}

// TimeoutDuration returns Timeout as a duration.
func (c *ProjectConfig) TimeoutDuration() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// APIKeyRequired reports whether a missing or malformed key is fatal.
func (c *ProjectConfig) APIKeyRequired() bool {
	return c.RequireAPIKey == nil || *c.RequireAPIKey
}

// Load finds .aiteam.yaml by walking up from startDir (max 10 levels),
// validates and unmarshals it, and fills in missing fields with defaults.
// If no config file is found, returns defaults with a nil error.
// Real I/O errors (e.g. permission denied) are returned to the caller.
func Load(startDir string) (*ProjectConfig, error) {
	cfg := New()

	path, data, err := findConfigFile(startDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("loading %s: %w", FileName, err)
	}

	if problems := validation.ValidateProjectConfigBytes(data); len(problems) > 0 {
		return nil, &InvalidError{Path: path, Problems: problems}
	}

	var fileCfg ProjectConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	mergeConfig(cfg, &fileCfg)
	cfg.Path = path
	return cfg, nil
}

// findConfigFile walks up from dir looking for .aiteam.yaml. Returns
// os.ErrNotExist if no config file is found.
func findConfigFile(dir string) (string, []byte, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", nil, fmt.Errorf("resolving path %q: %w", dir, err)
	}
	dir = absDir

	for range maxWalkUp {
		p := filepath.Join(dir, FileName)
		data, err := os.ReadFile(p)
		if err == nil {
			return p, data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", nil, fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", nil, os.ErrNotExist
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *ProjectConfig) {
	if src.Engine != "" {
		dst.Engine = src.Engine
	}
	if src.Model != "" {
		dst.Model = src.Model
	}
	if src.Endpoint != "" {
		dst.Endpoint = src.Endpoint
	}
	if src.Timeout != 0 {
		dst.Timeout = src.Timeout
	}
	if src.RequireAPIKey != nil {
		dst.RequireAPIKey = src.RequireAPIKey
	}

	if src.Output.BackupSuffix != "" {
		dst.Output.BackupSuffix = src.Output.BackupSuffix
	}
	if src.Output.SummaryFile != "" {
		dst.Output.SummaryFile = src.Output.SummaryFile
	}
	if src.Output.Handoff != "" {
		dst.Output.Handoff = src.Output.Handoff
	}
}
