package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/aiteam-orchestrator/aiteam/internal/classify"
	"github.com/aiteam-orchestrator/aiteam/internal/execution"
	"github.com/aiteam-orchestrator/aiteam/internal/extract"
	"github.com/aiteam-orchestrator/aiteam/internal/generate"
	"github.com/aiteam-orchestrator/aiteam/internal/ghaction"
	"github.com/aiteam-orchestrator/aiteam/internal/handoff"
	"github.com/aiteam-orchestrator/aiteam/internal/materialize"
	"github.com/aiteam-orchestrator/aiteam/internal/projectconfig"
	"github.com/aiteam-orchestrator/aiteam/internal/projectctx"
	"github.com/aiteam-orchestrator/aiteam/internal/spinner"
	"github.com/aiteam-orchestrator/aiteam/internal/templates"
	"github.com/aiteam-orchestrator/aiteam/internal/utils"
	"github.com/aiteam-orchestrator/aiteam/internal/wizard"
)

// newEngine is swapped in tests.
var newEngine = execution.New

const shutdownTimeout = 5 * time.Second

// app is the per-invocation state shared by the pipeline commands. The
// environment and project config are read once here and passed down.
type app struct {
	root string
	env  ghaction.Env
	cfg  *projectconfig.ProjectConfig
	in   io.Reader
	out  io.Writer

	// engineName is cfg.Engine after credential checks; empty means auto.
	engineName string
	apiKey     string
}

func loadApp(cmd *cobra.Command, flags *rootFlags) (*app, error) {
	env, err := ghaction.LoadEnv(environ())
	if err != nil {
		return nil, configErr(err)
	}

	root := flags.root
	if root == "" {
		root = env.Workspace
	}
	if root == "" {
		root = "."
	}
	root, err = filepath.Abs(root)
	if err != nil {
		return nil, configErr(fmt.Errorf("resolving root: %w", err))
	}
	if info, err := os.Stat(root); err != nil {
		return nil, configErr(fmt.Errorf("working tree: %w", err))
	} else if !info.IsDir() {
		return nil, configErr(fmt.Errorf("working tree %s is not a directory", root))
	}

	cfg, err := projectconfig.Load(root)
	if err != nil {
		return nil, configErr(err)
	}
	if env.ModelEngine != "" {
		cfg.Engine = env.ModelEngine
	}
	if env.ModelName != "" {
		cfg.Model = env.ModelName
	}
	if env.HandoffPath != "" {
		cfg.Output.Handoff = env.HandoffPath
	}

	slog.Debug("Loaded configuration", "root", root, "config", cfg.Path, "engine", cfg.Engine, "event", env.EventName)

	return &app{
		root:       root,
		env:        env,
		cfg:        cfg,
		in:         cmd.InOrStdin(),
		out:        cmd.OutOrStdout(),
		engineName: strings.ToLower(strings.TrimSpace(cfg.Engine)),
		apiKey:     env.APIKey,
	}, nil
}

// checkCredentials validates the model key when the selected engine needs
// one. With require_api_key disabled an unusable key downgrades the run to
// the template engine instead of failing it.
func (a *app) checkCredentials() error {
	if a.engineName != "" && a.engineName != execution.EngineTogether {
		return nil
	}
	err := ghaction.ValidateAPIKey(a.apiKey)
	if err == nil {
		return nil
	}
	if a.cfg.APIKeyRequired() {
		return configErr(err)
	}
	slog.Warn("Model credential unusable, using built-in templates", "error", err)
	a.apiKey = ""
	a.engineName = execution.EngineTemplate
	return nil
}

// describe classifies the task for this run. Task text comes from TASK when an
// earlier step already resolved it, then from the triggering event, then
// from an interactive prompt when a person is at the terminal.
func (a *app) describe() (classify.TaskDescriptor, error) {
	pctx, errs := projectctx.Probe(a.root)
	utils.WarnAll("Project probe failed", errs)

	text := a.env.TaskText()
	var picked classify.TaskType

	switch {
	case strings.TrimSpace(a.env.Task) != "":
		text = a.env.Task
	case a.env.HasEventTask():
	case !a.env.InGitHubCI && wizard.Interactive(a.in):
		answer, err := wizard.PromptTask(a.in, a.out)
		if err != nil {
			return classify.TaskDescriptor{}, err
		}
		text = answer.Task
		picked = answer.TaskType
	}

	desc := classify.Classify(text, pctx)

	if picked == "" && a.env.TaskType != "" {
		t, ok := classify.ParseTaskType(a.env.TaskType)
		if ok {
			picked = t
		} else {
			slog.Warn("Ignoring unknown TASK_TYPE", "value", a.env.TaskType)
		}
	}
	if picked != "" {
		desc.TaskType = picked
		desc.Agent = picked.Agent()
	}
	if agent := strings.TrimSpace(a.env.Agent); agent != "" {
		desc.Agent = agent
	}

	slog.Info("Classified task", "type", desc.TaskType, "agent", desc.Agent, "summary", desc.Summary)
	return desc, nil
}

// generate asks the configured engine for code. Engine construction and
// start-up failures are not fatal; the generator then uses templates.
func (a *app) generate(ctx context.Context, desc classify.TaskDescriptor, runID string) (*generate.Result, error) {
	gen := &generate.Generator{
		Timeout: a.cfg.TimeoutDuration(),
		Model:   a.cfg.Model,
		RunID:   runID,
	}

	engine, err := newEngine(execution.Config{
		Engine:   a.engineName,
		Model:    a.cfg.Model,
		Endpoint: a.cfg.Endpoint,
		APIKey:   a.apiKey,
	})
	if err != nil {
		return nil, configErr(err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	defer func() {
		if err := engine.Shutdown(shutdownCtx); err != nil {
			slog.Warn("Engine shutdown failed", "error", err)
		}
	}()

	if err := engine.Initialize(ctx); err != nil {
		slog.Warn("Engine failed to initialize", "error", err)
	} else {
		gen.Engine = engine
	}

	stop := func() {}
	if !a.env.InGitHubCI {
		stop = spinner.Maybe(os.Stderr, fmt.Sprintf("%s is working on it", desc.Agent))
	}
	defer stop()

	return gen.Generate(ctx, desc)
}

// apply extracts blocks from text and writes them under the root.
func (a *app) apply(text string, desc classify.TaskDescriptor, runID string) (*extract.Extraction, *materialize.Result) {
	ex := extract.Parse(text, extract.Options{
		DefaultPath: templates.DefaultPath(desc.TaskType, desc.Context.Language()),
	})
	if ex.FellBack {
		slog.Warn("No file blocks found, writing the whole response to one file", "path", ex.Blocks[0].Path)
	}

	res := materialize.Materialize(ex.Blocks, a.root, materialize.Options{
		BackupSuffix: a.cfg.Output.BackupSuffix,
		SummaryFile:  a.cfg.Output.SummaryFile,
		Agent:        desc.Agent,
		TaskType:     string(desc.TaskType),
		Task:         desc.RawText,
		RunID:        runID,
	})

	slog.Info("Applied generated files", "written", len(res.Written), "failed", len(res.Failed), "dropped", len(ex.Dropped))
	return ex, res
}

func (a *app) handoffPath() string {
	p := a.cfg.Output.Handoff
	if p == "" {
		return handoff.DefaultPath(a.env.RunnerTemp, a.env.RunID)
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(a.root, p)
	}
	return p
}

// outputs opens the step-output channel: GITHUB_OUTPUT when set, otherwise
// the command's stdout.
func (a *app) outputs() (*ghaction.OutputWriter, error) {
	if a.env.OutputPath == "" {
		return ghaction.NewOutputWriterTo(a.out), nil
	}
	return ghaction.NewOutputWriter(a.env.OutputPath)
}

func taskOutputs(desc classify.TaskDescriptor) [][2]string {
	return [][2]string{
		{ghaction.KeyTask, desc.RawText},
		{ghaction.KeyTaskSummary, desc.Summary},
		{ghaction.KeyTaskType, string(desc.TaskType)},
		{ghaction.KeyAgent, desc.Agent},
	}
}

func fileOutputs(res *materialize.Result) [][2]string {
	return [][2]string{
		{ghaction.KeyFilesCreated, ghaction.Join(res.Written)},
		{ghaction.KeyFilesFailed, ghaction.Join(res.FailedPaths())},
		{ghaction.KeyChangesMade, ghaction.Bool(res.Changed())},
	}
}

func writeOutputs(a *app, kv ...[][2]string) (err error) {
	o, err := a.outputs()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := o.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	for _, group := range kv {
		if err := o.SetAll(group...); err != nil {
			return err
		}
	}
	return nil
}

// loadHandoff returns the state left by generate, or nil when there is none.
func (a *app) loadHandoff() (*handoff.State, error) {
	st, err := handoff.Load(a.handoffPath())
	if errors.Is(err, handoff.ErrNotFound) {
		return nil, nil
	}
	return st, err
}
