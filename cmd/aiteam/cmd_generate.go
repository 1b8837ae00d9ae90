package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aiteam-orchestrator/aiteam/internal/ghaction"
	"github.com/aiteam-orchestrator/aiteam/internal/handoff"
)

func newGenerateCommand(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Generate code for the task and hand it to apply",
		Long: `Classify the task (or take TASK, TASK_TYPE and AGENT from an earlier step),
ask the configured engine for code and save the answer for the apply step.

A missing or malformed TOGETHER_API_KEY fails the step unless
require_api_key is false in .aiteam.yaml. Model failures never fail the step;
the built-in template for the task type is used instead.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, root)
			if err != nil {
				return err
			}
			if err := a.checkCredentials(); err != nil {
				return err
			}

			desc, err := a.describe()
			if err != nil {
				return err
			}

			runID := handoff.NewRunID()
			res, err := a.generate(cmd.Context(), desc, runID)
			if err != nil {
				return err
			}

			path := a.handoffPath()
			if err := handoff.Save(path, handoff.New(runID, desc, *res)); err != nil {
				return err
			}
			slog.Info("Saved generation", "path", path, "source", res.Source, "runID", runID)

			return writeOutputs(a, taskOutputs(desc), [][2]string{
				{ghaction.KeyGenerationSource, string(res.Source)},
				{ghaction.KeyRunID, runID},
			})
		},
	}
}
