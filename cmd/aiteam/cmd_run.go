package main

import (
	"github.com/spf13/cobra"

	"github.com/aiteam-orchestrator/aiteam/internal/ghaction"
	"github.com/aiteam-orchestrator/aiteam/internal/handoff"
)

func newRunCommand(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Classify, generate and apply in one step",
		Long: `Run the whole pipeline in one process: classify the task, generate code,
extract the file blocks and write them into the working tree. Writes the
outputs of analyze, generate and apply.`,
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
			gen, err := a.generate(cmd.Context(), desc, runID)
			if err != nil {
				return err
			}

			_, res := a.apply(gen.Text, desc, runID)

			return writeOutputs(a, taskOutputs(desc), fileOutputs(res), [][2]string{
				{ghaction.KeyGenerationSource, string(gen.Source)},
				{ghaction.KeyRunID, runID},
			})
		},
	}
}
