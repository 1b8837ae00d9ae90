package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/aiteam-orchestrator/aiteam/internal/generate"
	"github.com/aiteam-orchestrator/aiteam/internal/ghaction"
	"github.com/aiteam-orchestrator/aiteam/internal/handoff"
)

func newApplyCommand(root *rootFlags) *cobra.Command {
	var keep bool

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Write the generated files into the working tree",
		Long: `Load the answer saved by generate, extract its file blocks and write them
under the working tree, backing up files that already exist.

When no saved answer exists the built-in template for the task is applied,
so the step always produces something.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, root)
			if err != nil {
				return err
			}

			st, err := a.loadHandoff()
			if err != nil {
				return err
			}
			if st == nil {
				slog.Warn("No saved generation found, applying the built-in template", "path", a.handoffPath())
				desc, err := a.describe()
				if err != nil {
					return err
				}
				res, err := (&generate.Generator{}).Generate(cmd.Context(), desc)
				if err != nil {
					return err
				}
				st = handoff.New(handoff.NewRunID(), desc, *res)
			}

			desc := st.Descriptor()
			_, res := a.apply(st.Generation.Text, desc, st.RunID)

			if !keep {
				if err := handoff.Remove(a.handoffPath()); err != nil {
					slog.Warn("Failed to remove saved generation", "error", err)
				}
			}

			return writeOutputs(a, fileOutputs(res), [][2]string{
				{ghaction.KeyGenerationSource, string(st.Generation.Source)},
			})
		},
	}

	cmd.Flags().BoolVar(&keep, "keep-handoff", false, "Keep the saved generation after applying it")
	return cmd
}
