package main

import (
	"github.com/spf13/cobra"
)

func newAnalyzeCommand(root *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze",
		Short: "Classify the task and emit task outputs",
		Long: `Classify the task from the triggering event and write the task, task_summary,
task_type and agent outputs. No model is called.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, root)
			if err != nil {
				return err
			}
			desc, err := a.describe()
			if err != nil {
				return err
			}
			return writeOutputs(a, taskOutputs(desc))
		},
	}
}
