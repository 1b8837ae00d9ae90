package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

// environ is swapped in tests.
var environ = os.Environ

type rootFlags struct {
	debug bool
	root  string
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "aiteam",
		Short: "aiteam - turn issues into generated code",
		Long: `aiteam classifies a task taken from a GitHub issue, comment or manual
dispatch, asks a model (or a built-in template) for code, and writes the
resulting files into the working tree.

In a workflow the steps usually run as analyze, generate and apply; run does
all of them in one process.`,
		Version:      version,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVar(&flags.debug, "debug", false, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&flags.root, "root", "", "Working tree to read and write (default: $GITHUB_WORKSPACE or the current directory)")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if flags.debug {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
	}

	cmd.AddCommand(newAnalyzeCommand(flags))
	cmd.AddCommand(newGenerateCommand(flags))
	cmd.AddCommand(newApplyCommand(flags))
	cmd.AddCommand(newRunCommand(flags))
	cmd.AddCommand(newExtractCommand())

	return cmd
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}
