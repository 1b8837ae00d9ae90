package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/aiteam-orchestrator/aiteam/internal/extract"
)

const maxPathColumn = 60

type extractFlags struct {
	format      string
	defaultPath string
	content     bool
}

func newExtractCommand() *cobra.Command {
	flags := &extractFlags{format: "table"}

	cmd := &cobra.Command{
		Use:   "extract [file|-]",
		Short: "Show the file blocks a model answer would produce",
		Long: `Parse a model answer and print the file blocks that apply would write,
without touching the working tree. Reads stdin when the file is "-" or
omitted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src := "-"
			if len(args) == 1 {
				src = args[0]
			}
			return runExtractCommand(cmd, src, flags)
		},
	}

	cmd.Flags().StringVar(&flags.format, "format", flags.format, "Output format: table|yaml|json")
	cmd.Flags().StringVar(&flags.defaultPath, "default-path", extract.DefaultFallbackPath, "Path used when the input has no file blocks")
	cmd.Flags().BoolVar(&flags.content, "content", false, "Include block content in table output")

	return cmd
}

func runExtractCommand(cmd *cobra.Command, src string, flags *extractFlags) error {
	if flags.format != "table" && flags.format != "yaml" && flags.format != "json" {
		return configErr(fmt.Errorf("invalid format %q: must be table, yaml or json", flags.format))
	}

	raw, err := readSource(cmd, src)
	if err != nil {
		return err
	}

	ex := extract.Parse(string(raw), extract.Options{DefaultPath: flags.defaultPath})

	out := cmd.OutOrStdout()
	switch flags.format {
	case "json":
		data, err := json.MarshalIndent(ex, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	case "yaml":
		data, err := yaml.Marshal(ex)
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	default:
		return writeExtractTable(out, ex, flags.content)
	}
}

func readSource(cmd *cobra.Command, src string) ([]byte, error) {
	if src == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", src, err)
	}
	return data, nil
}

func writeExtractTable(w io.Writer, ex *extract.Extraction, withContent bool) error {
	if len(ex.Blocks) == 0 {
		_, err := fmt.Fprintln(w, "No file blocks.")
		return err
	}

	width := len("PATH")
	for _, b := range ex.Blocks {
		width = max(width, runewidth.StringWidth(truncatePath(b.Path)))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s  %-10s  %-8s  %s\n", padRight("PATH", width), "LANGUAGE", "SOURCE", "LINES")
	for _, b := range ex.Blocks {
		lang := b.Language
		if lang == "" {
			lang = "-"
		}
		fmt.Fprintf(&sb, "%s  %-10s  %-8s  %d\n", padRight(truncatePath(b.Path), width), lang, b.Source, lineCount(b.Content))
		if withContent {
			for _, line := range strings.Split(b.Content, "\n") {
				sb.WriteString("    | ")
				sb.WriteString(line)
				sb.WriteString("\n")
			}
		}
	}

	for _, d := range ex.Dropped {
		fmt.Fprintf(&sb, "dropped %q (%s): %s\n", d.Path, d.Source, d.Reason)
	}
	for _, p := range ex.Duplicates {
		fmt.Fprintf(&sb, "duplicate %s: last block kept\n", p)
	}
	if ex.FellBack {
		sb.WriteString("no file blocks declared; whole input used as one file\n")
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// truncatePath shortens p to maxPathColumn display columns, keeping the end.
func truncatePath(p string) string {
	if runewidth.StringWidth(p) <= maxPathColumn {
		return p
	}
	runes := []rune(p)
	for runewidth.StringWidth(string(runes))+1 > maxPathColumn {
		runes = runes[1:]
	}
	return "…" + string(runes)
}

// padRight pads s with spaces so its terminal display width reaches width.
func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}

func lineCount(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}
