package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	local := localCmd()
	rootCmd := &cobra.Command{
		Use:           "codex-transcripts",
		Short:         "Convert Codex session JSONL logs to browsable HTML transcripts",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			return nil
		},
		// no subcommand runs the local picker
		RunE: local.RunE,
	}
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Log debug details to stderr")
	rootCmd.Flags().AddFlagSet(local.Flags())

	rootCmd.AddCommand(local)
	rootCmd.AddCommand(jsonCmd())
	rootCmd.AddCommand(allCmd())
	rootCmd.AddCommand(indexCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(previewCmd())
	rootCmd.AddCommand(openCmd())
	rootCmd.AddCommand(inspectCmd())
	rootCmd.AddCommand(doctorCmd())
	return rootCmd
}
