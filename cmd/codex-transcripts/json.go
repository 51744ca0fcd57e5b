package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func jsonCmd() *cobra.Command {
	var flags outputFlags

	cmd := &cobra.Command{
		Use:   "json <file>",
		Short: "Convert a Codex session JSONL file to HTML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); err != nil {
				return fmt.Errorf("session file: %w", err)
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return convertSession(cmd.Context(), cmd.OutOrStdout(), cfg, args[0], &flags)
		},
	}

	flags.register(cmd)
	return cmd
}
