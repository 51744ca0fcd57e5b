package main

import (
	"github.com/Zuo-Peng/codex-transcripts/internal/open"
	"github.com/spf13/cobra"
)

func openCmd() *cobra.Command {
	var hitIndex int

	cmd := &cobra.Command{
		Use:   "open <sessionKey>",
		Short: "Open the original JSONL file in $EDITOR at the hit line",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := openCatalog(cfg, false)
			if err != nil {
				return err
			}
			defer db.Close()

			return open.OpenSession(db, args[0], hitIndex)
		},
	}

	cmd.Flags().IntVar(&hitIndex, "hit", -1, "Event index to jump to")

	return cmd
}
