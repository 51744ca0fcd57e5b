package main

import (
	"fmt"

	"github.com/Zuo-Peng/codex-transcripts/internal/preview"
	"github.com/spf13/cobra"
)

func previewCmd() *cobra.Command {
	var hitIndex, context, width int
	var query string

	cmd := &cobra.Command{
		Use:   "preview <sessionKey>",
		Short: "Preview an indexed session around a hit",
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

			out, _, err := preview.RenderSession(db, args[0], preview.Options{
				HitIndex: hitIndex,
				Context:  context,
				Width:    width,
				Query:    query,
			})
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().IntVar(&hitIndex, "hit", -1, "Event index to highlight")
	cmd.Flags().IntVar(&context, "context", 10, "Events before/after the hit to show (-1 for all)")
	cmd.Flags().IntVar(&width, "width", 0, "Wrap width (0 = no wrap)")
	cmd.Flags().StringVar(&query, "query", "", "Search query for keyword highlighting")

	return cmd
}
