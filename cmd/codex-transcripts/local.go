package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Zuo-Peng/codex-transcripts/internal/index"
	"github.com/Zuo-Peng/codex-transcripts/internal/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func localCmd() *cobra.Command {
	var flags outputFlags
	var limit int

	cmd := &cobra.Command{
		Use:   "local",
		Short: "Select and convert a local Codex session to HTML",
		Long: `Lists the most recent sessions under the sessions root and converts the
selected one. In a terminal an interactive picker is shown (type to search all
messages); otherwise the sessions are printed as TSV:
  sessionKey, updatedAt, project, summary`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if _, err := os.Stat(cfg.SessionsRoot); isNotExist(err) {
				fmt.Fprintf(os.Stderr, "Sessions folder not found: %s\n", cfg.SessionsRoot)
				fmt.Fprintln(os.Stderr, "No local Codex sessions available.")
				return nil
			}

			fmt.Fprintln(os.Stderr, "Loading local sessions...")
			db, err := openCatalog(cfg, true)
			if err != nil {
				return err
			}
			defer db.Close()

			if !term.IsTerminal(int(os.Stdout.Fd())) {
				rows, err := db.RecentSessions(limit)
				if err != nil {
					return err
				}
				if len(rows) == 0 {
					fmt.Fprintln(os.Stderr, "No local sessions found.")
					return nil
				}
				writeSessionTSV(cmd.OutOrStdout(), rows)
				return nil
			}

			sel, err := tui.Pick(db, tui.Options{Limit: limit})
			if errors.Is(err, tui.ErrCancelled) {
				fmt.Fprintln(os.Stderr, "No session selected.")
				return nil
			}
			if err != nil {
				return err
			}
			return convertSession(cmd.Context(), cmd.OutOrStdout(), cfg, sel.FilePath, &flags)
		},
	}

	flags.register(cmd)
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of sessions to show")
	return cmd
}

func tsvField(s string) string {
	s = strings.NewReplacer("\t", " ", "\r", " ", "\n", " ").Replace(s)
	if s == "" {
		return "-"
	}
	return s
}

func writeSessionTSV(w io.Writer, rows []index.SessionRow) {
	for _, s := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			s.SessionKey,
			tsvField(s.UpdatedAt),
			tsvField(s.ProjectName),
			tsvField(s.Summary),
		)
	}
}
