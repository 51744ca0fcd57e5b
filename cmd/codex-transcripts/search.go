package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Zuo-Peng/codex-transcripts/internal/search"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const (
	sColorReset   = "\033[0m"
	sColorBoldRed = "\033[1;31m"
	sColorGreen   = "\033[1;32m"
	sColorDim     = "\033[2m"
)

func colorizeSnippet(snippet string, color bool) string {
	if !color {
		return strings.NewReplacer(">>>", "", "<<<", "").Replace(snippet)
	}
	return strings.NewReplacer(">>>", sColorBoldRed, "<<<", sColorReset).Replace(snippet)
}

func searchCmd() *cobra.Command {
	var project, role, since string
	var limit int
	var color bool

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search across indexed sessions",
		Long: `Search indexed messages using FTS5 (substring match for CJK queries).
Output is TSV for fzf integration:
  sessionKey, eventIndex, updatedAt, project, summary, snippet, link

Example shell function:
  ctf() {
    codex-transcripts search --color "$*" | fzf \
      --ansi \
      --delimiter='\t' --with-nth=3.. \
      --preview 'codex-transcripts preview {1} --hit {2} --context 5 --query {q}' \
      --preview-window=right:60%:wrap \
      --bind 'enter:execute(codex-transcripts open {1} --hit {2})'
  }`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			db, err := openCatalog(cfg, true)
			if err != nil {
				return err
			}
			defer db.Close()

			results, err := search.Search(db, search.Options{
				Query:   args[0],
				Project: project,
				Role:    role,
				Since:   since,
				Limit:   limit,
			})
			if err != nil {
				return err
			}

			if len(results) == 0 {
				fmt.Fprintln(os.Stderr, "No results found.")
				return nil
			}

			if !cmd.Flags().Changed("color") {
				color = term.IsTerminal(int(os.Stdout.Fd()))
			}
			writeResultTSV(cmd.OutOrStdout(), results, color)
			return nil
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "Filter by project (substring of repo or cwd)")
	cmd.Flags().StringVar(&role, "role", "", "Filter by role (user/assistant/tool)")
	cmd.Flags().StringVar(&since, "since", "", "Filter sessions updated since date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 100, "Max results")
	cmd.Flags().BoolVar(&color, "color", false, "Colourise output (default: when stdout is a terminal)")

	return cmd
}

func writeResultTSV(w io.Writer, results []search.Result, color bool) {
	for _, r := range results {
		updated := tsvField(r.UpdatedAt)
		projectName := tsvField(r.ProjectName)
		if color {
			updated = sColorDim + updated + sColorReset
			projectName = sColorGreen + projectName + sColorReset
		}
		// first two fields stay plain for fzf {1} {2}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			r.SessionKey,
			r.EventIndex,
			updated,
			projectName,
			tsvField(r.Summary),
			colorizeSnippet(tsvField(r.Snippet), color),
			tsvField(r.Link()),
		)
	}
}
