package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Zuo-Peng/codex-transcripts/internal/archive"
	"github.com/Zuo-Peng/codex-transcripts/internal/open"
	"github.com/Zuo-Peng/codex-transcripts/internal/render"
	"github.com/spf13/cobra"
)

func allCmd() *cobra.Command {
	var source, output string
	var includeJSON, openBrowser, quiet bool

	cmd := &cobra.Command{
		Use:   "all",
		Short: "Convert all local Codex sessions to a browsable HTML archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if source == "" {
				source = cfg.SessionsRoot
			}
			if output == "" {
				output = cfg.ArchiveDir
			}
			if _, err := os.Stat(source); err != nil {
				return fmt.Errorf("source directory not found: %s", source)
			}

			out := cmd.OutOrStdout()
			logf := func(format string, a ...any) {
				if !quiet {
					fmt.Fprintf(out, format, a...)
				}
			}

			logf("Scanning %s...\n", source)
			projects, err := archive.FindAllSessions(source)
			if err != nil {
				return err
			}
			if len(projects) == 0 {
				logf("No sessions found.\n")
				return nil
			}
			total := 0
			for _, p := range projects {
				total += len(p.Sessions)
			}
			logf("Found %d projects with %d sessions\n", len(projects), total)

			res, err := archive.GenerateProjects(projects, output, archive.Options{
				Options: renderOptions(cfg, includeJSON),
				Progress: func(_, _ string, done, total int) {
					if done%10 == 0 {
						logf("  Processed %d/%d sessions...\n", done, total)
					}
				},
			})
			if err != nil {
				return err
			}

			if len(res.Failures) > 0 {
				fmt.Fprintf(os.Stderr, "\nWarning: %d session(s) failed:\n", len(res.Failures))
				for _, f := range res.Failures {
					fmt.Fprintf(os.Stderr, "  %s\n", f.Error())
				}
			}

			abs, err := filepath.Abs(output)
			if err != nil {
				abs = output
			}
			logf("\nGenerated archive with %d projects, %d sessions\n", res.TotalProjects, res.TotalSessions)
			logf("Output: %s\n", abs)

			if openBrowser {
				return open.Browser(open.FileURL(filepath.Join(abs, render.IndexFile)), out)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&source, "source", "s", "", "Sessions directory (default: sessions_root from config)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Archive directory (default: archive_dir from config)")
	cmd.Flags().BoolVar(&includeJSON, "json", false, "Include the original JSONL files alongside the HTML")
	cmd.Flags().BoolVar(&openBrowser, "open", false, "Open the archive in the browser")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	return cmd
}
