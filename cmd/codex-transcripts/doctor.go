package main

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/Zuo-Peng/codex-transcripts/internal/scan"
	"github.com/spf13/cobra"
)

func doctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Self-check: verify sessions root, catalog, FTS5 and gh",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			fmt.Println("=== Sessions ===")
			checkDir("Root", cfg.SessionsRoot)
			if files, err := scan.Scan(cfg.SessionsRoot); err != nil {
				fmt.Printf("  scan error: %v\n", err)
			} else {
				fmt.Printf("  JSONL files: %d\n", len(files))
			}

			fmt.Println("\n=== GitHub CLI ===")
			gh := cfg.GHPath
			if gh == "" {
				gh = "gh"
			}
			if path, err := exec.LookPath(gh); err != nil {
				fmt.Printf("  gh: NOT FOUND (needed for --gist)\n")
			} else {
				fmt.Printf("  gh: %s (OK)\n", path)
			}

			fmt.Println("\n=== Database ===")
			fmt.Printf("  Path: %s\n", cfg.DBPath)
			if _, err := os.Stat(cfg.DBPath); os.IsNotExist(err) {
				fmt.Println("  Status: NOT FOUND (run 'codex-transcripts index' first)")
				return nil
			}

			db, err := openCatalog(cfg, false)
			if err != nil {
				return err
			}
			defer db.Close()

			sessionCount, err := db.SessionCount()
			if err != nil {
				return fmt.Errorf("count sessions: %w", err)
			}
			eventCount, err := db.EventCount()
			if err != nil {
				return fmt.Errorf("count events: %w", err)
			}
			fmt.Printf("  Sessions: %d\n", sessionCount)
			fmt.Printf("  Events:   %d\n", eventCount)

			fmt.Println("\n=== FTS5 ===")
			if ftsCount, err := db.FTSCount(); err != nil {
				fmt.Printf("  FTS5 error: %v\n", err)
			} else {
				fmt.Printf("  FTS5 entries: %d\n", ftsCount)
				if ftsCount == eventCount {
					fmt.Println("  Status: OK (synced)")
				} else {
					fmt.Printf("  Status: MISMATCH (events=%d, fts=%d)\n", eventCount, ftsCount)
				}
			}

			if info, err := os.Stat(cfg.DBPath); err == nil {
				fmt.Printf("\n=== DB Size: %.1f MB ===\n", float64(info.Size())/1024/1024)
			}
			return nil
		},
	}
}

func checkDir(name, path string) {
	if info, err := os.Stat(path); err != nil {
		fmt.Printf("  %s: %s (NOT FOUND)\n", name, path)
	} else if !info.IsDir() {
		fmt.Printf("  %s: %s (NOT A DIRECTORY)\n", name, path)
	} else {
		fmt.Printf("  %s: %s (OK)\n", name, path)
	}
}
