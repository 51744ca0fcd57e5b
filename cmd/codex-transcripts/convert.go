package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/Zuo-Peng/codex-transcripts/internal/config"
	"github.com/Zuo-Peng/codex-transcripts/internal/gist"
	"github.com/Zuo-Peng/codex-transcripts/internal/index"
	"github.com/Zuo-Peng/codex-transcripts/internal/open"
	"github.com/Zuo-Peng/codex-transcripts/internal/parse"
	"github.com/Zuo-Peng/codex-transcripts/internal/render"
	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"
)

// outputFlags are shared by the commands that convert a single session.
type outputFlags struct {
	output      string
	auto        bool
	includeJSON bool
	gist        bool
	gistPublic  bool
	open        bool
	copy        bool
}

func (f *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "Output directory (default: temp dir, opened in the browser)")
	cmd.Flags().BoolVarP(&f.auto, "output-auto", "a", false, "Write to a subdirectory named after the session file")
	cmd.Flags().BoolVar(&f.includeJSON, "json", false, "Include the original JSONL file in the output")
	cmd.Flags().BoolVar(&f.gist, "gist", false, "Publish the transcript as a secret GitHub gist")
	cmd.Flags().BoolVar(&f.gistPublic, "gist-public", false, "Publish as a public gist (implies --gist)")
	cmd.Flags().BoolVar(&f.open, "open", false, "Open index.html in the browser (default when no -o is given)")
	cmd.Flags().BoolVar(&f.copy, "copy", false, "Copy the gist preview URL (or the index URL) to the clipboard")
}

// outputDir resolves where a session's transcript goes and whether it should
// be opened automatically.
func (f *outputFlags) outputDir(sessionPath string) (dir string, autoOpen bool) {
	stem := parse.Stem(sessionPath)
	switch {
	case f.auto:
		parent := f.output
		if parent == "" {
			parent = "."
		}
		return filepath.Join(parent, stem), false
	case f.output != "":
		return f.output, false
	default:
		return filepath.Join(os.TempDir(), "codex-session-"+stem), true
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// openCatalog opens the index database and brings it up to date.
func openCatalog(cfg *config.Config, sync bool) (*index.DB, error) {
	db, err := index.OpenDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if sync {
		if _, err := os.Stat(cfg.SessionsRoot); err == nil {
			if _, err := index.Sync(db, cfg.SessionsRoot, cfg.PromptsPerPage); err != nil {
				db.Close()
				return nil, fmt.Errorf("index: %w", err)
			}
		}
	}
	return db, nil
}

func renderOptions(cfg *config.Config, includeJSON bool) render.Options {
	return render.Options{
		IncludeJSON:       includeJSON,
		PerPage:           cfg.PromptsPerPage,
		LongTextThreshold: cfg.LongTextThreshold,
	}
}

// convertSession renders sessionPath per the output flags, then publishes,
// copies and opens as requested.
func convertSession(ctx context.Context, w io.Writer, cfg *config.Config, sessionPath string, f *outputFlags) error {
	s, err := parse.ParseFile(sessionPath)
	if err != nil {
		return err
	}

	r, err := render.New()
	if err != nil {
		return err
	}
	dir, autoOpen := f.outputDir(sessionPath)
	indexPath, err := r.GenerateSession(s, dir, renderOptions(cfg, f.includeJSON))
	if err != nil {
		return err
	}
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	fmt.Fprintf(w, "Output: %s\n", dir)

	indexURL := open.FileURL(indexPath)
	copyTarget := indexURL

	if f.gist || f.gistPublic {
		fmt.Fprintln(w, "Creating GitHub gist...")
		res, err := gist.Create(ctx, dir, gist.Options{
			GHPath:        cfg.GHPath,
			Description:   gist.Description(s),
			IndexFilename: gist.IndexFilename(s),
			Public:        f.gistPublic,
			IncludeJSON:   f.includeJSON,
		})
		if err != nil {
			return err
		}
		if res.URL != "" {
			fmt.Fprintf(w, "Gist: %s\n", res.URL)
			copyTarget = res.URL
		} else {
			fmt.Fprintln(w, "Gist created, but no URL was returned.")
		}
		if res.PreviewURL != "" {
			fmt.Fprintf(w, "Preview: %s\n", res.PreviewURL)
			copyTarget = res.PreviewURL
		}
	}

	if f.copy {
		if err := clipboard.WriteAll(copyTarget); err != nil {
			fmt.Fprintf(os.Stderr, "clipboard unavailable: %v\n", err)
		} else {
			fmt.Fprintf(w, "Copied to clipboard: %s\n", copyTarget)
		}
	}

	if f.open || autoOpen {
		return open.Browser(indexURL, w)
	}
	return nil
}

func isNotExist(err error) bool {
	return errors.Is(err, os.ErrNotExist)
}
