package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	defaultPerPage           = 5
	defaultLongTextThreshold = 300
)

type Config struct {
	SessionsRoot      string `toml:"sessions_root"`
	ArchiveDir        string `toml:"archive_dir"`
	DBPath            string `toml:"db_path"`
	PromptsPerPage    int    `toml:"prompts_per_page"`
	LongTextThreshold int    `toml:"long_text_threshold"`
	GHPath            string `toml:"gh_path"`
}

// Path returns the location of the config file.
func Path(home string) string {
	return filepath.Join(home, ".config", "codex-transcripts", "config.toml")
}

func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return LoadFile(Path(home), home)
}

// LoadFile reads the config at cfgPath over the defaults. A missing file
// yields the defaults.
func LoadFile(cfgPath, home string) (*Config, error) {
	cfg := &Config{
		SessionsRoot:      filepath.Join(home, ".codex", "sessions"),
		ArchiveDir:        "codex-archive",
		DBPath:            filepath.Join(home, ".config", "codex-transcripts", "index.db"),
		PromptsPerPage:    defaultPerPage,
		LongTextThreshold: defaultLongTextThreshold,
	}

	if _, err := os.Stat(cfgPath); err == nil {
		if _, err := toml.DecodeFile(cfgPath, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", cfgPath, err)
		}
	}

	if cfg.PromptsPerPage < 1 {
		cfg.PromptsPerPage = defaultPerPage
	}
	if cfg.LongTextThreshold < 1 {
		cfg.LongTextThreshold = defaultLongTextThreshold
	}

	// expand ~ in paths
	cfg.SessionsRoot = expandHome(cfg.SessionsRoot, home)
	cfg.ArchiveDir = expandHome(cfg.ArchiveDir, home)
	cfg.DBPath = expandHome(cfg.DBPath, home)
	cfg.GHPath = expandHome(cfg.GHPath, home)

	return cfg, nil
}

func expandHome(path, home string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		return filepath.Join(home, path[2:])
	}
	return path
}
