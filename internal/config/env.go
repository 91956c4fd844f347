package config

import "github.com/dmitrijs2005/pbx/internal/common"

// parseEnv overlays cfg with the PBX_* variables. Empty credentials are
// ignored; an empty PBX_JOURNAL disables the journal.
func parseEnv(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup(common.EnvKeyFile); ok && v != "" {
		cfg.KeyFile = v
	}
	if v, ok := lookup(common.EnvAPIKey); ok && v != "" {
		cfg.APIKey = v
	}
	if v, ok := lookup(common.EnvJournal); ok {
		cfg.JournalPath = v
	}
}
