package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/pbx/internal/auth"
	"github.com/dmitrijs2005/pbx/internal/dispatch"
	"github.com/dmitrijs2005/pbx/internal/docstore"
)

// Config holds runtime settings for one pbx invocation.
type Config struct {
	KeyFile     string
	APIKey      string
	TokenExpiry time.Duration

	MaxOutstanding  int
	Interval        time.Duration
	Attempts        int
	StopOnFirstFail bool

	// JournalPath is the upload history database; empty disables it.
	JournalPath string

	S3      docstore.S3Config
	Verbose bool
}

var userHomeDir = os.UserHomeDir

// LoadDefaults populates c with the defaults of the integration API.
func (c *Config) LoadDefaults() {
	c.TokenExpiry = auth.DefaultExpiry
	c.MaxOutstanding = dispatch.DefaultMaxOutstanding
	c.Interval = dispatch.DefaultInterval
	c.Attempts = dispatch.DefaultAttempts
	c.StopOnFirstFail = false
	c.JournalPath = defaultJournalPath()
}

func defaultJournalPath() string {
	home, err := userHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, ".pbx", "journal.db")
}

// LoadConfig applies defaults, then the JSON file at path (if not empty),
// then the environment. Flags are applied later by the caller.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJSON(cfg, path); err != nil {
		return nil, err
	}
	parseEnv(cfg, os.LookupEnv)
	cfg.JournalPath = ExpandHome(cfg.JournalPath)
	return cfg, nil
}

// Dispatch returns the dispatcher settings derived from c.
func (c *Config) Dispatch() dispatch.Config {
	d := dispatch.DefaultConfig()
	d.MaxOutstanding = c.MaxOutstanding
	d.Interval = c.Interval
	d.Attempts = c.Attempts
	d.StopOnFirstFail = c.StopOnFirstFail
	return d
}

// ExpandHome replaces a leading "~/" with the user's home directory.
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := userHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
