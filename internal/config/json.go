package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/pbx/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Pointer
// fields tell an absent key apart from a zero value.
type JsonConfig struct {
	KeyFile         *string         `json:"key_file"`
	APIKey          *string         `json:"api_key"`
	TokenExpiry     *timex.Duration `json:"token_expiry"`
	MaxOutstanding  *int            `json:"max_outstanding"`
	Interval        *timex.Duration `json:"interval"`
	Attempts        *int            `json:"attempts"`
	StopOnFirstFail *bool           `json:"stop_on_first_fail"`
	Journal         *string         `json:"journal"`
	S3              *JsonS3Config   `json:"s3"`
	Verbose         *bool           `json:"verbose"`
}

type JsonS3Config struct {
	Region    string `json:"region"`
	Endpoint  string `json:"endpoint"`
	AccessKey string `json:"access_key"`
	SecretKey string `json:"secret_key"`
}

// parseJSON overlays cfg with the values present in the JSON file at path.
// An empty path loads nothing.
func parseJSON(cfg *Config, path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	setString(&cfg.KeyFile, jc.KeyFile)
	setString(&cfg.APIKey, jc.APIKey)
	setString(&cfg.JournalPath, jc.Journal)
	if jc.TokenExpiry != nil {
		cfg.TokenExpiry = jc.TokenExpiry.Duration
	}
	if jc.Interval != nil {
		cfg.Interval = jc.Interval.Duration
	}
	if jc.MaxOutstanding != nil {
		cfg.MaxOutstanding = *jc.MaxOutstanding
	}
	if jc.Attempts != nil {
		cfg.Attempts = *jc.Attempts
	}
	if jc.StopOnFirstFail != nil {
		cfg.StopOnFirstFail = *jc.StopOnFirstFail
	}
	if jc.Verbose != nil {
		cfg.Verbose = *jc.Verbose
	}
	if jc.S3 != nil {
		cfg.S3.Region = jc.S3.Region
		cfg.S3.Endpoint = jc.S3.Endpoint
		cfg.S3.AccessKey = jc.S3.AccessKey
		cfg.S3.SecretKey = jc.S3.SecretKey
	}
	return nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
