// Package config loads runtime configuration for the pbx CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or --config.
//  3. Environment variables PBX_KEY_FILE, PBX_API_KEY and PBX_JOURNAL.
//  4. Command-line flags, bound by the cli package, which override
//     everything else.
//
// # JSON schema
//
// Durations use timex.Duration, so values can be strings like "240ms" or
// integer nanoseconds. Absent keys keep the earlier value:
//
//	{
//	  "key_file": "/etc/pbx/service-account.json",
//	  "api_key": "...",
//	  "token_expiry": "1h",
//	  "max_outstanding": 64,
//	  "interval": "240ms",
//	  "attempts": 100,
//	  "stop_on_first_fail": false,
//	  "journal": "~/.pbx/journal.db",
//	  "s3": {"region": "eu-west-1", "endpoint": "http://localhost:9000"}
//	}
package config
