// Package config loads runtime configuration for the autofill host and CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c / --config.
//  3. Environment variables prefixed with AUTOFILL_ (e.g. AUTOFILL_STORAGE_BACKEND).
//  4. Command-line flags that were explicitly set.
//
// # JSON schema
//
// Durations use timex.Duration, so values can be strings like "1s" or
// integer nanoseconds:
//
//	{
//	  "storage_backend": "sqlite",
//	  "storage_path": "autofill.db",
//	  "dispatch_attempts": 5,
//	  "dispatch_delay": "1s",
//	  "status_ttl": "3s"
//	}
package config
