// Package config provides configuration management for multitok.
//
// This package handles:
//   - Loading and saving settings from JSON or YAML files
//   - Default configuration values
//   - Overrides from a .env file and MULTITOK_* environment variables
//   - Conversion to model.Layout and http.Options for other packages
//
// # Default Settings
//
// Use DefaultSettings() to get sensible defaults:
//
//	settings := config.DefaultSettings()
//	// Clean (no watermark) videos from provider v3
//	// Four workers, files grouped by author under the working directory
//	// Dedup cache in url_cache.db, failures in errors.txt
//
// # Loading from File
//
//	settings, err := config.Load("/path/to/multitok.yaml")
//	if err != nil {
//	    // Uses defaults if file doesn't exist
//	}
//
// Files ending in .yml or .yaml are read as YAML, everything else as JSON.
//
// # Environment
//
//	env, err := config.ReadEnv(".env")
//	settings.ApplyEnv(env)
//
// Variables set in the process environment win over the .env file.
// Command line flags are applied last by the caller.
//
// # Saving Settings
//
//	settings.Workers = 8
//	err := settings.Save("/path/to/multitok.json")
package config
