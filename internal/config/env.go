package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix is the prefix of environment variables read by ApplyEnv.
const EnvPrefix = "MULTITOK_"

// ReadEnv returns the MULTITOK_* variables from the .env file at path
// merged with the process environment. Process variables win. A missing
// file is not an error.
func ReadEnv(path string) (map[string]string, error) {
	env := map[string]string{}

	if path != "" {
		fileEnv, err := godotenv.Read(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		for k, v := range fileEnv {
			if strings.HasPrefix(k, EnvPrefix) {
				env[k] = v
			}
		}
	}

	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if ok && strings.HasPrefix(k, EnvPrefix) {
			env[k] = v
		}
	}

	return env, nil
}

// ApplyEnv overrides settings from MULTITOK_* variables. Keys are the
// upper-cased JSON names, e.g. MULTITOK_WORKERS or MULTITOK_OUTPUT_DIR.
// Unknown keys are ignored; malformed values are reported.
func (s *Settings) ApplyEnv(env map[string]string) error {
	for key, value := range env {
		name := strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		if err := s.set(name, value); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

func (s *Settings) set(name, value string) error {
	var err error
	switch name {
	case "links_path":
		s.LinksPath = value
	case "output_dir":
		s.OutputDir = value
	case "no_folders":
		s.NoFolders, err = strconv.ParseBool(value)
	case "cache_path":
		s.CachePath = value
	case "error_log_path":
		s.ErrorLogPath = value
	case "provider":
		s.Provider = value
	case "watermark":
		s.Watermark, err = strconv.ParseBool(value)
	case "workers":
		s.Workers, err = strconv.Atoi(value)
	case "save_metadata":
		s.SaveMetadata, err = strconv.ParseBool(value)
	case "skip_existing":
		s.SkipExisting, err = strconv.ParseBool(value)
	case "max_attempts":
		s.MaxAttempts, err = strconv.Atoi(value)
	case "backoff_factor":
		s.BackoffFactor, err = strconv.ParseFloat(value, 64)
	case "request_timeout":
		s.RequestTimeoutSeconds, err = strconv.Atoi(value)
	case "convert_photos_to_jpeg":
		s.ConvertPhotosToJPEG, err = strconv.ParseBool(value)
	case "photo_max_size":
		s.PhotoMaxSize, err = strconv.Atoi(value)
	case "proxy_type":
		s.ProxyType = value
	case "proxy_address":
		s.ProxyAddress = value
	case "proxy_port":
		s.ProxyPort, err = strconv.Atoi(value)
	case "log_level":
		s.LogLevel = value
	}
	return err
}
