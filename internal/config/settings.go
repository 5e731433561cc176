package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	mhttp "github.com/handiism/multitok/internal/http"
	"github.com/handiism/multitok/internal/model"
	"github.com/handiism/multitok/internal/provider"
	"gopkg.in/yaml.v2"
)

// Settings holds all configuration options.
type Settings struct {
	// Input and output
	LinksPath    string `json:"links_path" yaml:"links_path"`
	OutputDir    string `json:"output_dir" yaml:"output_dir"`
	NoFolders    bool   `json:"no_folders" yaml:"no_folders"`
	CachePath    string `json:"cache_path" yaml:"cache_path"` // file path, redis:// URL or :memory:
	ErrorLogPath string `json:"error_log_path" yaml:"error_log_path"`

	// Download behaviour
	Provider     string `json:"provider" yaml:"provider"` // v1, v2, v3
	Watermark    bool   `json:"watermark" yaml:"watermark"`
	Workers      int    `json:"workers" yaml:"workers"`
	SaveMetadata bool   `json:"save_metadata" yaml:"save_metadata"`
	SkipExisting bool   `json:"skip_existing" yaml:"skip_existing"`

	// Retry settings
	MaxAttempts           int     `json:"max_attempts" yaml:"max_attempts"`
	BackoffFactor         float64 `json:"backoff_factor" yaml:"backoff_factor"`
	RequestTimeoutSeconds int     `json:"request_timeout" yaml:"request_timeout"`

	// Photo settings
	ConvertPhotosToJPEG bool `json:"convert_photos_to_jpeg" yaml:"convert_photos_to_jpeg"`
	PhotoMaxSize        int  `json:"photo_max_size" yaml:"photo_max_size"`

	// Proxy settings
	ProxyType    string `json:"proxy_type" yaml:"proxy_type"` // none, system, manual
	ProxyAddress string `json:"proxy_address" yaml:"proxy_address"`
	ProxyPort    int    `json:"proxy_port" yaml:"proxy_port"`

	// Logging
	LogLevel string `json:"log_level" yaml:"log_level"` // debug, info, warn, error
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	return &Settings{
		LinksPath:    "links.txt",
		OutputDir:    ".",
		NoFolders:    false,
		CachePath:    "url_cache.db",
		ErrorLogPath: "errors.txt",

		Provider:     provider.DefaultName,
		Watermark:    false,
		Workers:      4,
		SaveMetadata: false,
		SkipExisting: false,

		MaxAttempts:           mhttp.DefaultMaxAttempts,
		BackoffFactor:         mhttp.DefaultBackoffFactor,
		RequestTimeoutSeconds: 60,

		ConvertPhotosToJPEG: false,
		PhotoMaxSize:        0,

		ProxyType: "system",

		LogLevel: "info",
	}
}

// Load reads settings from a JSON or YAML file.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings()
	if isYAML(path) {
		err = yaml.Unmarshal(data, settings)
	} else {
		err = json.Unmarshal(data, settings)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return settings, nil
}

// Save writes settings to a JSON or YAML file, chosen by extension.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(s)
	} else {
		data, err = json.MarshalIndent(s, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yml" || ext == ".yaml"
}

// Validate checks that the settings can drive a run.
func (s *Settings) Validate() error {
	var errs []error

	if s.LinksPath == "" {
		errs = append(errs, errors.New("links path is empty"))
	}
	if s.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", s.Workers))
	}
	if !provider.Exists(s.Provider) {
		errs = append(errs, fmt.Errorf("unknown provider %q (available: %s)", s.Provider, strings.Join(provider.Names(), ", ")))
	}
	if s.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("max attempts must be at least 1, got %d", s.MaxAttempts))
	}
	if s.BackoffFactor < 0 {
		errs = append(errs, fmt.Errorf("backoff factor must not be negative, got %v", s.BackoffFactor))
	}
	if s.PhotoMaxSize < 0 {
		errs = append(errs, fmt.Errorf("photo max size must not be negative, got %d", s.PhotoMaxSize))
	}
	switch s.ProxyType {
	case "", "none", "system":
	case "manual":
		if s.ProxyAddress == "" {
			errs = append(errs, errors.New("manual proxy needs proxy_address"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown proxy type %q", s.ProxyType))
	}

	return errors.Join(errs...)
}

// ToLayout converts settings to a Layout for path computation.
func (s *Settings) ToLayout() model.Layout {
	return model.Layout{
		Root: s.OutputDir,
		Flat: s.NoFolders,
	}
}

// ToHTTPOptions converts settings to client options.
func (s *Settings) ToHTTPOptions() mhttp.Options {
	opts := mhttp.DefaultOptions()
	opts.MaxAttempts = s.MaxAttempts
	opts.BackoffFactor = s.BackoffFactor
	opts.RequestTimeout = time.Duration(s.RequestTimeoutSeconds) * time.Second
	opts.Proxy = s.proxyFunc()
	return opts
}

func (s *Settings) proxyFunc() func(*http.Request) (*url.URL, error) {
	switch s.ProxyType {
	case "none":
		return func(*http.Request) (*url.URL, error) { return nil, nil }
	case "manual":
		host := s.ProxyAddress
		if s.ProxyPort > 0 {
			host = fmt.Sprintf("%s:%d", host, s.ProxyPort)
		}
		proxyURL := &url.URL{Scheme: "http", Host: host}
		if u, err := url.Parse(s.ProxyAddress); err == nil && u.Scheme != "" && u.Host != "" {
			proxyURL = u
			if s.ProxyPort > 0 {
				proxyURL.Host = fmt.Sprintf("%s:%d", u.Hostname(), s.ProxyPort)
			}
		}
		return http.ProxyURL(proxyURL)
	default:
		return http.ProxyFromEnvironment
	}
}
