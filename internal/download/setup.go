package download

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/handiism/multitok/internal/cache"
	"github.com/handiism/multitok/internal/config"
	"github.com/handiism/multitok/internal/errlog"
	mhttp "github.com/handiism/multitok/internal/http"
	"github.com/handiism/multitok/internal/identity"
	"github.com/handiism/multitok/internal/metadata"
	"github.com/handiism/multitok/internal/provider"
	"github.com/spf13/afero"
)

// Session is a Manager wired from settings together with the resources
// it owns.
type Session struct {
	*Manager
	Cache    cache.Store
	ErrorLog *errlog.Log
}

// NewSession builds a Manager and its collaborators from settings.
// The caller must Close the session.
func NewSession(ctx context.Context, settings *config.Settings, fs afero.Fs, log *slog.Logger, onProgress func(ProgressEvent)) (*Session, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	httpOpts := settings.ToHTTPOptions()
	httpOpts.Logger = log
	client := mhttp.NewClient(httpOpts)

	p, err := provider.New(settings.Provider, client)
	if err != nil {
		return nil, err
	}

	store, err := cache.Open(ctx, settings.CachePath, log)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	errLog := errlog.New(fs, settings.ErrorLogPath)

	deps := Dependencies{
		Provider:  p,
		Extractor: identity.NewExtractor(client, mhttp.RandomUserAgent),
		Client:    client,
		Saver:     NewSaver(fs, settings.SkipExisting),
		Cache:     store,
		ErrorLog:  errLog,
		Metadata:  metadata.NewFetcher(client),
		Logger:    log,
	}

	opts := Options{
		Workers:       settings.Workers,
		Watermark:     settings.Watermark,
		SaveMetadata:  settings.SaveMetadata,
		ConvertPhotos: settings.ConvertPhotosToJPEG,
		PhotoMaxSize:  settings.PhotoMaxSize,
		Layout:        settings.ToLayout(),
	}

	return &Session{
		Manager:  NewManager(opts, deps, onProgress),
		Cache:    store,
		ErrorLog: errLog,
	}, nil
}

// Close releases the cache.
func (s *Session) Close() error {
	return s.Cache.Close()
}
