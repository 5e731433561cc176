// Package cache records which links have been downloaded, so reruns skip
// them.
//
// A Store is a persistent presence set keyed by the raw link. Entries are
// never removed or expired. MarkDone returns only once the write is
// durable, since the store is what keeps repeated runs from downloading
// the same post twice.
//
// Three backends exist:
//
//	url_cache.db          SQLite file (default)
//	redis://host:6379/0   Redis set, for caches shared between machines
//	:memory:              in-process map, for tests and dry runs
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/handiism/multitok/internal/model"
)

// DefaultLocation is the cache file used when none is configured.
const DefaultLocation = "url_cache.db"

// MemoryLocation selects the in-memory backend.
const MemoryLocation = ":memory:"

// Store is a persistent set of processed links. Implementations are safe
// for concurrent use.
type Store interface {
	// Contains reports whether the link has been marked done.
	Contains(ctx context.Context, link model.Link) (bool, error)

	// MarkDone records the link. Marking a link twice is not an error.
	MarkDone(ctx context.Context, link model.Link) error

	// Close releases the underlying resources.
	Close() error
}

// Open opens the store at location. The backend is chosen from the form
// of the location.
func Open(ctx context.Context, location string, log *slog.Logger) (Store, error) {
	switch {
	case location == MemoryLocation:
		return NewMemory(), nil
	case strings.HasPrefix(location, "redis://"), strings.HasPrefix(location, "rediss://"):
		return OpenRedis(ctx, location, log)
	case location == "":
		location = DefaultLocation
	}

	s, err := OpenSQLite(ctx, location, log)
	if err != nil {
		return nil, fmt.Errorf("open cache %s: %w", location, err)
	}
	return s, nil
}
