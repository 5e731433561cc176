package cache

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/handiism/multitok/internal/model"
	_ "modernc.org/sqlite"
)

// SQLite is a Store backed by a single SQLite file.
//
// Every MarkDone is its own committed transaction with synchronous=FULL,
// so a crash right after it returns cannot lose the entry. Writes are
// serialised in-process; busy_timeout covers other processes sharing the
// file.
type SQLite struct {
	db  *sql.DB
	mu  sync.Mutex
	log *slog.Logger
}

// OpenSQLite opens or creates the cache file at path.
func OpenSQLite(ctx context.Context, path string, log *slog.Logger) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dsn(path))
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLite{db: db, log: orDiscard(log).With(slog.String("item", "SQLiteCache"))}
	if err := s.initTable(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("init table: %w", err)
	}

	s.log.Debug("Cache opened", slog.String("path", path))
	return s, nil
}

// dsn applies the pragmas on every pooled connection.
func dsn(path string) string {
	q := url.Values{}
	q.Add("_pragma", "busy_timeout(5000)")
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "synchronous(FULL)")
	return "file:" + path + "?" + q.Encode()
}

func (s *SQLite) initTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS url_cache (
		link TEXT PRIMARY KEY,
		done INTEGER NOT NULL DEFAULT 1,
		created_time DATETIME
	);
	`)
	return err
}

func (s *SQLite) Contains(ctx context.Context, link model.Link) (bool, error) {
	var done int
	err := s.db.QueryRowContext(ctx, `SELECT done FROM url_cache WHERE link = ?`, string(link)).Scan(&done)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup %s: %w", link, err)
	}
	return done != 0, nil
}

func (s *SQLite) MarkDone(ctx context.Context, link model.Link) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO url_cache (link, done, created_time) VALUES (?, 1, ?)
		ON CONFLICT(link) DO UPDATE SET done = 1`,
		string(link), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark %s done: %w", link, err)
	}
	return nil
}

// Count returns the number of links marked done.
func (s *SQLite) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM url_cache WHERE done = 1`).Scan(&n)
	return n, err
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func orDiscard(log *slog.Logger) *slog.Logger {
	if log != nil {
		return log
	}
	return slog.New(slog.DiscardHandler)
}
