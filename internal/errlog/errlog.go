// Package errlog appends failed links to a plain-text file.
//
// Each failure is one line:
//
//	<link> - <error message>
//
// The file is only ever appended to, so it accumulates across runs.
package errlog

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/handiism/multitok/internal/model"
	"github.com/spf13/afero"
)

// DefaultPath is the error log used when none is configured.
const DefaultPath = "errors.txt"

// Log is an append-only error log. It is safe for concurrent use; every
// record is written with a single Write call.
type Log struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex
}

// New creates a Log writing to path on fs. The file is created on the
// first append.
func New(fs afero.Fs, path string) *Log {
	if path == "" {
		path = DefaultPath
	}
	return &Log{fs: fs, path: path}
}

// Path returns the file the log appends to.
func (l *Log) Path() string {
	return l.path
}

// Append records a failed link.
func (l *Log) Append(link model.Link, cause error) error {
	line := Format(link, cause)

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := l.fs.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return &model.IOError{Op: "open", Path: l.path, Err: err}
	}

	if _, err := f.Write([]byte(line)); err != nil {
		f.Close()
		return &model.IOError{Op: "write", Path: l.path, Err: err}
	}
	if err := f.Close(); err != nil {
		return &model.IOError{Op: "close", Path: l.path, Err: err}
	}
	return nil
}

// Format renders one log line, newline included. Line breaks inside the
// error message are flattened so every record stays on one line.
func Format(link model.Link, cause error) string {
	msg := "unknown error"
	if cause != nil {
		msg = strings.Join(strings.Fields(cause.Error()), " ")
	}
	return fmt.Sprintf("%s - %s\n", link, msg)
}
