package download

import (
	"context"
	"io"
	"path/filepath"

	mhttp "github.com/handiism/multitok/internal/http"
	ioutils "github.com/handiism/multitok/internal/io"
	"github.com/handiism/multitok/internal/model"
	"github.com/spf13/afero"
)

// chunkSize is the copy buffer size used when streaming media to disk.
const chunkSize = 32 * 1024

// SaveResult describes what Save did.
type SaveResult struct {
	Path    string
	Written int64

	// Skipped is true when the destination already existed and nothing
	// was read from the body.
	Skipped bool

	// CreatedDir is true when the destination folder had to be created.
	CreatedDir bool
}

// Saver streams media bodies to deterministic paths.
type Saver struct {
	fs           afero.Fs
	skipExisting bool
	images       *ioutils.ImageService
}

// NewSaver creates a Saver writing to fs.
func NewSaver(fs afero.Fs, skipExisting bool) *Saver {
	return &Saver{
		fs:           fs,
		skipExisting: skipExisting,
		images:       ioutils.NewImageService(),
	}
}

// ShouldSkip reports whether dest would be skipped by Save.
func (s *Saver) ShouldSkip(dest string) (bool, error) {
	if !s.skipExisting {
		return false, nil
	}
	exists, err := ioutils.Exists(s.fs, dest)
	if err != nil {
		return false, &model.IOError{Op: "stat", Path: dest, Err: err}
	}
	return exists, nil
}

// Save copies body to dest.
//
// The data goes to a uniquely named ".part" sibling first and is renamed
// when the body is exhausted, so an interrupted transfer never leaves a
// file at dest and concurrent saves of the same dest never share one.
// onProgress, if set, receives the cumulative bytes written after each
// chunk; total is -1 when the length is unknown.
func (s *Saver) Save(ctx context.Context, dest string, body io.Reader, total int64, onProgress func(written, total int64)) (SaveResult, error) {
	result := SaveResult{Path: dest}

	skip, err := s.ShouldSkip(dest)
	if err != nil {
		return result, err
	}
	if skip {
		result.Skipped = true
		return result, nil
	}

	created, err := ioutils.EnsureDir(s.fs, filepath.Dir(dest))
	if err != nil {
		return result, &model.IOError{Op: "mkdir", Path: filepath.Dir(dest), Err: err}
	}
	result.CreatedDir = created

	file, err := ioutils.CreateTemp(s.fs, dest)
	if err != nil {
		return result, &model.IOError{Op: "create", Path: dest, Err: err}
	}
	tmp := file.Name()

	pw := &mhttp.ProgressWriter{
		Writer:   file,
		Total:    total,
		OnUpdate: onProgress,
	}

	buf := make([]byte, chunkSize)
	_, copyErr := io.CopyBuffer(pw, &contextReader{ctx: ctx, r: body}, buf)
	closeErr := file.Close()
	result.Written = pw.Written

	if copyErr != nil {
		s.fs.Remove(tmp)
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		return result, &model.IOError{Op: "write", Path: dest, Err: copyErr}
	}
	if closeErr != nil {
		s.fs.Remove(tmp)
		return result, &model.IOError{Op: "close", Path: dest, Err: closeErr}
	}
	if err := s.fs.Chmod(tmp, 0644); err != nil {
		s.fs.Remove(tmp)
		return result, &model.IOError{Op: "chmod", Path: dest, Err: err}
	}

	if err := ioutils.Commit(s.fs, tmp, dest); err != nil {
		return result, &model.IOError{Op: "rename", Path: dest, Err: err}
	}

	return result, nil
}

// NormalizePhoto rewrites the photo at path as a JPEG no larger than
// maxSize on either edge. It reports whether the file changed.
func (s *Saver) NormalizePhoto(ctx context.Context, path string, maxSize int) (bool, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return false, &model.IOError{Op: "read", Path: path, Err: err}
	}

	out, changed, err := s.images.NormalizePhoto(ctx, data, maxSize)
	if err != nil || !changed {
		return false, err
	}

	if err := ioutils.WriteFileAtomic(s.fs, path, out); err != nil {
		return false, &model.IOError{Op: "write", Path: path, Err: err}
	}
	return true, nil
}

// WriteFile atomically writes a small file such as a metadata sidecar.
func (s *Saver) WriteFile(path string, data []byte) error {
	if err := ioutils.WriteFileAtomic(s.fs, path, data); err != nil {
		return &model.IOError{Op: "write", Path: path, Err: err}
	}
	return nil
}

// contextReader stops a copy as soon as ctx is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr *contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
