package ioutils

import (
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// PartSuffix is appended to files while they are being written.
const PartSuffix = ".part"

// EnsureDir creates a directory and all parent directories if they don't exist.
//
// Directories are created with mode 0755 (rwxr-xr-x). The returned bool
// reports whether the directory had to be created.
//
// Example:
//
//	created, err := EnsureDir(fs, "/downloads/alice")
//	// Creates /downloads and /downloads/alice if needed
func EnsureDir(fs afero.Fs, path string) (bool, error) {
	exists, err := afero.DirExists(fs, path)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	return true, fs.MkdirAll(path, 0755)
}

// Exists reports whether a file exists at path.
func Exists(fs afero.Fs, path string) (bool, error) {
	return afero.Exists(fs, path)
}

// CreateTemp creates a uniquely named temporary sibling of path, ending
// in PartSuffix. Concurrent writers to the same path never share it.
func CreateTemp(fs afero.Fs, path string) (afero.File, error) {
	return afero.TempFile(fs, filepath.Dir(path), filepath.Base(path)+".*"+PartSuffix)
}

// WriteFileAtomic writes data to a temporary sibling of path and renames it
// into place, so readers never see a partially written file.
//
// The parent directory is created if needed. The file is created with mode 0644.
func WriteFileAtomic(fs afero.Fs, path string, data []byte) error {
	if _, err := EnsureDir(fs, filepath.Dir(path)); err != nil {
		return err
	}

	f, err := CreateTemp(fs, path)
	if err != nil {
		return err
	}
	tmp := f.Name()

	_, err = f.Write(data)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = fs.Chmod(tmp, 0644)
	}
	if err != nil {
		fs.Remove(tmp)
		return err
	}
	return Commit(fs, tmp, path)
}

// Commit moves a finished temporary file onto its final path, replacing
// any existing file. path is only touched while tmp still exists.
func Commit(fs afero.Fs, tmp, path string) error {
	err := fs.Rename(tmp, path)
	if err == nil {
		return nil
	}

	if exists, _ := afero.Exists(fs, tmp); !exists {
		return err
	}

	// Some filesystems refuse to rename over an existing file
	if rmErr := fs.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
		fs.Remove(tmp)
		return err
	}
	if err := fs.Rename(tmp, path); err != nil {
		fs.Remove(tmp)
		return err
	}
	return nil
}
