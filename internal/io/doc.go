// Package ioutils provides file system and image processing utilities.
//
// This package contains functions for:
//   - Directory creation and existence checks on an afero.Fs
//   - Atomic file writes (temporary file plus rename)
//   - Photo normalisation: decoding WebP/PNG/GIF, resizing, re-encoding as JPEG
//
// All file functions take an afero.Fs so callers can run against the real
// disk (afero.NewOsFs) or an in-memory tree in tests (afero.NewMemMapFs).
//
// # File Operations
//
//	// Ensure directory exists
//	err := ioutils.EnsureDir(fs, "/downloads/alice")
//
//	// Write data without ever exposing a half-written file
//	err := ioutils.WriteFileAtomic(fs, "/downloads/alice/metadata/7301.json", data)
//
// # Image Processing
//
// The ImageService turns whatever a mirror served into a JPEG:
//
//	svc := ioutils.NewImageService()
//	jpeg, changed, err := svc.NormalizePhoto(ctx, data, 2048)
package ioutils
