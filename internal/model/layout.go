package model

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// MetadataDirName is the folder that holds metadata sidecar files.
const MetadataDirName = "metadata"

// Layout holds output path settings.
//
// Paths are computed as:
//
//	grouped: <Root>/<author>/<base>.<ext>
//	flat:    <Root>/<author>_<base>.<ext>
//
// where base is the content id for videos and "<id>_<index>" for photos.
type Layout struct {
	// Root is the output root directory.
	Root string

	// Flat disables per-author folders and prefixes file names with the
	// author handle instead.
	Flat bool
}

// BaseName returns the file name without extension for one element of
// the content. The index is only used for photo posts.
func (l Layout) BaseName(id ContentIdentity, index int) string {
	name := id.ContentID
	if id.ContentType == ContentPhoto {
		name = fmt.Sprintf("%s_%d", id.ContentID, index)
	}
	if l.Flat {
		name = sanitizeFileName(id.Author) + "_" + name
	}
	return sanitizeFileName(name)
}

// Dir returns the folder media files of the given identity are written to.
func (l Layout) Dir(id ContentIdentity) string {
	if l.Flat {
		return l.root()
	}
	return filepath.Join(l.root(), sanitizeFileName(id.Author))
}

// MediaPath returns the destination of one media element.
func (l Layout) MediaPath(id ContentIdentity, index int) string {
	return filepath.Join(l.Dir(id), l.BaseName(id, index)+"."+id.ContentType.Extension())
}

// MetadataPath returns the destination of the metadata sidecar that
// belongs to the media element at index.
func (l Layout) MetadataPath(id ContentIdentity, index int) string {
	return filepath.Join(l.Dir(id), MetadataDirName, l.BaseName(id, index)+".json")
}

func (l Layout) root() string {
	if l.Root == "" {
		return "."
	}
	return l.Root
}

var (
	invalidFileChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	trailingDots     = regexp.MustCompile(`\.+$`)
	whitespaceRuns   = regexp.MustCompile(`\s+`)
)

// sanitizeFileName removes or replaces characters that are invalid in file names.
func sanitizeFileName(name string) string {
	name = invalidFileChars.ReplaceAllString(name, "_")

	// Windows does not allow names ending with dots
	name = trailingDots.ReplaceAllString(name, "")

	name = whitespaceRuns.ReplaceAllString(name, " ")
	return strings.TrimRight(name, " ")
}
