package download

import (
	"bufio"
	"io"
	"strings"

	"github.com/handiism/multitok/internal/model"
	"github.com/spf13/afero"
)

// ReadLinks reads one link per line from the file at path. Blank lines
// are ignored and surrounding whitespace is trimmed. Lines are not
// validated here; a malformed line fails when it is processed.
func ReadLinks(fs afero.Fs, path string) ([]model.Link, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, &model.IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	links, err := ParseLinks(f)
	if err != nil {
		return nil, &model.IOError{Op: "read", Path: path, Err: err}
	}
	return links, nil
}

// ParseLinks reads links from r, one per line.
func ParseLinks(r io.Reader) ([]model.Link, error) {
	var links []model.Link
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			links = append(links, model.Link(line))
		}
	}
	return links, scanner.Err()
}

// Unique drops repeated links, keeping the first occurrence.
func Unique(links []model.Link) []model.Link {
	seen := make(map[model.Link]struct{}, len(links))
	out := make([]model.Link, 0, len(links))
	for _, link := range links {
		if _, ok := seen[link]; ok {
			continue
		}
		seen[link] = struct{}{}
		out = append(out, link)
	}
	return out
}
