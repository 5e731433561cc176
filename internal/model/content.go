package model

import "net/http"

// Link is a user-supplied share URL naming one piece of content.
type Link string

func (l Link) String() string {
	return string(l)
}

// ContentType distinguishes single videos from photo posts.
type ContentType string

const (
	ContentVideo ContentType = "video"
	ContentPhoto ContentType = "photo"
)

// Extension returns the file extension (without the dot) used for this
// content type.
func (c ContentType) Extension() string {
	if c == ContentPhoto {
		return "jpeg"
	}
	return "mp4"
}

// ContentIdentity is the (author, id, type) triple derived from a Link.
//
// The identity is derived once per attempt and reused for every file that
// belongs to the Link.
type ContentIdentity struct {
	// Author is the account handle without the leading "@".
	Author string

	// ContentID is the numeric post id.
	ContentID string

	// ContentType is video or photo.
	ContentType ContentType
}

// MediaItem is one direct download URL yielded by a provider.
type MediaItem struct {
	URL  string
	Kind ContentType
}

// ProviderResult is what a provider resolves a Link to.
//
// Items are in document order. For photo posts the position of an item is
// its file index.
type ProviderResult struct {
	Items []MediaItem

	// Header holds the request headers the mirror expects when the items
	// themselves are fetched (user agent, origin, referer).
	Header http.Header
}

// OutcomeState is the terminal state of one Link in a run.
type OutcomeState int

const (
	OutcomeSkipped OutcomeState = iota
	OutcomeSucceeded
	OutcomeFailed
)

func (s OutcomeState) String() string {
	switch s {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

// Outcome records how the processing of one Link ended.
type Outcome struct {
	Link  Link
	State OutcomeState
	Err   error
}

// Success reports whether the Link was downloaded in this run.
func (o Outcome) Success() bool {
	return o.State == OutcomeSucceeded
}
