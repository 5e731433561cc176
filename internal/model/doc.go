// Package model defines the core data structures used throughout
// multitok.
//
// # Links and identities
//
// A Link is the raw share URL read from the links file. It is the unit of
// work and the key of the dedup cache. A ContentIdentity is derived from a
// Link once per attempt and names every file produced for it:
//
//	id := model.ContentIdentity{Author: "someone", ContentID: "7301", ContentType: model.ContentVideo}
//
// # Layout
//
// Layout computes output paths as a pure function of the identity, the
// layout settings and, for photo posts, the element index:
//
//	layout := model.Layout{Root: "downloads"}
//	layout.MediaPath(id, 0)    // downloads/someone/7301.mp4
//	layout.MetadataPath(id, 0) // downloads/someone/metadata/7301.json
//
// With Flat set, author folders are replaced by an "<author>_" file prefix.
//
// # Errors
//
// Failures are classified into the kinds listed in errors.go so callers can
// branch on semantics with errors.Is instead of matching messages.
package model
