package metadata

import (
	"bytes"
	"encoding/json"
)

// Record is the metadata written next to a downloaded video.
type Record struct {
	ID                    string          `json:"id"`
	Description           string          `json:"description"`
	CreateTime            json.RawMessage `json:"createTime"`
	Video                 *Video          `json:"video"`
	Author                *Author         `json:"author"`
	Music                 *Music          `json:"music"`
	Stats                 json.RawMessage `json:"stats"`
	SuggestedWords        []string        `json:"suggestedWords"`
	DiversificationLabels []string        `json:"diversificationLabels"`
	Contents              []Content       `json:"contents"`
}

// Video holds the technical attributes of the media.
type Video struct {
	Height     int     `json:"height"`
	Width      int     `json:"width"`
	Duration   float64 `json:"duration"`
	Ratio      string  `json:"ratio"`
	Bitrate    int     `json:"bitrate"`
	Format     string  `json:"format"`
	CodecType  string  `json:"codecType"`
	Definition string  `json:"definition"`
}

// Author describes the account that posted the video.
type Author struct {
	ID        string `json:"id"`
	UniqueID  string `json:"uniqueId"`
	Nickname  string `json:"nickname"`
	Signature string `json:"signature"`
}

// Music describes the sound used in the video.
type Music struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	AuthorName string  `json:"authorName"`
	Duration   float64 `json:"duration"`
}

// Content is one description block with its hashtags.
type Content struct {
	TextExtra []Hashtag `json:"textExtra"`
}

// Hashtag is a tag mentioned in the description.
type Hashtag struct {
	HashtagName string `json:"hashtagName"`
}

// Hashtags returns every hashtag name in order of appearance.
func (r *Record) Hashtags() []string {
	var tags []string
	for _, c := range r.Contents {
		for _, te := range c.TextExtra {
			if te.HashtagName != "" {
				tags = append(tags, te.HashtagName)
			}
		}
	}
	return tags
}

// MarshalIndent encodes the record with four-space indentation and
// without escaping non-ASCII or HTML characters.
func (r *Record) MarshalIndent() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
