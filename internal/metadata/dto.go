package metadata

import "encoding/json"

// universalData mirrors the parts of the rehydration blob we read.
type universalData struct {
	DefaultScope struct {
		VideoDetail *struct {
			StatusCode int `json:"statusCode"`
			ItemInfo   struct {
				ItemStruct *itemStruct `json:"itemStruct"`
			} `json:"itemInfo"`
		} `json:"webapp.video-detail"`
	} `json:"__DEFAULT_SCOPE__"`
}

type itemStruct struct {
	ID                    string          `json:"id"`
	Desc                  string          `json:"desc"`
	CreateTime            json.RawMessage `json:"createTime"`
	Video                 *Video          `json:"video"`
	Author                *Author         `json:"author"`
	Music                 *Music          `json:"music"`
	Stats                 json.RawMessage `json:"stats"`
	SuggestedWords        []string        `json:"suggestedWords"`
	DiversificationLabels []string        `json:"diversificationLabels"`
	Contents              []struct {
		TextExtra []struct {
			HashtagName string `json:"hashtagName"`
		} `json:"textExtra"`
	} `json:"contents"`
}

// toRecord projects the raw item onto the fields we persist.
func (it *itemStruct) toRecord() *Record {
	rec := &Record{
		ID:                    it.ID,
		Description:           it.Desc,
		CreateTime:            nullIfEmpty(it.CreateTime),
		Video:                 it.Video,
		Author:                it.Author,
		Music:                 it.Music,
		Stats:                 nullIfEmpty(it.Stats),
		SuggestedWords:        it.SuggestedWords,
		DiversificationLabels: it.DiversificationLabels,
	}

	if it.Contents != nil {
		rec.Contents = make([]Content, len(it.Contents))
		for i, c := range it.Contents {
			if c.TextExtra == nil {
				continue
			}
			rec.Contents[i].TextExtra = make([]Hashtag, len(c.TextExtra))
			for j, te := range c.TextExtra {
				rec.Contents[i].TextExtra[j] = Hashtag{HashtagName: te.HashtagName}
			}
		}
	}

	return rec
}

func nullIfEmpty(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("null")
	}
	return raw
}
