package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	mhttp "github.com/handiism/multitok/internal/http"
	"github.com/handiism/multitok/internal/model"
)

const scriptSelector = `script#__UNIVERSAL_DATA_FOR_REHYDRATION__`

var (
	// ErrNoData means the page carries no rehydration blob.
	ErrNoData = errors.New("no embedded post data in page")

	// ErrNoItem means the blob exists but holds no post, which the
	// platform serves for private or removed posts.
	ErrNoItem = errors.New("embedded data holds no post")
)

// Getter fetches a page as text.
type Getter interface {
	GetString(ctx context.Context, rawURL string, header http.Header) (string, error)
}

// Fetcher downloads post pages and extracts their metadata.
type Fetcher struct {
	client Getter
}

// NewFetcher creates a Fetcher.
func NewFetcher(client Getter) *Fetcher {
	return &Fetcher{client: client}
}

// Fetch downloads the post page behind link and parses its metadata.
// Short links are followed by the HTTP client.
func (f *Fetcher) Fetch(ctx context.Context, link model.Link) (*Record, error) {
	header := http.Header{}
	header.Set("User-Agent", mhttp.RandomWindowsUserAgent())

	page, err := f.client.GetString(ctx, link.String(), header)
	if err != nil {
		return nil, fmt.Errorf("fetch post page: %w", err)
	}
	return Parse(page)
}

// Parse extracts the metadata record from a post page.
func Parse(page string) (*Record, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse post page: %w", err)
	}

	script := doc.Find(scriptSelector).First()
	if script.Length() == 0 {
		return nil, ErrNoData
	}

	var data universalData
	if err := json.Unmarshal([]byte(script.Text()), &data); err != nil {
		return nil, fmt.Errorf("decode embedded data: %w", err)
	}

	detail := data.DefaultScope.VideoDetail
	if detail == nil || detail.ItemInfo.ItemStruct == nil {
		return nil, ErrNoItem
	}

	return detail.ItemInfo.ItemStruct.toRecord(), nil
}
