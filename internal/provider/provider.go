package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	mhttp "github.com/handiism/multitok/internal/http"
	"github.com/handiism/multitok/internal/model"
)

// DefaultName is the provider used when none is configured.
const DefaultName = "v3"

// ErrTokenNotFound means a landing page no longer carries the form field a
// mirror needs, usually because its layout changed.
var ErrTokenNotFound = errors.New("session token not found on landing page")

// Provider resolves a link to one or more direct download URLs.
type Provider interface {
	// Name returns the registry name of the provider.
	Name() string

	// Fetch resolves link. The identity supplies the content type so the
	// provider knows whether to look for video variants or photos.
	Fetch(ctx context.Context, link model.Link, identity model.ContentIdentity, wantWatermark bool) (*model.ProviderResult, error)
}

// Factory builds a provider on top of the shared HTTP client.
type Factory func(client *mhttp.Client) Provider

var registry = map[string]Factory{
	"v1": func(c *mhttp.Client) Provider { return NewTmate(c) },
	"v2": func(c *mhttp.Client) Provider { return NewMusicalDown(c) },
	"v3": func(c *mhttp.Client) Provider { return NewTikTokIO(c) },
}

// New returns the provider registered under name.
func New(name string, client *mhttp.Client) (Provider, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return factory(client), nil
}

// Names returns the registered provider names in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Exists reports whether a provider is registered under name.
func Exists(name string) bool {
	_, ok := registry[name]
	return ok
}

// parseDocument parses an HTML fragment or page.
func parseDocument(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return doc, nil
}

// attrs returns the attribute of every node matching selector, in
// document order. Empty values are skipped.
func attrs(doc *goquery.Document, selector, attr string) []string {
	var values []string
	for _, v := range positionalAttrs(doc, selector, attr) {
		if v != "" {
			values = append(values, v)
		}
	}
	return values
}

// positionalAttrs returns the attribute of every node matching selector
// with one entry per node, empty when the attribute is blank or missing,
// so indexes keep matching node positions.
func positionalAttrs(doc *goquery.Document, selector, attr string) []string {
	var values []string
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		v, _ := s.Attr(attr)
		values = append(values, strings.TrimSpace(v))
	})
	return values
}

// firstAttr returns the attribute of the first node matching selector.
func firstAttr(doc *goquery.Document, selector, attr string) (string, bool) {
	v, ok := doc.Find(selector).First().Attr(attr)
	return strings.TrimSpace(v), ok
}

// videoResult picks the candidate at the clean or watermark position.
func videoResult(candidates []string, cleanIndex, watermarkIndex int, wantWatermark bool, header http.Header) (*model.ProviderResult, error) {
	index := cleanIndex
	if wantWatermark {
		index = watermarkIndex
	}
	if index >= len(candidates) || candidates[index] == "" {
		return nil, model.ErrContentUnavailable
	}

	return &model.ProviderResult{
		Items:  []model.MediaItem{{URL: candidates[index], Kind: model.ContentVideo}},
		Header: mediaHeader(header),
	}, nil
}

// photoResult returns every image in document order.
func photoResult(urls []string, header http.Header) (*model.ProviderResult, error) {
	if len(urls) == 0 {
		return nil, model.ErrContentUnavailable
	}

	items := make([]model.MediaItem, len(urls))
	for i, u := range urls {
		items[i] = model.MediaItem{URL: u, Kind: model.ContentPhoto}
	}
	return &model.ProviderResult{Items: items, Header: mediaHeader(header)}, nil
}

// mediaHeader strips form-specific headers from the mirror header set so
// it can be reused for media requests.
func mediaHeader(header http.Header) http.Header {
	h := header.Clone()
	h.Del("Content-Type")
	for k := range h {
		if strings.HasPrefix(k, "Hx-") {
			h.Del(k)
		}
	}
	return h
}
