// Package identity derives the (author, id, type) triple from a share link.
package identity

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"github.com/handiism/multitok/internal/model"
)

var (
	authorPattern  = regexp.MustCompile(`@([A-Za-z0-9_.]+)`)
	contentPattern = regexp.MustCompile(`/(video|photo)/(\d+)`)
)

// shortHosts redirect to the canonical post URL.
var shortHosts = []string{"vm.tiktok.com", "vt.tiktok.com"}

// Resolver follows a short link to its canonical URL.
type Resolver interface {
	Resolve(ctx context.Context, rawURL string, header http.Header) (string, error)
}

// Extractor turns links into content identities.
type Extractor struct {
	resolver  Resolver
	userAgent func() string
}

// NewExtractor creates an Extractor. The resolver is only used for short
// links; userAgent supplies the User-Agent for that request.
func NewExtractor(resolver Resolver, userAgent func() string) *Extractor {
	return &Extractor{resolver: resolver, userAgent: userAgent}
}

// IsShortLink reports whether the link goes through a redirect host.
func IsShortLink(link model.Link) bool {
	for _, host := range shortHosts {
		if strings.Contains(string(link), host) {
			return true
		}
	}
	return false
}

// Extract returns the identity of the content behind the link.
//
// Short links are resolved with one request first. The result is a pure
// function of the canonical URL; a link without an @handle or without a
// /video/<id> or /photo/<id> segment fails with model.ErrMalformedLink.
func (e *Extractor) Extract(ctx context.Context, link model.Link) (model.ContentIdentity, error) {
	canonical := string(link)

	if IsShortLink(link) && e.resolver != nil {
		header := http.Header{}
		if e.userAgent != nil {
			header.Set("User-Agent", e.userAgent())
		}
		resolved, err := e.resolver.Resolve(ctx, canonical, header)
		if err != nil {
			return model.ContentIdentity{}, fmt.Errorf("resolve short link: %w", err)
		}
		canonical = resolved
	}

	return Parse(canonical)
}

// Parse extracts the identity from a canonical post URL without any
// network access.
func Parse(canonical string) (model.ContentIdentity, error) {
	author := authorPattern.FindStringSubmatch(canonical)
	if author == nil {
		return model.ContentIdentity{}, fmt.Errorf("%w: no @handle in %q", model.ErrMalformedLink, canonical)
	}

	content := contentPattern.FindStringSubmatch(canonical)
	if content == nil {
		return model.ContentIdentity{}, fmt.Errorf("%w: no /video/ or /photo/ id in %q", model.ErrMalformedLink, canonical)
	}

	return model.ContentIdentity{
		Author:      author[1],
		ContentID:   content[2],
		ContentType: model.ContentType(content[1]),
	}, nil
}
