package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	mhttp "github.com/handiism/multitok/internal/http"
	"github.com/handiism/multitok/internal/model"
)

// TikTokIO scrapes tiktokio.com.
//
// The landing page carries a hidden "prefix" input which is posted with the
// link to an htmx endpoint. In the returned fragment the first
// "tk-down-link" anchor is the clean video and the third is watermarked.
type TikTokIO struct {
	client  *mhttp.Client
	BaseURL string
}

const (
	tiktokIOCleanIndex     = 0
	tiktokIOWatermarkIndex = 2
)

// NewTikTokIO creates the v3 provider.
func NewTikTokIO(client *mhttp.Client) *TikTokIO {
	return &TikTokIO{client: client, BaseURL: "https://tiktokio.com"}
}

func (p *TikTokIO) Name() string {
	return "v3"
}

// Fetch implements Provider.
func (p *TikTokIO) Fetch(ctx context.Context, link model.Link, identity model.ContentIdentity, wantWatermark bool) (*model.ProviderResult, error) {
	header := p.header()
	sess := p.client.Session()

	landing, err := sess.GetString(ctx, p.BaseURL+"/", header)
	if err != nil {
		return nil, fmt.Errorf("load landing page: %w", err)
	}
	doc, err := parseDocument(landing)
	if err != nil {
		return nil, err
	}

	prefix, ok := firstAttr(doc, `input[name="prefix"]`, "value")
	if !ok {
		return nil, fmt.Errorf("tiktokio: %w", ErrTokenNotFound)
	}

	body, err := sess.PostForm(ctx, p.BaseURL+"/api/v1/tk-htmx", header, url.Values{
		"prefix": {prefix},
		"vid":    {link.String()},
	})
	if err != nil {
		return nil, fmt.Errorf("submit link: %w", err)
	}

	doc, err = parseDocument(string(body))
	if err != nil {
		return nil, err
	}

	if identity.ContentType == model.ContentPhoto {
		return photoResult(attrs(doc, `div[class="media-box"] > img`, "src"), header)
	}

	candidates := positionalAttrs(doc, "div.tk-down-link a", "href")
	return videoResult(candidates, tiktokIOCleanIndex, tiktokIOWatermarkIndex, wantWatermark, header)
}

func (p *TikTokIO) header() http.Header {
	h := http.Header{}
	h.Set("Accept-Language", "en-US,en;q=0.5")
	h.Set("Accept", "*/*")
	h.Set("Connection", "keep-alive")
	h.Set("Content-Type", "application/x-www-form-urlencoded")
	h.Set("HX-Current-URL", p.BaseURL+"/")
	h.Set("HX-Request", "true")
	h.Set("HX-Target", "tiktok-parse-result")
	h.Set("HX-Trigger", "search-btn")
	h.Set("Origin", p.BaseURL)
	h.Set("Referer", p.BaseURL+"/")
	h.Set("User-Agent", mhttp.RandomUserAgent())
	return h
}
