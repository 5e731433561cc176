package provider

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	mhttp "github.com/handiism/multitok/internal/http"
	"github.com/handiism/multitok/internal/model"
)

// MusicalDown scrapes musicaldown.com.
//
// The form uses two randomised field names: the link input (#link_url) and
// the second input of the first form row, whose value must be echoed back.
// The result block lists the clean video as its first anchor and the
// watermarked one as its third.
type MusicalDown struct {
	client  *mhttp.Client
	BaseURL string
}

const (
	musicalDownLinkInput  = "#link_url"
	musicalDownTokenInput = "#submit-form > div > div:nth-of-type(1) > input:nth-of-type(2)"
	musicalDownResult     = "body > div:nth-of-type(2) > div > div:nth-of-type(2) > div:nth-of-type(2)"
)

// NewMusicalDown creates the v2 provider.
func NewMusicalDown(client *mhttp.Client) *MusicalDown {
	return &MusicalDown{client: client, BaseURL: "https://musicaldown.com"}
}

func (p *MusicalDown) Name() string {
	return "v2"
}

// Fetch implements Provider.
func (p *MusicalDown) Fetch(ctx context.Context, link model.Link, identity model.ContentIdentity, wantWatermark bool) (*model.ProviderResult, error) {
	header := p.header()
	sess := p.client.Session()

	landing, err := sess.GetString(ctx, p.BaseURL+"/en", header)
	if err != nil {
		return nil, fmt.Errorf("load landing page: %w", err)
	}
	doc, err := parseDocument(landing)
	if err != nil {
		return nil, err
	}

	linkField, ok := firstAttr(doc, musicalDownLinkInput, "name")
	if !ok || linkField == "" {
		return nil, fmt.Errorf("musicaldown: link field: %w", ErrTokenNotFound)
	}
	tokenField, ok := firstAttr(doc, musicalDownTokenInput, "name")
	if !ok || tokenField == "" {
		return nil, fmt.Errorf("musicaldown: token field: %w", ErrTokenNotFound)
	}
	tokenValue, _ := firstAttr(doc, musicalDownTokenInput, "value")

	body, err := sess.PostForm(ctx, p.BaseURL+"/download", header, url.Values{
		linkField:  {link.String()},
		tokenField: {tokenValue},
		"verify":   {"1"},
	})
	if err != nil {
		return nil, fmt.Errorf("submit link: %w", err)
	}

	doc, err = parseDocument(string(body))
	if err != nil {
		return nil, err
	}

	if identity.ContentType == model.ContentPhoto {
		return photoResult(attrs(doc, `div[class="card-image"] > img`, "src"), header)
	}

	clean, hasClean := firstAttr(doc, musicalDownResult+" > a:nth-of-type(1)", "href")
	watermark, hasWatermark := firstAttr(doc, musicalDownResult+" > a:nth-of-type(3)", "href")
	if !hasClean && !hasWatermark {
		return nil, model.ErrContentUnavailable
	}

	chosen := clean
	if wantWatermark {
		chosen = watermark
	}
	if chosen == "" {
		return nil, model.ErrContentUnavailable
	}
	return videoResult([]string{chosen}, 0, 0, wantWatermark, header)
}

func (p *MusicalDown) header() http.Header {
	h := http.Header{}
	h.Set("Connection", "keep-alive")
	h.Set("Content-Type", "application/x-www-form-urlencoded")
	h.Set("Origin", p.BaseURL)
	h.Set("Referer", p.BaseURL+"/en?ref=more")
	h.Set("Sec-Fetch-Site", "same-origin")
	h.Set("User-Agent", mhttp.RandomUserAgent())
	return h
}
