package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	mhttp "github.com/handiism/multitok/internal/http"
	"github.com/handiism/multitok/internal/model"
)

// Tmate scrapes tmate.cc.
//
// The landing page carries a hidden "token" input. The action endpoint
// answers with JSON whose "data" field is an HTML fragment. Video anchors
// are listed clean first; the third anchor is the watermarked copy.
type Tmate struct {
	client  *mhttp.Client
	BaseURL string
}

const (
	tmateCleanIndex     = 0
	tmateWatermarkIndex = 2
)

// NewTmate creates the v1 provider.
func NewTmate(client *mhttp.Client) *Tmate {
	return &Tmate{client: client, BaseURL: "https://tmate.cc"}
}

func (p *Tmate) Name() string {
	return "v1"
}

type tmateResponse struct {
	Error bool   `json:"error"`
	Data  string `json:"data"`
}

// Fetch implements Provider.
func (p *Tmate) Fetch(ctx context.Context, link model.Link, identity model.ContentIdentity, wantWatermark bool) (*model.ProviderResult, error) {
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

	token, ok := firstAttr(doc, `input[name="token"]`, "value")
	if !ok {
		return nil, fmt.Errorf("tmate: %w", ErrTokenNotFound)
	}

	body, err := sess.PostForm(ctx, p.BaseURL+"/action", header, url.Values{
		"url":   {link.String()},
		"token": {token},
	})
	if err != nil {
		return nil, fmt.Errorf("submit link: %w", err)
	}

	var resp tmateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode action response: %w", err)
	}
	if resp.Error {
		return nil, model.ErrContentUnavailable
	}

	doc, err = parseDocument(resp.Data)
	if err != nil {
		return nil, err
	}

	if identity.ContentType == model.ContentPhoto {
		return photoResult(attrs(doc, ".card-img-top", "src"), header)
	}

	candidates := positionalAttrs(doc, ".downtmate-right.is-desktop-only.right a", "href")
	return videoResult(candidates, tmateCleanIndex, tmateWatermarkIndex, wantWatermark, header)
}

func (p *Tmate) header() http.Header {
	h := http.Header{}
	h.Set("Connection", "keep-alive")
	h.Set("Content-Type", "application/x-www-form-urlencoded")
	h.Set("Origin", p.BaseURL)
	h.Set("Referer", p.BaseURL+"/")
	h.Set("Sec-Fetch-Site", "same-origin")
	h.Set("User-Agent", mhttp.RandomUserAgent())
	return h
}
