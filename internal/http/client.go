package http

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/handiism/multitok/internal/model"
	"golang.org/x/net/publicsuffix"
)

// Options configures a Client.
type Options struct {
	// MaxAttempts is the retry budget per request (default 10).
	MaxAttempts int

	// BackoffFactor is the exponential backoff base in seconds (default 1).
	BackoffFactor float64

	// RequestTimeout bounds how long a server may take to send response
	// headers. It does not limit streaming of the body. Zero means no limit.
	RequestTimeout time.Duration

	// Proxy selects the proxy for a request. Nil uses the environment.
	Proxy func(*http.Request) (*url.URL, error)

	// Transport overrides the underlying round tripper. Tests use this.
	Transport http.RoundTripper

	// Logger receives retry diagnostics. May be nil.
	Logger *slog.Logger
}

// DefaultOptions returns the options used by the command line tools.
func DefaultOptions() Options {
	return Options{
		MaxAttempts:    DefaultMaxAttempts,
		BackoffFactor:  DefaultBackoffFactor,
		RequestTimeout: 60 * time.Second,
	}
}

// Client wraps HTTP operations with retry and mirror-friendly defaults.
//
// Client provides:
//   - Retry of transient failures through RetryTransport
//   - Random desktop User-Agent when the caller sets none
//   - Session clients with their own cookie jar
//   - Streaming GETs for large media files
//
// Example usage:
//
//	client := NewClient(DefaultOptions())
//
//	// Fetch HTML content
//	page, err := client.GetString(ctx, "https://tiktokio.com/", header)
//
//	// Stream a file
//	resp, err := client.Open(ctx, mediaURL, header)
//	defer resp.Body.Close()
type Client struct {
	httpClient *http.Client
}

// NewClient creates a new Client with the given options.
func NewClient(opts Options) *Client {
	base := opts.Transport
	if base == nil {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.ResponseHeaderTimeout = opts.RequestTimeout
		if opts.Proxy != nil {
			tr.Proxy = opts.Proxy
		}
		base = tr
	}

	return &Client{
		httpClient: &http.Client{
			Transport: &RetryTransport{
				Base:          base,
				MaxAttempts:   opts.MaxAttempts,
				BackoffFactor: opts.BackoffFactor,
				Logger:        opts.Logger,
			},
		},
	}
}

// Session returns a client that shares the transport but keeps its own
// cookies. Mirrors that hand out a token on the landing page expect the
// follow-up request to carry the same cookies.
func (c *Client) Session() *Client {
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	return &Client{
		httpClient: &http.Client{
			Transport:     c.httpClient.Transport,
			CheckRedirect: c.httpClient.CheckRedirect,
			Jar:           jar,
		},
	}
}

// Do sends the request, filling in a User-Agent if none is set.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", RandomUserAgent())
	}
	return c.httpClient.Do(req)
}

// ProgressWriter wraps a writer to track download progress.
//
// Use this to monitor large downloads by providing an OnUpdate callback
// that receives the current bytes written and total expected bytes.
//
// Example:
//
//	pw := &ProgressWriter{
//	    Writer: file,
//	    Total:  contentLength,
//	    OnUpdate: func(written, total int64) {
//	        fmt.Printf("%d / %d bytes\n", written, total)
//	    },
//	}
//	io.Copy(pw, response.Body)
type ProgressWriter struct {
	// Writer is the underlying writer to write data to.
	Writer io.Writer

	// Total is the expected total bytes (from Content-Length header).
	// Negative when unknown.
	Total int64

	// Written is the current number of bytes written.
	Written int64

	// OnUpdate is called after each Write with current progress.
	// Parameters are (bytesWritten, totalExpected).
	OnUpdate func(written, total int64)
}

// Write implements io.Writer, tracking progress and calling OnUpdate.
func (pw *ProgressWriter) Write(p []byte) (int, error) {
	n, err := pw.Writer.Write(p)
	pw.Written += int64(n)
	if pw.OnUpdate != nil {
		pw.OnUpdate(pw.Written, pw.Total)
	}
	return n, err
}

// Get performs a GET request and returns the response body as bytes.
//
// Returns an error if:
//   - The request fails after all retries
//   - The response status is not 2xx
//   - Reading the body fails
func (c *Client) Get(ctx context.Context, rawURL string, header http.Header) ([]byte, error) {
	resp, err := c.Open(ctx, rawURL, header)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

// GetString performs a GET request and returns the response body as a string.
//
// This is a convenience wrapper around Get for fetching text content like HTML.
func (c *Client) GetString(ctx context.Context, rawURL string, header http.Header) (string, error) {
	body, err := c.Get(ctx, rawURL, header)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// PostForm submits form values and returns the response body.
func (c *Client) PostForm(ctx context.Context, rawURL string, header http.Header, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	copyHeader(req.Header, header)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	return io.ReadAll(resp.Body)
}

// Open performs a GET request and returns the response with its body
// unread. The caller must close the body.
//
// A non-2xx status is returned as a *model.TransportError.
func (c *Client) Open(ctx context.Context, rawURL string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	copyHeader(req.Header, header)

	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}

	if err := checkStatus(resp); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp, nil
}

// Resolve issues one GET and returns the final URL after transport-level
// redirects. The body is discarded.
func (c *Client) Resolve(ctx context.Context, rawURL string, header http.Header) (string, error) {
	resp, err := c.Open(ctx, rawURL, header)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	return resp.Request.URL.String(), nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return &model.TransportError{
		URL:        resp.Request.URL.String(),
		Attempts:   1,
		StatusCode: resp.StatusCode,
		Err:        fmt.Errorf("unexpected status %s", resp.Status),
	}
}

func copyHeader(dst, src http.Header) {
	for k, vv := range src {
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
}
