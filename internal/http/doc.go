// Package http provides the outbound HTTP client used by every component
// that talks to the network.
//
// The Client in this package handles:
//   - Bounded retry of transient failures (RetryTransport)
//   - Per-session cookie jars for mirrors that keep state between requests
//   - Random desktop User-Agent headers
//   - Streaming GETs for media downloads
//
// # Basic Usage
//
//	client := http.NewClient(http.Options{MaxAttempts: 10, BackoffFactor: 1})
//
//	// Fetch an HTML page
//	page, err := client.GetString(ctx, "https://example.com/", nil)
//
//	// Open a media stream; the caller closes the body
//	resp, err := client.Open(ctx, mediaURL, header)
//
// # Retry Policy
//
// Requests are retried only on HTTP 429, 500, 502, 503 and 504 and on
// connection-level errors, with exponential backoff
// (factor * 2^(attempt-1) seconds, capped at two minutes). Once the budget is
// spent a *model.TransportError is returned. Any other status is handed to
// the caller untouched.
//
// # Progress Tracking
//
// The ProgressWriter type can be used to wrap any io.Writer for progress tracking:
//
//	pw := &http.ProgressWriter{
//	    Writer:   file,
//	    Total:    contentLength,
//	    OnUpdate: func(written, total int64) { /* update UI */ },
//	}
package http
