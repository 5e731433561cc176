// Package provider resolves share links to direct download URLs by
// scraping third-party mirror services.
//
// Every mirror is a Provider. The orchestrator only sees the interface, so
// a new mirror is a new file in this package plus one registry entry.
//
// # Registered mirrors
//
//	v1  tmate.cc         token form field, JSON response wrapping HTML
//	v2  musicaldown.com  two obfuscated form field names
//	v3  tiktokio.com     htmx endpoint with a "prefix" field (default)
//
// # Recipe
//
// All mirrors follow the same steps:
//
//  1. GET the landing page and read the session token(s) from the form
//  2. POST the link and the token(s) to the resolution endpoint
//  3. Select download URLs from the returned document by position
//  4. Fail with model.ErrContentUnavailable when nothing is found
//
// # Positional Conventions
//
// Mirrors list several video variants. Which one is the watermarked copy is
// a fixed, mirror-specific position documented on each type. Photo posts
// return every image in document order.
//
// # Usage
//
//	p, err := provider.New("v3", client)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	result, err := p.Fetch(ctx, link, identity, false)
package provider
