// Package download provides the download orchestration logic for
// fetching videos and photo posts through a mirror provider.
//
// # Manager
//
// The Manager coordinates the entire download process:
//
//  1. Drop duplicate links and links already in the dedup cache
//  2. Feed the rest to a fixed pool of workers
//  3. Derive the content identity of each link
//  4. Ask the provider for direct media URLs
//  5. Stream every item to disk through the Saver
//  6. Save metadata (optional, videos only)
//  7. Mark the link done, or append it to the error log
//
// # Basic Usage
//
//	session, err := download.NewSession(ctx, settings, afero.NewOsFs(), logger, func(event download.ProgressEvent) {
//	    fmt.Println(event.Message)
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer session.Close()
//
//	links, err := download.ReadLinks(fs, settings.LinksPath)
//	summary, err := session.Run(ctx, links)
//
// # Concurrency
//
// Links are queued on a channel read by settings.Workers goroutines. Each
// worker handles one link at a time, start to finish. A failing link never
// affects the others; canceling the context stops dispatch and lets
// in-flight links finish or fail.
//
// # Progress Tracking
//
// Progress is reported via a callback function that receives ProgressEvent:
//
//	type ProgressEvent struct {
//	    Message string
//	    Level   ProgressLevel // Info, Verbose, Warning, Error, Success
//	}
//
// Byte and file counters are available at any time from GetProgress.
//
// # Retry Logic
//
// Retries happen below this package, in the HTTP transport. A link that
// fails here is final for the run and is retried on the next run because
// it never reached the cache.
package download
