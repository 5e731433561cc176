// Package metadata extracts the structured post record that the source
// platform embeds in its post pages.
//
// The page carries a JSON blob in
//
//	<script id="__UNIVERSAL_DATA_FOR_REHYDRATION__" type="application/json">
//
// The post itself lives under
// __DEFAULT_SCOPE__["webapp.video-detail"].itemInfo.itemStruct. Fetcher
// downloads the page, Parse pulls the blob out, and the result is projected
// onto Record, which is what gets written next to the media file.
//
// # Usage
//
//	f := metadata.NewFetcher(client)
//	rec, err := f.Fetch(ctx, link)
//	if err != nil {
//	    // metadata is optional; report and carry on
//	}
//	data, _ := rec.MarshalIndent()
package metadata
