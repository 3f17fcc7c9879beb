// Package gopro implements the GoPro cloud media API surface: an
// authorized HTTP client, the paginated media-search fetch with its
// tolerant response-shape probing, and the pure candidate extractor that
// turns one media record into download URLs.
package gopro
