package catalog

import "context"

// Catalog is a remote track catalog reachable over HTTP.
//
// Implementations should be safe for concurrent use by multiple goroutines.
type Catalog interface {
	// Name returns the catalog identifier (e.g., "deezer"). Lowercase and URL-safe.
	Name() string

	// Search returns track summaries matching the free-text query, in the
	// order the catalog returned them. limit <= 0 leaves the page size to the catalog.
	Search(ctx context.Context, query string, limit int) ([]Track, error)

	// GetTrack returns the full detail of a single track.
	//
	// Returns ErrNotFound if the track doesn't exist.
	GetTrack(ctx context.Context, trackID string) (*TrackDetail, error)
}
