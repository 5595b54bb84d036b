package catalog

import "time"

// Track is a search result row.
type Track struct {
	// ID is unique within a result set.
	ID     string `json:"id"`
	Title  string `json:"title"`
	Artist Artist `json:"artist"`
}

// TrackDetail is the full record shown in the detail view.
type TrackDetail struct {
	ID    string `json:"id"`
	Title string `json:"title"`

	// Duration is the length of the full track, not of the preview.
	Duration time.Duration `json:"duration"`

	// PreviewURL points at a short MP3 clip. May be empty when the catalog has none.
	PreviewURL string `json:"preview_url"`

	Album  Album  `json:"album"`
	Artist Artist `json:"artist"`
}

// Artist represents a music artist.
type Artist struct {
	Name string `json:"name"`

	// PictureURL is a large artist picture (may be empty).
	PictureURL string `json:"picture_url,omitempty"`
}

// Album represents the album a track belongs to.
type Album struct {
	Title string `json:"title"`

	// CoverURL is a large cover image (may be empty).
	CoverURL string `json:"cover_url,omitempty"`
}

// DurationSeconds returns the track length in whole seconds.
func (d TrackDetail) DurationSeconds() int {
	return int(d.Duration / time.Second)
}

// HasPreview reports whether the track can be played.
func (d TrackDetail) HasPreview() bool {
	return d.PreviewURL != ""
}
