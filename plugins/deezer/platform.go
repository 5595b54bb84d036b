package deezer

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/liuran001/MusicPreview-Go/music/catalog"
)

// DeezerCatalog implements catalog.Catalog on top of the Deezer public API.
type DeezerCatalog struct {
	client *Client
}

// NewCatalog wraps a client.
func NewCatalog(client *Client) *DeezerCatalog {
	return &DeezerCatalog{client: client}
}

// Name returns the catalog identifier.
func (d *DeezerCatalog) Name() string {
	return catalogName
}

// Search returns tracks in response order. Duplicate IDs keep their first row.
func (d *DeezerCatalog) Search(ctx context.Context, query string, limit int) ([]catalog.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []catalog.Track{}, nil
	}

	rows, err := d.client.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	tracks := make([]catalog.Track, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for _, row := range rows {
		if row.ID == 0 {
			continue
		}
		id := strconv.FormatInt(row.ID, 10)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		tracks = append(tracks, catalog.Track{
			ID:     id,
			Title:  row.Title,
			Artist: catalog.Artist{Name: row.Artist.Name},
		})
	}
	return tracks, nil
}

// GetTrack fetches the detail record for one track.
func (d *DeezerCatalog) GetTrack(ctx context.Context, trackID string) (*catalog.TrackDetail, error) {
	trackID = strings.TrimSpace(trackID)
	if _, err := strconv.ParseInt(trackID, 10, 64); err != nil {
		return nil, catalog.NewNotFoundError(catalogName, "track", trackID)
	}

	data, err := d.client.Track(ctx, trackID)
	if err != nil {
		return nil, err
	}
	return toDetail(data), nil
}

func toDetail(data *TrackData) *catalog.TrackDetail {
	return &catalog.TrackDetail{
		ID:         strconv.FormatInt(data.ID, 10),
		Title:      data.Title,
		Duration:   time.Duration(data.Duration) * time.Second,
		PreviewURL: strings.TrimSpace(data.Preview),
		Album: catalog.Album{
			Title:    data.Album.Title,
			CoverURL: data.Album.CoverBig,
		},
		Artist: catalog.Artist{
			Name:       data.Artist.Name,
			PictureURL: data.Artist.PictureBig,
		},
	}
}
