package controller

import (
	"context"
	"strings"

	"github.com/liuran001/MusicPreview-Go/music"
	"github.com/liuran001/MusicPreview-Go/music/catalog"
)

const (
	opSearch = "search"
	opDetail = "detail"
)

// searchController owns the query, the result list and the selection.
// Its methods run on the loop.
type searchController struct {
	s         *Session
	catalog   catalog.Catalog
	debouncer *debouncer
	limit     int
	logger    music.Logger

	gen    uint64
	cancel context.CancelFunc

	detailGen    uint64
	detailCancel context.CancelFunc
}

func (c *searchController) setQuery(text string) {
	c.s.update(func(v *ViewState) { v.Query = text })
	c.debouncer.Trigger(c.fire)
}

func (c *searchController) fire() {
	query := strings.TrimSpace(c.s.state.Query)
	c.invalidateSearch()

	if query == "" {
		c.s.update(func(v *ViewState) {
			v.Results = nil
			v.Searching = false
		})
		return
	}

	gen := c.gen
	ctx, cancel := context.WithCancel(c.s.ctx)
	c.cancel = cancel
	limit := c.limit

	c.logger.Debug("searching", "query", query, "generation", gen)
	c.s.update(func(v *ViewState) { v.Searching = true })

	c.s.submit(func() {
		tracks, err := guard(func() ([]catalog.Track, error) {
			return c.catalog.Search(ctx, query, limit)
		})
		c.s.dispatcher.Dispatch(func() { c.onSearchDone(gen, query, tracks, err) })
	}, func(err error) {
		c.onSearchDone(gen, query, nil, err)
	})
}

func (c *searchController) onSearchDone(gen uint64, query string, tracks []catalog.Track, err error) {
	if gen != c.gen {
		c.logger.Debug("discarding stale search response", "query", query, "generation", gen, "current", c.gen)
		return
	}
	c.releaseSearchContext()

	if err != nil {
		res := classify(opSearch, err, KindNetwork)
		c.logger.Warn("search failed", "query", query, "kind", res.Kind, "error", err)
		c.s.update(func(v *ViewState) {
			v.Searching = false
			v.LastResult = res
		})
		return
	}

	c.logger.Debug("search complete", "query", query, "results", len(tracks))

	// Back to list mode: drop the selection, any pending detail and the audio session.
	c.invalidateDetail()
	c.s.playback.stop()
	c.s.update(func(v *ViewState) {
		v.Results = tracks
		v.Selected = nil
		v.LoadingDetail = false
		v.Searching = false
		v.LastResult = success(opSearch)
	})
}

func (c *searchController) selectTrack(id string) {
	c.invalidateDetail()
	gen := c.detailGen
	ctx, cancel := context.WithCancel(c.s.ctx)
	c.detailCancel = cancel

	c.logger.Debug("fetching track detail", "id", id, "generation", gen)
	c.s.update(func(v *ViewState) { v.LoadingDetail = true })

	c.s.submit(func() {
		detail, err := guard(func() (*catalog.TrackDetail, error) {
			return c.catalog.GetTrack(ctx, id)
		})
		c.s.dispatcher.Dispatch(func() { c.onDetailDone(gen, id, detail, err) })
	}, func(err error) {
		c.onDetailDone(gen, id, nil, err)
	})
}

func (c *searchController) onDetailDone(gen uint64, id string, detail *catalog.TrackDetail, err error) {
	if gen != c.detailGen {
		c.logger.Debug("discarding stale track detail", "id", id, "generation", gen, "current", c.detailGen)
		return
	}
	c.releaseDetailContext()

	if err == nil && detail == nil {
		err = catalog.NewNotFoundError(c.catalog.Name(), "track", id)
	}
	if err != nil {
		res := classify(opDetail, err, KindNetwork)
		c.logger.Warn("track detail failed", "id", id, "kind", res.Kind, "error", err)
		c.s.update(func(v *ViewState) {
			v.LoadingDetail = false
			v.LastResult = res
		})
		return
	}

	// The previous session is released before the new detail becomes visible.
	c.s.playback.stop()
	c.s.update(func(v *ViewState) {
		v.Selected = detail
		v.LoadingDetail = false
		v.LastResult = success(opDetail)
	})
}

func (c *searchController) clearSelection() {
	c.invalidateDetail()
	c.s.playback.stop()
	c.s.update(func(v *ViewState) {
		v.Selected = nil
		v.LoadingDetail = false
	})
}

func (c *searchController) close() {
	c.debouncer.Cancel()
	c.invalidateSearch()
	c.invalidateDetail()
}

func (c *searchController) invalidateSearch() {
	c.gen++
	c.releaseSearchContext()
}

func (c *searchController) releaseSearchContext() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

func (c *searchController) invalidateDetail() {
	c.detailGen++
	c.releaseDetailContext()
}

func (c *searchController) releaseDetailContext() {
	if c.detailCancel != nil {
		c.detailCancel()
		c.detailCancel = nil
	}
}
