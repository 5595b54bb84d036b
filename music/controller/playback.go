package controller

import (
	"context"
	"errors"
	"time"

	"github.com/liuran001/MusicPreview-Go/music"
	"github.com/liuran001/MusicPreview-Go/music/audio"
)

const (
	opPlay   = "play"
	opPause  = "pause"
	opResume = "resume"
	opSeek   = "seek"
	opStatus = "status"
)

var errNoPreview = errors.New("track has no preview")

// playbackController owns the single audio handle.
// Its methods run on the loop.
type playbackController struct {
	s      *Session
	device audio.Device
	logger music.Logger

	handle audio.Handle
	gen    uint64
	cancel context.CancelFunc

	// busy is set while a pause or resume is in flight.
	busy bool

	// settledAt is when the last transport or seek call returned.
	// Status sampled before it describes the voice as it was before that call.
	settledAt time.Time
}

func (c *playbackController) status() PlaybackStatus {
	return c.s.state.Playback.Status
}

func (c *playbackController) toggle() {
	if c.busy {
		return
	}
	switch c.status() {
	case StatusPlaying:
		c.pause()
	case StatusLoading:
	default:
		c.play()
	}
}

func (c *playbackController) play() {
	if c.busy {
		return
	}
	switch c.status() {
	case StatusIdle, StatusFailed:
		c.load()
	case StatusPaused:
		c.resume()
	}
}

func (c *playbackController) retry() {
	if c.status() == StatusFailed {
		c.load()
	}
}

func (c *playbackController) load() {
	selected := c.s.state.Selected
	if selected == nil {
		c.logger.Debug("play ignored, nothing selected")
		return
	}

	c.reset()
	if !selected.HasPreview() {
		c.failWith(Result{Op: opPlay, Kind: KindUnavailable, Message: errNoPreview.Error()}, errNoPreview)
		return
	}

	gen := c.gen
	ctx, cancel := context.WithCancel(c.s.ctx)
	c.cancel = cancel
	url := selected.PreviewURL

	c.logger.Debug("loading preview", "track", selected.ID, "url", url, "generation", gen)
	c.s.update(func(v *ViewState) {
		v.Playback = PlaybackState{Status: StatusLoading, IsLoading: true}
	})

	progress := func(written, total int64) {
		if total <= 0 {
			return
		}
		percent := int(min(written*100/total, 100))
		c.s.dispatcher.Dispatch(func() { c.onProgress(gen, percent) })
	}

	c.s.submit(func() {
		h, err := guard(func() (audio.Handle, error) {
			return c.device.Create(ctx, url, true, progress)
		})
		c.s.dispatcher.Dispatch(func() { c.onCreated(gen, h, err) })
	}, func(err error) {
		c.onCreated(gen, nil, err)
	})
}

func (c *playbackController) onProgress(gen uint64, percent int) {
	if gen != c.gen || c.status() != StatusLoading || c.s.state.Playback.LoadProgress == percent {
		return
	}
	c.s.update(func(v *ViewState) { v.Playback.LoadProgress = percent })
}

func (c *playbackController) onCreated(gen uint64, h audio.Handle, err error) {
	if gen != c.gen {
		if h != nil {
			c.logger.Debug("releasing late handle", "handle", h.ID(), "generation", gen, "current", c.gen)
			c.release(h)
		}
		return
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if err == nil && h == nil {
		err = errors.New("audio device returned no handle")
	}
	if err != nil {
		c.fail(opPlay, err)
		return
	}

	c.handle = h
	h.OnStatus(func(st audio.Status) {
		c.s.dispatcher.Dispatch(func() { c.onStatus(gen, h, st) })
	})

	c.logger.Info("preview playing", "handle", h.ID())
	c.s.update(func(v *ViewState) {
		v.Playback = PlaybackState{
			Status:    StatusPlaying,
			IsPlaying: true,
			HasHandle: true,
		}
		if v.Selected != nil {
			v.Playback.DurationMillis = v.Selected.Duration.Milliseconds()
		}
	})
}

func (c *playbackController) pause() {
	if c.busy || c.handle == nil || c.status() != StatusPlaying {
		return
	}
	c.transport(opPause, c.handle.Pause, StatusPaused)
}

func (c *playbackController) resume() {
	if c.busy || c.handle == nil || c.status() != StatusPaused {
		return
	}
	c.transport(opResume, c.handle.Play, StatusPlaying)
}

func (c *playbackController) transport(op string, call func() error, next PlaybackStatus) {
	c.busy = true
	gen := c.gen

	c.s.submit(func() {
		err := guardErr(call)
		at := time.Now()
		c.s.dispatcher.Dispatch(func() { c.onTransport(gen, op, err, next, at) })
	}, func(err error) {
		c.onTransport(gen, op, err, next, time.Now())
	})
}

func (c *playbackController) onTransport(gen uint64, op string, err error, next PlaybackStatus, at time.Time) {
	if gen != c.gen {
		return
	}
	c.busy = false
	c.settledAt = at
	if err != nil {
		c.fail(op, err)
		return
	}
	c.s.update(func(v *ViewState) {
		v.Playback.Status = next
		v.Playback.IsPlaying = next == StatusPlaying
	})
}

func (c *playbackController) seek(ms int64) {
	if c.handle == nil {
		return
	}

	if ms < 0 {
		ms = 0
	}
	if duration := c.s.state.Playback.DurationMillis; duration > 0 && ms > duration {
		ms = duration
	}

	h := c.handle
	gen := c.gen
	c.s.submit(func() {
		err := guardErr(func() error { return h.Seek(ms) })
		at := time.Now()
		c.s.dispatcher.Dispatch(func() { c.onSeek(gen, ms, err, at) })
	}, func(err error) {
		c.onSeek(gen, ms, err, time.Now())
	})
}

func (c *playbackController) onSeek(gen uint64, ms int64, err error, at time.Time) {
	if gen != c.gen {
		return
	}
	c.settledAt = at
	if err != nil {
		c.fail(opSeek, err)
		return
	}
	c.s.update(func(v *ViewState) { v.Playback.PositionMillis = ms })
}

func (c *playbackController) onStatus(gen uint64, h audio.Handle, st audio.Status) {
	if gen != c.gen || h != c.handle {
		return
	}
	if st.Err != nil {
		c.fail(opStatus, st.Err)
		return
	}
	if !st.IsLoaded {
		return
	}
	if !st.SampledAt.IsZero() && st.SampledAt.Before(c.settledAt) {
		c.logger.Debug("dropping status sampled before last transport", "handle", h.ID())
		return
	}

	busy := c.busy
	c.s.update(func(v *ViewState) {
		v.Playback.PositionMillis = st.PositionMillis
		if st.DurationMillis > 0 {
			v.Playback.DurationMillis = st.DurationMillis
		}
		switch {
		case !st.IsPlaying && v.Playback.Status == StatusPlaying:
			v.Playback.Status = StatusPaused
			v.Playback.IsPlaying = false
		case st.IsPlaying && v.Playback.Status == StatusPaused && !busy:
			v.Playback.Status = StatusPlaying
			v.Playback.IsPlaying = true
		}
	})
	if st.DidJustFinish {
		c.logger.Debug("preview finished", "handle", h.ID())
	}
}

// stop releases the handle and returns to Idle.
func (c *playbackController) stop() {
	idle := c.handle == nil && c.cancel == nil && c.status() == StatusIdle
	c.reset()
	if idle {
		return
	}
	c.s.update(func(v *ViewState) { v.Playback = PlaybackState{} })
}

func (c *playbackController) fail(op string, err error) {
	c.failWith(classify(op, err, KindAudio), err)
}

// failWith releases everything and enters Failed, which offers a retry.
func (c *playbackController) failWith(res Result, err error) {
	c.logger.Error("playback failed", "op", res.Op, "kind", res.Kind, "error", err)

	c.reset()
	c.s.update(func(v *ViewState) {
		v.Playback = PlaybackState{Status: StatusFailed, Failure: &res}
		v.LastResult = res
	})
}

// reset invalidates in-flight work and releases the current handle.
func (c *playbackController) reset() {
	c.gen++
	c.busy = false
	c.settledAt = time.Time{}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	if c.handle != nil {
		h := c.handle
		c.handle = nil
		c.release(h)
	}
}

func (c *playbackController) release(h audio.Handle) {
	err := guardErr(func() error {
		h.OnStatus(nil)
		return h.Release()
	})
	if err != nil {
		c.logger.Warn("release audio handle", "handle", h.ID(), "error", err)
	}
}
