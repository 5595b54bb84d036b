// Package controller holds the search and playback state machines behind the view.
package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/liuran001/MusicPreview-Go/music"
	"github.com/liuran001/MusicPreview-Go/music/audio"
	"github.com/liuran001/MusicPreview-Go/music/catalog"
)

const (
	DefaultDebounce    = 500 * time.Millisecond
	DefaultSearchLimit = 25
)

// Options wires a Session to its collaborators. Catalog, Device, Dispatcher and Executor are required.
type Options struct {
	Catalog    catalog.Catalog
	Device     audio.Device
	Dispatcher Dispatcher
	Executor   Executor
	Clock      Clock
	Logger     music.Logger

	Debounce    time.Duration
	SearchLimit int

	// OnChange runs on the loop after every state mutation.
	OnChange func()
}

// Session owns the view state and both controllers.
// Every exported method may be called from any goroutine; the work runs on the dispatcher.
type Session struct {
	ctx    context.Context
	cancel context.CancelFunc

	dispatcher Dispatcher
	executor   Executor
	logger     music.Logger
	onChange   func()

	mu    sync.RWMutex
	state ViewState

	search   *searchController
	playback *playbackController
}

// New validates opts and returns an idle Session. ctx bounds every catalog and audio call.
func New(ctx context.Context, opts Options) (*Session, error) {
	if opts.Catalog == nil {
		return nil, fmt.Errorf("controller: catalog required")
	}
	if opts.Device == nil {
		return nil, fmt.Errorf("controller: audio device required")
	}
	if opts.Dispatcher == nil {
		return nil, fmt.Errorf("controller: dispatcher required")
	}
	if opts.Executor == nil {
		return nil, fmt.Errorf("controller: executor required")
	}
	if opts.Clock == nil {
		opts.Clock = realClock{}
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = DefaultSearchLimit
	}
	logger := opts.Logger
	if logger == nil {
		logger = music.NopLogger{}
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		ctx:        ctx,
		cancel:     cancel,
		dispatcher: opts.Dispatcher,
		executor:   opts.Executor,
		logger:     logger,
		onChange:   opts.OnChange,
	}
	s.search = &searchController{
		s:         s,
		catalog:   opts.Catalog,
		debouncer: newDebouncer(opts.Clock, opts.Dispatcher, opts.Debounce),
		limit:     opts.SearchLimit,
		logger:    logger.With("component", "search"),
	}
	s.playback = &playbackController{
		s:      s,
		device: opts.Device,
		logger: logger.With("component", "playback"),
	}
	return s, nil
}

// State returns a deep copy of the current view state.
func (s *Session) State() ViewState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.clone()
}

// SetQuery updates the query and restarts the debounce timer.
func (s *Session) SetQuery(text string) {
	s.dispatcher.Dispatch(func() { s.search.setQuery(text) })
}

// SelectTrack fetches the detail for id and shows it.
func (s *Session) SelectTrack(id string) {
	s.dispatcher.Dispatch(func() { s.search.selectTrack(id) })
}

// ClearSelection returns to the result list and stops playback.
func (s *Session) ClearSelection() {
	s.dispatcher.Dispatch(s.search.clearSelection)
}

// Play loads the selected preview, or resumes it when paused.
func (s *Session) Play() {
	s.dispatcher.Dispatch(s.playback.play)
}

// Pause pauses a playing preview. It is a no-op in any other state.
func (s *Session) Pause() {
	s.dispatcher.Dispatch(s.playback.pause)
}

// TogglePlay drives the single play/pause button.
func (s *Session) TogglePlay() {
	s.dispatcher.Dispatch(s.playback.toggle)
}

// Seek jumps to ms. Without a loaded handle it does nothing.
func (s *Session) Seek(ms int64) {
	s.dispatcher.Dispatch(func() { s.playback.seek(ms) })
}

// SeekBy moves relative to the current position.
func (s *Session) SeekBy(deltaMs int64) {
	s.dispatcher.Dispatch(func() {
		s.playback.seek(s.state.Playback.PositionMillis + deltaMs)
	})
}

// Stop releases the audio handle and returns playback to idle.
func (s *Session) Stop() {
	s.dispatcher.Dispatch(s.playback.stop)
}

// Retry reloads the preview after a failure.
func (s *Session) Retry() {
	s.dispatcher.Dispatch(s.playback.retry)
}

// Close cancels in-flight work and releases the audio handle.
// It blocks until the teardown ran on the dispatcher or ctx is done.
func (s *Session) Close(ctx context.Context) error {
	done := make(chan struct{})
	s.dispatcher.Dispatch(func() {
		defer close(done)
		s.search.close()
		s.playback.stop()
		s.cancel()
	})

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}
}

// update mutates the state. Loop only.
func (s *Session) update(fn func(*ViewState)) {
	s.mu.Lock()
	fn(&s.state)
	s.mu.Unlock()

	if s.onChange != nil {
		s.onChange()
	}
}

// submit runs work on the executor and reports a rejected submission through onReject on the loop.
func (s *Session) submit(work func(), onReject func(error)) {
	if err := s.executor.Submit(work); err != nil {
		onReject(fmt.Errorf("submit: %w", err))
	}
}
