package audio

import (
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/liuran001/MusicPreview-Go/music"
)

// positionReader counts bytes handed to the voice.
type positionReader struct {
	src pcmSource
	pos atomic.Int64
}

func (r *positionReader) Read(p []byte) (int, error) {
	n, err := r.src.Read(p)
	r.pos.Add(int64(n))
	return n, err
}

func (r *positionReader) Seek(offset int64, whence int) (int64, error) {
	pos, err := r.src.Seek(offset, whence)
	if err != nil {
		return pos, err
	}
	r.pos.Store(pos)
	return pos, nil
}

type mp3Handle struct {
	id         string
	rate       int
	length     int64
	durationMs int64
	interval   time.Duration
	logger     music.Logger

	reader *positionReader
	voice  Voice

	mu         sync.Mutex
	listener   func(Status)
	released   bool
	wasPlaying bool
	stop       chan struct{}
}

func newHandle(id string, src pcmSource, out Output, interval time.Duration, logger music.Logger) *mp3Handle {
	reader := &positionReader{src: src}
	rate := src.SampleRate()
	length := src.Length()

	h := &mp3Handle{
		id:         id,
		rate:       rate,
		length:     length,
		durationMs: bytesToMillis(length, rate),
		interval:   interval,
		logger:     logger.With("handle", id),
		reader:     reader,
		voice:      out.NewVoice(reader),
		stop:       make(chan struct{}),
	}
	go h.watch()
	return h
}

func bytesToMillis(n int64, rate int) int64 {
	if n <= 0 || rate <= 0 {
		return 0
	}
	return n / bytesPerFrame * 1000 / int64(rate)
}

func millisToBytes(ms int64, rate int) int64 {
	if ms <= 0 || rate <= 0 {
		return 0
	}
	return ms * int64(rate) / 1000 * bytesPerFrame
}

func (h *mp3Handle) ID() string {
	return h.id
}

func (h *mp3Handle) Play() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return ErrReleased
	}

	if h.atEndLocked() {
		if _, err := h.voice.Seek(0, io.SeekStart); err != nil {
			return err
		}
	}
	h.voice.Play()
	h.wasPlaying = true
	return h.voice.Err()
}

func (h *mp3Handle) Pause() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return ErrReleased
	}

	h.voice.Pause()
	h.wasPlaying = false
	return h.voice.Err()
}

func (h *mp3Handle) Seek(ms int64) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return ErrReleased
	}

	if ms < 0 {
		ms = 0
	}
	if ms > h.durationMs {
		ms = h.durationMs
	}
	offset := millisToBytes(ms, h.rate)
	if h.length > 0 && offset > h.length {
		offset = h.length
	}
	_, err := h.voice.Seek(offset, io.SeekStart)
	return err
}

// Release does not wait for an in-flight status callback; callers filter stale handles.
func (h *mp3Handle) Release() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil
	}
	h.released = true
	h.listener = nil
	close(h.stop)

	err := h.voice.Close()
	h.logger.Debug("audio: handle released")
	return err
}

func (h *mp3Handle) OnStatus(fn func(Status)) {
	h.mu.Lock()
	h.listener = fn
	h.mu.Unlock()
}

// positionLocked is the audible position: bytes read minus bytes still queued.
func (h *mp3Handle) positionLocked() int64 {
	pos := h.reader.pos.Load() - int64(h.voice.BufferedSize())
	if pos < 0 {
		return 0
	}
	return pos
}

func (h *mp3Handle) atEndLocked() bool {
	return h.length > 0 && h.reader.pos.Load() >= h.length && h.voice.BufferedSize() == 0
}

func (h *mp3Handle) snapshot() (Status, func(Status)) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.released {
		return Status{}, nil
	}

	playing := h.voice.IsPlaying()
	status := Status{
		IsLoaded:       true,
		IsPlaying:      playing,
		PositionMillis: bytesToMillis(h.positionLocked(), h.rate),
		DurationMillis: h.durationMs,
		Err:            h.voice.Err(),
		SampledAt:      time.Now(),
	}
	if status.PositionMillis > h.durationMs {
		status.PositionMillis = h.durationMs
	}
	if h.wasPlaying && !playing && h.atEndLocked() {
		status.DidJustFinish = true
		status.PositionMillis = h.durationMs
		h.wasPlaying = false
	}
	return status, h.listener
}

func (h *mp3Handle) watch() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			status, listener := h.snapshot()
			if listener != nil {
				listener(status)
			}
		}
	}
}
