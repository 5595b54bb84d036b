// Package audio plays short remote previews through the sound card.
package audio

import (
	"context"
	"errors"
	"time"

	"github.com/liuran001/MusicPreview-Go/music/download"
)

var (
	// ErrReleased is returned by every Handle method after Release.
	ErrReleased = errors.New("audio: handle released")

	// ErrUnsupportedFormat is returned when a preview cannot be decoded or played at the device rate.
	ErrUnsupportedFormat = errors.New("audio: unsupported format")

	// ErrDeviceUnavailable is returned when no output device can be opened.
	ErrDeviceUnavailable = errors.New("audio: device unavailable")
)

// Status is a snapshot of a loaded handle, delivered periodically.
type Status struct {
	IsLoaded       bool
	IsPlaying      bool
	PositionMillis int64
	DurationMillis int64
	DidJustFinish  bool
	Err            error

	// SampledAt is when the snapshot was taken. Zero when unknown.
	SampledAt time.Time
}

// Handle is one loaded preview.
type Handle interface {
	// ID identifies the handle in logs.
	ID() string
	Play() error
	Pause() error
	// Seek moves to ms, clamped to the handle duration.
	Seek(ms int64) error
	// Release stops playback and frees the device voice. Calling it twice is harmless.
	Release() error
	// OnStatus replaces the status subscriber. fn runs on an audio goroutine.
	OnStatus(fn func(Status))
}

// Device creates handles from preview URLs.
type Device interface {
	// Create loads url and reports download progress through progress, which may be nil.
	Create(ctx context.Context, url string, autoplay bool, progress download.ProgressFunc) (Handle, error)
}
