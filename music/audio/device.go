package audio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hajimehoshi/go-mp3"
	"github.com/liuran001/MusicPreview-Go/music"
	"github.com/liuran001/MusicPreview-Go/music/download"
)

// bytesPerFrame is fixed: decoded MP3 is always 16-bit little-endian stereo.
const bytesPerFrame = 4

// Fetcher loads a remote preview into memory.
type Fetcher interface {
	Fetch(ctx context.Context, url string, progress download.ProgressFunc) ([]byte, error)
}

// Output is an opened sound card.
type Output interface {
	SampleRate() int
	NewVoice(r io.Reader) Voice
}

// Voice plays one PCM stream. *oto.Player satisfies it.
type Voice interface {
	Play()
	Pause()
	IsPlaying() bool
	Seek(offset int64, whence int) (int64, error)
	BufferedSize() int
	Err() error
	Close() error
}

// pcmSource is decoded PCM. *mp3.Decoder satisfies it.
type pcmSource interface {
	io.ReadSeeker
	SampleRate() int
	Length() int64
}

// Options configures an MP3Device.
type Options struct {
	SampleRate     int
	StatusInterval time.Duration
	Fetcher        Fetcher
	Logger         music.Logger

	// OpenOutput opens the sound card on first use. Defaults to the oto backend.
	OpenOutput func(sampleRate int) (Output, error)
}

// MP3Device decodes MP3 previews and plays them on a shared output.
type MP3Device struct {
	sampleRate     int
	statusInterval time.Duration
	fetcher        Fetcher
	logger         music.Logger
	openOutput     func(sampleRate int) (Output, error)
	decode         func(data []byte) (pcmSource, error)

	mu     sync.Mutex
	output Output
}

// NewDevice validates opts and fills defaults. The sound card is opened on the first Create.
func NewDevice(opts Options) (*MP3Device, error) {
	if opts.Fetcher == nil {
		return nil, fmt.Errorf("audio: fetcher required")
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = 44100
	}
	if opts.StatusInterval <= 0 {
		opts.StatusInterval = 250 * time.Millisecond
	}
	if opts.OpenOutput == nil {
		opts.OpenOutput = openOtoOutput
	}
	logger := opts.Logger
	if logger == nil {
		logger = music.NopLogger{}
	}

	return &MP3Device{
		sampleRate:     opts.SampleRate,
		statusInterval: opts.StatusInterval,
		fetcher:        opts.Fetcher,
		logger:         logger,
		openOutput:     opts.OpenOutput,
		decode:         decodeMP3,
	}, nil
}

func decodeMP3(data []byte) (pcmSource, error) {
	dec, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return dec, nil
}

func (d *MP3Device) getOutput() (Output, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.output != nil {
		return d.output, nil
	}
	out, err := d.openOutput(d.sampleRate)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	d.output = out
	return out, nil
}

// Create downloads and decodes url, then prepares a handle on the shared output.
func (d *MP3Device) Create(ctx context.Context, url string, autoplay bool, progress download.ProgressFunc) (Handle, error) {
	data, err := d.fetcher.Fetch(ctx, url, progress)
	if err != nil {
		return nil, fmt.Errorf("fetch preview: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, err := d.decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUnsupportedFormat, err)
	}

	out, err := d.getOutput()
	if err != nil {
		return nil, err
	}
	if src.SampleRate() != out.SampleRate() {
		return nil, fmt.Errorf("%w: preview at %d Hz, device at %d Hz", ErrUnsupportedFormat, src.SampleRate(), out.SampleRate())
	}

	h := newHandle(uuid.NewString(), src, out, d.statusInterval, d.logger)
	d.logger.Debug("audio: handle created", "handle", h.id, "url", url, "duration_ms", h.durationMs)

	if autoplay {
		if err := h.Play(); err != nil {
			_ = h.Release()
			return nil, err
		}
	}
	return h, nil
}
