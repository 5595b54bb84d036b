//go:build !noaudio

package audio

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// oto allows a single context per process.
var (
	otoOnce sync.Once
	otoCtx  *oto.Context
	otoRate int
	otoErr  error
)

type otoOutput struct {
	ctx  *oto.Context
	rate int
}

func openOtoOutput(sampleRate int) (Output, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: 2,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   100 * time.Millisecond,
		}

		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			otoErr = err
			return
		}
		<-ready
		otoCtx = ctx
		otoRate = sampleRate
	})

	if otoErr != nil {
		return nil, otoErr
	}
	if otoRate != sampleRate {
		return nil, fmt.Errorf("oto context already open at %d Hz", otoRate)
	}
	return &otoOutput{ctx: otoCtx, rate: otoRate}, nil
}

func (o *otoOutput) SampleRate() int {
	return o.rate
}

func (o *otoOutput) NewVoice(r io.Reader) Voice {
	return o.ctx.NewPlayer(r)
}
