// Package artwork renders album covers and artist pictures as terminal half-block art.
package artwork

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/liuran001/MusicPreview-Go/music"
	"github.com/liuran001/MusicPreview-Go/music/download"
	"github.com/nfnt/resize"
	"golang.org/x/sync/errgroup"
)

const halfBlock = "▀"

// Fetcher loads a remote image into memory.
type Fetcher interface {
	Fetch(ctx context.Context, url string, progress download.ProgressFunc) ([]byte, error)
}

// Art holds rendered pictures for one track. Empty strings mean no picture.
type Art struct {
	Cover  string
	Artist string
}

// Renderer fetches and renders track pictures.
type Renderer struct {
	fetcher Fetcher
	width   int
	logger  music.Logger
}

func NewRenderer(fetcher Fetcher, width int, logger music.Logger) *Renderer {
	if width <= 0 {
		width = 24
	}
	if logger == nil {
		logger = music.NopLogger{}
	}
	return &Renderer{fetcher: fetcher, width: width, logger: logger}
}

// Render fetches the cover and the artist picture in parallel.
// A picture that fails to load is left empty; Render itself only fails when ctx is done.
func (r *Renderer) Render(ctx context.Context, coverURL, pictureURL string) (Art, error) {
	var art Art
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		art.Cover = r.renderURL(gctx, coverURL)
		return nil
	})
	g.Go(func() error {
		art.Artist = r.renderURL(gctx, pictureURL)
		return nil
	})

	if err := g.Wait(); err != nil {
		return Art{}, err
	}
	if err := ctx.Err(); err != nil {
		return Art{}, err
	}
	return art, nil
}

func (r *Renderer) renderURL(ctx context.Context, url string) string {
	if strings.TrimSpace(url) == "" {
		return ""
	}
	data, err := r.fetcher.Fetch(ctx, url, nil)
	if err != nil {
		r.logger.Debug("artwork fetch failed", "url", url, "error", err)
		return ""
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		r.logger.Debug("artwork decode failed", "url", url, "error", err)
		return ""
	}
	return RenderImage(img, r.width)
}

// RenderImage draws img width cells wide. Each cell carries two vertical pixels.
func RenderImage(img image.Image, width int) string {
	bounds := img.Bounds()
	if width <= 0 || bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return ""
	}

	height := bounds.Dy() * width / bounds.Dx()
	if height < 2 {
		height = 2
	}
	if height%2 != 0 {
		height++
	}

	scaled := resize.Resize(uint(width), uint(height), img, resize.Lanczos3)
	sb := scaled.Bounds()

	var out strings.Builder
	for y := sb.Min.Y; y < sb.Max.Y; y += 2 {
		if y > sb.Min.Y {
			out.WriteByte('\n')
		}
		for x := sb.Min.X; x < sb.Max.X; x++ {
			top := hexColor(scaled.At(x, y))
			bottom := top
			if y+1 < sb.Max.Y {
				bottom = hexColor(scaled.At(x, y+1))
			}
			out.WriteString(lipgloss.NewStyle().
				Foreground(lipgloss.Color(top)).
				Background(lipgloss.Color(bottom)).
				Render(halfBlock))
		}
	}
	return out.String()
}

func hexColor(c color.Color) string {
	r, g, b, _ := c.RGBA()
	return fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8)
}
