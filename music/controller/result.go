package controller

import (
	"context"
	"errors"
	"fmt"
	"net"
	"runtime/debug"

	"github.com/liuran001/MusicPreview-Go/music/audio"
	"github.com/liuran001/MusicPreview-Go/music/catalog"
	"github.com/liuran001/MusicPreview-Go/music/download"
)

// Kind classifies the outcome of an operation.
type Kind string

const (
	KindOK          Kind = "ok"
	KindNetwork     Kind = "network"
	KindNotFound    Kind = "not_found"
	KindRateLimited Kind = "rate_limited"
	KindUnavailable Kind = "unavailable"
	KindCanceled    Kind = "canceled"
	KindAudio       Kind = "audio"
	KindInternal    Kind = "internal"
)

// Result is the typed outcome of a search, detail or playback operation.
type Result struct {
	Op      string `json:"op,omitempty"`
	Kind    Kind   `json:"kind,omitempty"`
	Message string `json:"message,omitempty"`
}

// OK reports whether the result is a success. The zero Result counts as success.
func (r Result) OK() bool {
	return r.Kind == "" || r.Kind == KindOK
}

func (r Result) String() string {
	if r.OK() {
		return r.Op + ": ok"
	}
	return fmt.Sprintf("%s: %s: %s", r.Op, r.Kind, r.Message)
}

func success(op string) Result {
	return Result{Op: op, Kind: KindOK}
}

// classify maps err onto a Kind. Errors nothing recognizes get fallback.
func classify(op string, err error, fallback Kind) Result {
	res := Result{Op: op, Kind: fallback, Message: err.Error()}

	var panicErr *panicError
	var statusErr *download.StatusError
	var netErr net.Error

	switch {
	case errors.As(err, &panicErr):
		res.Kind = KindInternal
	case errors.Is(err, context.Canceled):
		res.Kind = KindCanceled
	case errors.Is(err, catalog.ErrNotFound):
		res.Kind = KindNotFound
	case errors.Is(err, catalog.ErrRateLimited):
		res.Kind = KindRateLimited
	case errors.Is(err, catalog.ErrUnavailable):
		res.Kind = KindUnavailable
	case errors.Is(err, catalog.ErrBadResponse):
		res.Kind = KindUnavailable
	case errors.Is(err, audio.ErrReleased),
		errors.Is(err, audio.ErrUnsupportedFormat),
		errors.Is(err, audio.ErrDeviceUnavailable):
		res.Kind = KindAudio
	case errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &statusErr),
		errors.As(err, &netErr):
		res.Kind = KindNetwork
	}
	return res
}

type panicError struct {
	value any
	stack []byte
}

func (e *panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}

// guard runs fn and turns a panic into an error.
func guard[T any](fn func() (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			result = zero
			err = &panicError{value: r, stack: debug.Stack()}
		}
	}()
	return fn()
}

func guardErr(fn func() error) error {
	_, err := guard(func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}
