package download

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

var (
	// ErrTooLarge is returned when a body exceeds the configured size cap.
	ErrTooLarge = errors.New("download: body exceeds size limit")

	// ErrEmpty is returned when the server answers with no content.
	ErrEmpty = errors.New("download: empty body")
)

// StatusError reports a non-200 response.
type StatusError struct {
	URL  string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("download %s failed with status %d", e.URL, e.Code)
}

// ProgressFunc receives the bytes read so far and the expected total (0 when unknown).
type ProgressFunc func(written, total int64)

// Service fetches small remote assets (previews, pictures) into memory.
type Service struct {
	client           *retryablehttp.Client
	timeout          time.Duration
	maxSize          int64
	progressInterval time.Duration
}

type ServiceOptions struct {
	Timeout          time.Duration
	MaxSize          int64
	RetryMax         int
	RetryWaitMin     time.Duration
	RetryWaitMax     time.Duration
	ProgressInterval time.Duration
}

func NewService(opts ServiceOptions) *Service {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = 8 << 20
	}
	if opts.RetryMax < 0 {
		opts.RetryMax = 0
	}
	if opts.RetryWaitMin <= 0 {
		opts.RetryWaitMin = time.Second
	}
	if opts.RetryWaitMax <= 0 {
		opts.RetryWaitMax = 4 * time.Second
	}
	if opts.ProgressInterval <= 0 {
		opts.ProgressInterval = 250 * time.Millisecond
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   minDuration(opts.Timeout, 10*time.Second),
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   4,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   minDuration(opts.Timeout, 10*time.Second),
		ResponseHeaderTimeout: minDuration(opts.Timeout, 10*time.Second),
		ExpectContinueTimeout: 1 * time.Second,
	}

	client := retryablehttp.NewClient()
	client.HTTPClient = &http.Client{Transport: transport}
	client.RetryMax = opts.RetryMax
	client.RetryWaitMin = opts.RetryWaitMin
	client.RetryWaitMax = opts.RetryWaitMax
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	client.Logger = nil

	return &Service{
		client:           client,
		timeout:          opts.Timeout,
		maxSize:          opts.MaxSize,
		progressInterval: opts.ProgressInterval,
	}
}

// Fetch downloads rawURL fully into memory.
func (s *Service) Fetch(ctx context.Context, rawURL string, progress ProgressFunc) ([]byte, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, errors.New("download url missing")
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse download url: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("unsupported download scheme %q", parsed.Scheme)
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{URL: rawURL, Code: resp.StatusCode}
	}
	if resp.ContentLength > s.maxSize {
		return nil, fmt.Errorf("%w: %d bytes > %d bytes", ErrTooLarge, resp.ContentLength, s.maxSize)
	}

	var buf bytes.Buffer
	if resp.ContentLength > 0 {
		buf.Grow(int(resp.ContentLength))
	}

	// One extra byte tells an exact-size body apart from an oversized one.
	limited := io.LimitReader(resp.Body, s.maxSize+1)
	written, err := copyWithProgress(&buf, limited, resp.ContentLength, progress, s.progressInterval)
	if err != nil {
		return nil, err
	}
	if written > s.maxSize {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, s.maxSize)
	}
	if written == 0 {
		return nil, ErrEmpty
	}
	if resp.ContentLength > 0 && written != resp.ContentLength {
		return nil, fmt.Errorf("incomplete download: got %d bytes, expected %d", written, resp.ContentLength)
	}
	return buf.Bytes(), nil
}

func copyWithProgress(dst io.Writer, src io.Reader, total int64, progress ProgressFunc, interval time.Duration) (int64, error) {
	buf := make([]byte, 32*1024)
	var written int64
	lastUpdate := time.Now()

	for {
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return written, werr
			}
			written += int64(n)
			if progress != nil && time.Since(lastUpdate) >= interval {
				progress(written, total)
				lastUpdate = time.Now()
			}
		}
		if err != nil {
			if err == io.EOF {
				if progress != nil {
					progress(written, total)
				}
				return written, nil
			}
			return written, err
		}
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a == 0 || a > b {
		return b
	}
	return a
}
