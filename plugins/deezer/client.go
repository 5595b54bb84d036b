package deezer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/liuran001/MusicPreview-Go/music"
	"github.com/liuran001/MusicPreview-Go/music/catalog"
	"github.com/liuran001/MusicPreview-Go/music/ratelimit"
	"github.com/sony/gobreaker"
)

const (
	catalogName     = "deezer"
	defaultBaseURL  = "https://api.deezer.com/"
	maxResponseSize = 4 << 20
)

// Options configures a Client. Zero values fall back to sane defaults.
type Options struct {
	BaseURL            string
	Timeout            time.Duration
	RetryMax           int
	RetryWaitMin       time.Duration
	RetryWaitMax       time.Duration
	QuotaBackoff       time.Duration
	RateLimitPerSecond float64
	RateLimitBurst     int
	Logger             music.Logger
}

// Client provides resilient Deezer API calls.
type Client struct {
	baseURL      *url.URL
	httpClient   *retryablehttp.Client
	breaker      *gobreaker.CircuitBreaker
	limiter      *ratelimit.RateLimiter
	maxRetries   int
	quotaBackoff time.Duration
	logger       music.Logger
}

// New returns a Deezer client.
func New(opts Options) (*Client, error) {
	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	parsed, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("deezer: parse base url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("deezer: base url %q must be absolute", base)
	}

	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RetryMax < 0 {
		opts.RetryMax = 0
	}
	if opts.RetryWaitMin <= 0 {
		opts.RetryWaitMin = 500 * time.Millisecond
	}
	if opts.RetryWaitMax <= 0 {
		opts.RetryWaitMax = 5 * time.Second
	}
	if opts.QuotaBackoff <= 0 {
		opts.QuotaBackoff = time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = music.NopLogger{}
	}

	c := &Client{
		baseURL:      parsed,
		httpClient:   retryablehttp.NewClient(),
		maxRetries:   opts.RetryMax,
		quotaBackoff: opts.QuotaBackoff,
		logger:       logger,
	}

	c.httpClient.RetryMax = opts.RetryMax
	c.httpClient.RetryWaitMin = opts.RetryWaitMin
	c.httpClient.RetryWaitMax = opts.RetryWaitMax
	c.httpClient.HTTPClient.Timeout = opts.Timeout
	c.httpClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	c.httpClient.Logger = nil

	c.limiter = ratelimit.NewRateLimiter(opts.RateLimitPerSecond, opts.RateLimitBurst)
	c.limiter.SetLogger(logger)

	settings := gobreaker.Settings{
		Name:        "deezer-api",
		MaxRequests: 3,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, catalog.ErrNotFound) ||
				errors.Is(err, context.Canceled)
		},
	}
	c.breaker = gobreaker.NewCircuitBreaker(settings)
	return c, nil
}

// Search queries the track index.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]TrackData, error) {
	c.logger.Debug("deezer: searching", "query", query, "limit", limit)

	params := url.Values{}
	params.Set("q", query)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var result searchResponse
	if err := c.getJSON(ctx, "search", "", "search", params, &result, &result.errorEnvelope); err != nil {
		return nil, err
	}
	return result.Data, nil
}

// Track fetches a single track with its album and artist.
func (c *Client) Track(ctx context.Context, id string) (*TrackData, error) {
	c.logger.Debug("deezer: fetching track", "id", id)

	var result trackResponse
	if err := c.getJSON(ctx, "track", id, "track/"+url.PathEscape(id), nil, &result, &result.errorEnvelope); err != nil {
		return nil, err
	}
	if result.ID == 0 {
		return nil, catalog.NewBadResponseError(catalogName, "track", id, "missing track id")
	}
	return &result.TrackData, nil
}

func (c *Client) endpoint(path string, params url.Values) string {
	u := c.baseURL.ResolveReference(&url.URL{Path: path})
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}
	return u.String()
}

func (c *Client) getJSON(ctx context.Context, resource, id, path string, params url.Values, out any, envelope *errorEnvelope) error {
	endpoint := c.endpoint(path, params)

	err := c.execute(ctx, func() error {
		req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return catalog.NewUnavailableError(catalogName, resource, err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return catalog.NewUnavailableError(catalogName, resource, err)
		}

		if err := statusError(resp.StatusCode, resource, id); err != nil {
			return err
		}

		if err := json.Unmarshal(body, out); err != nil {
			return catalog.NewBadResponseError(catalogName, resource, id, fmt.Sprintf("decode: %v", err))
		}

		if envelope.Error != nil {
			return c.apiErr(envelope.Error, resource, id)
		}
		return nil
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return catalog.NewUnavailableError(catalogName, resource, err)
	}
	return err
}

func statusError(code int, resource, id string) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return catalog.NewNotFoundError(catalogName, resource, id)
	case code == http.StatusTooManyRequests:
		return catalog.NewRateLimitedError(catalogName, resource)
	case code >= 500:
		return catalog.NewUnavailableError(catalogName, resource, fmt.Errorf("unexpected status code %d", code))
	default:
		return catalog.NewBadResponseError(catalogName, resource, id, fmt.Sprintf("unexpected status code %d", code))
	}
}

func (c *Client) apiErr(apiErr *apiError, resource, id string) error {
	switch apiErr.Code {
	case errCodeQuota:
		return &ratelimit.RetryAfterError{
			Err:   catalog.NewRateLimitedError(catalogName, resource),
			After: c.quotaBackoff,
		}
	case errCodeDataMissing:
		return catalog.NewNotFoundError(catalogName, resource, id)
	case errCodeServiceBusy:
		return catalog.NewUnavailableError(catalogName, resource, fmt.Errorf("%s: %s", apiErr.Type, apiErr.Message))
	default:
		return catalog.NewBadResponseError(catalogName, resource, id,
			fmt.Sprintf("API error code %d (%s): %s", apiErr.Code, apiErr.Type, apiErr.Message))
	}
}

// execute runs fn behind the circuit breaker; quota errors are retried after a pause.
func (c *Client) execute(ctx context.Context, fn func() error) error {
	if fn == nil {
		return nil
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, ratelimit.WithRetry(ctx, c.limiter, catalogName, c.maxRetries+1, fn)
	})
	return err
}
