package extraction

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"dropwatch/internal/resilience"
)

const maxBodyBytes = 4 << 20

// FetchOptions parameterise outbound page fetches.
type FetchOptions struct {
	Timeout       time.Duration
	UserAgent     string
	RetryAttempts int
	RetryDelay    time.Duration
}

// PageFetcher retrieves raw HTML with a realistic browser request signature.
// Many retailers reject default Go user agents outright.
type PageFetcher struct {
	opts   FetchOptions
	client *http.Client
	logger zerolog.Logger
}

// NewPageFetcher constructs a fetcher.
func NewPageFetcher(opts FetchOptions, logger zerolog.Logger) *PageFetcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &PageFetcher{
		opts:   opts,
		client: &http.Client{Timeout: timeout},
		logger: logger.With().Str("component", "page_fetcher").Logger(),
	}
}

// Fetch GETs the URL and returns the body and status code. A non-2xx status is
// an ordinary outcome, not an error; only transport failures error, and those
// are retried a bounded number of times.
func (f *PageFetcher) Fetch(ctx context.Context, url string) (string, int, error) {
	var body string
	var status int

	retryOpts := resilience.RetryOptions{
		Attempts:     f.opts.RetryAttempts,
		InitialDelay: f.opts.RetryDelay,
	}

	err := resilience.Retry(ctx, "page fetch", retryOpts, func(ctx context.Context) error {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if reqErr != nil {
			return reqErr
		}
		f.setHeaders(req)

		resp, doErr := f.client.Do(req)
		if doErr != nil {
			return doErr
		}
		defer resp.Body.Close()

		payload, readErr := readBody(resp)
		if readErr != nil {
			return readErr
		}

		body = string(payload)
		status = resp.StatusCode
		return nil
	})
	if err != nil {
		return "", 0, err
	}

	f.logger.Debug().Str("url", url).Int("status", status).Int("bytes", len(body)).Msg("page fetched")
	return body, status, nil
}

func readBody(resp *http.Response) ([]byte, error) {
	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return payload, nil
}

func (f *PageFetcher) setHeaders(req *http.Request) {
	ua := f.opts.UserAgent
	if ua == "" {
		ua = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"
	}
	req.Header.Set("User-Agent", ua)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")
}
