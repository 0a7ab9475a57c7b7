package catalog

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/time/rate"

	"github.com/pricelens/backend/internal/domain"
)

const (
	defaultUserAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"
	defaultMaxAttempts = 3
)

// ClientOptions configures the vendor page client
type ClientOptions struct {
	Timeout time.Duration
	// RequestsPerSecond bounds outgoing requests across every source sharing the client
	RequestsPerSecond float64
	Burst             int
	UserAgent         string
}

// Client fetches vendor pages with rate limiting and retries
type Client struct {
	http        *resty.Client
	rateLimiter *rate.Limiter
	maxAttempts int
	backoff     func(attempt int) time.Duration
}

// NewClient creates a new vendor page client
func NewClient(opts ClientOptions) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 1
	}
	if opts.Burst <= 0 {
		opts.Burst = 3
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	client := resty.New()
	client.SetTimeout(opts.Timeout)
	client.SetHeader("User-Agent", opts.UserAgent)
	client.SetHeader("Accept-Language", "zh-TW,zh;q=0.9,en;q=0.8")

	return &Client{
		http:        client,
		rateLimiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), opts.Burst),
		maxAttempts: defaultMaxAttempts,
		backoff:     exponentialBackoff,
	}
}

// exponentialBackoff returns the wait before retrying after the given attempt
func exponentialBackoff(attempt int) time.Duration {
	return time.Duration(500<<(attempt-1)) * time.Millisecond
}

// Get fetches a page body, decoded to UTF-8 from charset. Transport errors, 429 and 5xx
// responses are retried; other non-200 statuses fail immediately.
func (c *Client) Get(ctx context.Context, url string, query map[string]string, charset string) ([]byte, error) {
	log := zap.L().With(zap.String("url", url))

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err := c.rateLimiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "catalog: rate limiter")
		}

		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParams(query).
			Get(url)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("catalog: request error", zap.Int("attempt", attempt), zap.Error(err))
			lastErr = eris.Wrapf(domain.ErrCatalogFetch, "get %s: %v", url, err)
			if err := c.sleep(ctx, attempt); err != nil {
				return nil, err
			}
			continue
		}

		status := resp.StatusCode()
		if status == http.StatusOK {
			body, err := decodeBody(resp.Body(), charset)
			if err != nil {
				return nil, err
			}
			log.Debug("catalog: fetched page", zap.Int("attempt", attempt), zap.Int("bytes", len(body)))
			return body, nil
		}

		lastErr = eris.Wrapf(domain.ErrCatalogFetch, "get %s: status %d", url, status)
		if status != http.StatusTooManyRequests && status < http.StatusInternalServerError {
			return nil, lastErr
		}
		log.Warn("catalog: retryable status", zap.Int("attempt", attempt), zap.Int("status", status))
		if err := c.sleep(ctx, attempt); err != nil {
			return nil, err
		}
	}

	log.Error("catalog: all retries failed", zap.Error(lastErr))
	return nil, lastErr
}

func (c *Client) sleep(ctx context.Context, attempt int) error {
	if attempt >= c.maxAttempts {
		return nil
	}
	timer := time.NewTimer(c.backoff(attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// decodeBody converts a page body to UTF-8. Only Big5 and UTF-8 pages are expected.
func decodeBody(body []byte, charset string) ([]byte, error) {
	switch strings.ToLower(strings.TrimSpace(charset)) {
	case "", "utf-8", "utf8":
		return body, nil
	case "big5", "big-5":
		decoded, err := traditionalchinese.Big5.NewDecoder().Bytes(body)
		if err != nil {
			return nil, eris.Wrap(err, "catalog: decode big5")
		}
		return decoded, nil
	default:
		return nil, eris.Errorf("catalog: unsupported charset %q", charset)
	}
}
