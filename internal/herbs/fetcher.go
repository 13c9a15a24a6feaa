package herbs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/osanyin/herbal/pkg/logger"
	"github.com/osanyin/herbal/pkg/metrics"
)

const defaultUserAgent = "Osanyin-Herbal-Remedy/1.0"

// maxPayloadBytes bounds how much of a response body is read.
const maxPayloadBytes = 16 << 20 // 16 MiB

// Fetcher retrieves the raw dataset payload from an ordered list of
// candidate URLs. The fallback index is sticky across calls and only resets
// on an explicit ResetFallback (a full refresh).
type Fetcher struct {
	urls      []string
	client    *http.Client
	userAgent string
	log       *zap.Logger

	mu  sync.Mutex
	idx int
}

// FetcherOption customises the Fetcher.
type FetcherOption func(*Fetcher)

// WithHTTPClient injects a custom HTTP client, primarily for tests.
func WithHTTPClient(client *http.Client) FetcherOption {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithUserAgent overrides the identifying request header.
func WithUserAgent(ua string) FetcherOption {
	return func(f *Fetcher) {
		if strings.TrimSpace(ua) != "" {
			f.userAgent = ua
		}
	}
}

// WithRequestTimeout bounds each HTTP attempt. A timed-out attempt surfaces
// as a transport error.
func WithRequestTimeout(timeout time.Duration) FetcherOption {
	return func(f *Fetcher) {
		if timeout > 0 {
			f.client.Timeout = timeout
		}
	}
}

// NewFetcher constructs a fetcher over the supplied candidate URLs.
func NewFetcher(urls []string, opts ...FetcherOption) (*Fetcher, error) {
	cleaned := make([]string, 0, len(urls))
	for _, u := range urls {
		if trimmed := strings.TrimSpace(u); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) == 0 {
		return nil, errors.New("herbs: at least one source URL is required")
	}

	f := &Fetcher{
		urls:      cleaned,
		client:    &http.Client{Timeout: 15 * time.Second},
		userAgent: defaultUserAgent,
		log:       logger.WithModule("fetcher"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Fetch performs at most one fallback traversal and returns the accepted raw
// payload. Transport failures abort without advancing the fallback index;
// shape-rejected content advances to the next candidate until the ladder is
// exhausted.
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	attempts := 0
	for {
		url := f.urls[f.idx]
		attempts++

		body, err := f.get(ctx, url)
		if err != nil {
			metrics.FetchAttempts.WithLabelValues(url, "transport_error").Inc()
			f.log.Warn("transport failure", zap.String("url", url), zap.Error(err))
			return nil, &TransportError{URL: url, Err: err}
		}

		if !contentRejected(body) {
			metrics.FetchAttempts.WithLabelValues(url, "accepted").Inc()
			f.log.Debug("payload accepted", zap.String("url", url), zap.Int("bytes", len(body)))
			return body, nil
		}

		metrics.FetchAttempts.WithLabelValues(url, "content_rejected").Inc()
		f.log.Warn("content rejected, trying next candidate",
			zap.String("url", url),
			zap.Int("fallback_index", f.idx),
		)

		if f.idx+1 < len(f.urls) {
			f.idx++
			continue
		}
		return nil, &ContentRejectedError{Attempts: attempts}
	}
}

// ResetFallback rewinds the fallback ladder to the first candidate URL.
func (f *Fetcher) ResetFallback() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.idx = 0
}

// FallbackIndex returns the current position in the fallback ladder.
func (f *Fetcher) FallbackIndex() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.idx
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return io.ReadAll(io.LimitReader(resp.Body, maxPayloadBytes))
}

// contentRejected applies the shape heuristic: a body whose first
// non-whitespace byte is not the expected structural start and which carries
// error-page markers is failed content regardless of HTTP status.
func contentRejected(body []byte) bool {
	trimmed := bytes.TrimLeft(body, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return false
	}

	lower := strings.ToLower(string(body))
	for _, marker := range []string{"<!doctype", "<html", "</", "<", "404", "not found"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
