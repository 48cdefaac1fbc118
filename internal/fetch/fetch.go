// Package fetch retrieves the raw bytes behind an institution's data source,
// serving from and refreshing the on-disk cache.
package fetch

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/rs/zerolog/log"

	"github.com/hyperifyio/transferindex/internal/cache"
)

var (
	// ErrCacheMiss is returned in cache-only mode when nothing is cached.
	ErrCacheMiss = errors.New("not in cache")
	// ErrContentType is returned when the response media type is not accepted.
	ErrContentType = errors.New("unsupported content type")
	// ErrDisallowed is returned when the host's robots.txt forbids the source.
	ErrDisallowed = errors.New("disallowed by robots.txt")
)

// Gate decides whether a URL may be requested and how long to wait first.
type Gate interface {
	Check(ctx context.Context, rawURL string) (allowed bool, delay time.Duration, err error)
}

// Source describes where an institution publishes its table.
type Source struct {
	URL string
	// Method defaults to POST when Form is set and GET otherwise.
	Method string
	Form   url.Values
	// Accept lists media-type prefixes the body may have. Empty accepts anything.
	Accept []string
}

func (s Source) method() string {
	if s.Method != "" {
		return strings.ToUpper(s.Method)
	}
	if s.Form != nil {
		return http.MethodPost
	}
	return http.MethodGet
}

// Fetcher returns the raw body for a source. key identifies the institution
// and is used as the cache key.
type Fetcher interface {
	Fetch(ctx context.Context, src Source, key string) ([]byte, error)
}

// StatusError reports a non-2xx response.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.URL, e.StatusCode, e.Body)
}

// Client wraps http.Client with timeouts, limited retry on transient errors
// and the institution cache.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// MaxAttempts includes the initial attempt. Minimum 1.
	MaxAttempts int
	// PerRequestTimeout bounds each request.
	PerRequestTimeout time.Duration
	// RetryBackoff is multiplied by the attempt number. Zero means 200ms.
	RetryBackoff time.Duration

	Cache *cache.Store
	// MaxAge serves a cached body without any request while it is younger
	// than this. Zero always revalidates.
	MaxAge time.Duration
	// CacheOnly never touches the network.
	CacheOnly bool
	// BypassCache fetches without conditional headers but still saves.
	BypassCache bool

	// RedirectMaxHops caps redirect following. Zero means 5.
	RedirectMaxHops int
	// MaxConcurrent limits in-flight requests. Zero means unlimited.
	MaxConcurrent int
	// Gate, when set, is consulted before any network request. A failing
	// check is logged and the request proceeds.
	Gate Gate

	limiter     chan struct{}
	limiterOnce sync.Once
}

type response struct {
	body         []byte
	contentType  string
	etag         string
	lastModified string
	status       int
}

func (c *Client) getHTTPClient() *http.Client {
	if c.HTTPClient != nil {
		base := *c.HTTPClient
		base.CheckRedirect = c.checkRedirectFunc()
		return &base
	}
	return &http.Client{Timeout: c.PerRequestTimeout, CheckRedirect: c.checkRedirectFunc()}
}

// Fetch implements Fetcher.
func (c *Client) Fetch(ctx context.Context, src Source, key string) ([]byte, error) {
	logger := log.With().Str("inst", key).Str("url", src.URL).Logger()
	if c.Cache != nil && c.CacheOnly {
		body, _, ok := c.Cache.Fresh(ctx, key, 0)
		if !ok {
			return nil, fmt.Errorf("%s: %w", key, ErrCacheMiss)
		}
		logger.Debug().Msg("served from cache (offline)")
		return body, nil
	}
	if c.CacheOnly {
		return nil, fmt.Errorf("%s: %w", key, ErrCacheMiss)
	}

	var etag, lastMod string
	if c.Cache != nil && !c.BypassCache {
		if c.MaxAge > 0 {
			if body, _, ok := c.Cache.Fresh(ctx, key, c.MaxAge); ok {
				logger.Debug().Msg("served from cache")
				return body, nil
			}
		}
		// conditional headers only make sense for idempotent reads
		if src.method() == http.MethodGet {
			if meta, err := c.Cache.LoadMeta(ctx, key); err == nil && meta.URL == src.URL {
				etag = meta.ETag
				lastMod = meta.LastModified
			}
		}
	}

	if err := c.admit(ctx, src); err != nil {
		return nil, err
	}

	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	backoff := c.RetryBackoff
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		resp, err := c.tryOnce(ctx, src, etag, lastMod)
		if err == nil {
			return c.finish(ctx, src, key, resp)
		}
		lastErr = err
		if !isTransient(err) || ctx.Err() != nil || i == attempts-1 {
			break
		}
		logger.Debug().Err(err).Int("attempt", i+1).Msg("retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(i+1) * backoff):
		}
	}
	return nil, lastErr
}

func (c *Client) admit(ctx context.Context, src Source) error {
	if c.Gate == nil {
		return nil
	}
	ok, delay, err := c.Gate.Check(ctx, src.URL)
	switch {
	case err != nil:
		log.Warn().Err(err).Str("url", src.URL).Msg("robots check failed; continuing")
		return nil
	case !ok:
		return fmt.Errorf("%s: %w", src.URL, ErrDisallowed)
	case delay > 0:
		log.Debug().Dur("delay", delay).Str("url", src.URL).Msg("crawl delay")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil
}

func (c *Client) finish(ctx context.Context, src Source, key string, resp response) ([]byte, error) {
	if resp.status == http.StatusNotModified {
		if c.Cache == nil {
			return nil, &StatusError{URL: src.URL, StatusCode: resp.status}
		}
		body, err := c.Cache.LoadBody(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("304 without cached body: %w", err)
		}
		if err := c.Cache.Touch(ctx, key); err != nil {
			log.Warn().Err(err).Str("inst", key).Msg("cache touch failed")
		}
		return body, nil
	}
	if c.Cache != nil {
		entry := cache.Entry{
			Key:          key,
			URL:          src.URL,
			ContentType:  resp.contentType,
			ETag:         resp.etag,
			LastModified: resp.lastModified,
		}
		if err := c.Cache.Save(ctx, entry, resp.body); err != nil {
			log.Warn().Err(err).Str("inst", key).Msg("cache save failed")
		}
	}
	return resp.body, nil
}

func (c *Client) tryOnce(ctx context.Context, src Source, etag string, lastMod string) (response, error) {
	c.acquire()
	defer c.release()

	if c.PerRequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.PerRequestTimeout)
		defer cancel()
	}
	var body io.Reader
	if src.Form != nil {
		body = strings.NewReader(src.Form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, src.method(), src.URL, body)
	if err != nil {
		return response{}, fmt.Errorf("new request: %w", err)
	}
	if !isHTTPScheme(req.URL) {
		return response{}, fmt.Errorf("unsupported URL scheme: %q", req.URL.String())
	}
	if src.Form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if len(src.Accept) > 0 {
		req.Header.Set("Accept", strings.Join(src.Accept, ", "))
	}
	// set explicitly so the transport leaves decoding to us
	req.Header.Set("Accept-Encoding", "br, gzip")
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastMod != "" {
		req.Header.Set("If-Modified-Since", lastMod)
	}

	resp, err := c.getHTTPClient().Do(req)
	if err != nil {
		return response{}, err
	}
	defer resp.Body.Close()

	out := response{
		contentType:  resp.Header.Get("Content-Type"),
		etag:         resp.Header.Get("ETag"),
		lastModified: resp.Header.Get("Last-Modified"),
		status:       resp.StatusCode,
	}
	if resp.StatusCode == http.StatusNotModified {
		return out, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return out, &StatusError{URL: src.URL, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}
	if !accepts(out.contentType, src.Accept) {
		return out, fmt.Errorf("%w: %s", ErrContentType, out.contentType)
	}
	r, err := decodeBody(resp.Header.Get("Content-Encoding"), resp.Body)
	if err != nil {
		return out, err
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return out, fmt.Errorf("read body: %w", err)
	}
	out.body = b
	return out, nil
}

func decodeBody(encoding string, r io.Reader) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return r, nil
	case "br":
		return brotli.NewReader(r), nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		return zr, nil
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", encoding)
	}
}

func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode >= 500
}

func (c *Client) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	max := c.RedirectMaxHops
	if max <= 0 {
		max = 5
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		if !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func accepts(ct string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	ct = strings.ToLower(strings.TrimSpace(ct))
	for _, a := range allowed {
		if strings.HasPrefix(ct, strings.ToLower(a)) {
			return true
		}
	}
	return false
}

func (c *Client) acquire() {
	if c.MaxConcurrent <= 0 {
		return
	}
	c.limiterOnce.Do(func() {
		c.limiter = make(chan struct{}, c.MaxConcurrent)
	})
	c.limiter <- struct{}{}
}

func (c *Client) release() {
	if c.MaxConcurrent <= 0 || c.limiter == nil {
		return
	}
	select {
	case <-c.limiter:
	default:
	}
}
