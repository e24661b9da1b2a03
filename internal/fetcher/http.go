package fetcher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/pn-weights/internal/resilience"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	Retry      *resilience.Policy
	// RateLimiters paces hosts at a fixed rate. Nil means DefaultRateLimiters.
	RateLimiters map[string]*rate.Limiter
}

// hostLimiter paces requests to one host and may react to its responses.
type hostLimiter interface {
	Wait(ctx context.Context) error
	observe(status int)
}

type fixedLimiter struct{ *rate.Limiter }

func (fixedLimiter) observe(int) {}

// AdaptiveLimiter paces the Census Data API, which answers bursts with 429.
// Each 429 halves the rate down to a quarter of the starting rate; each
// success raises it by a fifth up to twice the starting rate.
type AdaptiveLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	floor   rate.Limit
	ceiling rate.Limit
	current rate.Limit
}

// NewAdaptiveLimiter starts at r requests per second.
func NewAdaptiveLimiter(r rate.Limit, burst int) *AdaptiveLimiter {
	return &AdaptiveLimiter{
		limiter: rate.NewLimiter(r, burst),
		floor:   r / 4,
		ceiling: r * 2,
		current: r,
	}
}

// Wait blocks until the next request may go out.
func (a *AdaptiveLimiter) Wait(ctx context.Context) error {
	return a.limiter.Wait(ctx)
}

// OnSuccess speeds up after an accepted request.
func (a *AdaptiveLimiter) OnSuccess() { a.set(min(a.Limit()*1.2, a.ceiling)) }

// OnRateLimit slows down after a 429.
func (a *AdaptiveLimiter) OnRateLimit() {
	a.set(max(a.Limit()*0.5, a.floor))
	zap.L().Warn("fetcher: throttled, slowing down", zap.Float64("rate", float64(a.Limit())))
}

// Limit returns the current rate.
func (a *AdaptiveLimiter) Limit() rate.Limit {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

func (a *AdaptiveLimiter) set(r rate.Limit) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.current = r
	a.limiter.SetLimit(r)
}

func (a *AdaptiveLimiter) observe(status int) {
	switch {
	case status == http.StatusTooManyRequests:
		a.OnRateLimit()
	case status < 300:
		a.OnSuccess()
	}
}

// DefaultRateLimiters returns the fixed limiter for the TIGER/Line file
// server. Shapefile archives are large; two requests per second is plenty.
func DefaultRateLimiters() map[string]*rate.Limiter {
	return map[string]*rate.Limiter{
		"www2.census.gov": rate.NewLimiter(2, 2),
	}
}

// DefaultAdaptiveLimiters returns the adaptive limiter for the Census Data API.
func DefaultAdaptiveLimiters() map[string]*AdaptiveLimiter {
	return map[string]*AdaptiveLimiter{
		"api.census.gov": NewAdaptiveLimiter(5, 5),
	}
}

// HTTPFetcher implements Fetcher over net/http with per-host pacing and
// retries of transient failures.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	retry     resilience.Policy
	limiters  map[string]hostLimiter
}

// NewHTTPFetcher creates an HTTPFetcher, filling unset options with defaults.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "pn-weights/1.0"
	}
	if opts.RateLimiters == nil {
		opts.RateLimiters = DefaultRateLimiters()
	}
	policy := resilience.DefaultPolicy()
	if opts.Retry != nil {
		policy = *opts.Retry
	}

	limiters := make(map[string]hostLimiter)
	for host, l := range opts.RateLimiters {
		limiters[host] = fixedLimiter{l}
	}
	for host, a := range DefaultAdaptiveLimiters() {
		if _, ok := limiters[host]; !ok {
			limiters[host] = a
		}
	}

	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent: opts.UserAgent,
		retry:     policy.WithAttempts(opts.MaxRetries),
		limiters:  limiters,
	}
}

// maxErrorBody bounds how much of an error response is quoted. The Census
// API explains rejected queries in a short plain-text body.
const maxErrorBody = 512

// get performs one GET attempt. Throttling, 5xx and network faults come
// back as resilience.TransientError so the retry policy repeats them.
func (f *HTTPFetcher) get(ctx context.Context, rawURL string) (*http.Response, error) {
	var lim hostLimiter
	if u, err := url.Parse(rawURL); err == nil {
		lim = f.limiters[u.Host]
	}
	if lim != nil {
		if err := lim.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "rate limiter wait")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "request cancelled")
		}
		// url.Error repeats the URL, API key included.
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return nil, resilience.Transient(eris.Wrap(err, "request"), 0)
	}
	if lim != nil {
		lim.observe(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return resp, nil
	case http.StatusNoContent:
		// The Census API answers a query with no matching rows this way.
		_ = resp.Body.Close()
		return nil, eris.Errorf("http 204 from %s: no content", Redact(rawURL))
	}

	detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
	return nil, resilience.StatusError(resp.StatusCode, Redact(rawURL), strings.TrimSpace(string(detail)))
}

// Download fetches the URL and returns the response body.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	shown := Redact(rawURL)
	policy := f.retry
	policy.OnRetry = resilience.LogRetries(shown)

	resp, err := resilience.RetryValue(ctx, policy, func(ctx context.Context) (*http.Response, error) {
		return f.get(ctx, rawURL)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "download %s", shown)
	}
	return resp.Body, nil
}

// DownloadToFile fetches the URL and writes it to the given path.
func (f *HTTPFetcher) DownloadToFile(ctx context.Context, rawURL string, path string) (int64, error) {
	body, err := f.Download(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer body.Close() //nolint:errcheck

	n, err := saveFile(body, path)
	if err != nil {
		return n, err
	}
	zap.L().Debug("fetcher: saved", zap.String("url", Redact(rawURL)), zap.String("path", path), zap.Int64("bytes", n))
	return n, nil
}

// Redact replaces the value of a key query parameter so URLs carrying a
// Census API key can be logged. The rest of the URL is kept byte for byte.
func Redact(rawURL string) string {
	q := strings.IndexByte(rawURL, '?')
	if q < 0 {
		return rawURL
	}
	params := strings.Split(rawURL[q+1:], "&")
	for i, p := range params {
		if strings.HasPrefix(p, "key=") {
			params[i] = "key=REDACTED"
		}
	}
	return rawURL[:q+1] + strings.Join(params, "&")
}
