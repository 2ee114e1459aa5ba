package pipeline

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/ppiankov/kinscan/internal/cache"
	"github.com/ppiankov/kinscan/internal/logging"
	"github.com/ppiankov/kinscan/internal/model"
	"github.com/ppiankov/kinscan/internal/util"
)

// ErrDisallowed is returned when robots.txt forbids fetching a page.
var ErrDisallowed = errors.New("disallowed by robots.txt")

const defaultAttempts = 3

// fetchSleepFunc waits between retry attempts. Tests replace it.
var fetchSleepFunc = time.Sleep

// Pacer spaces out requests per host. SetDelay passes on the Crawl-delay a
// host's robots.txt asks for.
type Pacer interface {
	Wait(ctx context.Context, rawURL string) error
	SetDelay(host string, d time.Duration)
}

// Fetcher retrieves pages over HTTP or from local files.
type Fetcher struct {
	httpClient  *http.Client
	userAgent   string
	maxBytes    int64
	maxAttempts int
	cache       cache.Cache
	cacheTTL    time.Duration
	robots      *util.RobotsChecker
	pacer       Pacer
}

// NewFetcher creates a Fetcher. Empty proxy settings fall back to the
// HTTP_PROXY family of environment variables.
func NewFetcher(timeout time.Duration, userAgent string, maxBytes int64, insecureTLS bool, httpProxy, httpsProxy, noProxy string) *Fetcher {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = util.NewProxyFunc(httpProxy, httpsProxy, noProxy)
	if insecureTLS {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-in via http.insecure_tls
	}

	return &Fetcher{
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return errors.New("stopped after 3 redirects")
				}
				return nil
			},
		},
		userAgent:   userAgent,
		maxBytes:    maxBytes,
		maxAttempts: defaultAttempts,
	}
}

// WithCache stores successful fetches in c for ttl.
func (f *Fetcher) WithCache(c cache.Cache, ttl time.Duration) *Fetcher {
	f.cache = c
	f.cacheTTL = ttl
	return f
}

// WithRobots checks every URL against robots.txt before fetching it.
func (f *Fetcher) WithRobots(r *util.RobotsChecker) *Fetcher {
	f.robots = r
	return f
}

// WithPacer waits on p before every network request.
func (f *Fetcher) WithPacer(p Pacer) *Fetcher {
	f.pacer = p
	return f
}

// WithMaxAttempts sets how many times FetchWithRetry tries a URL.
func (f *Fetcher) WithMaxAttempts(n int) *Fetcher {
	if n <= 0 {
		n = defaultAttempts
	}
	f.maxAttempts = n
	return f
}

// Client returns the HTTP client, so helpers can share its transport.
func (f *Fetcher) Client() *http.Client {
	return f.httpClient
}

// FetchResult contains the fetched HTML and metadata
type FetchResult struct {
	HTML     string          `json:"html"`
	Meta     model.FetchMeta `json:"meta"`
	Subject  string          `json:"subject"`
	FinalURL string          `json:"final_url"`
}

// Fetch retrieves rawURL once.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	return f.fetch(ctx, rawURL, 1)
}

// FetchWithRetry retrieves rawURL, retrying server errors, rate limiting
// and connection failures with a linear backoff.
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	return f.fetch(ctx, rawURL, f.maxAttempts)
}

func (f *Fetcher) fetch(ctx context.Context, rawURL string, attempts int) (*FetchResult, error) {
	if cached, ok := f.fromCache(rawURL); ok {
		return cached, nil
	}

	if f.robots != nil {
		allowed, delay, err := f.robots.CanFetch(ctx, rawURL)
		if err != nil {
			return nil, errors.Wrap(err, "robots")
		}
		if !allowed {
			return nil, errors.WithHint(
				errors.Wrapf(ErrDisallowed, "fetch %s", rawURL),
				"pass --ignore-robots or set robots.respect: false to scan it anyway")
		}
		if delay > 0 && f.pacer != nil {
			if u, err := url.Parse(rawURL); err == nil {
				f.pacer.SetDelay(u.Host, delay)
			}
		}
	}

	var (
		result *FetchResult
		err    error
	)
	for attempt := 1; attempt <= attempts; attempt++ {
		if f.pacer != nil {
			if err := f.pacer.Wait(ctx, rawURL); err != nil {
				return nil, errors.Wrap(err, "pace")
			}
		}
		result, err = f.fetchOnce(ctx, rawURL)
		if err == nil {
			break
		}
		if attempt == attempts || !isRetryableFetchError(err) || ctx.Err() != nil {
			return nil, err
		}
		logging.L().Debugw("retrying fetch", "url", rawURL, "attempt", attempt, "error", err)
		fetchSleepFunc(time.Duration(attempt) * time.Second)
	}

	f.toCache(rawURL, result)
	return result, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string) (*FetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	meta := model.FetchMeta{
		StatusCode:   resp.StatusCode,
		ContentType:  resp.Header.Get("Content-Type"),
		LastModified: resp.Header.Get("Last-Modified"),
		ETag:         resp.Header.Get("ETag"),
		Headers:      make(map[string]string),
	}
	for _, key := range []string{"Content-Length", "Server", "Cache-Control"} {
		if val := resp.Header.Get(key); val != "" {
			meta.Headers[key] = val
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.Newf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := f.readLimited(resp.Body, rawURL)
	if err != nil {
		return nil, err
	}

	finalURL := resp.Request.URL.String()
	return &FetchResult{
		HTML:     string(body),
		Meta:     meta,
		Subject:  extractSubject(finalURL),
		FinalURL: finalURL,
	}, nil
}

// Load reads a local HTML file. path may be a plain path or a file:// URL.
func (f *Fetcher) Load(path string) (*FetchResult, error) {
	if u, err := url.Parse(path); err == nil && u.Scheme == "file" {
		path = u.Path
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(err, "resolve path")
	}

	file, err := os.Open(abs)
	if err != nil {
		return nil, errors.Wrap(err, "open file")
	}
	defer func() { _ = file.Close() }()

	body, err := f.readLimited(file, abs)
	if err != nil {
		return nil, err
	}

	fileURL := (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
	return &FetchResult{
		HTML:     string(body),
		Subject:  extractSubject(fileURL),
		FinalURL: fileURL,
	}, nil
}

// readLimited reads at most maxBytes. Larger bodies are truncated.
func (f *Fetcher) readLimited(r io.Reader, source string) ([]byte, error) {
	if f.maxBytes <= 0 {
		body, err := io.ReadAll(r)
		return body, errors.Wrap(err, "read body")
	}
	body, err := io.ReadAll(io.LimitReader(r, f.maxBytes+1))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	if int64(len(body)) > f.maxBytes {
		logging.L().Warnw("body truncated", "source", source, "max_bytes", f.maxBytes)
		body = body[:f.maxBytes]
	}
	return body, nil
}

func (f *Fetcher) fromCache(rawURL string) (*FetchResult, bool) {
	if f.cache == nil {
		return nil, false
	}
	raw, ok := f.cache.Get(cache.Key(rawURL))
	if !ok {
		return nil, false
	}
	var result FetchResult
	if err := json.Unmarshal(raw, &result); err != nil {
		logging.L().Debugw("discarding unreadable cache entry", "url", rawURL, "error", err)
		_ = f.cache.Delete(cache.Key(rawURL))
		return nil, false
	}
	result.Meta.FromCache = true
	logging.L().Debugw("cache hit", "url", rawURL)
	return &result, true
}

func (f *Fetcher) toCache(rawURL string, result *FetchResult) {
	if f.cache == nil || result == nil {
		return
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return
	}
	if err := f.cache.Set(cache.Key(rawURL), raw, f.cacheTTL); err != nil {
		logging.L().Warnw("cache write failed", "url", rawURL, "error", err)
	}
}

// isRetryableFetchError reports whether err is worth another attempt:
// 5xx and 429 responses and failed connections.
func isRetryableFetchError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	msg := err.Error()
	if rest, ok := strings.CutPrefix(msg, "unexpected status: "); ok {
		code, _ := strconv.Atoi(strings.SplitN(rest, " ", 2)[0])
		return code == http.StatusTooManyRequests || code >= 500
	}
	return strings.HasPrefix(msg, "fetch: ")
}

// extractSubject turns the last path segment of a URL into a readable
// subject, falling back to the host.
func extractSubject(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	path := strings.Trim(parsed.Path, "/")
	if path == "" {
		return parsed.Host
	}

	segments := strings.Split(path, "/")
	last := segments[len(segments)-1]
	if idx := strings.LastIndex(last, "."); idx > 0 {
		last = last[:idx]
	}
	last = strings.NewReplacer("_", " ", "-", " ").Replace(last)
	if unescaped, err := url.PathUnescape(last); err == nil {
		last = unescaped
	}
	return last
}
