package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/kinscan/internal/cache"
	"github.com/ppiankov/kinscan/internal/util"
)

func TestFetchWithRetry_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, "<html><body>OK</body></html>")
	}))
	defer server.Close()

	fetcher := NewFetcher(5*time.Second, "test-agent", 1<<20, false, "", "", "")
	result, err := fetcher.FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result.HTML != "<html><body>OK</body></html>" {
		t.Errorf("Unexpected HTML: %s", result.HTML)
	}
}

func TestFetchWithRetry_TransientThenSuccess(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		if n <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, "<html>OK</html>")
	}))
	defer server.Close()

	// Override sleep for fast tests
	origSleep := fetchSleepFunc
	fetchSleepFunc = func(d time.Duration) {}
	defer func() { fetchSleepFunc = origSleep }()

	fetcher := NewFetcher(5*time.Second, "test-agent", 1<<20, false, "", "", "")
	result, err := fetcher.FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected success after retries, got %v", err)
	}
	if result.HTML != "<html>OK</html>" {
		t.Errorf("Unexpected HTML: %s", result.HTML)
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_PermanentFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	origSleep := fetchSleepFunc
	fetchSleepFunc = func(d time.Duration) {}
	defer func() { fetchSleepFunc = origSleep }()

	fetcher := NewFetcher(5*time.Second, "test-agent", 1<<20, false, "", "", "")
	_, err := fetcher.FetchWithRetry(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error for 404, got nil")
	}
	// 404 is not retryable, so should fail immediately
	if got := err.Error(); got != "unexpected status: 404 404 Not Found" {
		t.Errorf("Unexpected error: %s", got)
	}
}

func TestFetchWithRetry_AllRetriesExhausted(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	origSleep := fetchSleepFunc
	fetchSleepFunc = func(d time.Duration) {}
	defer func() { fetchSleepFunc = origSleep }()

	fetcher := NewFetcher(5*time.Second, "test-agent", 1<<20, false, "", "", "")
	_, err := fetcher.FetchWithRetry(context.Background(), server.URL)
	if err == nil {
		t.Fatal("Expected error after all retries exhausted")
	}
	if attempts.Load() != 3 {
		t.Errorf("Expected 3 attempts, got %d", attempts.Load())
	}
}

func TestFetchWithRetry_429Retried(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := attempts.Add(1)
		if n == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, "<html>OK</html>")
	}))
	defer server.Close()

	origSleep := fetchSleepFunc
	fetchSleepFunc = func(d time.Duration) {}
	defer func() { fetchSleepFunc = origSleep }()

	fetcher := NewFetcher(5*time.Second, "test-agent", 1<<20, false, "", "", "")
	result, err := fetcher.FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected success after 429 retry, got %v", err)
	}
	if result.HTML != "<html>OK</html>" {
		t.Errorf("Unexpected HTML: %s", result.HTML)
	}
	if attempts.Load() != 2 {
		t.Errorf("Expected 2 attempts, got %d", attempts.Load())
	}
}

func TestIsRetryableFetchError(t *testing.T) {
	tests := []struct {
		err       string
		retryable bool
	}{
		{"unexpected status: 503 Service Unavailable", true},
		{"unexpected status: 500 Internal Server Error", true},
		{"unexpected status: 502 Bad Gateway", true},
		{"unexpected status: 429 Too Many Requests", true},
		{"unexpected status: 404 Not Found", false},
		{"unexpected status: 403 Forbidden", false},
		{"unexpected status: 401 Unauthorized", false},
		{"fetch: connection refused", true},
		{"fetch: connection reset by peer", true},
		{"create request: invalid URL", false},
		{"read body: unexpected EOF", false},
	}

	for _, tt := range tests {
		t.Run(tt.err, func(t *testing.T) {
			err := fmt.Errorf("%s", tt.err)
			got := isRetryableFetchError(err)
			if got != tt.retryable {
				t.Errorf("isRetryableFetchError(%q) = %v, want %v", tt.err, got, tt.retryable)
			}
		})
	}
}

func TestIsRetryableFetchError_Nil(t *testing.T) {
	if isRetryableFetchError(nil) {
		t.Error("Expected nil error to not be retryable")
	}
}

func TestFetch_UsesCache(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, "<html>cached</html>")
	}))
	defer server.Close()

	fetcher := NewFetcher(5*time.Second, "test-agent", 1<<20, false, "", "", "").
		WithCache(cache.NewLayeredCache(time.Minute, t.TempDir(), time.Hour), time.Hour)

	first, err := fetcher.FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if first.Meta.FromCache {
		t.Error("First fetch should not come from cache")
	}

	second, err := fetcher.FetchWithRetry(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !second.Meta.FromCache {
		t.Error("Second fetch should come from cache")
	}
	if second.HTML != "<html>cached</html>" {
		t.Errorf("Unexpected HTML: %s", second.HTML)
	}
	if attempts.Load() != 1 {
		t.Errorf("Expected 1 request, got %d", attempts.Load())
	}
}

func TestFetch_RobotsDisallowed(t *testing.T) {
	var pageHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /private/\n")
			return
		}
		pageHits.Add(1)
		_, _ = fmt.Fprint(w, "<html>OK</html>")
	}))
	defer server.Close()

	fetcher := NewFetcher(5*time.Second, "test-agent", 1<<20, false, "", "", "")
	fetcher.WithRobots(util.NewRobotsCheckerWithClient("test-agent", fetcher.Client()))

	_, err := fetcher.Fetch(context.Background(), server.URL+"/private/tree.html")
	if !errors.Is(err, ErrDisallowed) {
		t.Fatalf("Expected ErrDisallowed, got %v", err)
	}
	if pageHits.Load() != 0 {
		t.Errorf("Disallowed page should not be requested, got %d hits", pageHits.Load())
	}

	if _, err := fetcher.Fetch(context.Background(), server.URL+"/public.html"); err != nil {
		t.Fatalf("Expected allowed page to fetch, got %v", err)
	}
}

// recordingPacer records what the fetcher asks of its pacer.
type recordingPacer struct {
	mu     sync.Mutex
	waits  []string
	delays map[string]time.Duration
}

func (p *recordingPacer) Wait(ctx context.Context, rawURL string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.waits = append(p.waits, rawURL)
	return nil
}

func (p *recordingPacer) SetDelay(host string, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.delays == nil {
		p.delays = make(map[string]time.Duration)
	}
	p.delays[host] = d
}

func TestFetch_PassesCrawlDelayToPacer(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = fmt.Fprint(w, "User-agent: *\nCrawl-delay: 2\nDisallow: /private/\n")
			return
		}
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprint(w, "<html>OK</html>")
	}))
	defer server.Close()

	origSleep := fetchSleepFunc
	fetchSleepFunc = func(d time.Duration) {}
	defer func() { fetchSleepFunc = origSleep }()

	pacer := &recordingPacer{}
	fetcher := NewFetcher(5*time.Second, "test-agent", 1<<20, false, "", "", "")
	fetcher.WithRobots(util.NewRobotsCheckerWithClient("test-agent", fetcher.Client())).WithPacer(pacer)

	page := server.URL + "/wiki/Person:John_Smith"
	if _, err := fetcher.FetchWithRetry(context.Background(), page); err != nil {
		t.Fatalf("Expected success after retry, got %v", err)
	}

	host := strings.TrimPrefix(server.URL, "http://")
	if got := pacer.delays[host]; got != 2*time.Second {
		t.Errorf("Expected crawl delay 2s for %s, got %v (%v)", host, got, pacer.delays)
	}
	if len(pacer.waits) != 2 {
		t.Errorf("Expected one pacer wait per attempt, got %v", pacer.waits)
	}
	for _, w := range pacer.waits {
		if w != page {
			t.Errorf("Pacer waited for %s, want %s", w, page)
		}
	}
}

func TestFetch_PacerSkippedForLocalAndCached(t *testing.T) {
	path := filepath.Join(t.TempDir(), "smith.html")
	if err := os.WriteFile(path, []byte("<html>Smith</html>"), 0o644); err != nil {
		t.Fatal(err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "<html>OK</html>")
	}))
	defer server.Close()

	pacer := &recordingPacer{}
	fetcher := NewFetcher(5*time.Second, "test-agent", 1<<20, false, "", "", "").
		WithCache(cache.NewMemoryCache(time.Minute, time.Minute), time.Minute).
		WithPacer(pacer)

	if _, err := fetcher.Load(path); err != nil {
		t.Fatalf("Load local file: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := fetcher.Fetch(context.Background(), server.URL+"/tree"); err != nil {
			t.Fatalf("Fetch #%d: %v", i, err)
		}
	}

	if len(pacer.waits) != 1 {
		t.Errorf("Expected only the first network fetch to be paced, got %v", pacer.waits)
	}
}

func TestFetch_TruncatesLargeBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, strings.Repeat("x", 100))
	}))
	defer server.Close()

	fetcher := NewFetcher(5*time.Second, "test-agent", 10, false, "", "", "")
	result, err := fetcher.Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(result.HTML) != 10 {
		t.Errorf("Expected 10 bytes, got %d", len(result.HTML))
	}
}

func TestFetcher_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Some_Person-1914.html")
	if err := os.WriteFile(path, []byte("<html>local</html>"), 0o644); err != nil {
		t.Fatal(err)
	}

	fetcher := NewFetcher(5*time.Second, "test-agent", 1<<20, false, "", "", "")
	for _, target := range []string{path, "file://" + filepath.ToSlash(path)} {
		result, err := fetcher.Load(target)
		if err != nil {
			t.Fatalf("Load(%q): %v", target, err)
		}
		if result.HTML != "<html>local</html>" {
			t.Errorf("Unexpected HTML: %s", result.HTML)
		}
		if result.Subject != "Some Person 1914" {
			t.Errorf("Unexpected subject: %s", result.Subject)
		}
		if !strings.HasPrefix(result.FinalURL, "file://") {
			t.Errorf("Expected file URL, got %s", result.FinalURL)
		}
	}

	if _, err := fetcher.Load(filepath.Join(t.TempDir(), "missing.html")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestExtractSubject(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://example.com/", "example.com"},
		{"https://example.com/people/John_Smith", "John Smith"},
		{"https://example.com/tree/mary-jones-1850.html", "mary jones 1850"},
		{"https://example.com/wiki/Jos%C3%A9_Garc%C3%ADa", "José García"},
	}
	for _, tt := range tests {
		if got := extractSubject(tt.url); got != tt.want {
			t.Errorf("extractSubject(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}
