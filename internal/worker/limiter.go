package worker

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"

	"github.com/ppiankov/kinscan/internal/logging"
	"github.com/ppiankov/kinscan/internal/pipeline"
)

// Limiter paces requests per host. Each host gets a token bucket from the
// configured rate, and a host that asks for a robots.txt Crawl-delay also
// gets at least that gap between consecutive requests.
//
// Limiter satisfies pipeline.Pacer.
type Limiter struct {
	mu           sync.Mutex
	hosts        map[string]*hostPacer
	defaultRate  rate.Limit
	defaultBurst int
	now          func() time.Time
}

var _ pipeline.Pacer = (*Limiter)(nil)

type hostPacer struct {
	bucket *rate.Limiter
	delay  time.Duration
	next   time.Time // earliest start allowed by delay
}

// NewLimiter creates a Limiter. A requestsPerSecond of zero or less leaves
// the token bucket unlimited, so only crawl delays apply.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}

	return &Limiter{
		hosts:        make(map[string]*hostPacer),
		defaultRate:  limit,
		defaultBurst: burst,
		now:          time.Now,
	}
}

// Wait blocks until a request to rawURL may start. Local files and other
// non-HTTP targets never wait.
func (l *Limiter) Wait(ctx context.Context, rawURL string) error {
	if !isRemote(rawURL) {
		return nil
	}
	host, err := extractHost(rawURL)
	if err != nil {
		return err
	}

	pacer := l.pacer(host)
	l.mu.Lock()
	bucket := pacer.bucket
	l.mu.Unlock()
	if err := bucket.Wait(ctx); err != nil {
		return errors.Wrapf(err, "wait for %s", host)
	}

	l.mu.Lock()
	start := l.now()
	if pacer.next.After(start) {
		start = pacer.next
	}
	if pacer.delay > 0 {
		pacer.next = start.Add(pacer.delay)
	}
	l.mu.Unlock()

	wait := start.Sub(l.now())
	if wait <= 0 {
		return nil
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return errors.Wrapf(ctx.Err(), "crawl delay for %s", host)
	case <-timer.C:
		return nil
	}
}

// Allow reports whether a request to rawURL may start now, consuming a
// token when it may.
func (l *Limiter) Allow(rawURL string) bool {
	if !isRemote(rawURL) {
		return true
	}
	host, err := extractHost(rawURL)
	if err != nil {
		return false
	}

	pacer := l.pacer(host)
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if pacer.next.After(now) || !pacer.bucket.AllowN(now, 1) {
		return false
	}
	if pacer.delay > 0 {
		pacer.next = now.Add(pacer.delay)
	}
	return true
}

// SetDelay records the crawl delay a host's robots.txt asks for. Only the
// largest delay seen for a host is kept.
func (l *Limiter) SetDelay(host string, d time.Duration) {
	if d <= 0 {
		return
	}
	pacer := l.pacer(strings.ToLower(host))

	l.mu.Lock()
	defer l.mu.Unlock()
	if d > pacer.delay {
		logging.L().Debugw("crawl delay", "host", host, "delay", d)
		pacer.delay = d
	}
}

// Delay returns the crawl delay recorded for host.
func (l *Limiter) Delay(host string) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	if pacer, ok := l.hosts[strings.ToLower(host)]; ok {
		return pacer.delay
	}
	return 0
}

// SetHostRate overrides the token bucket for one host.
func (l *Limiter) SetHostRate(host string, requestsPerSecond float64, burst int) {
	if burst <= 0 {
		burst = l.defaultBurst
	}
	pacer := l.pacer(strings.ToLower(host))

	l.mu.Lock()
	defer l.mu.Unlock()
	pacer.bucket = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}

func (l *Limiter) pacer(host string) *hostPacer {
	l.mu.Lock()
	defer l.mu.Unlock()
	pacer, ok := l.hosts[host]
	if !ok {
		pacer = &hostPacer{bucket: rate.NewLimiter(l.defaultRate, l.defaultBurst)}
		l.hosts[host] = pacer
	}
	return pacer
}

// extractHost returns the lower-cased host of rawURL.
func extractHost(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", errors.Wrap(err, "parse URL")
	}
	return strings.ToLower(parsed.Host), nil
}

func isRemote(target string) bool {
	u, err := url.Parse(target)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
