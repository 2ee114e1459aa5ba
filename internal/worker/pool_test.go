package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type pageResult struct {
	page string
	err  error
}

func (r *pageResult) GetError() error { return r.err }

// pageJob stands in for one page scan. Hooks run around a simulated fetch
// that stops early when ctx is cancelled.
type pageJob struct {
	page    string
	fetch   time.Duration
	fail    bool
	started func()
	done    func()
}

func (j *pageJob) Execute(ctx context.Context) Result {
	if j.started != nil {
		j.started()
	}
	if j.done != nil {
		defer j.done()
	}
	if j.fetch > 0 {
		select {
		case <-time.After(j.fetch):
		case <-ctx.Done():
			return &pageResult{page: j.page, err: ctx.Err()}
		}
	}
	if j.fail {
		return &pageResult{page: j.page, err: errors.New("no historical microdata")}
	}
	return &pageResult{page: j.page}
}

func runPool(t *testing.T, workers int, jobs []Job) []Result {
	t.Helper()
	pool := NewPool(workers)
	pool.Start()
	for _, job := range jobs {
		pool.Submit(job)
	}
	return pool.Wait()
}

func TestNewPool_Workers(t *testing.T) {
	tests := []struct {
		requested int
		want      int
	}{
		{8, 8},
		{1, 1},
		{0, 1},
		{-3, 1},
	}
	for _, tt := range tests {
		if got := NewPool(tt.requested).workers; got != tt.want {
			t.Errorf("NewPool(%d).workers = %d, want %d", tt.requested, got, tt.want)
		}
	}
}

func TestPool_RunsEveryPage(t *testing.T) {
	for _, n := range []int{1, 10, 500} {
		var ran int32
		jobs := make([]Job, n)
		for i := range jobs {
			jobs[i] = &pageJob{started: func() { atomic.AddInt32(&ran, 1) }}
		}

		// More jobs than the queue holds must not deadlock Submit.
		results := runPool(t, 2, jobs)
		if len(results) != n {
			t.Errorf("%d pages: got %d results", n, len(results))
		}
		if got := atomic.LoadInt32(&ran); got != int32(n) {
			t.Errorf("%d pages: %d executed", n, got)
		}
	}
}

func TestPool_KeepsFailedPages(t *testing.T) {
	jobs := []Job{
		&pageJob{page: "Person:John_Smith"},
		&pageJob{page: "Talk:John_Smith", fail: true},
		&pageJob{page: "Person:Mary_Jones"},
	}

	failed := map[string]bool{}
	for _, res := range runPool(t, 2, jobs) {
		r := res.(*pageResult)
		if r.GetError() != nil {
			failed[r.page] = true
		}
	}
	if len(failed) != 1 || !failed["Talk:John_Smith"] {
		t.Errorf("expected only Talk:John_Smith to fail, got %v", failed)
	}
}

func TestPool_BoundsConcurrency(t *testing.T) {
	const workers = 4
	var running, peak int32
	jobs := make([]Job, 40)
	for i := range jobs {
		jobs[i] = &pageJob{
			fetch: 5 * time.Millisecond,
			started: func() {
				n := atomic.AddInt32(&running, 1)
				for {
					old := atomic.LoadInt32(&peak)
					if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
						break
					}
				}
			},
			done: func() { atomic.AddInt32(&running, -1) },
		}
	}

	runPool(t, workers, jobs)
	if p := atomic.LoadInt32(&peak); p > workers {
		t.Errorf("%d pages fetched at once with %d workers", p, workers)
	}
}

func TestResultCollector_ReturnsCopy(t *testing.T) {
	c := NewResultCollector()
	c.Add(&pageResult{page: "Person:John_Smith"})
	c.Add(&pageResult{page: "Person:Mary_Jones", err: errors.New("timeout")})

	first := c.Results()
	first[0] = nil
	second := c.Results()
	if len(second) != 2 || second[0] == nil {
		t.Errorf("collector state changed through a returned slice: %v", second)
	}
}

func TestPool_Shutdown(t *testing.T) {
	pool := NewPool(2)
	pool.Start()

	started := make(chan struct{})
	pool.Submit(&pageJob{page: "Person:John_Smith", fetch: time.Hour, started: func() { close(started) }})
	<-started

	finished := make(chan struct{})
	go func() {
		pool.Shutdown()
		// Submitting to a stopped pool returns without blocking.
		pool.Submit(&pageJob{page: "Person:Mary_Jones"})
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("Shutdown left a running fetch behind")
	}
}

func TestNewPoolContext_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pool := NewPoolContext(ctx, 1)
	pool.Start()

	started := make(chan struct{})
	pool.Submit(&pageJob{page: "Person:John_Smith", fetch: time.Hour, started: func() { close(started) }})
	<-started
	cancel()

	done := make(chan []Result)
	go func() {
		pool.Submit(&pageJob{page: "Person:Mary_Jones", fetch: time.Hour})
		done <- pool.Wait()
	}()

	select {
	case results := <-done:
		for _, res := range results {
			if !errors.Is(res.GetError(), context.Canceled) {
				t.Errorf("expected cancelled fetch, got %v", res.GetError())
			}
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled pool did not finish")
	}
}
