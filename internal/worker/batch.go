package worker

import (
	"bufio"
	"context"
	"os"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/ppiankov/kinscan/internal/logging"
	"github.com/ppiankov/kinscan/internal/model"
	"github.com/ppiankov/kinscan/internal/pipeline"
)

// Scanner scans one page. *pipeline.Pipeline implements it.
type Scanner interface {
	ScanURL(ctx context.Context, url string) (*pipeline.ScanResult, error)
}

// ScanJob represents a URL scan job
type ScanJob struct {
	Index   int
	URL     string
	Scanner Scanner
}

// Execute scans the job's page. Request pacing is the scanner's concern.
func (j *ScanJob) Execute(ctx context.Context) Result {
	result, err := j.Scanner.ScanURL(ctx, j.URL)
	if err != nil {
		logging.L().Debugw("scan failed", "url", j.URL, "error", err)
		return &ScanResult{index: j.Index, URL: j.URL, Error: err}
	}
	return &ScanResult{
		index:  j.Index,
		URL:    j.URL,
		PageID: result.PageID,
		Report: result.Report,
	}
}

// ScanResult represents the result of a scan job
type ScanResult struct {
	index  int
	URL    string
	PageID string
	Report *model.Report
	Error  error
}

// GetError returns the error from the scan result
func (r *ScanResult) GetError() error {
	return r.Error
}

// BatchProcessor scans many pages concurrently. Give the scanner a Limiter
// (pipeline.Pipeline.WithPacer) to keep hosts from being flooded.
type BatchProcessor struct {
	scanner     Scanner
	concurrency int
}

// NewBatchProcessor creates a batch processor
func NewBatchProcessor(scanner Scanner, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		scanner:     scanner,
		concurrency: concurrency,
	}
}

// ProcessURLs scans urls and returns one result per URL, in input order.
func (b *BatchProcessor) ProcessURLs(ctx context.Context, urls []string) []*ScanResult {
	if len(urls) == 0 {
		return []*ScanResult{}
	}

	pool := NewPoolContext(ctx, b.concurrency)
	pool.Start()

	for i, u := range urls {
		pool.Submit(&ScanJob{
			Index:   i,
			URL:     u,
			Scanner: b.scanner,
		})
	}

	scanResults := make([]*ScanResult, len(urls))
	for _, result := range pool.Wait() {
		r := result.(*ScanResult)
		scanResults[r.index] = r
	}

	// Jobs dropped by a cancelled context never ran.
	for i, r := range scanResults {
		if r == nil {
			err := ctx.Err()
			if err == nil {
				err = errors.New("not scanned")
			}
			scanResults[i] = &ScanResult{index: i, URL: urls[i], Error: err}
		}
	}

	return scanResults
}

// ProcessFile reads URLs from a file and processes them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*ScanResult, error) {
	urls, err := ReadURLsFromFile(filePath)
	if err != nil {
		return nil, errors.Wrap(err, "read URLs")
	}

	return b.ProcessURLs(ctx, urls), nil
}

// ReadURLsFromFile reads URLs from a file (one per line)
func ReadURLsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, errors.Wrap(err, "open file")
	}
	defer func() { _ = file.Close() }()

	var urls []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if !seen[line] {
			seen[line] = true
			urls = append(urls, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "scan file")
	}

	return urls, nil
}
