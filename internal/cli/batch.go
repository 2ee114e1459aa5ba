package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/ppiankov/kinscan/internal/pipeline"
	"github.com/ppiankov/kinscan/internal/worker"
)

var (
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Scan many pages listed in a file",
	Long: `Batch scans every URL or path listed in a file (one per line, # starts a
comment) with a pool of workers. Requests to the same host are paced by the
rate limiter. Each page with people gets its own JSON and Markdown report.

Example:
  kinscan batch urls.txt
  kinscan batch urls.txt --concurrency 8 --output-dir ./trees
  kinscan batch urls.txt --rps 0.5 --timeout 30m`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if err := bindFlags(cmd, httpFlags); err != nil {
			return err
		}
		return bindFlags(cmd, map[string]string{
			"concurrency":  "concurrency.workers",
			"rps":          "rate_limiting.requests_per_second",
			"burst":        "rate_limiting.burst_size",
			"scan-timeout": "http.timeout",
		})
	},
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().Int("concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().Float64("rps", 2, "requests per second per host (0 disables pacing)")
	batchCmd.Flags().Int("burst", 2, "request burst per host")
	batchCmd.Flags().Duration("scan-timeout", 30*time.Second, "HTTP timeout for each page")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./kinscan-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
	addPageFlags(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	cfg, err := pageConfig()
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Kinscan Batch\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Rate limit:   %.2f req/s per host\n", cfg.RateLimiting.RequestsPerSecond)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return errors.Wrap(err, "create output directory")
	}

	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	p := pipeline.NewPipeline(cfg).WithPacer(limiter)
	processor := worker.NewBatchProcessor(p, cfg.Concurrency.Workers)

	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return errors.Wrap(err, "process file")
	}

	var succeeded, empty, failed int
	names := make(map[string]bool)
	renderer := p.Renderer()

	for _, result := range results {
		if result.Error != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.URL, result.Error)
			continue
		}

		report := result.Report
		if len(report.Rows) == 0 {
			empty++
			fmt.Fprintf(os.Stderr, "- %s: no people\n", result.URL)
			continue
		}

		slug := uniqueName(names, sanitizeFilename(report.Subject))
		jsonPath := filepath.Join(outputDir, slug+".json")
		mdPath := filepath.Join(outputDir, slug+".md")

		if err := renderer.RenderJSON(report, jsonPath); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", result.URL, err)
			continue
		}
		if err := renderer.RenderMarkdown(report, mdPath); err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write Markdown: %v\n", result.URL, err)
			continue
		}

		succeeded++
		fmt.Fprintf(os.Stderr, "✓ %s (%d people)\n", report.Subject, report.Stats.Persons)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:      %d pages\n", len(results))
	fmt.Fprintf(os.Stderr, "  Reported:   %d\n", succeeded)
	fmt.Fprintf(os.Stderr, "  No people:  %d\n", empty)
	fmt.Fprintf(os.Stderr, "  Failures:   %d\n", failed)
	fmt.Fprintf(os.Stderr, "  Output:     %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

var filenameReplacer = strings.NewReplacer(
	"/", "_",
	"\\", "_",
	":", "_",
	"*", "_",
	"?", "_",
	"\"", "_",
	"<", "_",
	">", "_",
	"|", "_",
	" ", "-",
)

// sanitizeFilename turns a report subject into a safe file name.
func sanitizeFilename(s string) string {
	s = filenameReplacer.Replace(strings.TrimSpace(s))
	s = strings.Trim(s, ".-_")
	if s == "" {
		s = "report"
	}

	// Limit length
	if len(s) > 100 {
		s = strings.ToValidUTF8(s[:100], "")
	}
	return s
}

// uniqueName returns name, or name with the first free counter suffix when
// name is taken, and marks the result as used.
func uniqueName(used map[string]bool, name string) string {
	candidate := name
	for n := 2; used[candidate]; n++ {
		candidate = fmt.Sprintf("%s-%d", name, n)
	}
	used[candidate] = true
	return candidate
}
