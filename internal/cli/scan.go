package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/kinscan/internal/model"
	"github.com/ppiankov/kinscan/internal/pipeline"
	"github.com/ppiankov/kinscan/internal/worker"
)

var (
	outJSON      string
	outMD        string
	timeout      time.Duration
	noCache      bool
	noFooter     bool
	ignoreRobots bool
)

// httpFlags are shared by scan and batch.
var httpFlags = map[string]string{
	"ua":          "http.user_agent",
	"max-bytes":   "http.max_body_bytes",
	"insecure":    "http.insecure_tls",
	"http-proxy":  "http.http_proxy",
	"https-proxy": "http.https_proxy",
	"items":       "output.include_items",
	"date-layout": "display.date_layout",
	"max-depth":   "extract.max_depth",
}

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan <url|file>",
	Short: "Scan one genealogy page for people",
	Long: `Scan fetches a page (or reads a saved HTML file), collects its microdata
items and extracts every person with their parents, spouses and children.

Example:
  kinscan scan https://www.werelate.org/wiki/Person:John_Smith_(1)
  kinscan scan ./saved/page.html --md tree.md
  kinscan scan https://example.com/tree --json report.json --items`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return bindFlags(cmd, httpFlags)
	},
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (- for stdout)")
	scanCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (- for stdout)")
	scanCmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall scan timeout")
	addPageFlags(scanCmd)
}

// addPageFlags registers the fetch and extraction flags used by scan and batch.
func addPageFlags(cmd *cobra.Command) {
	defaults := model.DefaultConfig()
	cmd.Flags().String("ua", defaults.HTTP.UserAgent, "HTTP User-Agent")
	cmd.Flags().Int64("max-bytes", defaults.HTTP.MaxBodyBytes, "max response bytes to read")
	cmd.Flags().Bool("insecure", false, "skip TLS certificate verification")
	cmd.Flags().String("http-proxy", "", "HTTP proxy URL (overrides HTTP_PROXY env var)")
	cmd.Flags().String("https-proxy", "", "HTTPS proxy URL (overrides HTTPS_PROXY env var)")
	cmd.Flags().Bool("items", false, "include the raw microdata items in reports")
	cmd.Flags().String("date-layout", defaults.Display.DateLayout, "Go time layout for full dates")
	cmd.Flags().Int("max-depth", defaults.Extract.MaxDepth, "maximum relationship depth")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable cache (force fresh fetch)")
	cmd.Flags().BoolVar(&ignoreRobots, "ignore-robots", false, "do not check robots.txt")
	cmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
}

// pageConfig loads the configuration and applies the negated switches.
func pageConfig() (*model.Config, error) {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return nil, err
	}
	if noCache {
		cfg.Cache.Enabled = false
	}
	if ignoreRobots {
		cfg.Robots.Respect = false
	}
	if noFooter {
		cfg.Output.IncludeFooter = false
	}
	return cfg, nil
}

func runScan(cmd *cobra.Command, args []string) error {
	target := args[0]
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	cfg, err := pageConfig()
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Scanning: %s\n", target)
		fmt.Fprintf(os.Stderr, "Timeout: %v\n", timeout)
		fmt.Fprintf(os.Stderr, "Cache: %v\n", cfg.Cache.Enabled)
		fmt.Fprintf(os.Stderr, "Robots: %v\n", cfg.Robots.Respect)
		fmt.Fprintln(os.Stderr)
	}

	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)
	p := pipeline.NewPipeline(cfg).WithPacer(limiter)

	result, err := p.ScanURL(ctx, target)
	if err != nil {
		return errors.Wrap(err, "scan failed")
	}

	if verbose {
		report := result.Report
		if !report.HasHistoricalData {
			fmt.Fprintf(os.Stderr, "✗ No historical microdata on page\n")
		}
		fmt.Fprintf(os.Stderr, "✓ Scanned %d items\n", report.Stats.Items)
		fmt.Fprintf(os.Stderr, "✓ Extracted %d people in %d trees\n", report.Stats.Persons, report.Stats.Roots)
		fmt.Fprintln(os.Stderr)
	}

	if err := p.RenderReport(result.Report, outJSON, outMD, verbose); err != nil {
		return errors.Wrap(err, "render failed")
	}

	return nil
}
