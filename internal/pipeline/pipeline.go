package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/ppiankov/kinscan/internal/cache"
	"github.com/ppiankov/kinscan/internal/extract"
	"github.com/ppiankov/kinscan/internal/logging"
	"github.com/ppiankov/kinscan/internal/microdata"
	"github.com/ppiankov/kinscan/internal/model"
	"github.com/ppiankov/kinscan/internal/search"
	"github.com/ppiankov/kinscan/internal/store"
	"github.com/ppiankov/kinscan/internal/util"
)

// ErrPageNotFound is returned by Report for a page that was never stored,
// was already taken, or has expired.
var ErrPageNotFound = errors.New("page not found")

// Pipeline orchestrates the complete scan process
type Pipeline struct {
	fetcher   *Fetcher
	extractor *extract.Extractor
	pages     *store.PageStore
	renderer  *Renderer
	config    *model.Config
	seq       atomic.Uint64
}

// NewPipeline creates a new pipeline with the given configuration
func NewPipeline(cfg *model.Config) *Pipeline {
	if cfg == nil {
		cfg = model.DefaultConfig()
	}

	fetcher := NewFetcher(
		cfg.HTTP.Timeout,
		cfg.HTTP.UserAgent,
		cfg.HTTP.MaxBodyBytes,
		cfg.HTTP.InsecureTLS,
		cfg.HTTP.HTTPProxy,
		cfg.HTTP.HTTPSProxy,
		cfg.HTTP.NoProxy,
	).WithMaxAttempts(cfg.HTTP.MaxRetries)

	if cfg.Cache.Enabled {
		fetcher.WithCache(cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL), cfg.Cache.DiskTTL)
	}
	if cfg.Robots.Respect {
		client := *fetcher.Client()
		client.Timeout = cfg.Robots.Timeout
		fetcher.WithRobots(util.NewRobotsCheckerWithClient(cfg.HTTP.UserAgent, &client))
	}

	return &Pipeline{
		fetcher:   fetcher,
		extractor: extract.NewExtractor(cfg.Extract.MaxDepth),
		pages:     store.NewPageStore(cfg.Store.PageTTL),
		renderer:  NewRenderer(cfg.Output.IncludeFooter, cfg.Output.IncludeItems),
		config:    cfg,
	}
}

// ScanResult contains the complete scan result
type ScanResult struct {
	PageID string
	Report *model.Report
}

// ScanURL fetches target, scans it for microdata and builds its report.
// target may be an http(s) URL, a file:// URL or a local path.
func (p *Pipeline) ScanURL(ctx context.Context, target string) (*ScanResult, error) {
	fetched, err := p.load(ctx, target)
	if err != nil {
		return nil, err
	}

	pageID, page, err := p.Scan(fetched)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		// Nobody will report a cancelled scan.
		p.pages.Evict(pageID)
		return nil, errors.Wrap(err, "scan")
	}

	subject := page.Title
	if subject == "" {
		subject = fetched.Subject
	}

	if pageID == "" {
		// Nothing historical on the page; report it as empty.
		report := p.buildReport(subject, fetched.FinalURL, nil)
		report.FetchMeta = fetched.Meta
		return &ScanResult{Report: report}, nil
	}

	report, err := p.Report(pageID)
	if err != nil {
		return nil, err
	}
	report.Subject = subject
	report.FetchMeta = fetched.Meta
	return &ScanResult{PageID: pageID, Report: report}, nil
}

// Scan parses a fetched page and stores it when it carries historical data.
// The returned page ID is empty when nothing was stored.
func (p *Pipeline) Scan(fetched *FetchResult) (string, *microdata.Page, error) {
	page, err := microdata.Scan(strings.NewReader(fetched.HTML), fetched.FinalURL)
	if err != nil {
		return "", nil, errors.Wrap(err, "scan")
	}
	logging.L().Debugw("page scanned",
		"url", fetched.FinalURL,
		"items", len(page.Items),
		"historical", page.HasHistoricalData)

	if !page.HasHistoricalData {
		return "", page, nil
	}

	var debug []byte
	if p.config.Output.IncludeItems {
		debug, err = microdata.EncodeItems(page.Items)
		if err != nil {
			return "", nil, err
		}
	}

	pageID := fmt.Sprintf("%d:%s", p.seq.Add(1), fetched.FinalURL)
	p.pages.Put(store.PageData{
		PageID:            pageID,
		URL:               fetched.FinalURL,
		HasHistoricalData: true,
		Items:             page.Items,
		Debug:             string(debug),
		ScannedAt:         time.Now().UTC(),
	})
	return pageID, page, nil
}

// Report takes the stored page and builds its report. Each page can be
// reported once.
func (p *Pipeline) Report(pageID string) (*model.Report, error) {
	data, ok := p.pages.Take(pageID)
	if !ok {
		return nil, errors.Wrapf(ErrPageNotFound, "report %s", pageID)
	}

	report := p.buildReport(extractSubject(data.URL), data.URL, data.Items)
	report.HasHistoricalData = data.HasHistoricalData
	report.FetchedAt = data.ScannedAt
	if p.config.Output.IncludeItems {
		report.ItemsJSON = data.Debug
	}
	return report, nil
}

// ReportItems builds a report from already scanned items, such as an Items
// JSON document.
func (p *Pipeline) ReportItems(subject string, items []*model.Item) *model.Report {
	report := p.buildReport(subject, "", items)
	report.HasHistoricalData = len(report.People) > 0
	return report
}

// WithPacer spaces out the pipeline's network requests with p.
func (p *Pipeline) WithPacer(pacer Pacer) *Pipeline {
	p.fetcher.WithPacer(pacer)
	return p
}

// Renderer returns the pipeline's renderer.
func (p *Pipeline) Renderer() *Renderer {
	return p.renderer
}

func (p *Pipeline) load(ctx context.Context, target string) (*FetchResult, error) {
	if isLocalTarget(target) {
		result, err := p.fetcher.Load(target)
		return result, errors.Wrap(err, "load")
	}
	result, err := p.fetcher.FetchWithRetry(ctx, target)
	return result, errors.Wrap(err, "fetch")
}

func (p *Pipeline) buildReport(subject, sourceURL string, items []*model.Item) *model.Report {
	people := p.extractor.People(items)
	layout := p.config.Display.DateLayout

	rows := []model.PersonRow{}
	extract.Walk(people, func(e extract.Entry) {
		row := model.PersonRow{
			Depth:      e.Depth,
			Relation:   e.Relation,
			Name:       e.Person.DisplayName(),
			BirthPlace: e.Person.BirthPlace,
			DeathPlace: e.Person.DeathPlace,
			Links:      search.Links(e.Person),
			Clipboard:  search.Clipboard(e.Person, layout),
		}
		if e.Person.HasBirthDate() {
			row.Birth = e.Person.BirthDate.DisplayString(layout)
		}
		if e.Person.HasDeathDate() {
			row.Death = e.Person.DeathDate.DisplayString(layout)
		}
		rows = append(rows, row)
	})

	report := &model.Report{
		Subject:   subject,
		SourceURL: sourceURL,
		FetchedAt: time.Now().UTC(),
		People:    people,
		Rows:      rows,
		Stats: model.ExtractStats{
			Items:   len(items),
			Persons: len(rows),
			Roots:   len(people),
		},
	}
	if p.config.Output.IncludeItems {
		report.Items = items
	}
	return report
}

// RenderReport writes the requested JSON and Markdown files, then prints
// the console summary.
func (p *Pipeline) RenderReport(report *model.Report, jsonPath string, mdPath string, verbose bool) error {
	if jsonPath != "" {
		if err := p.renderer.RenderJSON(report, jsonPath); err != nil {
			return errors.Wrap(err, "render JSON")
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote JSON: %s\n", jsonPath)
		}
	}

	if mdPath != "" {
		if err := p.renderer.RenderMarkdown(report, mdPath); err != nil {
			return errors.Wrap(err, "render markdown")
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "✓ Wrote Markdown: %s\n", mdPath)
		}
	}

	// A report written to stdout is not mixed with the summary.
	if jsonPath != "-" && mdPath != "-" {
		p.renderer.RenderSummary(os.Stdout, report)
	}
	return nil
}

func isLocalTarget(target string) bool {
	u, err := url.Parse(target)
	if err != nil || u.Scheme == "" || u.Scheme == "file" {
		return true
	}
	// Windows drive letters parse as a one-letter scheme.
	return len(u.Scheme) == 1
}
