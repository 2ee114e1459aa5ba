package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"

	"github.com/ppiankov/kinscan/internal/microdata"
	"github.com/ppiankov/kinscan/internal/model"
)

// Renderer writes reports as JSON, Markdown or a console table.
type Renderer struct {
	includeFooter bool
	includeItems  bool
}

// NewRenderer creates a Renderer. includeItems adds the raw scanned items to
// Markdown output when the report carries them.
func NewRenderer(includeFooter, includeItems bool) *Renderer {
	return &Renderer{includeFooter: includeFooter, includeItems: includeItems}
}

// RenderJSON writes report as indented JSON to path, or stdout for "-".
func (r *Renderer) RenderJSON(report *model.Report, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal report")
	}
	return writeOutput(path, append(data, '\n'))
}

// RenderMarkdown writes report as Markdown to path, or stdout for "-".
func (r *Renderer) RenderMarkdown(report *model.Report, path string) error {
	var b strings.Builder
	r.WriteMarkdown(&b, report)
	return writeOutput(path, []byte(b.String()))
}

// WriteMarkdown renders report as Markdown into w.
func (r *Renderer) WriteMarkdown(w io.Writer, report *model.Report) {
	fmt.Fprintf(w, "# %s\n\n", markdownEscape(report.Subject))
	if report.SourceURL != "" {
		fmt.Fprintf(w, "Source: <%s>\n\n", report.SourceURL)
	}

	if len(report.Rows) == 0 {
		fmt.Fprintln(w, "No people found on this page.")
	} else {
		fmt.Fprintln(w, "| Name | Birth | Death |")
		fmt.Fprintln(w, "|------|-------|-------|")
		for _, row := range report.Rows {
			fmt.Fprintf(w, "| %s%s | %s | %s |\n",
				strings.Repeat("&nbsp;&nbsp;", row.Depth),
				markdownEscape(rowLabel(row)),
				markdownEscape(joinEvent(row.Birth, row.BirthPlace, "; ")),
				markdownEscape(joinEvent(row.Death, row.DeathPlace, "; ")))
		}

		fmt.Fprintln(w, "\n## Search")
		for _, row := range report.Rows {
			fmt.Fprintf(w, "\n### %s\n\n", markdownEscape(row.Name))
			for _, link := range row.Links {
				fmt.Fprintf(w, "- [%s](%s)\n", link.Site, link.URL)
			}
			if row.Clipboard != "" {
				fmt.Fprintf(w, "\n```text\n%s\n```\n", row.Clipboard)
			}
		}
	}

	if r.includeItems && len(report.Items) > 0 {
		doc := report.ItemsJSON
		if doc == "" {
			if data, err := microdata.EncodeItems(report.Items); err == nil {
				doc = string(data)
			}
		}
		if doc != "" {
			fmt.Fprintf(w, "\n<details>\n<summary>Scanned items</summary>\n\n```json\n%s\n```\n\n</details>\n", doc)
		}
	}

	if r.includeFooter {
		fmt.Fprintf(w, "\n---\n\n_%d people from %d items, generated by kinscan at %s._\n",
			report.Stats.Persons, report.Stats.Items, report.FetchedAt.Format("2006-01-02 15:04 MST"))
	}
}

// RenderSummary prints a short table of the people in report to w.
func (r *Renderer) RenderSummary(w io.Writer, report *model.Report) {
	fmt.Fprintf(w, "%s %s\n", pterm.LightCyan("Page:"), report.Subject)
	if report.FetchMeta.FromCache {
		fmt.Fprintf(w, "%s %s\n", pterm.Gray("Source:"), pterm.Gray("cache"))
	}

	if len(report.Rows) == 0 {
		fmt.Fprintln(w, pterm.Yellow("No people found."))
		return
	}

	data := pterm.TableData{{"Name", "Relation", "Birth", "Death"}}
	for _, row := range report.Rows {
		data = append(data, []string{
			strings.Repeat("  ", row.Depth) + row.Name,
			string(row.Relation),
			joinEvent(row.Birth, row.BirthPlace, ", "),
			joinEvent(row.Death, row.DeathPlace, ", "),
		})
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		writePlainTable(w, data)
		return
	}
	fmt.Fprintln(w, table)
	fmt.Fprintf(w, "%s %d people in %d trees\n", pterm.LightGreen("✓"), report.Stats.Persons, report.Stats.Roots)
}

func writePlainTable(w io.Writer, data pterm.TableData) {
	for _, row := range data {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
}

func rowLabel(row model.PersonRow) string {
	if row.Relation == model.RelationSelf || row.Relation == "" {
		return row.Name
	}
	return fmt.Sprintf("%s (%s)", row.Name, row.Relation)
}

func joinEvent(date, place, sep string) string {
	switch {
	case date != "" && place != "":
		return date + sep + place
	case date != "":
		return date
	default:
		return place
	}
}

var markdownEscaper = strings.NewReplacer("|", `\|`, "\n", " ")

func markdownEscape(s string) string {
	return markdownEscaper.Replace(s)
}

func writeOutput(path string, data []byte) error {
	if path == "-" {
		_, err := os.Stdout.Write(data)
		return errors.Wrap(err, "write stdout")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "create %s", dir)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}
