package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/ppiankov/kinscan/internal/microdata"
	"github.com/ppiankov/kinscan/internal/pipeline"
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <items.json|->",
	Short: "Extract people from a microdata Items JSON document",
	Long: `Extract reads microdata already converted to JSON, either {"items": [...]}
or a bare array of items, and reports the people in it. Use - to read stdin.

Example:
  kinscan extract page-items.json
  kinscan scan page.html --items --json - | jq .items | kinscan extract -`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return bindFlags(cmd, map[string]string{
			"items":       "output.include_items",
			"date-layout": "display.date_layout",
			"max-depth":   "extract.max_depth",
		})
	},
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVar(&outJSON, "json", "", "output JSON path (- for stdout)")
	extractCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (- for stdout)")
	extractCmd.Flags().Bool("items", false, "include the raw microdata items in reports")
	extractCmd.Flags().String("date-layout", "1/2/2006", "Go time layout for full dates")
	extractCmd.Flags().Int("max-depth", 64, "maximum relationship depth")
	extractCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
}

func runExtract(cmd *cobra.Command, args []string) error {
	source := args[0]

	var (
		data []byte
		err  error
	)
	if source == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(source)
	}
	if err != nil {
		return errors.Wrapf(err, "read %s", source)
	}

	items, err := microdata.DecodeItems(data)
	if err != nil {
		return errors.WithHint(err, `expected {"items": [...]} or a JSON array of items`)
	}

	cfg, err := pageConfig()
	if err != nil {
		return err
	}

	subject := filepath.Base(source)
	if source == "-" {
		subject = "stdin"
	}

	p := pipeline.NewPipeline(cfg)
	report := p.ReportItems(subject, items)
	return errors.Wrap(p.RenderReport(report, outJSON, outMD, verbose), "render failed")
}
