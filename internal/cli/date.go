package cli

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/ppiankov/kinscan/internal/flexdate"
)

var dateLayout string

// dateCmd represents the date command
var dateCmd = &cobra.Command{
	Use:   "date <text>...",
	Short: "Show how kinscan reads genealogical dates",
	Long: `Date parses each argument the way page dates are parsed and prints its
canonical form, display form, concrete calendar date and year.

Canonical forms follow year[-month[-day]] with ? for uncertain, ~ for
approximate and u for unknown digits; seasons are months 21-24.

Example:
  kinscan date 1850-03-15 1850? 18uu 1850-21 "March 15, 1850"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data := pterm.TableData{{"Input", "Canonical", "Display", "Date", "Year"}}
		for _, arg := range args {
			data = append(data, dateRow(arg, dateLayout))
		}

		table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), table)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dateCmd)
	dateCmd.Flags().StringVar(&dateLayout, "layout", flexdate.DefaultLayout, "Go time layout for full dates")
}

// dateRow describes how text parses. Unparseable input yields dashes.
func dateRow(text, layout string) []string {
	d := flexdate.Parse(text)
	if d.IsZero() {
		return []string{text, "-", "-", "-", "-"}
	}

	concrete := "-"
	if t, ok := d.Time(); ok {
		concrete = t.Format("2006-01-02")
	}
	year := "-"
	if y := d.Year(); y != 0 {
		year = strconv.Itoa(y)
	}
	return []string{text, d.String(), d.DisplayString(layout), concrete, year}
}
