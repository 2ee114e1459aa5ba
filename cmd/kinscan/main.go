// Command kinscan extracts family trees from genealogy page microdata.
package main

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"

	"github.com/ppiankov/kinscan/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if hint := errors.FlattenHints(err); hint != "" {
			fmt.Fprintf(os.Stderr, "Hint: %s\n", hint)
		}
		os.Exit(1)
	}
}
