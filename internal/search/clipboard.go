package search

import (
	"strings"

	"github.com/ppiankov/kinscan/internal/flexdate"
	"github.com/ppiankov/kinscan/internal/model"
)

// Clipboard renders p as a short plain-text card for pasting into notes.
// Dates are formatted with layout, or flexdate.DefaultLayout when empty.
func Clipboard(p *model.Person, layout string) string {
	if layout == "" {
		layout = flexdate.DefaultLayout
	}

	lines := []string{p.Name}
	if p.HasBirthDate() {
		lines = append(lines, "Birth: "+p.BirthDate.DisplayString(layout))
	}
	if p.BirthPlace != "" {
		lines = append(lines, "Birth Place: "+p.BirthPlace)
	}
	if p.HasDeathDate() {
		lines = append(lines, "Death: "+p.DeathDate.DisplayString(layout))
	}
	if p.DeathPlace != "" {
		lines = append(lines, "Death Place: "+p.DeathPlace)
	}
	return strings.Join(lines, "\n")
}
