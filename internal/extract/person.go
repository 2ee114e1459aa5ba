// Package extract turns microdata Items into Person trees.
package extract

import (
	"strings"

	"github.com/ppiankov/kinscan/internal/flexdate"
	"github.com/ppiankov/kinscan/internal/logging"
	"github.com/ppiankov/kinscan/internal/model"
)

// DefaultMaxDepth bounds relationship recursion when no limit is configured.
const DefaultMaxDepth = 64

// Relationship property aliases, singular first.
var (
	parentProps = []string{"parent", "parents"}
	spouseProps = []string{"spouse", "spouses"}
	childProps  = []string{"child", "children"}
)

// Extractor converts Items into Person trees. The zero value is usable.
type Extractor struct {
	// MaxDepth is the deepest relationship level followed from the root
	// person. Zero means DefaultMaxDepth.
	MaxDepth int
}

// NewExtractor returns an Extractor that follows at most maxDepth levels of
// relationships.
func NewExtractor(maxDepth int) *Extractor {
	return &Extractor{MaxDepth: maxDepth}
}

var defaultExtractor = &Extractor{}

// ExtractPerson converts item with the default depth limit. It returns nil
// when item is not a person.
func ExtractPerson(item *model.Item) *model.Person {
	return defaultExtractor.ExtractPerson(item)
}

// ExtractPerson converts item into a Person tree, or returns nil when the
// first type of item is not a person type.
//
// Links back to an Item already being extracted on the current path are
// skipped, so cyclic graphs terminate. Shared Items reached through
// different paths are extracted once per path.
func (e *Extractor) ExtractPerson(item *model.Item) *model.Person {
	return e.extract(item, make(map[*model.Item]bool), 0)
}

func (e *Extractor) maxDepth() int {
	if e == nil || e.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return e.MaxDepth
}

func (e *Extractor) extract(item *model.Item, path map[*model.Item]bool, depth int) *model.Person {
	if item == nil || !IsPersonType(item.FirstType()) {
		return nil
	}

	path[item] = true
	defer delete(path, item)

	p := &model.Person{}
	resolveName(p, item)
	p.BirthDate, p.BirthPlace = resolveEvent(item, "birth", "birthDate", "birthPlace")
	p.DeathDate, p.DeathPlace = resolveEvent(item, "death", "deathDate", "deathPlace")

	p.Parents = e.related(item, parentProps, path, depth)
	p.Spouses = e.related(item, spouseProps, path, depth)
	p.Children = e.related(item, childProps, path, depth)
	return p
}

// related extracts every person Item listed under the given property
// aliases. Scalars and non-person Items are dropped.
func (e *Extractor) related(item *model.Item, props []string, path map[*model.Item]bool, depth int) []*model.Person {
	var out []*model.Person
	for _, prop := range props {
		for _, linked := range item.Items(prop) {
			if path[linked] {
				logging.L().Debugw("skipping cyclic relationship link",
					"property", prop, "type", linked.FirstType())
				continue
			}
			if depth+1 > e.maxDepth() {
				logging.L().Debugw("relationship depth limit reached",
					"property", prop, "max_depth", e.maxDepth())
				continue
			}
			if person := e.extract(linked, path, depth+1); person != nil {
				out = append(out, person)
			}
		}
	}
	return out
}

// resolveName prefers structured given/family names over a single name.
// Structured names win when any of their values is non-empty.
func resolveName(p *model.Person, item *model.Item) {
	given := joinNormalized(item.Texts("givenName"))
	family := joinNormalized(item.Texts("familyName"))
	if given != "" || family != "" {
		p.GivenName = given
		p.FamilyName = family
		p.Name = joinNormalized([]string{given, family})
		return
	}

	name, ok := item.FirstText("name")
	if !ok {
		return
	}
	p.Name = NormalizeSpace(name)
	tokens := strings.Fields(p.Name)
	if len(tokens) == 0 {
		return
	}
	p.FamilyName = tokens[len(tokens)-1]
	p.GivenName = strings.Join(tokens[:len(tokens)-1], " ")
}

// resolveEvent reads a nested event Item first and falls back to the flat
// date and place properties.
func resolveEvent(item *model.Item, eventProp, dateProp, placeProp string) (*flexdate.Date, string) {
	if event := item.FirstItem(eventProp); event != nil {
		var date *flexdate.Date
		if s, ok := event.FirstText("startDate"); ok {
			date = parseDate(s)
		}
		return date, placeOf(event, "location")
	}

	var date *flexdate.Date
	if s, ok := item.FirstText(dateProp); ok {
		date = parseDate(s)
	}
	return date, placeOf(item, placeProp)
}

// placeOf resolves the first value of prop as a location. A plain text
// value is used as written.
func placeOf(item *model.Item, prop string) string {
	values := item.Values(prop)
	if len(values) == 0 {
		return ""
	}
	if values[0].IsItem() {
		return ExtractLocation(values[0].Item)
	}
	return NormalizeSpace(values[0].Text)
}

func parseDate(s string) *flexdate.Date {
	d := flexdate.Parse(s)
	if d.IsZero() {
		return nil
	}
	return &d
}
