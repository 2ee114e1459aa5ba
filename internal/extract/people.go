package extract

import (
	"sort"

	"github.com/ppiankov/kinscan/internal/model"
)

// People finds every person in a page's top-level Items with the default
// depth limit.
func People(items []*model.Item) []*model.Person {
	return defaultExtractor.People(items)
}

// People returns a Person tree for each person Item. Typed Items that are
// not persons are searched through their nested values, property names in
// sorted order, so persons wrapped in other structures are still found.
func (e *Extractor) People(items []*model.Item) []*model.Person {
	people := []*model.Person{}
	path := make(map[*model.Item]bool)
	for _, item := range items {
		people = e.collect(item, path, 0, people)
	}
	return people
}

func (e *Extractor) collect(item *model.Item, path map[*model.Item]bool, depth int, out []*model.Person) []*model.Person {
	if item == nil || path[item] {
		return out
	}
	if person := e.extract(item, path, 0); person != nil {
		return append(out, person)
	}
	if item.FirstType() == "" || depth >= e.maxDepth() {
		return out
	}

	path[item] = true
	defer delete(path, item)

	names := make([]string, 0, len(item.Properties))
	for name := range item.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, child := range item.Items(name) {
			out = e.collect(child, path, depth+1, out)
		}
	}
	return out
}

// Entry is one person in display order with its position in the tree.
type Entry struct {
	Person   *model.Person
	Relation model.Relation
	Depth    int
}

// Walk visits each person depth-first: the person, then parents, spouses
// and children.
func Walk(people []*model.Person, fn func(Entry)) {
	for _, p := range people {
		walk(p, model.RelationSelf, 0, fn)
	}
}

func walk(p *model.Person, rel model.Relation, depth int, fn func(Entry)) {
	if p == nil {
		return
	}
	fn(Entry{Person: p, Relation: rel, Depth: depth})
	for _, parent := range p.Parents {
		walk(parent, model.RelationParent, depth+1, fn)
	}
	for _, spouse := range p.Spouses {
		walk(spouse, model.RelationSpouse, depth+1, fn)
	}
	for _, child := range p.Children {
		walk(child, model.RelationChild, depth+1, fn)
	}
}

// Flatten lists every person in the order Walk visits them.
func Flatten(people []*model.Person) []*model.Person {
	out := []*model.Person{}
	Walk(people, func(e Entry) {
		out = append(out, e.Person)
	})
	return out
}

// Entries lists every person with relation and depth in Walk order.
func Entries(people []*model.Person) []Entry {
	var out []Entry
	Walk(people, func(e Entry) {
		out = append(out, e)
	})
	return out
}
