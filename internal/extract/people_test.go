package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/kinscan/internal/model"
)

func names(people []*model.Person) []string {
	out := make([]string, 0, len(people))
	for _, p := range people {
		out = append(out, p.Name)
	}
	return out
}

func TestPeople(t *testing.T) {
	page := model.NewItem("http://schema.org/WebPage").
		AddItem("mainEntity", model.NewItem(SchemaPerson).AddText("name", "Main")).
		AddItem("about", model.NewItem("http://schema.org/Thing").
			AddItem("subjectOf", model.NewItem(HistoricalPerson).AddText("name", "Nested")))

	items := []*model.Item{
		model.NewItem(SchemaPerson).AddText("name", "First"),
		model.NewItem(SchemaPlace).AddText("name", "A Place"),
		page,
	}

	people := People(items)
	// Property names are visited in sorted order: "about" before "mainEntity".
	assert.Equal(t, []string{"First", "Nested", "Main"}, names(people))
}

func TestPeople_Empty(t *testing.T) {
	people := People(nil)
	require.NotNil(t, people)
	assert.Empty(t, people)
}

func TestPeople_UntypedItemsNotSearched(t *testing.T) {
	untyped := model.NewItem().AddItem("person", model.NewItem(SchemaPerson).AddText("name", "Hidden"))
	assert.Empty(t, People([]*model.Item{untyped}))
}

func TestPeople_CyclicContainer(t *testing.T) {
	a := model.NewItem("http://schema.org/Thing")
	b := model.NewItem("http://schema.org/Thing")
	a.AddItem("next", b)
	b.AddItem("next", a)
	b.AddItem("person", model.NewItem(SchemaPerson).AddText("name", "Inside"))

	assert.Equal(t, []string{"Inside"}, names(People([]*model.Item{a})))
}

func TestFlatten(t *testing.T) {
	root := &model.Person{
		Name: "Root",
		Parents: []*model.Person{
			{Name: "Father", Parents: []*model.Person{{Name: "Grandfather"}}},
			{Name: "Mother"},
		},
		Spouses:  []*model.Person{{Name: "Spouse"}},
		Children: []*model.Person{{Name: "Child"}},
	}
	other := &model.Person{Name: "Other"}

	flat := Flatten([]*model.Person{root, other})
	assert.Equal(t,
		[]string{"Root", "Father", "Grandfather", "Mother", "Spouse", "Child", "Other"},
		names(flat))

	entries := Entries([]*model.Person{root})
	require.Len(t, entries, 6)
	assert.Equal(t, model.RelationSelf, entries[0].Relation)
	assert.Equal(t, 0, entries[0].Depth)
	assert.Equal(t, model.RelationParent, entries[2].Relation)
	assert.Equal(t, 2, entries[2].Depth)
	assert.Equal(t, model.RelationSpouse, entries[4].Relation)
	assert.Equal(t, model.RelationChild, entries[5].Relation)
	assert.Equal(t, 1, entries[5].Depth)
}

func TestFlatten_Empty(t *testing.T) {
	assert.Empty(t, Flatten(nil))
	assert.NotNil(t, Flatten(nil))
}
