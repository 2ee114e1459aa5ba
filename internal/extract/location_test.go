package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ppiankov/kinscan/internal/model"
)

func fullAddress() *model.Item {
	return model.NewItem(SchemaPostalAddress).
		AddText("name", "Southwold Bay, England").
		AddText("addressLocality", "locality").
		AddText("addressRegion", "region").
		AddText("addressCountry", "country")
}

func TestExtractLocation(t *testing.T) {
	tests := []struct {
		name string
		item *model.Item
		want string
	}{
		{
			name: "place wrapping address",
			item: model.NewItem(SchemaPlace).AddItem("address", fullAddress()),
			want: "Southwold Bay, England, locality, region, country",
		},
		{
			name: "postal address",
			item: fullAddress(),
			want: "Southwold Bay, England, locality, region, country",
		},
		{
			name: "place name replaces address name",
			item: model.NewItem(SchemaPlace).
				AddText("name", "St. Mary's Church").
				AddItem("address", fullAddress()),
			want: "St. Mary's Church, locality, region, country",
		},
		{
			name: "place without address",
			item: model.NewItem(SchemaPlace).
				AddText("name", "Boston").
				AddText("addressRegion", "Massachusetts"),
			want: "Boston, Massachusetts",
		},
		{
			name: "missing and blank fields skipped",
			item: model.NewItem(SchemaPostalAddress).
				AddText("addressLocality", "  Salem \n").
				AddText("addressRegion", "   ").
				AddText("addressCountry", "USA"),
			want: "Salem, USA",
		},
		{
			name: "country item contributes its name",
			item: model.NewItem(SchemaPostalAddress).
				AddText("addressLocality", "Leeds").
				AddItem("addressCountry", model.NewItem("http://schema.org/Country").AddText("name", "England")),
			want: "Leeds, England",
		},
		{
			name: "https type",
			item: model.NewItem("https://schema.org/Place").AddText("name", "Paris"),
			want: "Paris",
		},
		{
			name: "unsupported type",
			item: model.NewItem("http://schema.org/Event").AddText("name", "Somewhere"),
			want: "",
		},
		{
			name: "empty place",
			item: model.NewItem(SchemaPlace),
			want: "",
		},
		{
			name: "nil",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractLocation(tt.item))
		})
	}
}

func TestNormalizeSpace(t *testing.T) {
	assert.Equal(t, "First Middle Last", NormalizeSpace("  First \t Middle\n\nLast  "))
	assert.Equal(t, "", NormalizeSpace(" \n\t "))
	assert.Equal(t, "single", NormalizeSpace("single"))
}
