package extract

import (
	"strings"

	"github.com/ppiankov/kinscan/internal/model"
)

var addressFields = []string{"addressLocality", "addressRegion", "addressCountry"}

// ExtractLocation renders a Place or PostalAddress Item as a comma-separated
// string. A Place contributes its own name first and reads address fields
// from its nested address when there is one. Other types yield "".
func ExtractLocation(item *model.Item) string {
	if item == nil {
		return ""
	}

	var parts []string
	fields := item
	switch t := item.FirstType(); {
	case IsPlaceType(t):
		if addr := item.FirstItem("address"); addr != nil {
			fields = addr
		}
		if name := locationField(item, "name"); name != "" {
			parts = append(parts, name)
		}
	case IsPostalAddressType(t):
	default:
		return ""
	}

	if len(parts) == 0 {
		if name := locationField(fields, "name"); name != "" {
			parts = append(parts, name)
		}
	}
	for _, key := range addressFields {
		if v := locationField(fields, key); v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, ", ")
}

// locationField returns the normalized first value of prop. A nested Item,
// such as a schema.org Country, contributes its name.
func locationField(item *model.Item, prop string) string {
	values := item.Values(prop)
	if len(values) == 0 {
		return ""
	}
	if values[0].IsItem() {
		name, _ := values[0].Item.FirstText("name")
		return NormalizeSpace(name)
	}
	return NormalizeSpace(values[0].Text)
}
