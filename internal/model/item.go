package model

import (
	"bytes"
	"encoding/json"
)

// Item is a typed, multi-valued attribute bag scanned from page microdata.
// Only the first type is consulted by extractors.
type Item struct {
	Type       []string           `json:"type,omitempty"`
	ID         string             `json:"id,omitempty"`
	Properties map[string][]Value `json:"properties,omitempty"`
}

// Value is one property value: either a scalar string or a nested Item.
type Value struct {
	Text string
	Item *Item
}

// TextValue returns a scalar Value.
func TextValue(s string) Value {
	return Value{Text: s}
}

// ItemValue returns a Value wrapping a nested Item.
func ItemValue(item *Item) Value {
	return Value{Item: item}
}

// IsItem reports whether v holds a nested Item.
func (v Value) IsItem() bool {
	return v.Item != nil
}

// MarshalJSON encodes a scalar as a JSON string and an Item as an object.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.Item != nil {
		return json.Marshal(v.Item)
	}
	return json.Marshal(v.Text)
}

// UnmarshalJSON accepts a JSON object (nested Item), a string, or any other
// scalar, which is kept as its literal text.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*v = Value{}

	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")):
		return nil
	case data[0] == '{':
		var item Item
		if err := json.Unmarshal(data, &item); err != nil {
			return err
		}
		v.Item = &item
		return nil
	case data[0] == '"':
		return json.Unmarshal(data, &v.Text)
	default:
		v.Text = string(data)
		return nil
	}
}

// NewItem creates an empty Item with the given types.
func NewItem(types ...string) *Item {
	return &Item{
		Type:       types,
		Properties: make(map[string][]Value),
	}
}

// AddText appends scalar values under name.
func (it *Item) AddText(name string, texts ...string) *Item {
	for _, s := range texts {
		it.add(name, TextValue(s))
	}
	return it
}

// AddItem appends nested Items under name.
func (it *Item) AddItem(name string, items ...*Item) *Item {
	for _, child := range items {
		it.add(name, ItemValue(child))
	}
	return it
}

// Add appends a Value under name.
func (it *Item) Add(name string, v Value) *Item {
	it.add(name, v)
	return it
}

func (it *Item) add(name string, v Value) {
	if it.Properties == nil {
		it.Properties = make(map[string][]Value)
	}
	it.Properties[name] = append(it.Properties[name], v)
}

// FirstType returns the first type URI, or "".
func (it *Item) FirstType() string {
	if it == nil || len(it.Type) == 0 {
		return ""
	}
	return it.Type[0]
}

// Has reports whether the property key exists, even with no values.
func (it *Item) Has(name string) bool {
	if it == nil {
		return false
	}
	_, ok := it.Properties[name]
	return ok
}

// Values returns every value under name.
func (it *Item) Values(name string) []Value {
	if it == nil {
		return nil
	}
	return it.Properties[name]
}

// Texts returns the scalar values under name, skipping nested Items.
func (it *Item) Texts(name string) []string {
	var out []string
	for _, v := range it.Values(name) {
		if !v.IsItem() {
			out = append(out, v.Text)
		}
	}
	return out
}

// FirstText returns the first value under name when it is a non-empty scalar.
func (it *Item) FirstText(name string) (string, bool) {
	values := it.Values(name)
	if len(values) == 0 || values[0].IsItem() || values[0].Text == "" {
		return "", false
	}
	return values[0].Text, true
}

// Items returns the nested Items under name, skipping scalars.
func (it *Item) Items(name string) []*Item {
	var out []*Item
	for _, v := range it.Values(name) {
		if v.IsItem() {
			out = append(out, v.Item)
		}
	}
	return out
}

// FirstItem returns the first value under name when it is a nested Item.
func (it *Item) FirstItem(name string) *Item {
	values := it.Values(name)
	if len(values) == 0 || !values[0].IsItem() {
		return nil
	}
	return values[0].Item
}
