package microdata

import (
	"bytes"
	"encoding/json"

	"github.com/cockroachdb/errors"

	"github.com/ppiankov/kinscan/internal/model"
)

type itemsDocument struct {
	Items []*model.Item `json:"items"`
}

// DecodeItems reads microdata items encoded as JSON, either the
// {"items": [...]} document form or a bare array. Null entries are dropped.
func DecodeItems(data []byte) ([]*model.Item, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("decode items: empty input")
	}

	var items []*model.Item
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, errors.Wrap(err, "decode items")
		}
	case '{':
		var doc itemsDocument
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, errors.Wrap(err, "decode items")
		}
		items = doc.Items
	default:
		return nil, errors.Newf("decode items: expected a JSON object or array, got %q", data[0])
	}

	out := make([]*model.Item, 0, len(items))
	for _, it := range items {
		if it != nil {
			out = append(out, it)
		}
	}
	return out, nil
}

// EncodeItems writes items in the {"items": [...]} document form.
func EncodeItems(items []*model.Item) ([]byte, error) {
	if items == nil {
		items = []*model.Item{}
	}
	data, err := json.MarshalIndent(itemsDocument{Items: items}, "", "  ")
	if err != nil {
		return nil, errors.Wrap(err, "encode items")
	}
	return data, nil
}
