package chaintab

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/sugawarayuuta/sonnet"
)

// FromMap replaces the content of the table with the entries of source,
// going through ClearAndLoad.
func (t *Table[K, V]) FromMap(source map[K]V) error {
	keys := make([]K, 0, len(source))
	values := make([]V, 0, len(source))
	for k, v := range source {
		keys = append(keys, k)
		values = append(values, v)
	}
	return t.ClearAndLoad(keys, values)
}

// String Implement the formatting output interface for fmt.Print %v
func (t *Table[K, V]) String() string {
	return strings.Replace(fmt.Sprint(t.ToMap()), "map[", "Table[", 1)
}

// MarshalJSON encodes the table as a JSON object, like a map[K]V.
func (t *Table[K, V]) MarshalJSON() ([]byte, error) {
	data, err := sonnet.Marshal(t.ToMap())
	if err != nil {
		return nil, errors.Wrap(err, "chaintab: marshal")
	}
	return data, nil
}

// UnmarshalJSON decodes a JSON object and bulk loads it, replacing the
// content of the table.
func (t *Table[K, V]) UnmarshalJSON(data []byte) error {
	var m map[K]V
	if err := sonnet.Unmarshal(data, &m); err != nil {
		return errors.Wrap(err, "chaintab: unmarshal")
	}
	return t.FromMap(m)
}
