package game

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Extras keeps backend attributes that have no dedicated Object field, as
// raw JSON keyed by attribute name.
type Extras map[string]json.RawMessage

// Get decodes attribute name into out and reports whether it was present.
// A JSON null counts as absent.
func (e Extras) Get(name string, out any) (bool, error) {
	raw, ok := e[name]
	if !ok || len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return false, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("decoding attribute %q: %w", name, err)
	}
	return true, nil
}

// Values decodes every attribute into plain values for display. Attributes
// that are null or fail to decode are left out.
func (e Extras) Values() map[string]any {
	vals := make(map[string]any, len(e))
	for name := range e {
		var v any
		if ok, err := e.Get(name, &v); ok && err == nil {
			vals[name] = v
		}
	}
	return vals
}
