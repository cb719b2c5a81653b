package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// listOf decodes either a bare JSON array or an envelope keyed by one of keys.
type listOf[T any] struct {
	items []T
	keys  []string
}

func (l *listOf[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, &l.items)
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return err
	}
	for _, key := range append(l.keys, "items", "data", "results") {
		raw, ok := envelope[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, &l.items); err != nil {
			return fmt.Errorf("decode %q: %w", key, err)
		}
		return nil
	}
	l.items = nil
	return nil
}
