package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// Record is one exported key/value pair. Values that hold a JSON object,
// array, number, bool or null are embedded as-is; anything else, JSON
// strings included, is exported as a JSON string of the stored text.
type Record struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// Export returns every record whose key starts with prefix.
func Export(ctx context.Context, kv KV, prefix string) ([]Record, error) {
	keys, err := kv.Keys(ctx, prefix)
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(keys))
	for _, k := range keys {
		v, ok, err := kv.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		raw := json.RawMessage(v)
		if !json.Valid(raw) || isString(raw) {
			raw, _ = json.Marshal(v)
		}
		records = append(records, Record{Key: k, Value: raw})
	}
	return records, nil
}

// Import writes records back into kv, overwriting existing keys. A JSON
// string value is stored as the text it encodes.
func Import(ctx context.Context, kv KV, records []Record) (int, error) {
	imported := 0
	for _, r := range records {
		v := string(r.Value)
		if isString(r.Value) {
			if err := json.Unmarshal(r.Value, &v); err != nil {
				return imported, fmt.Errorf("record %s: %w", r.Key, err)
			}
		}
		if err := kv.Set(ctx, r.Key, v); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}

func isString(raw json.RawMessage) bool {
	return bytes.HasPrefix(bytes.TrimSpace(raw), []byte(`"`))
}
