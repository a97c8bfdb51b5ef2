package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Record is a structured value owned by the remote service. Requirements,
// pricing snapshots and order confirmations travel as Records so fields the
// client does not know about survive a round trip untouched.
type Record map[string]any

// DecodeRecord parses a JSON object. Numbers are kept as json.Number so
// records sent back to the service, such as requirements, carry their
// numbers as received. Prices read through Float are float64.
func DecodeRecord(data []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var rec Record
	if err := dec.Decode(&rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if rec == nil {
		return nil, fmt.Errorf("decode record: %w", ErrNotAnObject)
	}
	return rec, nil
}

// String returns the value at key if it is a non-empty string.
func (r Record) String(key string) (string, bool) {
	s, ok := r[key].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// Float returns the value at key if it is numeric.
func (r Record) Float(key string) (float64, bool) {
	switch v := r[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		// Some services quote decimals to keep precision.
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}

// Record returns the nested object at key. A JSON null counts as absent.
func (r Record) Record(key string) (Record, bool) {
	switch v := r[key].(type) {
	case Record:
		return v, v != nil
	case map[string]any:
		return Record(v), v != nil
	}
	return nil, false
}

// Records returns the list of objects at key. An empty list is present and
// yields a non-nil empty slice; null, a missing key or a list holding
// non-objects yields ok=false.
func (r Record) Records(key string) ([]Record, bool) {
	switch v := r[key].(type) {
	case []Record:
		if v == nil {
			return nil, false
		}
		return v, true
	case []any:
		if v == nil {
			return nil, false
		}
		out := make([]Record, 0, len(v))
		for _, item := range v {
			switch obj := item.(type) {
			case Record:
				out = append(out, obj)
			case map[string]any:
				out = append(out, Record(obj))
			default:
				return nil, false
			}
		}
		return out, true
	}
	return nil, false
}

// Clone returns a deep copy. Nested maps and slices are copied so callers
// can hold a snapshot while the owner keeps mutating.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

// CloneRecords deep-copies a list, preserving nil-ness.
func CloneRecords(in []Record) []Record {
	if in == nil {
		return nil
	}
	out := make([]Record, len(in))
	for i, rec := range in {
		out[i] = rec.Clone()
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Record:
		return t.Clone()
	case map[string]any:
		return map[string]any(Record(t).Clone())
	case []Record:
		return CloneRecords(t)
	case []any:
		if t == nil {
			return t
		}
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	}
	return v
}
