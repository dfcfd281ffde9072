package chatlog

import (
	"encoding/json"
	"strconv"
)

// Record is one Slack event as decoded from JSON. Fields present depend on
// the event type and subtype. Records are never mutated.
type Record map[string]any

// DecodeRecord unmarshals a raw event payload into a Record.
func DecodeRecord(data []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Str returns the string stored under key.
func (r Record) Str(key string) Lookup {
	s, ok := r[key].(string)
	if !ok {
		return Missing
	}
	return Found(s)
}

// Rec returns the nested record stored under key.
func (r Record) Rec(key string) (Record, bool) {
	switch v := r[key].(type) {
	case map[string]any:
		return Record(v), true
	case Record:
		return v, true
	}
	return nil, false
}

// Recs returns the nested records stored under key, skipping elements that
// are not records.
func (r Record) Recs(key string) []Record {
	switch v := r[key].(type) {
	case []any:
		out := make([]Record, 0, len(v))
		for _, el := range v {
			switch m := el.(type) {
			case map[string]any:
				out = append(out, Record(m))
			case Record:
				out = append(out, m)
			}
		}
		return out
	case []map[string]any:
		out := make([]Record, 0, len(v))
		for _, m := range v {
			out = append(out, Record(m))
		}
		return out
	case []Record:
		return v
	}
	return nil
}

// Bool returns the boolean stored under key.
func (r Record) Bool(key string) (bool, bool) {
	b, ok := r[key].(bool)
	return b, ok
}

// Int returns the integer stored under key. JSON numbers decode as float64;
// numeric strings are accepted too.
func (r Record) Int(key string) (int64, bool) {
	switch v := r[key].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	case json.Number:
		n, err := v.Int64()
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	}
	return 0, false
}
