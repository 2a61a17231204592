package editing

import (
	"encoding/json"
	"maps"
	"reflect"
	"slices"
)

const (
	FieldID      = "id"
	FieldVersion = "version"
)

// Fields is the JSON object form of an editable resource.
type Fields map[string]any

// ID returns the resource id, or 0 for resources that were never saved.
func (f Fields) ID() int { return intValue(f[FieldID]) }

// Version returns the version stamp.
func (f Fields) Version() int { return intValue(f[FieldVersion]) }

// HasID reports whether the resource exists on the server.
func (f Fields) HasID() bool { return f.ID() != 0 }

// Pick returns the subset of f named by keys. Missing keys are skipped.
func (f Fields) Pick(keys ...string) Fields {
	out := Fields{}
	for _, key := range keys {
		if v, ok := f[key]; ok {
			out[key] = cloneValue(v)
		}
	}
	return out
}

// Omit returns a copy of f without keys.
func (f Fields) Omit(keys ...string) Fields {
	out := f.Clone()
	for _, key := range keys {
		delete(out, key)
	}
	return out
}

// Merge returns a copy of f overlaid with other.
func (f Fields) Merge(other Fields) Fields {
	out := f.Clone()
	for k, v := range other {
		out[k] = cloneValue(v)
	}
	return out
}

// Clone deep-copies nested maps and slices.
func (f Fields) Clone() Fields {
	if f == nil {
		return Fields{}
	}
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = cloneValue(v)
	}
	return out
}

// Keys returns the sorted field names.
func (f Fields) Keys() []string {
	return slices.Sorted(maps.Keys(f))
}

// Equal compares two values field by field.
func (f Fields) Equal(other Fields) bool {
	return reflect.DeepEqual(normalize(f), normalize(other))
}

// Decode converts f into a typed value through its JSON form.
func (f Fields) Decode(target any) error {
	raw, err := json.Marshal(f)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, target)
}

// FieldsOf converts a typed value into Fields through its JSON form.
func FieldsOf(v any) (Fields, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out Fields
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case Fields:
		return t.Clone()
	case map[string]any:
		return map[string]any(Fields(t).Clone())
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case []string:
		return slices.Clone(t)
	default:
		return v
	}
}

func valuesEqual(a, b any) bool {
	return reflect.DeepEqual(normalizeValue(a), normalizeValue(b))
}

func normalize(f Fields) map[string]any {
	out := make(map[string]any, len(f))
	for k, v := range f {
		out[k] = normalizeValue(v)
	}
	return out
}

// normalizeValue folds numeric types so 3 and 3.0 compare equal after a JSON trip.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case int32:
		return float64(t)
	case Fields:
		return normalize(t)
	case map[string]any:
		return normalize(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = normalizeValue(item)
		}
		return out
	default:
		return v
	}
}

func intValue(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case int32:
		return int(t)
	case float64:
		return int(t)
	case json.Number:
		n, _ := t.Int64()
		return int(n)
	}
	return 0
}
