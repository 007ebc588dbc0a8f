package vectorizer

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/happyhackingspace/maxent/model"
)

// FromDict converts a decoded JSON object to features sorted by name:
//
//	"k": "v"        -> k=v with value 1
//	"k": true       -> k with value 1 (false adds nothing)
//	"k": 0.5        -> k with value 0.5
//	"k": ["a", "b"] -> k=a and k=b with value 1
//	"k": null       -> nothing
//
// Nested objects and non-string list elements are rejected.
func FromDict(d map[string]any) ([]model.NamedValue, error) {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out []model.NamedValue
	for _, k := range keys {
		switch v := d[k].(type) {
		case nil:
		case string:
			out = append(out, model.NamedValue{Name: featureKey(k, v), Value: 1})
		case bool:
			if v {
				out = append(out, model.NamedValue{Name: k, Value: 1})
			}
		case []string:
			for _, s := range v {
				out = append(out, model.NamedValue{Name: featureKey(k, s), Value: 1})
			}
		case []any:
			for _, e := range v {
				s, ok := e.(string)
				if !ok {
					return nil, fmt.Errorf("feature %q: list element %v is not a string", k, e)
				}
				out = append(out, model.NamedValue{Name: featureKey(k, s), Value: 1})
			}
		default:
			x, err := featureValue(v)
			if err != nil {
				return nil, fmt.Errorf("feature %q: %w", k, err)
			}
			out = append(out, model.NamedValue{Name: k, Value: x})
		}
	}
	sortByName(out)
	return out, nil
}

// featureKey returns the compound key "name=value" used for string values.
func featureKey(name, value string) string {
	return name + "=" + value
}

func featureValue(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	default:
		return 0, fmt.Errorf("unsupported value type %T", value)
	}
}

// Concat joins feature lists and sorts the result by name. Features with
// the same name are summed.
func Concat(parts ...[]model.NamedValue) []model.NamedValue {
	sum := make(map[string]float64)
	for _, part := range parts {
		for _, f := range part {
			sum[f.Name] += f.Value
		}
	}
	out := make([]model.NamedValue, 0, len(sum))
	for name, v := range sum {
		out = append(out, model.NamedValue{Name: name, Value: v})
	}
	sortByName(out)
	return out
}
