package extractors

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/socops/sochub/internal/models"
)

type object map[string]json.RawMessage

// objects decodes doc[key] as a list and returns its object elements. A missing
// key, a non-list value or non-object elements all degrade to fewer results.
func objects(doc models.Document, key string) []object {
	raw, ok := doc[key]
	if !ok {
		return nil
	}
	return objectList(raw)
}

func objectList(raw json.RawMessage) []object {
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]object, 0, len(items))
	for _, item := range items {
		var obj object
		if err := json.Unmarshal(item, &obj); err != nil || obj == nil {
			continue
		}
		out = append(out, obj)
	}
	return out
}

func (o object) value(key string) any {
	raw, ok := o[key]
	if !ok {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

// str reads a string field. Numbers are rendered; anything else reads as "".
func (o object) str(key string) string {
	switch v := o.value(key).(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return ""
	}
}

// num reads a numeric field. Numeric strings are parsed; anything else reads as 0.
func (o object) num(key string) float64 {
	switch v := o.value(key).(type) {
	case float64:
		return v
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func (o object) obj(key string) object {
	raw, ok := o[key]
	if !ok {
		return object{}
	}
	var nested object
	if err := json.Unmarshal(raw, &nested); err != nil || nested == nil {
		return object{}
	}
	return nested
}

func (o object) list(key string) []object {
	raw, ok := o[key]
	if !ok {
		return nil
	}
	return objectList(raw)
}

func (o object) strs(key string) []string {
	raw, ok := o[key]
	if !ok {
		return nil
	}
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
