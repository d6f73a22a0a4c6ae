package indexiface

import (
	"encoding/json"
	"fmt"
)

// Document is a parsed document: field name to value, restricted to the
// types json.Unmarshal produces into an `any` (string, float64, bool,
// []any, map[string]any, nil).
type Document map[string]any

// ParseDocument decodes raw against schema, per spec.md §4.5's "parses
// each raw doc through the index config". Fields absent from schema are
// dropped silently (schema-less extra data is not an error, matching a
// permissive ingest contract); a fast field whose value isn't numeric is
// an error, since a non-numeric value can never be indexed in a
// column-oriented fast-field slice.
func ParseDocument(schema *Schema, raw json.RawMessage) (Document, error) {
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("indexiface: parse document: %w", err)
	}

	doc := make(Document, len(decoded))
	for name, val := range decoded {
		fe, ok := schema.Field(name)
		if !ok {
			continue
		}
		if fe.Fast {
			if _, ok := toInt64(val); !ok {
				return nil, fmt.Errorf(
					"indexiface: field %q is a fast field but value %v is not numeric",
					name, val,
				)
			}
		}
		doc[name] = val
	}

	return doc, nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}
