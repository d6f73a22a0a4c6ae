package metastore

import "encoding/json"

// rawJSON is an opaque JSON blob the metastore carries without interpreting,
// e.g. the encoder-defined schema in IndexConfig.
type rawJSON = json.RawMessage

// unmarshalWithExtras decodes data into known (a pointer to a plain struct
// with json tags), then separately decodes data into a generic field map so
// any key known doesn't account for can be preserved verbatim. This is how
// spec.md §6's "unknown fields preserved on read and echoed on write" is
// implemented without hand-maintaining a parallel field list per type.
func unmarshalWithExtras(data []byte, known any) (map[string]rawJSON, error) {
	if err := json.Unmarshal(data, known); err != nil {
		return nil, err
	}

	var all map[string]rawJSON
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}

	knownBytes, err := json.Marshal(known)
	if err != nil {
		return nil, err
	}

	var knownFields map[string]rawJSON
	if err := json.Unmarshal(knownBytes, &knownFields); err != nil {
		return nil, err
	}

	var extra map[string]rawJSON
	for key, val := range all {
		if _, ok := knownFields[key]; ok {
			continue
		}
		if extra == nil {
			extra = make(map[string]rawJSON)
		}
		extra[key] = val
	}

	return extra, nil
}

// marshalWithExtras marshals known, then merges in any extra fields that
// aren't already present among known's own fields.
func marshalWithExtras(known any, extra map[string]rawJSON) ([]byte, error) {
	knownBytes, err := json.Marshal(known)
	if err != nil {
		return nil, err
	}
	if len(extra) == 0 {
		return knownBytes, nil
	}

	var merged map[string]rawJSON
	if err := json.Unmarshal(knownBytes, &merged); err != nil {
		return nil, err
	}

	for key, val := range extra {
		if _, exists := merged[key]; !exists {
			merged[key] = val
		}
	}

	return json.Marshal(merged)
}
