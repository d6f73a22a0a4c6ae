// Package metastore implements the authoritative index/split state of
// spec.md §4.3: a single JSON file per metastore root holding one
// IndexMetadata and a map of SplitMetadata, mutated only under an exclusive
// write lock and persisted before every mutating call returns.
package metastore

// SplitState is one of the split lifecycle states from spec.md §3,
// serialized as its lowercase-hyphenated name per spec.md §6.
type SplitState string

const (
	SplitNew                  SplitState = "new"
	SplitStaged               SplitState = "staged"
	SplitPublished            SplitState = "published"
	SplitScheduledForDeletion SplitState = "scheduled-for-deletion"
)

// TimeRange is the inclusive [min, max] signed-64-bit timestamp range a
// split covers, when its documents carry a timestamp field.
type TimeRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// Intersects reports whether the range overlaps other.
func (r TimeRange) Intersects(other TimeRange) bool {
	return r.Min <= other.Max && other.Min <= r.Max
}

// Checkpoint is the per-partition high-water mark of spec.md §3: opaque,
// source-defined position bytes, merged per partition as new progress is
// published.
type Checkpoint struct {
	PerPartitionPosition map[string][]byte `json:"per_partition_position,omitempty"`
}

// Merge applies src into c, overwriting each partition's position with src's
// value. The metastore treats positions as opaque bytes (no ordering
// comparison is possible here); callers are responsible for only ever
// submitting a monotonically advancing position for a given partition, per
// spec.md §3.
func (c *Checkpoint) Merge(src Checkpoint) {
	if len(src.PerPartitionPosition) == 0 {
		return
	}
	if c.PerPartitionPosition == nil {
		c.PerPartitionPosition = make(map[string][]byte, len(src.PerPartitionPosition))
	}
	for partition, pos := range src.PerPartitionPosition {
		c.PerPartitionPosition[partition] = pos
	}
}

// IndexConfig captures the schema-adjacent knobs the metastore needs to know
// about without understanding the encoder itself (out of scope per spec.md
// §1): the default search fields and an optional timestamp field name. The
// schema itself is opaque to the metastore, carried as a JSON blob produced
// by internal/indexiface's caller.
type IndexConfig struct {
	DefaultSearchFields []string `json:"default_search_fields,omitempty"`
	TimestampField      *string  `json:"timestamp_field,omitempty"`
	Schema              rawJSON  `json:"schema,omitempty"`
}

// IndexMetadata is immutable once created, per spec.md §3.
type IndexMetadata struct {
	IndexID     string      `json:"index_id"`
	IndexURI    string      `json:"index_uri"`
	IndexConfig IndexConfig `json:"index_config"`

	extra map[string]rawJSON
}

// MarshalJSON implements json.Marshaler, re-attaching any unknown fields
// preserved from a prior read (spec.md §6's forward-compatibility rule).
func (m IndexMetadata) MarshalJSON() ([]byte, error) {
	type alias IndexMetadata
	return marshalWithExtras(alias(m), m.extra)
}

// UnmarshalJSON implements json.Unmarshaler, stashing any fields this
// version of the type doesn't know about so they can be echoed back on
// write.
func (m *IndexMetadata) UnmarshalJSON(data []byte) error {
	type alias IndexMetadata
	var a alias
	extra, err := unmarshalWithExtras(data, &a)
	if err != nil {
		return err
	}
	*m = IndexMetadata(a)
	m.extra = extra
	return nil
}

// SplitMetadata is the unit of atomicity in the index, per spec.md §3.
//
// Tags and FooterStartEnd are additive fields restored from
// original_source/quickwit-metastore. Tags is carried and persisted with the
// split, but nothing in this module sets it or prunes on it. FooterStartEnd
// is set by the uploader to [0, hot-cache size]; internal/directory does not
// read it. Neither changes any spec invariant.
type SplitMetadata struct {
	SplitID         string     `json:"split_id"`
	State           SplitState `json:"state"`
	NumRecords      uint64     `json:"num_records"`
	SizeInBytes     uint64     `json:"size_in_bytes"`
	TimeRange       *TimeRange `json:"time_range,omitempty"`
	Generation      uint64     `json:"generation"`
	UpdateTimestamp int64      `json:"update_timestamp"`
	Checkpoint      Checkpoint `json:"checkpoint"`
	Tags            []string   `json:"tags,omitempty"`
	FooterStartEnd  []uint64   `json:"footer_start_end,omitempty"`

	extra map[string]rawJSON
}

func (m SplitMetadata) MarshalJSON() ([]byte, error) {
	type alias SplitMetadata
	return marshalWithExtras(alias(m), m.extra)
}

func (m *SplitMetadata) UnmarshalJSON(data []byte) error {
	type alias SplitMetadata
	var a alias
	extra, err := unmarshalWithExtras(data, &a)
	if err != nil {
		return err
	}
	*m = SplitMetadata(a)
	m.extra = extra
	return nil
}
