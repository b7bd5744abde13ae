package types

// Record maps field names to string values. All table fields are
// string-valued; numeric interpretation is the caller's concern.
type Record map[string]string

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// System fields maintained by the row store on every row. They are not
// part of any schema and are never indexed.
const (
	FieldCreatedAt = "_created_at"
	FieldUpdatedAt = "_updated_at"
)

// IsSystemField reports whether name is one of the row store's system
// fields.
func IsSystemField(name string) bool {
	return name == FieldCreatedAt || name == FieldUpdatedAt
}

// Row pairs a table-scoped id with the row's current field values,
// system fields included.
type Row struct {
	ID   string `json:"id"`
	Data Record `json:"data"`
}

// ScoredMember is one entry of a sorted index: a member string ordered by
// its numeric score, ties broken lexically by member.
type ScoredMember struct {
	Member string  `json:"member"`
	Score  float64 `json:"score"`
}
