package types

import (
	"bytes"
	"encoding/json"
)

// Record is one classified unit of pipeline output: either a complete JSON
// value together with the number of source lines it consumed, or a verbatim
// text line passed through unchanged.
type Record interface {
	// MatchText returns the canonical string filter patterns are tested
	// against: the compact serialization for JSON records, the verbatim
	// line for text records.
	MatchText() string
}

// JSONRecord holds a complete JSON value as its original source bytes.
// Keeping the raw bytes rather than a decoded tree preserves object key
// order, number formatting and string escapes end to end.
type JSONRecord struct {
	Value           json.RawMessage
	SourceLineCount int

	compact []byte
}

// NewJSONRecord builds a record from validated JSON source bytes.
func NewJSONRecord(value []byte, sourceLineCount int) *JSONRecord {
	return &JSONRecord{Value: value, SourceLineCount: sourceLineCount}
}

// Compact returns the single-line canonical serialization of the value.
// The result is computed once and cached on the record.
func (r *JSONRecord) Compact() []byte {
	if r.compact == nil {
		var buf bytes.Buffer
		if err := json.Compact(&buf, r.Value); err != nil {
			// Value is validated before a record is built, so this only
			// happens on a programming error upstream.
			r.compact = r.Value
		} else {
			r.compact = buf.Bytes()
		}
	}
	return r.compact
}

// MatchText returns the compact serialization of the value.
func (r *JSONRecord) MatchText() string {
	return string(r.Compact())
}

// TextRecord is a non-JSON line, preserved verbatim.
type TextRecord struct {
	Text string
}

// MatchText returns the verbatim line.
func (r *TextRecord) MatchText() string {
	return r.Text
}
