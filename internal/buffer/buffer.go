// Package buffer implements the boundary detector that segments a line
// stream into JSON and text records under strictly bounded memory.
package buffer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jlif/jlif/pkg/types"
)

// LineBuffer is the detector's state machine. It is either empty or
// accumulating a candidate multi-line JSON value, and never holds more than
// its configured capacity of lines between calls.
//
// Per incoming line with an empty buffer: a line that parses alone as a
// complete JSON value becomes a JSONRecord; a line whose first
// non-whitespace character is '{', '[' or '"' starts accumulating; anything
// else passes through as a TextRecord. While accumulating, each new line is
// appended and the joined buffer is re-parsed; reaching capacity without a
// parse triggers the overflow drain.
type LineBuffer struct {
	lines    []string
	capacity int
}

// New creates a LineBuffer holding at most capacity lines.
func New(capacity int) (*LineBuffer, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("buffer capacity must be at least 1, got %d", capacity)
	}
	return &LineBuffer{capacity: capacity}, nil
}

// Add feeds one line through the state machine and returns the records that
// resolved on this step, in emission order. A nil result means the line was
// buffered as part of a candidate multi-line JSON value; this is the only
// point where a line does not immediately resolve to a record.
func (b *LineBuffer) Add(line string) []types.Record {
	if len(b.lines) == 0 {
		return b.classify(line)
	}

	b.lines = append(b.lines, line)
	if rec := b.tryParse(); rec != nil {
		b.lines = nil
		return []types.Record{rec}
	}
	if len(b.lines) < b.capacity {
		return nil
	}
	return b.drain(line)
}

// Discard drops any accumulated lines without emitting them and returns the
// number dropped. Content classified as a candidate JSON start already
// skipped its text passthrough, so at end of stream it is not recoverable;
// callers surface the count through logs and metrics instead.
func (b *LineBuffer) Discard() int {
	n := len(b.lines)
	b.lines = nil
	return n
}

// Len returns the number of lines currently buffered.
func (b *LineBuffer) Len() int {
	return len(b.lines)
}

// Capacity returns the configured maximum number of buffered lines.
func (b *LineBuffer) Capacity() int {
	return b.capacity
}

// classify handles a line arriving while the buffer is empty.
func (b *LineBuffer) classify(line string) []types.Record {
	trimmed := strings.TrimSpace(line)
	if trimmed != "" && json.Valid([]byte(trimmed)) {
		return []types.Record{types.NewJSONRecord([]byte(trimmed), 1)}
	}
	if couldBeJSONStart(trimmed) {
		b.lines = append(b.lines, line)
		return nil
	}
	return []types.Record{&types.TextRecord{Text: line}}
}

// drain applies the overflow policy: evict the oldest line as a TextRecord
// and re-attempt a full parse of what remains, until something parses or
// only the line that triggered the overflow is left. That line is then
// reclassified exactly as if it had just arrived at an empty buffer, so it
// may itself open a fresh candidate value. Every overflow strictly reduces
// buffered content, which guarantees forward progress.
func (b *LineBuffer) drain(incoming string) []types.Record {
	records := make([]types.Record, 0, len(b.lines))
	for len(b.lines) > 1 {
		records = append(records, &types.TextRecord{Text: b.lines[0]})
		b.lines = b.lines[1:]
		if rec := b.tryParse(); rec != nil {
			b.lines = nil
			return append(records, rec)
		}
	}
	b.lines = nil
	return append(records, b.classify(incoming)...)
}

// tryParse attempts to parse the joined buffer as one complete JSON value.
// Lines are rejoined with their original line breaks so that
// formatting-sensitive content parses the way it appeared in the input.
func (b *LineBuffer) tryParse() *types.JSONRecord {
	joined := strings.TrimSpace(strings.Join(b.lines, "\n"))
	if joined == "" || !json.Valid([]byte(joined)) {
		return nil
	}
	return types.NewJSONRecord([]byte(joined), len(b.lines))
}

// couldBeJSONStart reports whether a trimmed line could open a multi-line
// JSON value. Scalar literals (numbers, booleans, null) must parse on a
// single line and are never buffered.
func couldBeJSONStart(trimmed string) bool {
	if trimmed == "" {
		return false
	}
	switch trimmed[0] {
	case '{', '[', '"':
		return true
	}
	return false
}
