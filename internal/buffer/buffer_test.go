package buffer

import (
	"strings"
	"testing"

	"github.com/jlif/jlif/pkg/types"
)

func mustNew(t *testing.T, capacity int) *LineBuffer {
	t.Helper()
	b, err := New(capacity)
	if err != nil {
		t.Fatalf("New(%d) failed: %v", capacity, err)
	}
	return b
}

func jsonRecord(t *testing.T, rec types.Record) *types.JSONRecord {
	t.Helper()
	jr, ok := rec.(*types.JSONRecord)
	if !ok {
		t.Fatalf("expected JSONRecord, got %T", rec)
	}
	return jr
}

func textRecord(t *testing.T, rec types.Record) *types.TextRecord {
	t.Helper()
	tr, ok := rec.(*types.TextRecord)
	if !ok {
		t.Fatalf("expected TextRecord, got %T", rec)
	}
	return tr
}

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		wantErr  bool
	}{
		{name: "capacity one", capacity: 1, wantErr: false},
		{name: "default capacity", capacity: 10, wantErr: false},
		{name: "zero capacity", capacity: 0, wantErr: true},
		{name: "negative capacity", capacity: -3, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.capacity)
			if (err != nil) != tt.wantErr {
				t.Errorf("New(%d) error = %v, wantErr %v", tt.capacity, err, tt.wantErr)
			}
		})
	}
}

func TestPlainTextPassthrough(t *testing.T) {
	b := mustNew(t, 10)

	records := b.Add("just an ordinary log line")
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	tr := textRecord(t, records[0])
	if tr.Text != "just an ordinary log line" {
		t.Errorf("text altered: %q", tr.Text)
	}
	if b.Len() != 0 {
		t.Errorf("buffer not empty after text line: %d lines", b.Len())
	}
}

func TestEmptyLineIsText(t *testing.T) {
	b := mustNew(t, 10)

	for _, line := range []string{"", "   ", "\t"} {
		records := b.Add(line)
		if len(records) != 1 {
			t.Fatalf("Add(%q): expected 1 record, got %d", line, len(records))
		}
		if got := textRecord(t, records[0]).Text; got != line {
			t.Errorf("Add(%q): text altered to %q", line, got)
		}
	}
}

func TestSingleLineJSONValues(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string // expected raw value after trimming
	}{
		{name: "object", input: `{"a":1}`, want: `{"a":1}`},
		{name: "array", input: `[1, 2, 3]`, want: `[1, 2, 3]`},
		{name: "string", input: `"hello"`, want: `"hello"`},
		{name: "integer", input: "47", want: "47"},
		{name: "negative integer", input: "-2375", want: "-2375"},
		{name: "float", input: "3.14159", want: "3.14159"},
		{name: "true", input: "true", want: "true"},
		{name: "false", input: "false", want: "false"},
		{name: "null", input: "null", want: "null"},
		{name: "surrounding whitespace", input: `   {"a": 1}  `, want: `{"a": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := mustNew(t, 10)
			records := b.Add(tt.input)
			if len(records) != 1 {
				t.Fatalf("expected 1 record, got %d", len(records))
			}
			jr := jsonRecord(t, records[0])
			if string(jr.Value) != tt.want {
				t.Errorf("value = %q, want %q", jr.Value, tt.want)
			}
			if jr.SourceLineCount != 1 {
				t.Errorf("source line count = %d, want 1", jr.SourceLineCount)
			}
			if b.Len() != 0 {
				t.Errorf("buffer not empty: %d lines", b.Len())
			}
		})
	}
}

func TestCandidateStartBuffers(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "open brace", line: "{"},
		{name: "open bracket", line: "["},
		{name: "quote", line: `"unterminated`},
		{name: "indented brace", line: "   {"},
		{name: "brace with garbage", line: "{not json at all}"},
		{name: "prefix match with trailing garbage", line: `"foo" garbage`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := mustNew(t, 10)
			records := b.Add(tt.line)
			if records != nil {
				t.Fatalf("expected no records, got %d", len(records))
			}
			if b.Len() != 1 {
				t.Errorf("buffer length = %d, want 1", b.Len())
			}
		})
	}
}

func TestScalarLiteralsNeverBuffer(t *testing.T) {
	// A line starting like a number or literal that fails to parse alone is
	// text, not a candidate.
	b := mustNew(t, 10)

	for _, line := range []string{"42abc", "true story", "null and void", "-almost"} {
		records := b.Add(line)
		if len(records) != 1 {
			t.Fatalf("Add(%q): expected 1 record, got %d", line, len(records))
		}
		textRecord(t, records[0])
		if b.Len() != 0 {
			t.Errorf("Add(%q): buffer not empty", line)
		}
	}
}

func TestMultiLineAssembly(t *testing.T) {
	b := mustNew(t, 10)

	if records := b.Add("{"); records != nil {
		t.Fatalf("line 1: expected no records, got %d", len(records))
	}
	if records := b.Add(`  "a": 1`); records != nil {
		t.Fatalf("line 2: expected no records, got %d", len(records))
	}

	records := b.Add("}")
	if len(records) != 1 {
		t.Fatalf("line 3: expected 1 record, got %d", len(records))
	}
	jr := jsonRecord(t, records[0])
	if jr.SourceLineCount != 3 {
		t.Errorf("source line count = %d, want 3", jr.SourceLineCount)
	}
	if got := string(jr.Compact()); got != `{"a":1}` {
		t.Errorf("compact value = %q, want %q", got, `{"a":1}`)
	}
	if b.Len() != 0 {
		t.Errorf("buffer not empty: %d lines", b.Len())
	}
}

func TestMultiLineArray(t *testing.T) {
	b := mustNew(t, 10)

	lines := []string{"[", `  "first",`, `  "second"`, "]"}
	var records []types.Record
	for _, line := range lines {
		records = b.Add(line)
	}

	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	jr := jsonRecord(t, records[0])
	if jr.SourceLineCount != 4 {
		t.Errorf("source line count = %d, want 4", jr.SourceLineCount)
	}
	if got := string(jr.Compact()); got != `["first","second"]` {
		t.Errorf("compact value = %q", got)
	}
}

func TestBoundedMemory(t *testing.T) {
	// The buffer must never hold more than its capacity between calls,
	// whatever the input.
	inputs := []string{
		"{", "[", `"open`, "{more", "plain text", `{"done": true}`,
		"[1,", "2,", "3,", "4,", "5,", "not json", "{", "}",
	}

	for capacity := 1; capacity <= 4; capacity++ {
		b := mustNew(t, capacity)
		for i, line := range inputs {
			b.Add(line)
			if b.Len() > capacity {
				t.Fatalf("capacity %d: after line %d buffer holds %d lines", capacity, i, b.Len())
			}
		}
	}
}

func TestOverflowDrainsOldestFirst(t *testing.T) {
	b := mustNew(t, 2)

	if records := b.Add("{"); records != nil {
		t.Fatalf("line 1: expected no records, got %d", len(records))
	}

	// Overflow: the oldest line drains as text; the incoming line is
	// reclassified and starts a fresh candidate.
	records := b.Add(`"x":`)
	if len(records) != 1 {
		t.Fatalf("line 2: expected 1 record, got %d", len(records))
	}
	if got := textRecord(t, records[0]).Text; got != "{" {
		t.Errorf("drained text = %q, want %q", got, "{")
	}
	if b.Len() != 1 {
		t.Fatalf("buffer length = %d, want 1", b.Len())
	}

	// Next overflow flushes the previous candidate, and the incoming line
	// is plain text.
	records = b.Add("still not json")
	if len(records) != 2 {
		t.Fatalf("line 3: expected 2 records, got %d", len(records))
	}
	if got := textRecord(t, records[0]).Text; got != `"x":` {
		t.Errorf("first drained text = %q, want %q", got, `"x":`)
	}
	if got := textRecord(t, records[1]).Text; got != "still not json" {
		t.Errorf("second text = %q", got)
	}

	records = b.Add(`{"y":2}`)
	if len(records) != 1 {
		t.Fatalf("line 4: expected 1 record, got %d", len(records))
	}
	jr := jsonRecord(t, records[0])
	if got := string(jr.Compact()); got != `{"y":2}` {
		t.Errorf("value = %q", got)
	}
}

func TestOverflowResolvesJSONMidDrain(t *testing.T) {
	b := mustNew(t, 3)

	b.Add("{garbage")
	b.Add("[1,")
	records := b.Add("2]")

	// Evicting the garbage line lets the remaining two parse as an array.
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if got := textRecord(t, records[0]).Text; got != "{garbage" {
		t.Errorf("drained text = %q", got)
	}
	jr := jsonRecord(t, records[1])
	if jr.SourceLineCount != 2 {
		t.Errorf("source line count = %d, want 2", jr.SourceLineCount)
	}
	if got := string(jr.Compact()); got != "[1,2]" {
		t.Errorf("value = %q", got)
	}
	if b.Len() != 0 {
		t.Errorf("buffer not empty: %d lines", b.Len())
	}
}

func TestOverflowIncomingParsesAlone(t *testing.T) {
	b := mustNew(t, 2)

	b.Add("{")
	records := b.Add(`{"v": 1}`)

	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if got := textRecord(t, records[0]).Text; got != "{" {
		t.Errorf("drained text = %q", got)
	}
	jr := jsonRecord(t, records[1])
	if jr.SourceLineCount != 1 {
		t.Errorf("source line count = %d, want 1", jr.SourceLineCount)
	}
}

func TestCapacityOne(t *testing.T) {
	t.Run("two lines can still assemble", func(t *testing.T) {
		b := mustNew(t, 1)
		if records := b.Add("{"); records != nil {
			t.Fatalf("expected no records, got %d", len(records))
		}
		records := b.Add("}")
		if len(records) != 1 {
			t.Fatalf("expected 1 record, got %d", len(records))
		}
		if jr := jsonRecord(t, records[0]); jr.SourceLineCount != 2 {
			t.Errorf("source line count = %d, want 2", jr.SourceLineCount)
		}
	})

	t.Run("non-json drains immediately", func(t *testing.T) {
		b := mustNew(t, 1)
		b.Add("{")
		records := b.Add("junk")
		if len(records) != 2 {
			t.Fatalf("expected 2 records, got %d", len(records))
		}
		if got := textRecord(t, records[0]).Text; got != "{" {
			t.Errorf("first record = %q", got)
		}
		if got := textRecord(t, records[1]).Text; got != "junk" {
			t.Errorf("second record = %q", got)
		}
	})
}

func TestDiscardAtEndOfStream(t *testing.T) {
	b := mustNew(t, 10)

	b.Add("{")
	b.Add(`"unfinished": true`)

	if n := b.Discard(); n != 2 {
		t.Errorf("Discard() = %d, want 2", n)
	}
	if b.Len() != 0 {
		t.Errorf("buffer not empty after discard")
	}

	// Discard on an empty buffer is a no-op.
	if n := b.Discard(); n != 0 {
		t.Errorf("second Discard() = %d, want 0", n)
	}
}

func TestNoLineLossForPlainText(t *testing.T) {
	b := mustNew(t, 5)

	lines := []string{
		"alpha", "beta", "", "gamma delta", "epsilon 123", "tab\there",
	}

	var got []string
	for _, line := range lines {
		for _, rec := range b.Add(line) {
			got = append(got, textRecord(t, rec).Text)
		}
	}

	if strings.Join(got, "\n") != strings.Join(lines, "\n") {
		t.Errorf("output %q does not match input %q", got, lines)
	}
}

func TestStringValueWithEscapedNewline(t *testing.T) {
	b := mustNew(t, 10)

	records := b.Add(`{"msg": "line one\nline two"}`)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	jr := jsonRecord(t, records[0])
	if !strings.Contains(string(jr.Value), `\n`) {
		t.Errorf("escape sequence not preserved: %q", jr.Value)
	}
}

func TestEvictedJSONLineStaysText(t *testing.T) {
	// Drain evicts oldest lines as text even when one of them would parse
	// on its own; only the remaining joined buffer is re-attempted.
	b := mustNew(t, 2)

	b.Add(`{`)
	records := b.Add(`"a"`)
	// {\n"a" does not parse; { drains as text, then "a" parses alone.
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	textRecord(t, records[0])
	jsonRecord(t, records[1])
}
