// Package render writes emitted records to the output stream as pretty or
// compact JSON, optionally colorized, while text records pass through
// verbatim.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/jlif/jlif/pkg/types"
)

// Options select the output form produced for JSON records.
type Options struct {
	Compact bool
	Color   bool
	Indent  string // indent step for pretty output, defaults to two spaces
}

// Renderer formats records and writes them to a sink, one per call, in
// emission order. JSON output is produced from the record's original source
// bytes so object key order is preserved exactly.
type Renderer struct {
	w       io.Writer
	compact bool
	indent  string
	palette *Palette
}

// New creates a Renderer writing to w.
func New(w io.Writer, opts Options) *Renderer {
	indent := opts.Indent
	if indent == "" {
		indent = "  "
	}
	r := &Renderer{
		w:       w,
		compact: opts.Compact,
		indent:  indent,
	}
	if opts.Color {
		r.palette = &DefaultPalette
	}
	return r
}

// Render writes one record followed by a newline.
func (r *Renderer) Render(rec types.Record) error {
	switch rec := rec.(type) {
	case *types.JSONRecord:
		return r.renderJSON(rec)
	case *types.TextRecord:
		_, err := fmt.Fprintln(r.w, rec.Text)
		return err
	default:
		return fmt.Errorf("unknown record type %T", rec)
	}
}

func (r *Renderer) renderJSON(rec *types.JSONRecord) error {
	if r.palette != nil {
		return r.renderColored(rec)
	}

	var buf bytes.Buffer
	var err error
	if r.compact {
		err = json.Compact(&buf, rec.Value)
	} else {
		err = json.Indent(&buf, rec.Value, "", r.indent)
	}
	if err != nil {
		return fmt.Errorf("failed to format value: %w", err)
	}
	buf.WriteByte('\n')
	_, err = r.w.Write(buf.Bytes())
	return err
}

func (r *Renderer) renderColored(rec *types.JSONRecord) error {
	var buf bytes.Buffer
	cw := &colorWriter{
		buf:     &buf,
		palette: r.palette,
		compact: r.compact,
		indent:  r.indent,
	}
	dec := json.NewDecoder(bytes.NewReader(rec.Value))
	dec.UseNumber()
	if err := cw.writeValue(dec); err != nil {
		return fmt.Errorf("failed to colorize value: %w", err)
	}
	buf.WriteByte('\n')
	_, err := r.w.Write(buf.Bytes())
	return err
}
