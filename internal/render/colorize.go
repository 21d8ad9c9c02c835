package render

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Palette holds the ANSI escape sequences applied to each scalar class.
type Palette struct {
	Key     []byte
	String  []byte
	Number  []byte
	Literal []byte // true, false, null
	Reset   []byte
}

// DefaultPalette colors keys bright blue, strings green, numbers yellow and
// literals dim white.
var DefaultPalette = Palette{
	Key:     []byte("\033[34;1m"),
	String:  []byte("\033[32m"),
	Number:  []byte("\033[33m"),
	Literal: []byte("\033[37;2m"),
	Reset:   []byte("\033[0m"),
}

var (
	trueBytes  = []byte("true")
	falseBytes = []byte("false")
	nullBytes  = []byte("null")
)

// colorWriter re-emits a token stream as pretty or compact JSON with color
// codes around scalars. Token order is document order, so object keys come
// out in their original sequence.
type colorWriter struct {
	buf     *bytes.Buffer
	palette *Palette
	compact bool
	indent  string
	depth   int
}

// writeValue consumes one complete JSON value from the decoder.
func (cw *colorWriter) writeValue(dec *json.Decoder) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	return cw.writeToken(dec, tok)
}

func (cw *colorWriter) writeToken(dec *json.Decoder, tok json.Token) error {
	switch tok := tok.(type) {
	case json.Delim:
		switch tok {
		case '{':
			return cw.writeObject(dec)
		case '[':
			return cw.writeArray(dec)
		}
		return fmt.Errorf("unexpected delimiter %q", tok.String())
	case string:
		cw.scalar(cw.palette.String, encodeString(tok))
	case json.Number:
		cw.scalar(cw.palette.Number, []byte(tok.String()))
	case bool:
		if tok {
			cw.scalar(cw.palette.Literal, trueBytes)
		} else {
			cw.scalar(cw.palette.Literal, falseBytes)
		}
	case nil:
		cw.scalar(cw.palette.Literal, nullBytes)
	default:
		return fmt.Errorf("unexpected token %v", tok)
	}
	return nil
}

func (cw *colorWriter) writeObject(dec *json.Decoder) error {
	cw.buf.WriteByte('{')
	cw.depth++
	n := 0
	for dec.More() {
		if n > 0 {
			cw.buf.WriteByte(',')
		}
		cw.breakLine()
		n++

		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("unexpected object key token %v", keyTok)
		}
		cw.scalar(cw.palette.Key, encodeString(key))
		cw.buf.WriteByte(':')
		if !cw.compact {
			cw.buf.WriteByte(' ')
		}

		if err := cw.writeValue(dec); err != nil {
			return err
		}
	}
	cw.depth--
	if n > 0 {
		cw.breakLine()
	}
	if _, err := dec.Token(); err != nil { // closing '}'
		return err
	}
	cw.buf.WriteByte('}')
	return nil
}

func (cw *colorWriter) writeArray(dec *json.Decoder) error {
	cw.buf.WriteByte('[')
	cw.depth++
	n := 0
	for dec.More() {
		if n > 0 {
			cw.buf.WriteByte(',')
		}
		cw.breakLine()
		n++

		if err := cw.writeValue(dec); err != nil {
			return err
		}
	}
	cw.depth--
	if n > 0 {
		cw.breakLine()
	}
	if _, err := dec.Token(); err != nil { // closing ']'
		return err
	}
	cw.buf.WriteByte(']')
	return nil
}

func (cw *colorWriter) breakLine() {
	if cw.compact {
		return
	}
	cw.buf.WriteByte('\n')
	for i := 0; i < cw.depth; i++ {
		cw.buf.WriteString(cw.indent)
	}
}

func (cw *colorWriter) scalar(color, b []byte) {
	cw.buf.Write(color)
	cw.buf.Write(b)
	cw.buf.Write(cw.palette.Reset)
}

// encodeString produces the quoted, escaped JSON form of s without HTML
// escaping, matching what json.Indent leaves untouched in the plain paths.
func encodeString(s string) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		// Strings never fail to encode.
		return []byte(`""`)
	}
	b := buf.Bytes()
	return b[:len(b)-1] // drop the trailing newline Encode appends
}
