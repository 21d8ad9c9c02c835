// Package filter decides which records are emitted to the output stream.
package filter

import (
	"fmt"
	"regexp"

	"github.com/jlif/jlif/pkg/types"
)

// Config controls record filtering. It is derived once per run and never
// mutated afterwards. An empty Pattern means no pattern filtering.
type Config struct {
	Pattern       string
	CaseSensitive bool
	InvertMatch   bool
	JSONOnly      bool
}

// Filter applies a compiled filter configuration to records.
type Filter struct {
	re       *regexp.Regexp
	invert   bool
	jsonOnly bool
}

// New compiles the filter configuration. Patterns are case-insensitive by
// default; CaseSensitive disables the inline (?i) marker. An invalid pattern
// is a startup configuration error, never a per-record one.
func New(cfg Config) (*Filter, error) {
	f := &Filter{
		invert:   cfg.InvertMatch,
		jsonOnly: cfg.JSONOnly,
	}

	if cfg.Pattern != "" {
		pattern := cfg.Pattern
		if !cfg.CaseSensitive {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid filter pattern %q: %w", cfg.Pattern, err)
		}
		f.re = re
	}

	return f, nil
}

// Emit reports whether the record should be written to the sink.
//
// A missing pattern matches everything. InvertMatch negates the pattern
// result only; JSONOnly suppresses text records unconditionally, after and
// independent of inversion.
func (f *Filter) Emit(rec types.Record) bool {
	matched := true
	if f.re != nil {
		matched = f.re.MatchString(rec.MatchText())
	}
	if f.invert {
		matched = !matched
	}
	if f.jsonOnly {
		if _, ok := rec.(*types.JSONRecord); !ok {
			return false
		}
	}
	return matched
}

// Active reports whether the filter can suppress any record.
func (f *Filter) Active() bool {
	return f.re != nil || f.invert || f.jsonOnly
}
