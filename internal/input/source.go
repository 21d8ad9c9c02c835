// Package input provides line sources for the pipeline: a plain reader
// source for stdin or a file, and a follow source that tails a growing file.
package input

import (
	"bufio"
	"io"
	"sync"

	"github.com/jlif/jlif/internal/logging"
)

// Scanner buffer limits; log lines can get long.
const (
	initialBufSize = 64 * 1024
	maxLineSize    = 1024 * 1024
)

// Source produces the stream of input lines, one per line of input, without
// trailing line terminators. The channel closes at end of stream. A
// live-tailed source may block indefinitely waiting for more input, which is
// intended behavior.
type Source interface {
	Lines() <-chan string
	Start() error
	Stop()
}

// ReaderSource reads lines from an io.Reader until EOF.
type ReaderSource struct {
	reader   io.Reader
	lines    chan string
	done     chan struct{}
	stopOnce sync.Once
	logger   *logging.Logger
}

// NewReaderSource creates a source scanning r line by line.
func NewReaderSource(r io.Reader, logger *logging.Logger) *ReaderSource {
	return &ReaderSource{
		reader: r,
		lines:  make(chan string, 64),
		done:   make(chan struct{}),
		logger: logger.WithComponent("input"),
	}
}

// Lines returns the channel of input lines.
func (s *ReaderSource) Lines() <-chan string {
	return s.lines
}

// Start begins scanning in the background.
func (s *ReaderSource) Start() error {
	go s.scan()
	return nil
}

// Stop aborts scanning; the lines channel closes once the current read
// returns.
func (s *ReaderSource) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
	})
}

func (s *ReaderSource) scan() {
	defer close(s.lines)

	scanner := bufio.NewScanner(s.reader)
	scanner.Buffer(make([]byte, initialBufSize), maxLineSize)
	for scanner.Scan() {
		select {
		case s.lines <- scanner.Text():
		case <-s.done:
			return
		}
	}
	if err := scanner.Err(); err != nil {
		s.logger.Error().Err(err).Msg("Failed to read input")
	}
}
