package input

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/jlif/jlif/internal/logging"
)

// FollowSource tails a file, delivering new lines as the file grows. It
// handles truncation (copytruncate-style rotation) by reseeking to the
// start. An optional rate limit caps delivered lines per second.
type FollowSource struct {
	path    string
	limiter *rate.Limiter
	watcher *fsnotify.Watcher
	lines   chan string
	logger  *logging.Logger
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewFollowSource creates a follow source for path. A linesPerSec of zero
// means unlimited.
func NewFollowSource(path string, linesPerSec float64, logger *logging.Logger) (*FollowSource, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &FollowSource{
		path:    path,
		watcher: watcher,
		lines:   make(chan string, 64),
		logger:  logger.WithComponent("follow"),
		ctx:     ctx,
		cancel:  cancel,
	}
	if linesPerSec > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(linesPerSec), int(linesPerSec)+1)
	}

	return s, nil
}

// Lines returns the channel of input lines.
func (s *FollowSource) Lines() <-chan string {
	return s.lines
}

// Start opens the file and begins following it.
func (s *FollowSource) Start() error {
	file, err := os.Open(s.path)
	if err != nil {
		s.watcher.Close()
		return fmt.Errorf("failed to open %s: %w", s.path, err)
	}
	if err := s.watcher.Add(s.path); err != nil {
		file.Close()
		s.watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", s.path, err)
	}

	s.wg.Add(1)
	go s.follow(file)
	return nil
}

// Stop stops following and closes the lines channel.
func (s *FollowSource) Stop() {
	s.cancel()
	s.watcher.Close()
	s.wg.Wait()
}

func (s *FollowSource) follow(file *os.File) {
	defer s.wg.Done()
	defer close(s.lines)
	defer file.Close()

	reader := bufio.NewReaderSize(file, initialBufSize)
	var partial strings.Builder
	for {
		chunk, err := reader.ReadString('\n')
		if err == nil {
			partial.WriteString(strings.TrimSuffix(strings.TrimSuffix(chunk, "\n"), "\r"))
			line := partial.String()
			partial.Reset()
			if !s.emit(line) {
				return
			}
			continue
		}
		if err != io.EOF {
			s.logger.Error().Err(err).Str("path", s.path).Msg("Failed to read file")
			return
		}
		// Hold an incomplete trailing line until the rest of it arrives.
		partial.WriteString(chunk)
		if !s.waitForWrite(file, reader) {
			return
		}
	}
}

// waitForWrite blocks until the file changes again or the source stops.
// Returns false when following should end.
func (s *FollowSource) waitForWrite(file *os.File, reader *bufio.Reader) bool {
	for {
		select {
		case <-s.ctx.Done():
			return false
		case event, ok := <-s.watcher.Events:
			if !ok {
				return false
			}
			if event.Op&fsnotify.Write != 0 {
				s.handleTruncation(file, reader)
				return true
			}
			if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
				s.logger.Warn().Str("path", s.path).Msg("Watched file removed")
				return false
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return false
			}
			s.logger.Error().Err(err).Msg("File watcher error")
		}
	}
}

// handleTruncation reseeks to the start when the file shrank below our
// position, which is how copytruncate rotation appears.
func (s *FollowSource) handleTruncation(file *os.File, reader *bufio.Reader) {
	stat, err := file.Stat()
	if err != nil {
		return
	}
	pos, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return
	}
	if stat.Size() < pos-int64(reader.Buffered()) {
		s.logger.Info().Str("path", s.path).Msg("File truncated, reading from start")
		if _, err := file.Seek(0, io.SeekStart); err == nil {
			reader.Reset(file)
		}
	}
}

// emit applies the rate limit and delivers one line.
func (s *FollowSource) emit(line string) bool {
	if s.limiter != nil {
		if err := s.limiter.Wait(s.ctx); err != nil {
			return false
		}
	}
	select {
	case s.lines <- line:
		return true
	case <-s.ctx.Done():
		return false
	}
}
