// Package processor drives the synchronous pipeline: one line is read,
// classified, filtered and written before the next line is read.
package processor

import (
	"context"
	"fmt"

	"github.com/jlif/jlif/internal/buffer"
	"github.com/jlif/jlif/internal/filter"
	"github.com/jlif/jlif/internal/logging"
	"github.com/jlif/jlif/internal/metrics"
	"github.com/jlif/jlif/internal/render"
	"github.com/jlif/jlif/pkg/types"
)

// Processor owns the single mutable pipeline state (the line buffer) and
// pushes each resolved record through the filter and renderer.
type Processor struct {
	buffer    *buffer.LineBuffer
	filter    *filter.Filter
	renderer  *render.Renderer
	collector *metrics.Collector
	logger    *logging.Logger
}

// New wires up a processor. The collector may be nil.
func New(buf *buffer.LineBuffer, filt *filter.Filter, rend *render.Renderer, collector *metrics.Collector, logger *logging.Logger) *Processor {
	return &Processor{
		buffer:    buf,
		filter:    filt,
		renderer:  rend,
		collector: collector,
		logger:    logger.WithComponent("processor"),
	}
}

// Run consumes lines until the channel closes or the context is cancelled,
// then applies the end-of-stream rule: an unresolved buffer is discarded
// silently. Returns the context error on cancellation and any sink write
// error; parse failures are normal state-machine outcomes, never errors.
func (p *Processor) Run(ctx context.Context, lines <-chan string) error {
	for {
		select {
		case <-ctx.Done():
			p.finish()
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				p.finish()
				return nil
			}
			if err := p.processLine(line); err != nil {
				return err
			}
		}
	}
}

func (p *Processor) processLine(line string) error {
	p.collector.ObserveLine()

	wasBuffering := p.buffer.Len() > 0
	records := p.buffer.Add(line)
	p.collector.SetBufferSize(p.buffer.Len())

	// Text emitted out of an accumulating buffer only happens on overflow.
	if wasBuffering && containsText(records) {
		p.collector.ObserveOverflow()
	}

	for _, rec := range records {
		if !p.filter.Emit(rec) {
			p.collector.ObserveSuppressed()
			continue
		}
		p.collector.ObserveEmitted(recordKind(rec))
		if err := p.renderer.Render(rec); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	return nil
}

// finish drops whatever the buffer still holds. The content already skipped
// its text passthrough when it was classified as a candidate JSON start, so
// it is not recoverable.
func (p *Processor) finish() {
	if n := p.buffer.Discard(); n > 0 {
		p.collector.ObserveDiscarded(n)
		p.collector.SetBufferSize(0)
		p.logger.Debug().Int("lines", n).Msg("Discarded unresolved buffer at end of stream")
	}
}

func containsText(records []types.Record) bool {
	for _, rec := range records {
		if _, ok := rec.(*types.TextRecord); ok {
			return true
		}
	}
	return false
}

func recordKind(rec types.Record) string {
	if _, ok := rec.(*types.JSONRecord); ok {
		return metrics.KindJSON
	}
	return metrics.KindText
}
