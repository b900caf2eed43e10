package repository

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/joseph-ayodele/invoice-ocr/internal/entity"
)

// ResultSink persists finished results.
type ResultSink interface {
	Name() string
	SaveBatch(ctx context.Context, b *entity.BatchResult) error
	SaveImage(ctx context.Context, r entity.ExtractionResult) error
}

// MultiSink writes to every sink concurrently and joins their errors.
// A failing sink does not stop the others.
type MultiSink struct {
	sinks  []ResultSink
	logger *slog.Logger
}

func NewMultiSink(logger *slog.Logger, sinks ...ResultSink) *MultiSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &MultiSink{sinks: sinks, logger: logger}
}

func (m *MultiSink) Name() string { return "multi" }

// Sinks returns the wrapped sinks.
func (m *MultiSink) Sinks() []ResultSink { return m.sinks }

// Empty reports whether results would be dropped.
func (m *MultiSink) Empty() bool { return len(m.sinks) == 0 }

func (m *MultiSink) SaveBatch(ctx context.Context, b *entity.BatchResult) error {
	return m.each(ctx, func(ctx context.Context, s ResultSink) error { return s.SaveBatch(ctx, b) })
}

func (m *MultiSink) SaveImage(ctx context.Context, r entity.ExtractionResult) error {
	return m.each(ctx, func(ctx context.Context, s ResultSink) error { return s.SaveImage(ctx, r) })
}

func (m *MultiSink) each(ctx context.Context, fn func(context.Context, ResultSink) error) error {
	errs := make([]error, len(m.sinks))
	var g errgroup.Group
	for i, s := range m.sinks {
		g.Go(func() error {
			if err := fn(ctx, s); err != nil {
				m.logger.Error("sink write failed", "sink", s.Name(), "error", err)
				errs[i] = err
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
