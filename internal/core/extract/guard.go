package extract

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/invoice-ocr/internal/common"
)

// Guarded invokes a under an optional timeout and turns a panic into a failed outcome.
func Guarded(ctx context.Context, a Adapter, path string, timeout time.Duration, logger *slog.Logger) (out Outcome) {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := common.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			err := fmt.Errorf("adapter %s panicked: %v", a.Name(), p)
			logger.Error("adapter panic recovered", "adapter", a.Name(), "file_path", path, "error", err)
			out = Failure(a.Name(), err)
		}
	}()

	out = a.Invoke(ctx, path)
	if out.Detail == nil {
		out.Detail = Failure(a.Name(), out.Err).Detail
	}
	if out.Err != nil && !out.Candidate.IsEmpty() {
		out.Candidate.Text = ""
		out.Candidate.Length = 0
		out.Candidate.Confidence = 0
	}
	logger.Debug("adapter finished",
		"adapter", a.Name(),
		"file_path", path,
		"method", out.Candidate.Method,
		"length", out.Candidate.Length,
		"confidence", out.Candidate.Confidence,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return out
}
