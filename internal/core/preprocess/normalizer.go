//go:build !gocv

package preprocess

import "log/slog"

// NewNormalizer returns the pure-Go stages. Their non-local means pass takes
// tens of seconds on a full-page scan; build with -tags gocv to run the same
// stages through OpenCV when preprocessing is enabled for large batches.
func NewNormalizer(opts Options, logger *slog.Logger) Normalizer {
	return NewPreprocessor(opts, logger)
}
