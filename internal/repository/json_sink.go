package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/invoice-ocr/internal/common"
	"github.com/joseph-ayodele/invoice-ocr/internal/core/schema"
	"github.com/joseph-ayodele/invoice-ocr/internal/entity"
)

// JSONFileSink writes the result document to one file, validated against its schema.
type JSONFileSink struct {
	path   string
	pretty bool
	logger *slog.Logger
}

func NewJSONFileSink(path string, pretty bool, logger *slog.Logger) *JSONFileSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &JSONFileSink{path: path, pretty: pretty, logger: logger}
}

func (s *JSONFileSink) Name() string { return "json" }

// Path is the output file.
func (s *JSONFileSink) Path() string { return s.path }

func (s *JSONFileSink) SaveBatch(_ context.Context, b *entity.BatchResult) error {
	if err := b.Validate(); err != nil {
		return common.NewAppError(common.CodeStorage, "batch counters", fmt.Errorf("%w: %w", common.ErrValidation, err))
	}
	data, err := Encode(b, s.pretty)
	if err != nil {
		return err
	}
	if err := schema.ValidateBatch(data); err != nil {
		return common.NewAppError(common.CodeStorage, "batch document", fmt.Errorf("%w: %w", common.ErrValidation, err))
	}
	return s.write(data)
}

func (s *JSONFileSink) SaveImage(_ context.Context, r entity.ExtractionResult) error {
	data, err := Encode(r, s.pretty)
	if err != nil {
		return err
	}
	if err := schema.ValidateImage(data); err != nil {
		return common.NewAppError(common.CodeStorage, "image document", fmt.Errorf("%w: %w", common.ErrValidation, err))
	}
	return s.write(data)
}

// Encode marshals v without HTML escaping, so non-ASCII and markup survive as written.
func Encode(v any, pretty bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return buf.Bytes(), nil
}

// write replaces the file atomically.
func (s *JSONFileSink) write(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return storageError("create output dir", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return storageError("create temp file", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return storageError("write temp file", err)
	}
	if err := tmp.Close(); err != nil {
		return storageError("close temp file", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return storageError("rename output", err)
	}
	s.logger.Info("results saved", "path", s.path, "bytes", len(data))
	return nil
}

// JSONDirSink writes one document per image, <dir>/<image file name>.json, and
// each batch as <dir>/batch-<run_id>.json. Re-processing an image replaces its file.
type JSONDirSink struct {
	dir    string
	pretty bool
	logger *slog.Logger
}

func NewJSONDirSink(dir string, pretty bool, logger *slog.Logger) *JSONDirSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &JSONDirSink{dir: dir, pretty: pretty, logger: logger}
}

func (s *JSONDirSink) Name() string { return "json-dir" }

// Dir is the output directory.
func (s *JSONDirSink) Dir() string { return s.dir }

// ImagePath is where the document for the image at path is written.
func (s *JSONDirSink) ImagePath(path string) string {
	return filepath.Join(s.dir, filepath.Base(path)+".json")
}

func (s *JSONDirSink) SaveBatch(ctx context.Context, b *entity.BatchResult) error {
	out := filepath.Join(s.dir, "batch-"+b.Metadata.RunID+".json")
	return NewJSONFileSink(out, s.pretty, s.logger).SaveBatch(ctx, b)
}

func (s *JSONDirSink) SaveImage(ctx context.Context, r entity.ExtractionResult) error {
	return NewJSONFileSink(s.ImagePath(r.FilePath), s.pretty, s.logger).SaveImage(ctx, r)
}
