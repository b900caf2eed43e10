package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/invoice-ocr/internal/common"
)

// Engine runs the classical OCR engine once, for one profile, on an image file.
type Engine interface {
	Recognize(ctx context.Context, imagePath string, profile ConfigProfile) (string, error)
}

// WordConfidencer is implemented by engines that can report their own mean word confidence (0..1).
type WordConfidencer interface {
	WordConfidence(ctx context.Context, imagePath string, profile ConfigProfile) (float64, error)
}

// ResolveBinary locates the engine executable once. A missing binary is an
// engine-unavailable error; there is no fallback search.
func ResolveBinary(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", common.NewEngineUnavailableError("tesseract", fmt.Errorf("no binary configured"))
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", common.NewEngineUnavailableError(name, err)
	}
	return path, nil
}

type ExecConfig struct {
	Binary      string // binary name or absolute path; if empty -> "tesseract"
	Language    string // default "eng"
	TessdataDir string
}

// ExecEngine runs the tesseract binary.
type ExecEngine struct {
	bin      string
	lang     string
	tessdata string
	runner   Runner
	logger   *slog.Logger
}

// ExecOption configures an ExecEngine.
type ExecOption func(*ExecEngine)

// WithRunner replaces the process runner.
func WithRunner(r Runner) ExecOption {
	return func(e *ExecEngine) { e.runner = r }
}

// NewExecEngine resolves the binary and returns an engine bound to it.
func NewExecEngine(cfg ExecConfig, logger *slog.Logger, opts ...ExecOption) (*ExecEngine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	bin, err := ResolveBinary(cfg.Binary)
	if err != nil {
		logger.Error("tesseract binary not found", "binary", cfg.Binary, "error", err)
		return nil, err
	}
	e := &ExecEngine{
		bin:      bin,
		lang:     cfg.Language,
		tessdata: cfg.TessdataDir,
		runner:   execRunner{},
		logger:   logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	logger.Debug("tesseract engine ready", "binary", bin, "lang", cfg.Language)
	return e, nil
}

// Binary returns the resolved executable path.
func (e *ExecEngine) Binary() string { return e.bin }

func (e *ExecEngine) baseArgs(imagePath string, profile ConfigProfile) []string {
	// tesseract <file> stdout -l <lang> [--tessdata-dir d] --psm N --oem M [-c whitelist]
	args := []string{imagePath, "stdout", "-l", e.lang}
	if e.tessdata != "" {
		args = append(args, "--tessdata-dir", e.tessdata)
	}
	return append(args, profile.Args()...)
}

func (e *ExecEngine) Recognize(ctx context.Context, imagePath string, profile ConfigProfile) (string, error) {
	out, errb, err := e.runner.Run(ctx, e.bin, e.logger, e.baseArgs(imagePath, profile)...)
	if err != nil {
		return "", common.NewConfigProfileError(profile.Name, fmt.Errorf("tesseract: %w: %s", err, clip(strings.TrimSpace(string(errb)), 512)))
	}
	return string(out), nil
}

// WordConfidence runs tesseract in TSV mode and returns mean word conf in 0..1.
func (e *ExecEngine) WordConfidence(ctx context.Context, imagePath string, profile ConfigProfile) (float64, error) {
	args := append(e.baseArgs(imagePath, profile), "tsv")
	out, _, err := e.runner.Run(ctx, e.bin, e.logger, args...)
	if err != nil {
		return 0, fmt.Errorf("tesseract TSV: %w", err)
	}
	return meanTSVConfidence(string(out)), nil
}

// meanTSVConfidence averages the conf column (11th of 12) over word rows, skipping the header and -1 rows.
func meanTSVConfidence(tsv string) float64 {
	var sum, n float64
	for i, ln := range strings.Split(tsv, "\n") {
		if i == 0 || len(ln) == 0 {
			continue
		}
		cols := strings.Split(ln, "\t")
		if len(cols) < 12 {
			continue
		}
		confStr := strings.TrimSpace(cols[10])
		if confStr == "" || confStr == "-1" {
			continue
		}
		if v, err := strconv.ParseFloat(confStr, 64); err == nil && v >= 0 {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / n / 100.0
}
