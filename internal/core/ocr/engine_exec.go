//go:build !gosseract

package ocr

import "log/slog"

// NewEngine returns the exec engine bound to the configured binary.
func NewEngine(cfg ExecConfig, logger *slog.Logger) (Engine, error) {
	return NewExecEngine(cfg, logger)
}
