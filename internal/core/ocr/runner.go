package ocr

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joseph-ayodele/invoice-ocr/internal/common"
)

// stderrLogLimit caps how much engine stderr ends up in one log record.
const stderrLogLimit = 8 << 10

// killGrace is how long a cancelled engine may keep its pipes open after the kill.
const killGrace = 2 * time.Second

// Runner lets us stub external commands in tests.
type Runner interface {
	Run(ctx context.Context, name string, logger *slog.Logger, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, logger *slog.Logger, args ...string) ([]byte, []byte, error) {
	attrs := []any{"cmd", name, "file_path", common.FilePathFromContext(ctx)}
	logger.Debug("starting engine", append(attrs, "args", strings.Join(args, " "))...)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = killGrace

	start := time.Now()
	err := cmd.Run()
	attrs = append(attrs, "duration_ms", time.Since(start).Milliseconds())

	switch {
	case ctx.Err() != nil:
		// the context killed the process; report why rather than "signal: killed"
		err = context.Cause(ctx)
		logger.Warn("engine cancelled", append(attrs, "error", err)...)
	case err != nil:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			attrs = append(attrs, "exit_code", exitErr.ExitCode())
		}
		logger.Warn("engine failed", append(attrs, "error", err, "stderr", clip(stderr.String(), stderrLogLimit))...)
	default:
		// tesseract prints warnings such as "Estimating resolution" even when it succeeds
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			attrs = append(attrs, "stderr", clip(msg, stderrLogLimit))
		}
		logger.Debug("engine done", append(attrs, "stdout_bytes", stdout.Len())...)
	}
	return stdout.Bytes(), stderr.Bytes(), err
}

// clip cuts s to at most max bytes without splitting a rune.
func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "...(truncated)"
}
