//go:build gosseract

package ocr

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/otiai10/gosseract/v2"

	"github.com/joseph-ayodele/invoice-ocr/internal/common"
)

// GosseractEngine calls libtesseract in-process. The binding has no OEM
// setter, so ConfigProfile.OEM is left to the library default.
type GosseractEngine struct {
	lang     string
	tessdata string
	logger   *slog.Logger
}

func NewGosseractEngine(cfg ExecConfig, logger *slog.Logger) *GosseractEngine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	return &GosseractEngine{lang: cfg.Language, tessdata: cfg.TessdataDir, logger: logger}
}

func (g *GosseractEngine) Recognize(ctx context.Context, imagePath string, profile ConfigProfile) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", common.NewConfigProfileError(profile.Name, err)
	}
	client := gosseract.NewClient()
	defer func() {
		if err := client.Close(); err != nil {
			g.logger.Warn("gosseract close failed", "error", err)
		}
	}()

	if g.tessdata != "" {
		if err := client.SetTessdataPrefix(g.tessdata); err != nil {
			return "", common.NewConfigProfileError(profile.Name, fmt.Errorf("set tessdata: %w", err))
		}
	}
	if err := client.SetLanguage(g.lang); err != nil {
		return "", common.NewConfigProfileError(profile.Name, fmt.Errorf("set language: %w", err))
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(profile.PSM)); err != nil {
		return "", common.NewConfigProfileError(profile.Name, fmt.Errorf("set psm: %w", err))
	}
	if profile.Whitelist != "" {
		if err := client.SetWhitelist(profile.Whitelist); err != nil {
			return "", common.NewConfigProfileError(profile.Name, fmt.Errorf("set whitelist: %w", err))
		}
	}
	if err := client.SetImage(imagePath); err != nil {
		return "", common.NewConfigProfileError(profile.Name, fmt.Errorf("set image: %w", err))
	}
	text, err := client.Text()
	if err != nil {
		return "", common.NewConfigProfileError(profile.Name, err)
	}
	return text, nil
}

// NewEngine returns the in-process engine in gosseract builds.
func NewEngine(cfg ExecConfig, logger *slog.Logger) (Engine, error) {
	return NewGosseractEngine(cfg, logger), nil
}
