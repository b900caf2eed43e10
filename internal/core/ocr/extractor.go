package ocr

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"
)

type Config struct {
	Profiles []ConfigProfile // enumeration order; nil -> DefaultProfiles()

	// MeasureConfidence asks the engine for its mean word confidence on the
	// winning profile. Engines that cannot report it leave Confidence at 0.
	MeasureConfidence bool
}

// ProfileText is one profile's output within a sweep.
type ProfileText struct {
	Profile string
	Text    string
	Err     error
}

// SweepResult is the outcome of running every profile on one image.
type SweepResult struct {
	BestText    string
	BestProfile string // "" when every profile came back empty
	Profiles    []ProfileText
	Confidence  float64 // engine-reported, only with MeasureConfidence
	Duration    time.Duration
}

// Texts maps profile name to its (possibly empty) text.
func (s SweepResult) Texts() map[string]string {
	out := make(map[string]string, len(s.Profiles))
	for _, p := range s.Profiles {
		out[p.Profile] = p.Text
	}
	return out
}

// Extractor sweeps the configured profiles over an image.
type Extractor struct {
	engine Engine
	cfg    Config
	logger *slog.Logger
}

func NewExtractor(engine Engine, cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Profiles) == 0 {
		cfg.Profiles = DefaultProfiles()
	}
	return &Extractor{engine: engine, cfg: cfg, logger: logger}
}

// Profiles returns the sweep order.
func (e *Extractor) Profiles() []ConfigProfile { return e.cfg.Profiles }

// ExtractAll runs every profile in order. A failing profile contributes "" and
// the sweep continues. The longest text after trimming surrounding whitespace
// wins, measured on the engine output before CleanText; the earliest profile
// wins ties.
func (e *Extractor) ExtractAll(ctx context.Context, path string) SweepResult {
	start := time.Now()
	res := SweepResult{Profiles: make([]ProfileText, 0, len(e.cfg.Profiles))}

	bestLen := 0
	var best ConfigProfile
	for _, p := range e.cfg.Profiles {
		pt := ProfileText{Profile: p.Name}
		if err := ctx.Err(); err != nil {
			pt.Err = err
			res.Profiles = append(res.Profiles, pt)
			continue
		}
		raw, err := e.engine.Recognize(ctx, path, p)
		n := 0
		if err != nil {
			e.logger.Warn("tesseract profile failed", "path", path, "profile", p.Name, "error", err)
			pt.Err = err
		} else {
			n = utf8.RuneCountInString(strings.TrimSpace(raw))
			pt.Text = CleanText(raw)
		}
		res.Profiles = append(res.Profiles, pt)

		if n > bestLen {
			bestLen = n
			best = p
			res.BestText = pt.Text
			res.BestProfile = p.Name
		}
	}

	if e.cfg.MeasureConfidence && res.BestProfile != "" {
		if wc, ok := e.engine.(WordConfidencer); ok {
			conf, err := wc.WordConfidence(ctx, path, best)
			if err != nil {
				e.logger.Warn("tesseract word confidence failed", "path", path, "profile", best.Name, "error", err)
			} else {
				res.Confidence = conf
			}
		}
	}

	res.Duration = time.Since(start)
	e.logger.Debug("tesseract sweep done",
		"path", path,
		"best_profile", res.BestProfile,
		"best_length", bestLen,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res
}
