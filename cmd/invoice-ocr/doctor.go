package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-ocr/internal/core/ocr"
	"github.com/joseph-ayodele/invoice-ocr/internal/onnx"
	repo "github.com/joseph-ayodele/invoice-ocr/internal/repository"
)

// check is one doctor line. Optional failures only warn.
type check struct {
	name     string
	optional bool
	run      func() (string, error)
}

func newDoctorCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that the engine, the models and the store are usable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := opts.loadConfig()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			checks := []check{
				{name: "tesseract", run: func() (string, error) {
					return ocr.ResolveBinary(cfg.OCR.TesseractBin)
				}},
				{name: "profiles", run: func() (string, error) {
					if cfg.OCR.ProfilesFile == "" {
						return fmt.Sprintf("%d built-in profiles", len(ocr.DefaultProfiles())), nil
					}
					p, err := ocr.LoadProfiles(cfg.OCR.ProfilesFile)
					if err != nil {
						return "", err
					}
					return fmt.Sprintf("%d profiles from %s", len(p), cfg.OCR.ProfilesFile), nil
				}},
				{name: "onnxruntime", optional: true, run: func() (string, error) {
					lib, err := onnx.ResolveLibrary(cfg.Neural.RuntimeLib)
					if err == nil && cfg.Neural.RuntimeLib == "" {
						lib += " (system loader path)"
					}
					return lib, err
				}},
			}
			if cfg.Neural.PrintedEnabled {
				checks = append(checks, modelCheck("trocr printed", cfg.Neural.PrintedDir))
			}
			if cfg.Neural.HandwrittenEnabled {
				checks = append(checks, modelCheck("trocr handwritten", cfg.Neural.HandwrittenDir))
			}
			if cfg.Store.Driver != repo.DriverNone {
				checks = append(checks, check{name: "store", run: func() (string, error) {
					store, err := repo.Open(ctx, repo.Config{
						Driver:      cfg.Store.Driver,
						DSN:         cfg.Store.DSN,
						DialTimeout: cfg.Store.DialTimeout,
					}, logger)
					if err != nil {
						return "", err
					}
					defer store.Close()
					if err := store.HealthCheck(ctx, time.Second); err != nil {
						return "", err
					}
					return cfg.Store.Driver, nil
				}})
			}
			if cfg.S3.Bucket != "" {
				checks = append(checks, check{name: "s3", optional: true, run: func() (string, error) {
					if _, err := repo.NewS3Sink(ctx, s3Config(cfg), logger); err != nil {
						return "", err
					}
					return "s3://" + cfg.S3.Bucket + "/" + cfg.S3.Prefix, nil
				}})
			}

			ok, warn, fail := color.New(color.FgGreen), color.New(color.FgYellow), color.New(color.FgRed)
			failed := 0
			for _, c := range checks {
				detail, err := c.run()
				switch {
				case err == nil:
					ok.Fprintf(cmd.OutOrStdout(), "  OK    %-18s %s\n", c.name, detail)
				case c.optional:
					warn.Fprintf(cmd.OutOrStdout(), "  WARN  %-18s %v\n", c.name, err)
				default:
					failed++
					fail.Fprintf(cmd.OutOrStdout(), "  FAIL  %-18s %v\n", c.name, err)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d check(s) failed", failed)
			}
			return nil
		},
	}
}

// modelCheck is optional: a missing model only disables that backend.
func modelCheck(name, dir string) check {
	return check{name: name, optional: true, run: func() (string, error) {
		var errs []error
		for _, f := range []string{"encoder_model.onnx", "decoder_model.onnx", "vocab.json"} {
			if _, err := os.Stat(filepath.Join(dir, f)); err != nil {
				errs = append(errs, err)
			}
		}
		return dir, errors.Join(errs...)
	}}
}
