package main

import (
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-ocr/internal/common"
)

type rootOptions struct {
	logLevel string
	noColor  bool
	output   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "invoice-ocr",
		Short:         "Extract text from invoice images with tesseract and TrOCR",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if opts.noColor {
				color.NoColor = true
			}
		},
	}
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&opts.noColor, "no-color", false, "disable colored output")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "", "result JSON file (overrides OUTPUT_FILE)")

	root.AddCommand(
		newExtractCmd(opts),
		newBatchCmd(opts),
		newWatchCmd(opts),
		newDoctorCmd(opts),
		newHistoryCmd(opts),
	)
	return root
}

// loadConfig reads .env and the environment, applies flag overrides, validates
// and installs the JSON logger as the default.
func (o *rootOptions) loadConfig() (*common.Config, *slog.Logger, error) {
	cfg := common.LoadConfig()
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if o.output != "" {
		cfg.Output.File = o.output
	}
	logger := common.NewLogger(cfg.Log.Level)
	slog.SetDefault(logger)
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		return nil, nil, err
	}
	return cfg, logger, nil
}
