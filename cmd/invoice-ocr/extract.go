package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	repo "github.com/joseph-ayodele/invoice-ocr/internal/repository"
)

func newExtractCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "extract <image>",
		Short: "Run every backend on one image and print the fused result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.loadConfig()
			if err != nil {
				return err
			}
			a, err := newApp(cmd.Context(), cfg, logger, output{file: cfg.Output.File})
			if err != nil {
				return err
			}
			defer a.close()

			res, err := a.processor.ProcessImage(cmd.Context(), args[0])
			if err != nil {
				logger.Error("saving result failed", "error", err)
			}

			if res.Error != "" {
				color.New(color.FgRed).Fprintf(os.Stderr, "✗ %s: %s\n", res.FilePath, res.Error)
			} else if res.Succeeded() {
				color.New(color.FgGreen).Fprintf(os.Stderr, "✓ %s via %s (confidence %.3f)\n", res.FilePath, res.BestResult.Method, res.BestResult.Confidence)
			} else {
				color.New(color.FgYellow).Fprintf(os.Stderr, "⚠ %s: no text extracted\n", res.FilePath)
			}
			if cfg.Output.File == "" {
				data, encErr := repo.Encode(res, cfg.Output.Pretty)
				if encErr != nil {
					return encErr
				}
				fmt.Fprint(cmd.OutOrStdout(), string(data))
			}
			return err
		},
	}
}
