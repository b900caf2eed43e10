package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-ocr/internal/core"
	"github.com/joseph-ayodele/invoice-ocr/internal/entity"
)

const defaultBatchOutput = "batch_results.json"

func newBatchCmd(opts *rootOptions) *cobra.Command {
	var noProgress bool
	cmd := &cobra.Command{
		Use:   "batch <folder>",
		Short: "Process every image in a folder into one results document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.loadConfig()
			if err != nil {
				return err
			}
			out := cfg.Output.File
			if out == "" {
				out = defaultBatchOutput
			}

			var bar *progressbar.ProgressBar
			progress := func(i, total int, _ entity.ExtractionResult) {
				if noProgress {
					return
				}
				if bar == nil {
					bar = progressbar.NewOptions(total,
						progressbar.OptionSetDescription("images"),
						progressbar.OptionSetWriter(os.Stderr),
						progressbar.OptionShowCount(),
						progressbar.OptionSetItsString("images"),
						progressbar.OptionOnCompletion(func() { fmt.Fprint(os.Stderr, "\n") }),
					)
				}
				_ = bar.Set(i)
			}

			a, err := newApp(cmd.Context(), cfg, logger, output{file: out}, core.WithProgress(progress))
			if err != nil {
				return err
			}
			defer a.close()

			batch, err := a.processor.ProcessDirectory(cmd.Context(), args[0])
			if batch != nil {
				printSummary(batch, out)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "hide the progress bar")
	return cmd
}

func printSummary(b *entity.BatchResult, out string) {
	m := b.Metadata
	bold := color.New(color.Bold)
	bold.Fprintln(os.Stderr, "Batch processing completed")
	fmt.Fprintf(os.Stderr, "  Input folder:    %s\n", m.InputFolder)
	fmt.Fprintf(os.Stderr, "  Output file:     %s\n", out)
	fmt.Fprintf(os.Stderr, "  Total processed: %d\n", m.TotalImages)
	color.New(color.FgGreen).Fprintf(os.Stderr, "  Successful:      %d\n", m.Successful)
	failed := color.New(color.FgGreen)
	if m.Failed > 0 {
		failed = color.New(color.FgRed)
	}
	failed.Fprintf(os.Stderr, "  Failed:          %d\n", m.Failed)
}
