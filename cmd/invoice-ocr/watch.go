package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-ocr/internal/common"
	"github.com/joseph-ayodele/invoice-ocr/internal/core/async"
	"github.com/joseph-ayodele/invoice-ocr/internal/ingest"
	repo "github.com/joseph-ayodele/invoice-ocr/internal/repository"
)

const defaultWatchOutDir = "ocr_results"

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var (
		debounce time.Duration
		existing bool
		workers  int
		outDir   string
		noJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "watch <folder>",
		Short: "Process images as they appear in a folder",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.loadConfig()
			if err != nil {
				return err
			}
			// every image is its own document, so results go to a directory
			out := output{dir: watchOutDir(args[0], outDir, cfg.Output.File)}
			if noJSON {
				out.dir = ""
			}
			a, err := newApp(cmd.Context(), cfg, logger, out)
			if err != nil {
				return err
			}
			defer a.close()
			if err := requireSink(a.sink); err != nil {
				return err
			}

			events, errs, err := ingest.StartWatcher(cmd.Context(), ingest.WatchConfig{
				Root:        args[0],
				InitialScan: existing,
				Debounce:    debounce,
				Logger:      logger,
			})
			if err != nil {
				return err
			}

			queue := async.NewProcessorQueue(cmd.Context(), a.processor, logger, async.WithWorkers(workers))
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()
				queue.Shutdown(ctx)
			}()

			logger.Info("watching folder", "root", args[0], "workers", workers, "out_dir", out.dir)
			for {
				select {
				case path, ok := <-events:
					if !ok {
						logger.Info("watcher stopped")
						return nil
					}
					if err := queue.Enqueue(cmd.Context(), async.Job{Path: path}); err != nil {
						logger.Warn("image not queued", "file_path", path, "error", err)
					}
				case err, ok := <-errs:
					if !ok {
						errs = nil
						continue
					}
					logger.Warn("watch error", "error", err)
				}
			}
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", time.Second, "wait for writes to settle before processing a file")
	cmd.Flags().BoolVar(&existing, "existing", false, "process images already in the folder first")
	cmd.Flags().IntVar(&workers, "workers", 1, "images processed concurrently")
	cmd.Flags().StringVar(&outDir, "out-dir", "", "directory for per-image JSON results (default <folder>/"+defaultWatchOutDir+")")
	cmd.Flags().BoolVar(&noJSON, "no-json", false, "skip JSON results; needs STORE_DRIVER or S3_BUCKET")
	return cmd
}

// watchOutDir picks the per-image result directory: the flag, then the
// directory part of OUTPUT_FILE / --output, then a folder inside the watched one.
func watchOutDir(folder, flagDir, outputFile string) string {
	switch {
	case flagDir != "":
		return flagDir
	case outputFile != "":
		return filepath.Dir(outputFile)
	default:
		return filepath.Join(folder, defaultWatchOutDir)
	}
}

// requireSink refuses to watch when processed images would be thrown away.
func requireSink(s *repo.MultiSink) error {
	if s == nil || s.Empty() {
		return common.NewAppError(common.CodeConfig, "watch has nowhere to save results; drop --no-json or set STORE_DRIVER or S3_BUCKET", common.ErrInvalidInput)
	}
	return nil
}
