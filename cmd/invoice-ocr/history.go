package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/invoice-ocr/internal/common"
	repo "github.com/joseph-ayodele/invoice-ocr/internal/repository"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded runs, or the images of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Store.Driver == repo.DriverNone {
				return common.NewAppError(common.CodeConfig, "STORE_DRIVER is none; no run history is kept", common.ErrInvalidInput)
			}
			store, sink, err := openStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			defer w.Flush()

			if len(args) == 0 {
				runs, err := sink.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, "RUN ID\tDATE\tFOLDER\tTOTAL\tOK\tFAILED")
				for _, r := range runs {
					fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\n", r.ID, r.ProcessingDate.Format("2006-01-02 15:04:05"), r.InputFolder, r.TotalImages, r.Successful, r.Failed)
				}
				return nil
			}

			if err := common.ValidateAndReturnError(common.NewValidator().Field("run-id", args[0], common.UUID)); err != nil {
				return err
			}
			runID := uuid.MustParse(args[0])
			images, err := sink.ImagesForRun(cmd.Context(), runID)
			if err != nil {
				return err
			}
			if len(images) == 0 {
				return fmt.Errorf("run %s: %w", runID, common.ErrNotFound)
			}
			fmt.Fprintln(w, "FILE\tSTATUS\tMETHOD\tCONFIDENCE\tCHARS")
			for _, im := range images {
				fmt.Fprintf(w, "%s\t%s\t%s\t%.3f\t%d\n", im.FilePath, im.Status, im.Method, im.Confidence, len([]rune(im.BestText)))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to list")
	return cmd
}
