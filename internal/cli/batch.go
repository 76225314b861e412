package cli

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"check-review-gateway/internal/checkapi"
	"check-review-gateway/internal/models"
)

func newUploadCmd(a *app) *cobra.Command {
	var (
		appealCode string
		watch      bool
	)

	cmd := &cobra.Command{
		Use:   "upload <file.pdf>",
		Short: "Upload a scanned PDF for processing",
		Example: `  # Upload general mail and follow processing
  checkreview upload march.pdf --watch

  # Upload bank checks
  checkreview upload deposit.pdf --appeal-code 035`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			if !checkapi.IsPDF(path) {
				return fmt.Errorf("%s: please upload a PDF file", path)
			}
			if _, ok := models.AppealCodes[appealCode]; !ok {
				return fmt.Errorf("unknown appeal code %q (use 035 or 020)", appealCode)
			}

			file, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open %s: %w", path, err)
			}
			defer func() { _ = file.Close() }()

			resp, err := a.client.Upload(cmd.Context(), path, file, appealCode)
			if err != nil {
				return err
			}
			if !resp.Success {
				return fmt.Errorf("upload rejected: %s", resp.Error)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Uploaded %s as batch %d (%s)\n", path, resp.BatchID, models.AppealCodes[appealCode])
			if !watch {
				return nil
			}
			return followStatus(cmd, a, resp.BatchID)
		},
	}

	cmd.Flags().StringVar(&appealCode, "appeal-code", models.DefaultAppealCode, "appeal code: 035 (Bank Check) or 020 (General Mail)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "follow processing until it finishes")
	return cmd
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <batchId>",
		Short: "Follow the processing status of a batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batchID, err := parseID("batch", args[0])
			if err != nil {
				return err
			}
			return followStatus(cmd, a, batchID)
		},
	}
}

func followStatus(cmd *cobra.Command, a *app, batchID int) error {
	var last models.ProcessingStatus
	err := a.client.StreamStatus(cmd.Context(), batchID, func(status models.ProcessingStatus) bool {
		last = status
		fmt.Fprintln(cmd.OutOrStdout(), formatStatus(status))
		return true
	})
	if err != nil {
		return err
	}
	if last.Status == "error" {
		return fmt.Errorf("processing of batch %d failed: %s", batchID, last.Message)
	}
	return nil
}

func formatStatus(s models.ProcessingStatus) string {
	switch {
	case s.Status == "complete":
		return fmt.Sprintf("complete: %d checks found", s.ChecksFound)
	case s.Status == "error":
		return "error: " + s.Message
	case s.TotalPages > 0:
		return fmt.Sprintf("%s: page %d/%d, %d checks found", s.Status, s.CurrentPage, s.TotalPages, s.ChecksFound)
	case s.Message != "":
		return s.Status + ": " + s.Message
	default:
		return s.Status
	}
}

func newBatchesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "batches",
		Short: "List uploaded batches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			batches, err := a.client.ListBatches(cmd.Context())
			if err != nil {
				return err
			}
			if len(batches) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No batches found.")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tFILE\tAPPEAL\tSTATUS\tCHECKS\tEXPECTED\tUPLOADED")
			for _, b := range batches {
				expected := "-"
				if b.ExpectedAmount != nil {
					expected = "$" + strconv.FormatFloat(*b.ExpectedAmount, 'f', 2, 64)
				}
				appeal := b.AppealCode
				if label, ok := models.AppealCodes[b.AppealCode]; ok {
					appeal = fmt.Sprintf("%s (%s)", b.AppealCode, label)
				}
				uploaded := models.Str(b.UploadDate)
				if uploaded == "" {
					uploaded = "-"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\t%s\n",
					b.ID, b.Filename, appeal, b.Status, b.TotalChecks, expected, uploaded)
			}
			return w.Flush()
		},
	}
}

func parseID(kind, arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s ID %q", kind, arg)
	}
	return id, nil
}
