package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"check-review-gateway/internal/checkapi"
	"check-review-gateway/internal/services/review"
)

// batchParams are the flags shared by review and submit.
type batchParams struct {
	checks   []int
	expected string
}

func (p *batchParams) register(cmd *cobra.Command) {
	cmd.Flags().IntSliceVar(&p.checks, "checks", nil, "IDs of the checks in the batch (required)")
	cmd.Flags().StringVar(&p.expected, "expected", "", "expected batch total (default: the batch's recorded amount)")
	_ = cmd.MarkFlagRequired("checks")
}

// openSession loads the batch's checks into a review session.
func (a *app) openSession(ctx context.Context, batchID int, params batchParams, opts ...review.Option) (*review.Session, error) {
	expected, err := a.expectedAmount(ctx, batchID, params.expected)
	if err != nil {
		return nil, err
	}
	checks, err := review.LoadChecks(ctx, a.client, params.checks)
	if err != nil {
		return nil, err
	}
	if err := review.CheckBatch(batchID, checks); err != nil {
		return nil, err
	}

	opts = append([]review.Option{review.WithLogger(a.logger)}, opts...)
	return review.NewSession(batchID, expected, checks, a.client, opts...), nil
}

func (a *app) expectedAmount(ctx context.Context, batchID int, flag string) (decimal.Decimal, error) {
	if flag != "" {
		expected, err := decimal.NewFromString(flag)
		if err != nil || review.ValidateExpected(expected) != nil {
			return decimal.Zero, fmt.Errorf("invalid expected amount %q", flag)
		}
		return expected, nil
	}

	batch, err := a.client.FindBatch(ctx, batchID)
	if errors.Is(err, checkapi.ErrNotFound) {
		a.logger.Warn().Int("batch_id", batchID).Msg("batch not listed, reviewing without expected amount")
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return review.ExpectedFromBatch(batch), nil
}

func newReviewCmd(a *app) *cobra.Command {
	var params batchParams

	cmd := &cobra.Command{
		Use:   "review <batchId>",
		Short: "Show the checks of a batch and how their total compares to the expected amount",
		Example: `  checkreview review 12 --checks 101,102,103
  checkreview review 12 --checks 101,102 --expected 250.00`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batchID, err := parseID("batch", args[0])
			if err != nil {
				return err
			}
			session, err := a.openSession(cmd.Context(), batchID, params)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "PAGE\tCHECK\tAMOUNT\tNAME\tZIP\tCONTACT\tREVIEW")
			for _, item := range session.Items() {
				contact := "-"
				if item.ContactName != "" {
					contact = fmt.Sprintf("%s (%s)", item.ContactName, item.MatchSource)
				}
				flag := ""
				if item.NeedsReview {
					flag = "needs review"
				}
				if item.IsMoneyOrder {
					flag = joinFlags(flag, "money order")
				}
				fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%s\t%s\n",
					item.PageNumber, item.ID, item.Amount.StringFixed(2),
					item.Fields["name"], item.Fields["zip_code"], contact, flag)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintln(out)
			newTerminalPresenter(out).RenderTotal(session.Evaluate())
			return nil
		},
	}
	params.register(cmd)
	return cmd
}

func joinFlags(a, b string) string {
	if a == "" {
		return b
	}
	return a + ", " + b
}

func newSubmitCmd(a *app) *cobra.Command {
	var (
		params batchParams
		yes    bool
	)

	cmd := &cobra.Command{
		Use:   "submit <batchId>",
		Short: "Submit a reviewed batch to HubSpot",
		Long: `Submit a reviewed batch to HubSpot.

When the batch has an expected amount and the checks do not add up to it
within one cent, the mismatch is shown and confirmation is asked before
anything is sent. A declined confirmation sends nothing.`,
		Example: `  checkreview submit 12 --checks 101,102,103
  checkreview submit 12 --checks 101,102,103 --yes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			batchID, err := parseID("batch", args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			session, err := a.openSession(cmd.Context(), batchID, params, review.WithPresenter(newTerminalPresenter(out)))
			if err != nil {
				return err
			}

			confirmer := promptConfirmer(out, cmd.InOrStdin())
			if yes {
				confirmer = alwaysConfirm()
			}

			outcome, err := session.SubmitWith(cmd.Context(), confirmer)
			if err != nil {
				return err
			}
			if outcome.State != review.StateDone {
				fmt.Fprintln(out, "Submission cancelled.")
			}
			return nil
		},
	}
	params.register(cmd)
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "submit without asking when the total does not match")
	return cmd
}
