package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"check-review-gateway/internal/models"
	"check-review-gateway/internal/services/review"
)

func newSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <checkId> <field> <value>",
		Short: "Correct a field of a check",
		Long: `Correct a field of a check. Editable fields: amount, check_date,
check_number, name, address_line1, address_line2, city, state, zip_code.`,
		Example: `  checkreview set 101 amount 25.00
  checkreview set 101 name "Jane Doe"`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			checkID, err := parseID("check", args[0])
			if err != nil {
				return err
			}
			field, value := args[1], args[2]
			if !models.EditableFields[field] {
				return fmt.Errorf("%s: %w", field, review.ErrUnknownField)
			}

			if _, err := a.client.UpdateCheck(cmd.Context(), checkID, map[string]any{field: value}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s on check %d\n", field, checkID)
			return nil
		},
	}
}

// checkSession wraps a single check in a session so contact lookups go
// through the same path as a full review.
func (a *app) checkSession(cmd *cobra.Command, checkID int) (*review.Session, error) {
	check, err := a.client.GetCheck(cmd.Context(), checkID)
	if err != nil {
		return nil, err
	}
	return review.NewSession(check.BatchID, decimal.Zero, []models.Check{*check}, a.client, review.WithLogger(a.logger)), nil
}

func newContactsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contacts",
		Short: "Find and assign HubSpot contacts for checks",
	}
	cmd.AddCommand(newContactsSearchCmd(a), newContactsMatchCmd(a))
	return cmd
}

func newContactsSearchCmd(a *app) *cobra.Command {
	var name, zip string

	cmd := &cobra.Command{
		Use:   "search <checkId>",
		Short: "Search contacts by the check's name and zip code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			checkID, err := parseID("check", args[0])
			if err != nil {
				return err
			}
			session, err := a.checkSession(cmd, checkID)
			if err != nil {
				return err
			}

			candidates, err := session.SearchContacts(cmd.Context(), checkID, name, zip)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(candidates) == 0 {
				fmt.Fprintln(out, "No contacts found.")
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tEMAIL\tCITY\tZIP\tMATCH")
			for _, c := range candidates {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d%% %s\n", c.ID, c.Name, c.Email, c.City, c.Zip, c.Percent, c.Bucket)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "name to search for (default: the check's name)")
	cmd.Flags().StringVar(&zip, "zip", "", "zip code to search for (default: the check's zip code)")
	return cmd
}

func newContactsMatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "match <checkId> <contactId> <name>",
		Short: "Assign a contact to a check",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			checkID, err := parseID("check", args[0])
			if err != nil {
				return err
			}
			session, err := a.checkSession(cmd, checkID)
			if err != nil {
				return err
			}

			name := strings.Join(args[2:], " ")
			item, err := session.SelectContact(cmd.Context(), checkID, args[1], name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Matched check %d to %s (%s)\n", item.ID, item.ContactName, item.ContactID)
			return nil
		},
	}
}
