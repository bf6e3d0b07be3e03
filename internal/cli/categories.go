package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"correctionloop/internal/review"
)

func newCategoriesCmd(opts *rootOptions) *cobra.Command {
	var activate string

	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List categories with due and total counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if activate != "" {
				cat, err := resolveCategory(a, activate)
				if err != nil {
					return err
				}
				if err := a.session.SetActiveCategory(cat.ID); err != nil {
					return err
				}
				if err := a.session.Save(cmd.Context()); err != nil {
					return err
				}
			}

			now := time.Now()
			active := a.session.ActiveCategory()
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ACTIVE\tID\tLABEL\tKIND\tDUE\tLIVE\tARCHIVED")
			for _, cat := range a.session.Categories() {
				items, err := a.session.Items(cat.ID)
				if err != nil {
					return err
				}
				var due, live, archived int
				for _, item := range items {
					if item.IsArchived {
						archived++
						continue
					}
					live++
					if review.IsDue(now, item.NextReviewDate) {
						due++
					}
				}
				marker := ""
				if cat.ID == active {
					marker = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%d\t%d\n",
					marker, cat.ID, cat.Label, cat.Kind, due, live, archived)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&activate, "activate", "", "Make this category the active one")
	return cmd
}
