package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"correctionloop/internal/domain"
	"correctionloop/internal/store"
)

func newCheckCmd(opts *rootOptions) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "check <item-id>",
		Short: "Record a successful review of an item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			item, err := a.session.Check(cmd.Context(), args[0], store.CheckOptions{Force: force})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if item.IsArchived {
				fmt.Fprintf(out, "%s archived after %d checks\n", item.Content, domain.ArchiveThreshold)
			} else {
				fmt.Fprintf(out, "%s checked (%d/%d), next review %s\n",
					item.Content, item.CheckCount, domain.ArchiveThreshold,
					item.NextReviewDate.Local().Format(dateLayout))
			}
			return a.session.Save(cmd.Context())
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Check the item even if it is not due")
	return cmd
}
