package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"correctionloop/internal/domain"
	"correctionloop/internal/review"
)

const dateLayout = "2006-01-02"

func newListCmd(opts *rootOptions) *cobra.Command {
	var (
		category string
		all      bool
		archived bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List items due for review",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			cat, err := resolveCategory(a, category)
			if err != nil {
				return err
			}

			now := time.Now()
			var items []domain.Item
			if all || archived {
				items, err = a.session.Items(cat.ID)
			} else {
				items, err = a.session.DueItems(cat.ID, now)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCONTENT\tCHECKS\tNEXT\tSTATUS")
			shown := 0
			for _, item := range items {
				if item.IsArchived != archived {
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%d/%d\t%s\t%s\n",
					item.ID,
					item.Content,
					item.CheckCount, domain.ArchiveThreshold,
					item.NextReviewDate.Local().Format(dateLayout),
					itemStatus(item, cat.Kind, now),
				)
				shown++
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "%d item(s) in %s\n", shown, cat.Label)
			return nil
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "Category id (default: active category)")
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include items that are not due yet")
	cmd.Flags().BoolVar(&archived, "archived", false, "List archived items instead")
	return cmd
}

func itemStatus(item domain.Item, kind domain.CategoryKind, now time.Time) string {
	switch {
	case item.IsArchived:
		return "archived"
	case kind == domain.KindVocabulary && item.IsLoadingTranslation:
		return "translating"
	case kind == domain.KindVocabulary && item.TranslationFailed:
		return "translation failed"
	case review.IsDue(now, item.NextReviewDate):
		return "due"
	default:
		return "scheduled"
	}
}
