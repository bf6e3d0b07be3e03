package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"correctionloop/internal/importer"
)

func newImportCmd(opts *rootOptions) *cobra.Command {
	var (
		category  string
		translate bool
	)

	cmd := &cobra.Command{
		Use:   "import [file|-]",
		Short: "Import items, one per line",
		Long: `Import items into a category. Lines are trimmed and blank lines skipped.
Reads .txt, .md, .csv and .xlsx files, or stdin when the argument is "-" or missing.`,
		Args: cobra.MaximumNArgs(1),
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

			var text string
			if len(args) == 0 || args[0] == "-" {
				raw, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				text = string(raw)
			} else {
				text, err = importer.ReadFile(args[0])
				if err != nil {
					return err
				}
			}

			items, err := a.session.Import(cat.ID, text)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Imported %d item(s) into %s\n", len(items), cat.Label)

			if translate && a.coordinator != nil && cat.ID == a.coordinator.CategoryID() {
				n, err := a.coordinator.Drain(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Translated %d item(s), %d pending\n", n, a.session.PendingTranslations())
			}

			return a.session.Save(cmd.Context())
		},
	}
	cmd.Flags().StringVarP(&category, "category", "c", "", "Target category id (default: active category)")
	cmd.Flags().BoolVarP(&translate, "translate", "t", false, "Translate imported vocabulary before exiting")
	return cmd
}
