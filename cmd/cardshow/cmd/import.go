package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func ImportCardsCmd() *cobra.Command {
	var owner string

	c := &cobra.Command{
		Use:   "import-cards <dir>",
		Short: "Create cards from markdown files with frontmatter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer closeApp(a)

			results, err := a.CardImporter.ImportDir(cmd.Context(), owner, os.DirFS(args[0]))
			if err != nil {
				return err
			}

			failed := 0
			out := cmd.OutOrStdout()
			for _, r := range results {
				if r.Error != "" {
					failed++
					fmt.Fprintf(out, "FAIL %s: %s\n", r.File, r.Error)
					continue
				}
				fmt.Fprintf(out, "ok   %s -> %s\n", r.File, r.CardID)
			}
			fmt.Fprintf(out, "\n%d imported, %d failed\n", len(results)-failed, failed)

			if failed > 0 {
				return fmt.Errorf("%d card definitions failed to import", failed)
			}
			return nil
		},
	}
	c.Flags().StringVar(&owner, "owner", "", "user id that will own the imported cards")
	_ = c.MarkFlagRequired("owner")

	return c
}
