package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"reviewharvest/lib/dataset"
	"reviewharvest/lib/textutil"
	"reviewharvest/services/linker"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var suggestThreshold float64

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Link the product reviews in the data directory to the global reviews.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := linker.LinkFiles(cmd.Context(), config.DataDir)
		if errors.Is(err, linker.ErrMissingInput) {
			// already reported by the linker, the tables are left as they are
			return nil
		}
		if err != nil {
			return fmt.Errorf("link product reviews: %w", err)
		}
		slog.Info("linking done", "resolved", summary.Resolved, "unresolved", summary.Unresolved())

		if suggestThreshold <= 0 || summary.Unresolved() == 0 {
			return nil
		}

		snippets, err := dataset.ReadProductReviews(config.DataDir)
		if err != nil {
			return fmt.Errorf("read product reviews: %w", err)
		}
		reviews, err := dataset.ReadReviews(config.DataDir)
		if err != nil {
			return fmt.Errorf("read reviews: %w", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"pid", "product review", "closest review", "rid", "similarity"})
		for _, s := range linker.Suggest(snippets, reviews, suggestThreshold) {
			t.AppendRow(table.Row{
				s.Snippet.Pid,
				textutil.Truncate(s.Snippet.Text, 40),
				textutil.Truncate(s.Review.Text, 40),
				s.Review.Rid,
				s.Similarity,
			})
		}
		t.Render()
		return nil
	},
}

func init() {
	linkCmd.Flags().Float64Var(
		&suggestThreshold, "suggest", 0,
		"list the closest global review for unlinked product reviews with a similarity of at least this value (0-1)",
	)
	rootCmd.AddCommand(linkCmd)
}
