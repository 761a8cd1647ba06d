package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"reviewharvest/lib/dataset"
	"reviewharvest/lib/sentiment"
	"reviewharvest/lib/textutil"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

const textWidth = 60

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Render a table from the data directory.",
}

// readTable reports missing data as a warning, ok is false when there is
// nothing to render.
func readTable[T any](read func(dir string) ([]T, error), file string) (rows []T, ok bool) {
	rows, err := read(config.DataDir)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Warn("no data, run `harvest crawl` first", "file", file, "dir", config.DataDir)
		return nil, false
	}
	if err != nil {
		slog.Warn("no data, table could not be read", "file", file, "err", err)
		return nil, false
	}
	return rows, true
}

func stars(n int) string {
	return fmt.Sprintf("%d ★", n)
}

var showProductsCmd = &cobra.Command{
	Use:   "products",
	Short: "List scraped products.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		products, ok := readTable(dataset.ReadProducts, dataset.ProductsFile)
		if !ok {
			return
		}
		t := newTable()
		t.AppendHeader(table.Row{"pid", "title", "description", "price"})
		for _, p := range products {
			t.AppendRow(table.Row{p.Pid, p.Title, textutil.Truncate(p.Description, textWidth), p.Price})
		}
		t.Render()
	},
}

var (
	reviewYear     int
	reviewMonth    int
	sentimentUrl   string
	sentimentToken string
)

var showReviewsCmd = &cobra.Command{
	Use:   "reviews",
	Short: "List global reviews, optionally only one month and labelled by sentiment.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if reviewMonth < 0 || reviewMonth > 12 {
			return fmt.Errorf("invalid month: %d is not within 1-12", reviewMonth)
		}
		reviews, ok := readTable(dataset.ReadReviews, dataset.ReviewsFile)
		if !ok {
			return nil
		}
		if reviewMonth != 0 {
			reviews = dataset.FilterReviewsByMonth(reviews, reviewYear, time.Month(reviewMonth))
		}

		var labels []sentiment.Label
		if sentimentUrl != "" && len(reviews) > 0 {
			texts := make([]string, len(reviews))
			for i, r := range reviews {
				texts[i] = r.Text
			}
			client := sentiment.NewHTTPClient(sentimentUrl)
			if sentimentToken != "" {
				client = client.SetAuthToken(sentimentToken)
			}
			var err error
			labels, err = client.Classify(cmd.Context(), texts)
			if err != nil {
				return fmt.Errorf("classify reviews: %w", err)
			}
		}

		t := newTable()
		header := table.Row{"rid", "date", "review", "stars"}
		if labels != nil {
			header = append(header, "sentiment", "score")
		}
		t.AppendHeader(header)
		for i, r := range reviews {
			row := table.Row{r.Rid, r.Date.Format(dataset.DateLayout), textutil.Truncate(r.Text, textWidth), stars(r.Stars)}
			if labels != nil {
				row = append(row, labels[i].Sentiment, fmt.Sprintf("%.3f", labels[i].Score))
			}
			t.AppendRow(row)
		}
		if labels != nil {
			positive := 0
			for _, l := range labels {
				if l.Sentiment == sentiment.Positive {
					positive++
				}
			}
			t.AppendFooter(table.Row{"", "", "positive", "", fmt.Sprintf("%d / %d", positive, len(labels))})
		}
		t.Render()
		return nil
	},
}

var showTestimonialsCmd = &cobra.Command{
	Use:   "testimonials",
	Short: "List testimonials.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		testimonials, ok := readTable(dataset.ReadTestimonials, dataset.TestimonialsFile)
		if !ok {
			return
		}
		t := newTable()
		t.AppendHeader(table.Row{"tid", "testimonial", "stars"})
		for _, r := range testimonials {
			t.AppendRow(table.Row{r.Tid, textutil.Truncate(r.Text, textWidth), stars(r.Stars)})
		}
		t.Render()
	},
}

var showProductReviewsCmd = &cobra.Command{
	Use:     "product_reviews",
	Aliases: []string{"product-reviews"},
	Short:   "List the reviews found on product pages and the global review each links to.",
	Args:    cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		snippets, ok := readTable(dataset.ReadProductReviews, dataset.ProductReviewsFile)
		if !ok {
			return
		}
		t := newTable()
		t.AppendHeader(table.Row{"pid", "review", "rid"})
		for _, s := range snippets {
			rid := "-"
			if s.Rid.Valid {
				rid = fmt.Sprint(s.Rid.V)
			}
			t.AppendRow(table.Row{s.Pid, textutil.Truncate(s.Text, textWidth), rid})
		}
		t.Render()
	},
}

var showLinkedCmd = &cobra.Command{
	Use:   "linked",
	Short: "List linked product reviews joined with their product and global review.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		snippets, ok := readTable(dataset.ReadProductReviews, dataset.ProductReviewsFile)
		if !ok {
			return
		}
		products, ok := readTable(dataset.ReadProducts, dataset.ProductsFile)
		if !ok {
			return
		}
		reviews, ok := readTable(dataset.ReadReviews, dataset.ReviewsFile)
		if !ok {
			return
		}

		t := newTable()
		t.AppendHeader(table.Row{"title", "price", "date", "review", "stars"})
		for _, l := range dataset.JoinLinked(snippets, products, reviews) {
			t.AppendRow(table.Row{
				l.Title,
				l.Price,
				l.Date.Format(dataset.DateLayout),
				textutil.Truncate(l.Text, textWidth),
				stars(l.Stars),
			})
		}
		t.Render()
	},
}

var showRunsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List the crawl runs mirrored to the configured database.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !config.Database.Enabled() {
			slog.Warn("no database configured, runs are only recorded with a database")
			return nil
		}
		store, closeStore, err := openStore(cmd.Context(), config.Database)
		if err != nil {
			return err
		}
		defer closeStore()

		runs, err := store.Runs(cmd.Context())
		if err != nil {
			return fmt.Errorf("list runs: %w", err)
		}
		t := newTable()
		t.AppendHeader(table.Row{"run", "started", "duration", "base url", "linked"})
		for _, r := range runs {
			t.AppendRow(table.Row{
				r.ID,
				r.StartedAt.Format(time.DateTime),
				r.FinishedAt.Sub(r.StartedAt),
				r.BaseURL,
				fmt.Sprintf("%d / %d", r.Linked, r.Total),
			})
		}
		t.Render()
		return nil
	},
}

func init() {
	showReviewsCmd.Flags().IntVar(&reviewYear, "year", 2023, "year of --month")
	showReviewsCmd.Flags().IntVar(&reviewMonth, "month", 0, "only show reviews written in this month (1-12)")
	showReviewsCmd.Flags().StringVar(&sentimentUrl, "sentiment-url", "", "label reviews with the sentiment classifier at this url")
	showReviewsCmd.Flags().StringVar(
		&sentimentToken, "sentiment-token", os.Getenv("HARVEST_SENTIMENT_TOKEN"),
		"bearer token for --sentiment-url, defaults to $HARVEST_SENTIMENT_TOKEN",
	)

	showCmd.AddCommand(
		showProductsCmd,
		showReviewsCmd,
		showTestimonialsCmd,
		showProductReviewsCmd,
		showLinkedCmd,
		showRunsCmd,
	)
	rootCmd.AddCommand(showCmd)
}
