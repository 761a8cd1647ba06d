package commands

import (
	"context"
	"fmt"
	"log/slog"
	"reviewharvest/lib/browser"
	configlibsql "reviewharvest/lib/configutil/libsql"
	"reviewharvest/lib/telemetry"
	"reviewharvest/services/harvest"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var headless bool

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl the shop and write products, reviews, testimonials and product reviews to the data directory.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := crawl(cmd.Context(), headless)
		if err != nil {
			return fmt.Errorf("crawl failed: %w", err)
		}

		t := newTable()
		t.AppendHeader(table.Row{"table", "rows"})
		t.AppendRows([]table.Row{
			{"products", len(res.Products)},
			{"reviews", len(res.Reviews)},
			{"testimonials", len(res.Testimonials)},
			{"product reviews", len(res.ProductReviews)},
		})
		t.AppendFooter(table.Row{"linked", fmt.Sprintf("%d / %d", res.Linked.Resolved, res.Linked.Total)})
		t.Render()
		return nil
	},
}

func init() {
	crawlCmd.Flags().BoolVar(&headless, "headless", false, "run the browser without a window")
	rootCmd.AddCommand(crawlCmd)
}

func openStore(ctx context.Context, database configlibsql.Database) (*harvest.Store, func(), error) {
	if !database.Enabled() {
		return nil, func() {}, nil
	}
	db, err := database.OpenDB()
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	store, err := harvest.NewStore(ctx, db)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("initialize database: %w", err)
	}
	return &store, func() { db.Close() }, nil
}

// crawl owns the browser session, it is closed before crawl returns no matter
// how the run ended.
func crawl(ctx context.Context, headless bool) (harvest.Result, error) {
	telemetry.InstrumentPerfStats(ctx, 10*time.Second)

	store, closeStore, err := openStore(ctx, config.Database)
	if err != nil {
		return harvest.Result{}, err
	}
	defer closeStore()

	session, err := browser.Launch(ctx, config.BrowserOptions(headless))
	if err != nil {
		return harvest.Result{}, err
	}
	defer func() {
		err := session.Close()
		if err != nil {
			slog.Warn("failed to close browser", "err", err)
		}
	}()

	run := harvest.NewRun(config, session, harvest.RunOptions{
		Store:    store,
		Headless: headless,
	})
	return run.Execute(ctx)
}
