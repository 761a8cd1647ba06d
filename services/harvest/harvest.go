// Package harvest runs a crawl: it walks the product listing, the review
// feed, the testimonials page and every product detail page, numbers the
// records it finds and writes them as tables to the data directory.
//
// Records are numbered in traversal order, page order first and then
// document order within a page. The numbers are only meaningful within one
// run, a later run renumbers everything if the site changes its order.
package harvest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reviewharvest/lib/browser"
	"reviewharvest/lib/dataset"
	"reviewharvest/lib/idseq"
	"reviewharvest/lib/scrapers/webscraping"
	"reviewharvest/services/linker"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("reviewharvest.services.harvest")
	meter  = otel.Meter("reviewharvest.services.harvest")
)

var recordsCounter, _ = meter.Int64Counter(
	"harvest.records",
	metric.WithDescription("elements seen while crawling, by kind and outcome"),
)

// Navigator opens pages for a crawl, *browser.Session implements it.
type Navigator interface {
	Open(ctx context.Context, url string, expand browser.Expansion) (browser.Page, error)
}

type Result struct {
	RunID      uuid.UUID
	BaseURL    string
	Headless   bool
	StartedAt  time.Time
	FinishedAt time.Time

	Products       []dataset.Product
	Reviews        []dataset.Review
	Testimonials   []dataset.Testimonial
	ProductReviews []dataset.ProductReviewSnippet
	Linked         linker.Summary
}

// Run is a single crawl, it owns the sequences the record ids are drawn
// from. a Run must not be executed more than once.
type Run struct {
	id       uuid.UUID
	config   Config
	nav      Navigator
	store    *Store
	headless bool

	pids idseq.Sequence
	rids idseq.Sequence
	tids idseq.Sequence

	productLinks map[int]string
}

type RunOptions struct {
	// Store optionally mirrors the result of the run into a database.
	Store *Store
	// Headless is recorded with the run, it does not change the crawl.
	Headless bool
}

func NewRun(config Config, nav Navigator, opts RunOptions) *Run {
	return &Run{
		id:           uuid.New(),
		config:       config,
		nav:          nav,
		store:        opts.Store,
		headless:     opts.Headless,
		productLinks: map[int]string{},
	}
}

func (r *Run) ID() uuid.UUID {
	return r.id
}

// Execute runs every stage in order. each table is written as soon as its
// stage completes, so a run that fails part way leaves the tables of the
// stages it finished on disk.
func (r *Run) Execute(ctx context.Context) (Result, error) {
	ctx, span := tracer.Start(ctx, "Execute")
	defer span.End()
	span.SetAttributes(attribute.String("run_id", r.id.String()))

	res := Result{
		RunID:     r.id,
		BaseURL:   r.config.BaseUrl,
		Headless:  r.headless,
		StartedAt: time.Now(),
	}
	dir := r.config.DataDir

	slog.InfoContext(ctx, "starting crawl", "run_id", r.id, "base_url", r.config.BaseUrl, "data_dir", dir)

	var err error
	res.Products, err = r.crawlProducts(ctx)
	if err != nil {
		return r.fail(span, res, "products", err)
	}
	err = dataset.WriteProducts(dir, res.Products)
	if err != nil {
		return r.fail(span, res, "products", err)
	}

	res.Reviews, err = r.crawlReviews(ctx)
	if err != nil {
		return r.fail(span, res, "reviews", err)
	}
	err = dataset.WriteReviews(dir, res.Reviews)
	if err != nil {
		return r.fail(span, res, "reviews", err)
	}

	res.Testimonials, err = r.crawlTestimonials(ctx)
	if err != nil {
		return r.fail(span, res, "testimonials", err)
	}
	err = dataset.WriteTestimonials(dir, res.Testimonials)
	if err != nil {
		return r.fail(span, res, "testimonials", err)
	}

	snippets, err := r.crawlSnippets(ctx, res.Products)
	if err != nil {
		return r.fail(span, res, "product reviews", err)
	}
	err = dataset.WriteProductReviews(dir, snippets)
	if err != nil {
		return r.fail(span, res, "product reviews", err)
	}
	res.ProductReviews = snippets

	// linking never fails the run, the unlinked table is already on disk
	summary, err := linker.LinkFiles(ctx, dir)
	if err != nil {
		slog.WarnContext(ctx, "product reviews were not linked", "err", err)
	} else {
		res.Linked = summary
		linked, err := dataset.ReadProductReviews(dir)
		if err != nil {
			slog.WarnContext(ctx, "failed to read back linked product reviews", "err", err)
		} else {
			res.ProductReviews = linked
		}
	}

	res.FinishedAt = time.Now()

	if r.store != nil {
		err = r.store.SaveRun(ctx, res)
		if err != nil {
			return r.fail(span, res, "database mirror", err)
		}
		slog.InfoContext(ctx, "mirrored run to database", "run_id", r.id)
	}

	slog.InfoContext(
		ctx, "crawl finished",
		"run_id", r.id,
		"products", len(res.Products),
		"reviews", len(res.Reviews),
		"testimonials", len(res.Testimonials),
		"product_reviews", len(res.ProductReviews),
		"linked", res.Linked.Resolved,
		"duration", res.FinishedAt.Sub(res.StartedAt),
	)
	return res, nil
}

func (r *Run) fail(span trace.Span, res Result, stage string, err error) (Result, error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, stage+" failed")
	return res, fmt.Errorf("%s: %w", stage, err)
}

// fatal reports whether err must stop the crawl instead of only losing the
// page it happened on.
func fatal(ctx context.Context, err error) bool {
	if err == nil {
		return false
	}
	return ctx.Err() != nil ||
		errors.Is(err, browser.ErrSessionClosed) ||
		errors.Is(err, browser.ErrSessionLost)
}

func (r *Run) open(ctx context.Context, url string, expand browser.Expansion) (webscraping.Document, error) {
	page, err := r.nav.Open(ctx, url, expand)
	if err != nil {
		return webscraping.Document{}, err
	}
	return webscraping.ParsePage(page)
}

func count[T any](ctx context.Context, kind string, outcomes []webscraping.Outcome[T]) {
	for _, o := range outcomes {
		recordsCounter.Add(ctx, 1, metric.WithAttributes(
			attribute.String("kind", kind),
			attribute.String("outcome", o.Kind.String()),
		))
		if o.Kind == webscraping.KindSkipped {
			slog.DebugContext(ctx, "skipped element", "kind", kind, "err", o.Err)
		}
	}
}

func formatPrice(price string) string {
	price = strings.TrimSpace(price)
	if strings.HasPrefix(price, "$") {
		return price
	}
	return "$" + price
}

func (r *Run) crawlProducts(ctx context.Context) ([]dataset.Product, error) {
	ctx, span := tracer.Start(ctx, "crawlProducts")
	defer span.End()

	var products []dataset.Product
	for page := r.config.ProductPages.First; page <= r.config.ProductPages.Last; page++ {
		if err := ctx.Err(); err != nil {
			return products, err
		}

		url := r.config.productsUrl(page)
		doc, err := r.open(ctx, url, browser.None{})
		if fatal(ctx, err) {
			return products, err
		}
		if err != nil {
			slog.WarnContext(ctx, "failed to load product listing, skipping page", "url", url, "err", err)
			continue
		}

		outcomes := webscraping.Products(ctx, doc)
		count(ctx, "product", outcomes)
		for _, o := range outcomes {
			if o.Kind != webscraping.KindExtracted {
				continue
			}
			pid := r.pids.Next()
			products = append(products, dataset.Product{
				Pid:         pid,
				Title:       o.Value.Title,
				Description: o.Value.Description,
				Price:       formatPrice(o.Value.Price),
			})
			r.productLinks[pid] = o.Value.Link
		}
		slog.DebugContext(ctx, "scraped product listing", "page", page, "cards", len(outcomes))
	}

	span.SetAttributes(attribute.Int("products", len(products)))
	return products, nil
}

func (r *Run) crawlReviews(ctx context.Context) ([]dataset.Review, error) {
	ctx, span := tracer.Start(ctx, "crawlReviews")
	defer span.End()

	url := r.config.reviewsUrl()
	doc, err := r.open(ctx, url, r.config.loadMore())
	if fatal(ctx, err) {
		return nil, err
	}
	if err != nil {
		slog.WarnContext(ctx, "failed to load reviews", "url", url, "err", err)
		return nil, nil
	}

	outcomes := webscraping.Reviews(ctx, doc)
	count(ctx, "review", outcomes)

	var reviews []dataset.Review
	for _, o := range outcomes {
		if !o.Keep() {
			continue
		}
		date, ok := dataset.ParseDate(o.Value.DateText)
		if !ok {
			slog.DebugContext(ctx, "unparsable review date, using fallback", "date", o.Value.DateText)
		}
		reviews = append(reviews, dataset.Review{
			Rid:   r.rids.Next(),
			Date:  date,
			Text:  o.Value.Text,
			Stars: o.Value.Stars,
		})
	}

	span.SetAttributes(attribute.Int("reviews", len(reviews)))
	return reviews, nil
}

func (r *Run) crawlTestimonials(ctx context.Context) ([]dataset.Testimonial, error) {
	ctx, span := tracer.Start(ctx, "crawlTestimonials")
	defer span.End()

	url := r.config.testimonialsUrl()
	doc, err := r.open(ctx, url, r.config.scroll())
	if fatal(ctx, err) {
		return nil, err
	}
	if err != nil {
		slog.WarnContext(ctx, "failed to load testimonials", "url", url, "err", err)
		return nil, nil
	}

	outcomes := webscraping.Testimonials(ctx, doc)
	count(ctx, "testimonial", outcomes)

	var testimonials []dataset.Testimonial
	for _, o := range outcomes {
		if !o.Keep() {
			continue
		}
		testimonials = append(testimonials, dataset.Testimonial{
			Tid:   r.tids.Next(),
			Text:  o.Value.Text,
			Stars: o.Value.Stars,
		})
	}

	span.SetAttributes(attribute.Int("testimonials", len(testimonials)))
	return testimonials, nil
}

var errNoDetailLink = errors.New("product card has no detail link")

// crawlSnippets visits the detail page of every product. each visit yields
// at least one row carrying the product's pid.
func (r *Run) crawlSnippets(ctx context.Context, products []dataset.Product) ([]dataset.ProductReviewSnippet, error) {
	ctx, span := tracer.Start(ctx, "crawlSnippets")
	defer span.End()

	var snippets []dataset.ProductReviewSnippet
	for _, product := range products {
		if err := ctx.Err(); err != nil {
			return snippets, err
		}

		var outcomes []webscraping.Outcome[webscraping.SnippetFields]
		link := r.productLinks[product.Pid]
		if link == "" {
			slog.WarnContext(ctx, "product has no detail page", "pid", product.Pid, "title", product.Title)
			outcomes = webscraping.FailedSnippets(errNoDetailLink)
		} else {
			doc, err := r.open(ctx, link, browser.None{})
			if fatal(ctx, err) {
				return snippets, err
			}
			if err != nil {
				slog.WarnContext(ctx, "failed to load product page", "pid", product.Pid, "url", link, "err", err)
				outcomes = webscraping.FailedSnippets(err)
			} else {
				outcomes = webscraping.Snippets(ctx, doc)
			}
		}
		count(ctx, "product_review", outcomes)

		for _, o := range outcomes {
			if !o.Keep() {
				continue
			}
			snippets = append(snippets, dataset.ProductReviewSnippet{
				Pid:  product.Pid,
				Text: o.Value.Text,
			})
		}
	}

	span.SetAttributes(attribute.Int("product_reviews", len(snippets)))
	return snippets, nil
}
