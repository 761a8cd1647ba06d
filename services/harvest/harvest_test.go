package harvest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reviewharvest/lib/browser"
	"reviewharvest/lib/dataset"
	"reviewharvest/lib/testutil"
	"reviewharvest/services/linker"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

const baseUrl = "https://shop.test"

type fakeNavigator struct {
	pages  map[string]string
	errors map[string]error
	opened []string
	expand map[string]browser.Expansion
}

func newFakeNavigator() *fakeNavigator {
	return &fakeNavigator{
		pages:  map[string]string{},
		errors: map[string]error{},
		expand: map[string]browser.Expansion{},
	}
}

func (n *fakeNavigator) Open(ctx context.Context, url string, expand browser.Expansion) (browser.Page, error) {
	if err := ctx.Err(); err != nil {
		return browser.Page{}, err
	}
	n.opened = append(n.opened, url)
	n.expand[url] = expand
	err, failed := n.errors[url]
	if failed {
		return browser.Page{}, err
	}
	html, ok := n.pages[url]
	if !ok {
		return browser.Page{URL: url, HTML: "<html><body></body></html>"}, nil
	}
	return browser.Page{URL: url, HTML: html}, nil
}

func productCard(title, price, href string) string {
	link := title
	if href != "" {
		link = fmt.Sprintf(`<a href="%s">%s</a>`, href, title)
	}
	return fmt.Sprintf(`<div class="product">
		<h3>%s</h3>
		<div class="short-description">About %s</div>
		<div class="price">%s</div>
	</div>`, link, title, price)
}

func reviewEntry(date, text string, stars int) string {
	glyphs := ""
	for i := 0; i < stars; i++ {
		glyphs += "<svg></svg>"
	}
	return fmt.Sprintf(`<div data-testid="review">
		<span data-testid="review-date">%s</span>
		<div data-testid="review-stars">%s</div>
		<p data-testid="review-text">%s</p>
	</div>`, date, glyphs, text)
}

func page(body ...string) string {
	html := "<html><body>"
	for _, b := range body {
		html += b
	}
	return html + "</body></html>"
}

func testConfig(t *testing.T) Config {
	config, err := Config{
		BaseUrl:      baseUrl + "/",
		DataDir:      t.TempDir(),
		ProductPages: PageRange{First: 1, Last: 3},
	}.WithDefaults()
	require.NoError(t, err)
	return config
}

func fixtureSite() *fakeNavigator {
	nav := newFakeNavigator()
	nav.pages[baseUrl+"/products?page=1"] = page(
		productCard("Chocolate Box", "24.99", "/product/1"),
		productCard("Red Potion", "$4.99", baseUrl+"/product/2"),
	)
	nav.pages[baseUrl+"/products?page=2"] = page(
		// no price, skipped
		`<div class="product"><h3><a href="/product/9">Broken</a></h3><div class="short-description">x</div></div>`,
		productCard("Teal Potion", "4.99", "/product/3"),
		productCard("Linkless", "1.00", ""),
	)
	nav.errors[baseUrl+"/products?page=3"] = errors.New("navigation timed out")

	nav.pages[baseUrl+"/reviews"] = page(
		reviewEntry("2023-03-15", "Great!", 5),
		`<div data-testid="review"><p data-testid="review-text">no stars or date</p></div>`,
		reviewEntry("not a date", "Bad.", 1),
	)
	nav.pages[baseUrl+"/testimonials"] = page(
		`<div class="testimonial"><span class="rating"><svg></svg><svg></svg></span><p class="text">Nice shop</p></div>`,
		`<div class="testimonial"><span class="rating"><svg></svg></span><p class="text">Ok</p></div>`,
	)

	nav.pages[baseUrl+"/product/1"] = page(
		`<div class="review"><p>Great!  </p></div>`,
		`<div class="review"><p>Not present anywhere</p></div>`,
	)
	nav.pages[baseUrl+"/product/2"] = page(`<div class="description">no reviews yet</div>`)
	nav.errors[baseUrl+"/product/3"] = errors.New("page crashed")
	return nav
}

func TestExecute(t *testing.T) {
	config := testConfig(t)
	nav := fixtureSite()

	run := NewRun(config, nav, RunOptions{Headless: true})
	res, err := run.Execute(context.Background())
	require.NoError(t, err)
	require.Equal(t, run.ID(), res.RunID)

	expectedProducts := []dataset.Product{
		{Pid: 1, Title: "Chocolate Box", Description: "About Chocolate Box", Price: "$24.99"},
		{Pid: 2, Title: "Red Potion", Description: "About Red Potion", Price: "$4.99"},
		{Pid: 3, Title: "Teal Potion", Description: "About Teal Potion", Price: "$4.99"},
		{Pid: 4, Title: "Linkless", Description: "About Linkless", Price: "$1.00"},
	}
	diff := cmp.Diff(expectedProducts, res.Products)
	if diff != "" {
		t.Fatal(diff)
	}

	expectedReviews := []dataset.Review{
		{Rid: 1, Date: time.Date(2023, time.March, 15, 0, 0, 0, 0, time.UTC), Text: "Great!", Stars: 5},
		{Rid: 2, Date: dataset.FallbackDate, Text: "Bad.", Stars: 1},
	}
	diff = cmp.Diff(expectedReviews, res.Reviews)
	if diff != "" {
		t.Fatal(diff)
	}

	expectedTestimonials := []dataset.Testimonial{
		{Tid: 1, Text: "Nice shop", Stars: 2},
		{Tid: 2, Text: "Ok", Stars: 1},
	}
	diff = cmp.Diff(expectedTestimonials, res.Testimonials)
	if diff != "" {
		t.Fatal(diff)
	}

	expectedSnippets := []dataset.ProductReviewSnippet{
		{Pid: 1, Text: "Great!", Rid: dataset.RidOf(1)},
		{Pid: 1, Text: "Not present anywhere"},
		{Pid: 2, Text: dataset.NoReviewsText},
		{Pid: 3, Text: dataset.ErrorReviewsText},
		{Pid: 4, Text: dataset.ErrorReviewsText},
	}
	diff = cmp.Diff(expectedSnippets, res.ProductReviews)
	if diff != "" {
		t.Fatal(diff)
	}
	require.Equal(t, linker.Summary{Resolved: 1, Total: 5}, res.Linked)

	// every product detail page is visited exactly once
	visits := map[string]int{}
	for _, url := range nav.opened {
		visits[url]++
	}
	require.Equal(t, 1, visits[baseUrl+"/product/1"])
	require.Equal(t, 1, visits[baseUrl+"/product/2"])
	require.Equal(t, 1, visits[baseUrl+"/product/3"])
	require.Zero(t, visits[baseUrl+"/product/9"])

	require.IsType(t, browser.ClickLoadMore{}, nav.expand[baseUrl+"/reviews"])
	require.IsType(t, browser.ScrollToBottom{}, nav.expand[baseUrl+"/testimonials"])

	// the written tables match the result
	products, err := dataset.ReadProducts(config.DataDir)
	require.NoError(t, err)
	require.Equal(t, res.Products, products)
	snippets, err := dataset.ReadProductReviews(config.DataDir)
	require.NoError(t, err)
	require.Equal(t, res.ProductReviews, snippets)
	testimonials, err := dataset.ReadTestimonials(config.DataDir)
	require.NoError(t, err)
	require.Equal(t, res.Testimonials, testimonials)
}

func TestExecuteIdsAreDense(t *testing.T) {
	config := testConfig(t)
	config.ProductPages = PageRange{First: 1, Last: 4}

	nav := newFakeNavigator()
	pid := 0
	for p := 1; p <= 4; p++ {
		var cards []string
		for i := 0; i < p; i++ {
			pid++
			cards = append(cards, productCard(fmt.Sprintf("product %d", pid), "1.00", fmt.Sprintf("/product/%d", pid)))
			cards = append(cards, `<div class="product"><h3>skipped</h3></div>`)
		}
		nav.pages[fmt.Sprintf("%s/products?page=%d", baseUrl, p)] = page(cards...)
	}
	var reviews []string
	for i := 0; i < 25; i++ {
		reviews = append(reviews, reviewEntry("2023-01-02", fmt.Sprintf("review %d", i), i%5))
		reviews = append(reviews, `<div data-testid="review"></div>`)
	}
	nav.pages[baseUrl+"/reviews"] = page(reviews...)

	res, err := NewRun(config, nav, RunOptions{}).Execute(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Products, 10)
	for i, p := range res.Products {
		require.Equal(t, i+1, p.Pid)
	}
	require.Len(t, res.Reviews, 25)
	for i, r := range res.Reviews {
		require.Equal(t, i+1, r.Rid)
	}
	require.Empty(t, res.Testimonials)

	// the default fake page has no review containers
	require.Len(t, res.ProductReviews, 10)
	for i, s := range res.ProductReviews {
		require.Equal(t, i+1, s.Pid)
		require.Equal(t, dataset.NoReviewsText, s.Text)
		require.False(t, s.Rid.Valid)
	}
}

func TestExecuteSessionClosed(t *testing.T) {
	config := testConfig(t)
	nav := fixtureSite()
	nav.errors[baseUrl+"/reviews"] = fmt.Errorf("open: %w", browser.ErrSessionClosed)

	_, err := NewRun(config, nav, RunOptions{}).Execute(context.Background())
	require.ErrorIs(t, err, browser.ErrSessionClosed)

	// the products stage finished before the failure and stays on disk
	products, err := dataset.ReadProducts(config.DataDir)
	require.NoError(t, err)
	require.Len(t, products, 4)
	_, err = dataset.ReadReviews(config.DataDir)
	require.Error(t, err)
}

func TestExecuteSessionLost(t *testing.T) {
	config := testConfig(t)

	previous := []dataset.Review{
		{Rid: 1, Date: time.Date(2023, time.May, 1, 0, 0, 0, 0, time.UTC), Text: "from an earlier run", Stars: 4},
	}
	require.NoError(t, dataset.WriteReviews(config.DataDir, previous))

	nav := fixtureSite()
	for _, url := range []string{"/reviews", "/testimonials", "/product/1", "/product/2", "/product/3"} {
		nav.errors[baseUrl+url] = fmt.Errorf(
			"navigate to %s: %w: %w",
			baseUrl+url, browser.ErrSessionLost, io.EOF,
		)
	}

	res, err := NewRun(config, nav, RunOptions{}).Execute(context.Background())
	require.ErrorIs(t, err, browser.ErrSessionLost)
	require.Len(t, res.Products, 4)
	require.Empty(t, res.ProductReviews)

	// the crawl stopped at the first page after the browser died
	require.Equal(t, baseUrl+"/reviews", nav.opened[len(nav.opened)-1])

	reviews, err := dataset.ReadReviews(config.DataDir)
	require.NoError(t, err)
	require.Equal(t, previous, reviews)
	_, err = dataset.ReadProductReviews(config.DataDir)
	require.Error(t, err)
}

func TestExecuteKeepsPartiallyExpandedReviews(t *testing.T) {
	config := testConfig(t)
	nav := fixtureSite()

	// the load more control was still present when expansion gave up, every
	// review rendered so far is kept
	var entries []string
	for i := 0; i < 7; i++ {
		entries = append(entries, reviewEntry("2023-02-01", fmt.Sprintf("review %d", i), 3))
	}
	entries = append(entries, `<button id="page-load-more">load more</button>`)
	nav.pages[baseUrl+"/reviews"] = page(entries...)

	res, err := NewRun(config, nav, RunOptions{}).Execute(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Reviews, 7)
	for i, r := range res.Reviews {
		require.Equal(t, i+1, r.Rid)
		require.Equal(t, fmt.Sprintf("review %d", i), r.Text)
	}
	reviews, err := dataset.ReadReviews(config.DataDir)
	require.NoError(t, err)
	require.Equal(t, res.Reviews, reviews)
}

func TestFatal(t *testing.T) {
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	testCases := []struct {
		name  string
		ctx   context.Context
		err   error
		fatal bool
	}{
		{name: "no error", ctx: cancelled, err: nil, fatal: false},
		{name: "page error", ctx: context.Background(), err: errors.New("navigation timed out"), fatal: false},
		{name: "cancelled", ctx: cancelled, err: context.Canceled, fatal: true},
		{name: "session closed", ctx: context.Background(), err: browser.ErrSessionClosed, fatal: true},
		{
			name:  "session lost",
			ctx:   context.Background(),
			err:   fmt.Errorf("read document: %w: %w", browser.ErrSessionLost, io.EOF),
			fatal: true,
		},
	}
	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			require.Equal(t, test.fatal, fatal(test.ctx, test.err))
		})
	}
}

func TestExecuteCancelled(t *testing.T) {
	config := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRun(config, fixtureSite(), RunOptions{}).Execute(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestExecuteMirrorsToStore(t *testing.T) {
	database := testutil.OpenMemoryDB(t)
	store, err := NewStore(context.Background(), database)
	require.NoError(t, err)

	config := testConfig(t)
	res, err := NewRun(config, fixtureSite(), RunOptions{Store: &store}).Execute(context.Background())
	require.NoError(t, err)

	runs, err := store.Runs(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	diff := cmp.Diff(
		StoredRun{
			ID:      res.RunID.String(),
			BaseURL: baseUrl,
			Linked:  1,
			Total:   5,
		},
		runs[0],
		cmpopts.IgnoreFields(StoredRun{}, "StartedAt", "FinishedAt"),
	)
	if diff != "" {
		t.Fatal(diff)
	}
}

func TestLoadConfig(t *testing.T) {
	config, err := LoadConfig("testdata/harvest.json5")
	require.NoError(t, err)

	require.Equal(t, "https://example.test", config.BaseUrl)
	require.Equal(t, PageRange{First: 2, Last: 3}, config.ProductPages)
	require.Equal(t, 2, *config.LoadMore.MaxAttempts)
	// unset fields fall back to the defaults
	require.Equal(t, "#page-load-more", config.LoadMore.Selector)
	require.Equal(t, "data", config.DataDir)
	require.Equal(t, 5, *config.Scroll.Rounds)

	opts := config.BrowserOptions(true)
	require.True(t, opts.Headless)
	require.True(t, opts.NoSandbox)
	require.Equal(t, 30*time.Second, opts.NavigationTimeout)
}

func TestLoadConfigExpansionDisabled(t *testing.T) {
	config, err := LoadConfig("testdata/no_expansion.json5")
	require.NoError(t, err)

	require.Zero(t, *config.LoadMore.MaxAttempts)
	require.Zero(t, *config.Scroll.Rounds)
	require.Zero(t, config.loadMore().MaxAttempts)
	require.Zero(t, config.scroll().Rounds)
	// the other expansion settings still fall back to the defaults
	require.Equal(t, "#page-load-more", config.LoadMore.Selector)
	require.Equal(t, 2000, config.Scroll.SettleTimeoutMs)

	defaults := DefaultConfig()
	require.Equal(t, 5, *defaults.LoadMore.MaxAttempts)
	require.Equal(t, 5, *defaults.Scroll.Rounds)
}

func TestLoadConfigMissingFile(t *testing.T) {
	config, err := LoadConfig("testdata/does-not-exist.json5")
	require.NoError(t, err)
	expected, err := Config{}.WithDefaults()
	require.NoError(t, err)
	require.Equal(t, expected, config)
}

func TestConfigValidate(t *testing.T) {
	config, err := Config{ProductPages: PageRange{First: 3, Last: 2}}.WithDefaults()
	require.NoError(t, err)
	require.Error(t, config.Validate())

	config, err = Config{Scroll: ScrollConfig{Rounds: intPtr(-1)}}.WithDefaults()
	require.NoError(t, err)
	require.Error(t, config.Validate())
}
