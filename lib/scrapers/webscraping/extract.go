package webscraping

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"reviewharvest/lib/browser"
	"reviewharvest/lib/dataset"
	"reviewharvest/lib/htmlutil"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("reviewharvest.lib.scrapers.webscraping")

var ErrMissingElement = errors.New("missing element")

func missing(selector string) error {
	return fmt.Errorf("%w: %s", ErrMissingElement, selector)
}

// selectors for the markup of the scraped site
const (
	productCardSelector        = ".product"
	productTitleSelector       = "h3"
	productDescriptionSelector = ".short-description"
	productPriceSelector       = ".price"
	productLinkSelector        = "h3 a"

	reviewSelector      = `[data-testid="review"]`
	reviewDateSelector  = `[data-testid="review-date"]`
	reviewTextSelector  = `[data-testid="review-text"]`
	reviewStarsSelector = `[data-testid="review-stars"]`

	testimonialSelector       = ".testimonial"
	testimonialTextSelector   = ".text"
	testimonialRatingSelector = ".rating"

	snippetSelector     = "div.review"
	snippetTextSelector = "p"

	ratingGlyphSelector = "svg"
)

type ProductFields struct {
	Title       string
	Description string
	Price       string
	// absolute link to the product's detail page, empty if the card has none
	Link string
}

type ReviewFields struct {
	DateText string
	Text     string
	Stars    int
}

type TestimonialFields struct {
	Text  string
	Stars int
}

type SnippetFields struct {
	Text string
}

// Document is a parsed page.
type Document struct {
	URL *url.URL
	*goquery.Document
}

func ParsePage(page browser.Page) (Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return Document{}, err
	}
	link, err := url.Parse(page.URL)
	if err != nil {
		link = nil
	}
	return Document{URL: link, Document: doc}, nil
}

// Products extracts one outcome per product card. title, description and
// price are all required, a card missing any of them is skipped.
func Products(ctx context.Context, doc Document) []Outcome[ProductFields] {
	ctx, span := tracer.Start(ctx, "Products")
	defer span.End()

	var out []Outcome[ProductFields]
	doc.Find(productCardSelector).Each(func(_ int, card *goquery.Selection) {
		title, ok := htmlutil.ChildText(card, productTitleSelector)
		if !ok {
			out = append(out, Skip[ProductFields](missing(productTitleSelector)))
			return
		}
		description, ok := htmlutil.ChildText(card, productDescriptionSelector)
		if !ok {
			out = append(out, Skip[ProductFields](missing(productDescriptionSelector)))
			return
		}
		price, ok := htmlutil.ChildText(card, productPriceSelector)
		if !ok {
			out = append(out, Skip[ProductFields](missing(productPriceSelector)))
			return
		}

		link := ""
		anchors := htmlutil.GetAnchors(ctx, doc.URL, card.Find(productLinkSelector).First())
		if len(anchors) > 0 {
			link = anchors[0].Href
		}

		out = append(out, Extract(ProductFields{
			Title:       title,
			Description: description,
			Price:       price,
			Link:        link,
		}))
	})

	span.SetAttributes(attribute.Int("cards", len(out)))
	return out
}

// Reviews extracts one outcome per review entry, stars are the number of
// rating glyphs rendered inside the entry's stars container.
func Reviews(ctx context.Context, doc Document) []Outcome[ReviewFields] {
	_, span := tracer.Start(ctx, "Reviews")
	defer span.End()

	var out []Outcome[ReviewFields]
	doc.Find(reviewSelector).Each(func(_ int, entry *goquery.Selection) {
		stars, ok := htmlutil.CountWithin(entry, reviewStarsSelector, ratingGlyphSelector)
		if !ok {
			out = append(out, Skip[ReviewFields](missing(reviewStarsSelector)))
			return
		}
		date, ok := htmlutil.ChildText(entry, reviewDateSelector)
		if !ok {
			out = append(out, Skip[ReviewFields](missing(reviewDateSelector)))
			return
		}
		text, ok := htmlutil.ChildText(entry, reviewTextSelector)
		if !ok {
			out = append(out, Skip[ReviewFields](missing(reviewTextSelector)))
			return
		}

		out = append(out, Extract(ReviewFields{
			DateText: date,
			Text:     text,
			Stars:    stars,
		}))
	})

	span.SetAttributes(attribute.Int("entries", len(out)))
	return out
}

func Testimonials(ctx context.Context, doc Document) []Outcome[TestimonialFields] {
	_, span := tracer.Start(ctx, "Testimonials")
	defer span.End()

	var out []Outcome[TestimonialFields]
	doc.Find(testimonialSelector).Each(func(_ int, entry *goquery.Selection) {
		stars, ok := htmlutil.CountWithin(entry, testimonialRatingSelector, ratingGlyphSelector)
		if !ok {
			out = append(out, Skip[TestimonialFields](missing(testimonialRatingSelector)))
			return
		}
		text, ok := htmlutil.ChildText(entry, testimonialTextSelector)
		if !ok {
			out = append(out, Skip[TestimonialFields](missing(testimonialTextSelector)))
			return
		}

		out = append(out, Extract(TestimonialFields{
			Text:  text,
			Stars: stars,
		}))
	})

	span.SetAttributes(attribute.Int("entries", len(out)))
	return out
}

// Snippets extracts the reviews shown on a product detail page. the result
// is never empty: a page without reviews yields a single placeholder so the
// product stays represented.
func Snippets(ctx context.Context, doc Document) []Outcome[SnippetFields] {
	_, span := tracer.Start(ctx, "Snippets")
	defer span.End()

	containers := doc.Find(snippetSelector)
	if containers.Length() == 0 {
		span.AddEvent("no reviews")
		return []Outcome[SnippetFields]{
			Placeholder(SnippetFields{Text: dataset.NoReviewsText}, nil),
		}
	}

	out := make([]Outcome[SnippetFields], 0, containers.Length())
	containers.Each(func(_ int, container *goquery.Selection) {
		text, ok := htmlutil.ChildText(container, snippetTextSelector)
		if !ok {
			out = append(out, Placeholder(
				SnippetFields{Text: dataset.ErrorReviewsText},
				missing(snippetTextSelector),
			))
			return
		}
		out = append(out, Extract(SnippetFields{Text: text}))
	})

	span.SetAttributes(attribute.Int("entries", len(out)))
	return out
}

// FailedSnippets stands in for a detail page that could not be loaded.
func FailedSnippets(err error) []Outcome[SnippetFields] {
	return []Outcome[SnippetFields]{
		Placeholder(SnippetFields{Text: dataset.ErrorReviewsText}, err),
	}
}
