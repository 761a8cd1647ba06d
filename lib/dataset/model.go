package dataset

import (
	"database/sql"
	"time"
)

const (
	ProductsFile       = "products.csv"
	ReviewsFile        = "reviews.csv"
	TestimonialsFile   = "testimonials.csv"
	ProductReviewsFile = "product_reviews.csv"
)

// placeholder texts for product review rows that carry no real review
const (
	NoReviewsText    = "No reviews found for this product."
	ErrorReviewsText = "Error extracting reviews."
)

func IsPlaceholderText(text string) bool {
	return text == NoReviewsText || text == ErrorReviewsText
}

type Product struct {
	Pid         int
	Title       string
	Description string
	// scraped price prefixed with a currency sign, ex. "$24.99"
	Price string
}

type Review struct {
	Rid   int
	Date  time.Time
	Text  string
	Stars int
}

type Testimonial struct {
	Tid   int
	Text  string
	Stars int
}

// ProductReviewSnippet is a review as it appears on a product's detail page.
// Rid is only valid once the snippet has been linked to a global review.
type ProductReviewSnippet struct {
	Pid  int
	Text string
	Rid  sql.Null[int]
}

func RidOf(id int) sql.Null[int] {
	return sql.Null[int]{V: id, Valid: true}
}
