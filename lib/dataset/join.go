package dataset

import "time"

// LinkedReview is a product review snippet joined with its product and the
// global review it was linked to.
type LinkedReview struct {
	Pid   int
	Rid   int
	Title string
	Price string
	Date  time.Time
	Text  string
	Stars int
}

// JoinLinked inner joins snippets with products on pid and with reviews on
// rid. unlinked snippets and dangling keys are dropped, output follows
// snippet order.
func JoinLinked(snippets []ProductReviewSnippet, products []Product, reviews []Review) []LinkedReview {
	productsByPid := make(map[int]Product, len(products))
	for _, p := range products {
		productsByPid[p.Pid] = p
	}
	reviewsByRid := make(map[int]Review, len(reviews))
	for _, r := range reviews {
		reviewsByRid[r.Rid] = r
	}

	var out []LinkedReview
	for _, s := range snippets {
		if !s.Rid.Valid {
			continue
		}
		p, ok := productsByPid[s.Pid]
		if !ok {
			continue
		}
		r, ok := reviewsByRid[s.Rid.V]
		if !ok {
			continue
		}
		out = append(out, LinkedReview{
			Pid:   p.Pid,
			Rid:   r.Rid,
			Title: p.Title,
			Price: p.Price,
			Date:  r.Date,
			Text:  r.Text,
			Stars: r.Stars,
		})
	}
	return out
}

// FilterReviewsByMonth keeps the reviews dated within the given calendar
// month.
func FilterReviewsByMonth(reviews []Review, year int, month time.Month) []Review {
	var out []Review
	for _, r := range reviews {
		if r.Date.Year() == year && r.Date.Month() == month {
			out = append(out, r)
		}
	}
	return out
}
