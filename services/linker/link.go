// Package linker resolves the reviews shown on product detail pages to the
// global review records they duplicate. The join key is the review text with
// leading and trailing whitespace removed, there is no other shared key.
package linker

import (
	"database/sql"
	"reviewharvest/lib/dataset"
	"reviewharvest/lib/textutil"
)

// Index maps normalized review text to rid.
type Index map[string]int

// BuildIndex indexes reviews in order. when several reviews share the same
// normalized text only the last one is kept.
func BuildIndex(reviews []dataset.Review) Index {
	index := make(Index, len(reviews))
	for _, r := range reviews {
		index[textutil.Normalize(r.Text)] = r.Rid
	}
	return index
}

func (i Index) Lookup(text string) (rid int, ok bool) {
	rid, ok = i[textutil.Normalize(text)]
	return rid, ok
}

type Summary struct {
	Resolved int
	Total    int
}

func (s Summary) Unresolved() int {
	return s.Total - s.Resolved
}

// Link returns a copy of snippets with every rid set to the matching global
// review, or to null when no review has the same text. snippets is not
// modified and any rid it already carries is recomputed.
func Link(snippets []dataset.ProductReviewSnippet, reviews []dataset.Review) ([]dataset.ProductReviewSnippet, Summary) {
	return LinkIndex(snippets, BuildIndex(reviews))
}

func LinkIndex(snippets []dataset.ProductReviewSnippet, index Index) ([]dataset.ProductReviewSnippet, Summary) {
	linked := make([]dataset.ProductReviewSnippet, len(snippets))
	summary := Summary{Total: len(snippets)}
	for i, s := range snippets {
		s.Rid = sql.Null[int]{}
		rid, ok := index.Lookup(s.Text)
		if ok {
			s.Rid = dataset.RidOf(rid)
			summary.Resolved++
		}
		linked[i] = s
	}
	return linked, summary
}
