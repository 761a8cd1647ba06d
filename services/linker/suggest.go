package linker

import (
	"reviewharvest/lib/dataset"
	"reviewharvest/lib/textutil"

	"github.com/antzucaro/matchr"
)

// Suggestion pairs a snippet that did not link with the global review whose
// text is most similar to it.
type Suggestion struct {
	Snippet    dataset.ProductReviewSnippet
	Review     dataset.Review
	Similarity float64
}

// Suggest finds the closest review for every unresolved snippet by
// Jaro-Winkler similarity. suggestions are only for inspection, they never
// set a rid. placeholder rows and matches below threshold are left out.
func Suggest(unresolved []dataset.ProductReviewSnippet, reviews []dataset.Review, threshold float64) []Suggestion {
	var result []Suggestion
	for _, snippet := range unresolved {
		if snippet.Rid.Valid || dataset.IsPlaceholderText(snippet.Text) {
			continue
		}
		text := textutil.Normalize(snippet.Text)

		var mostSimilarity float64
		var mostSimilar dataset.Review
		for _, review := range reviews {
			similarity := matchr.JaroWinkler(text, textutil.Normalize(review.Text), false)
			if similarity > mostSimilarity {
				mostSimilarity = similarity
				mostSimilar = review
			}
		}

		if mostSimilarity > 0 && mostSimilarity >= threshold {
			result = append(result, Suggestion{
				Snippet:    snippet,
				Review:     mostSimilar,
				Similarity: mostSimilarity,
			})
		}
	}
	return result
}
