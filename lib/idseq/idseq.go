// Package idseq issues run-local surrogate keys.
//
// Keys follow traversal order (page order, then in-page DOM order), so they
// are only meaningful within the run that issued them. A rerun against a site
// whose content order changed will renumber everything.
package idseq

// Sequence hands out dense keys starting at 1. The zero value is ready to
// use. A Sequence is never reset, so a key is never reused.
type Sequence struct {
	last int
}

func (s *Sequence) Next() int {
	s.last++
	return s.last
}

// Last returns the most recently issued key, 0 if none were issued.
func (s *Sequence) Last() int {
	return s.last
}
