package webscraping

// OutcomeKind tells what became of one element during extraction.
type OutcomeKind int

const (
	// KindExtracted carries a complete value.
	KindExtracted OutcomeKind = iota
	// KindSkipped elements are dropped, Err says why.
	KindSkipped
	// KindPlaceholder carries a synthetic value standing in for data that
	// could not be extracted.
	KindPlaceholder
)

func (k OutcomeKind) String() string {
	switch k {
	case KindExtracted:
		return "extracted"
	case KindSkipped:
		return "skipped"
	case KindPlaceholder:
		return "placeholder"
	}
	return "unknown"
}

type Outcome[T any] struct {
	Kind  OutcomeKind
	Value T
	Err   error
}

// Keep reports whether the outcome produces a record.
func (o Outcome[T]) Keep() bool {
	return o.Kind != KindSkipped
}

func Extract[T any](value T) Outcome[T] {
	return Outcome[T]{Kind: KindExtracted, Value: value}
}

func Skip[T any](err error) Outcome[T] {
	return Outcome[T]{Kind: KindSkipped, Err: err}
}

func Placeholder[T any](value T, err error) Outcome[T] {
	return Outcome[T]{Kind: KindPlaceholder, Value: value, Err: err}
}
