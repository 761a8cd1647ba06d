package linker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"reviewharvest/lib/dataset"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

var (
	tracer = otel.Tracer("reviewharvest.services.linker")
	meter  = otel.Meter("reviewharvest.services.linker")
)

var resolvedCounter, _ = meter.Int64Counter(
	"linker.resolved",
	metric.WithDescription("product review rows linked to a global review"),
)

// ErrMissingInput is returned when one of the tables linking reads from does
// not exist yet.
var ErrMissingInput = errors.New("missing linker input")

// LinkFiles links the product review table in dir against the global review
// table in dir and rewrites it. when either table is missing nothing is
// written and ErrMissingInput is returned, the caller decides whether that is
// fatal.
func LinkFiles(ctx context.Context, dir string) (Summary, error) {
	ctx, span := tracer.Start(ctx, "LinkFiles")
	defer span.End()

	snippets, err := dataset.ReadProductReviews(dir)
	if errors.Is(err, fs.ErrNotExist) {
		slog.WarnContext(ctx, "product reviews table not found, skipping linking", "dir", dir)
		return Summary{}, fmt.Errorf("%w: %s", ErrMissingInput, dataset.ProductReviewsFile)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read product reviews")
		return Summary{}, err
	}
	reviews, err := dataset.ReadReviews(dir)
	if errors.Is(err, fs.ErrNotExist) {
		slog.WarnContext(ctx, "reviews table not found, skipping linking", "dir", dir)
		return Summary{}, fmt.Errorf("%w: %s", ErrMissingInput, dataset.ReviewsFile)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read reviews")
		return Summary{}, err
	}

	linked, summary := Link(snippets, reviews)

	err = dataset.WriteProductReviews(dir, linked)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to write linked product reviews")
		return summary, err
	}

	span.SetAttributes(
		attribute.Int("resolved", summary.Resolved),
		attribute.Int("total", summary.Total),
	)
	resolvedCounter.Add(ctx, int64(summary.Resolved))
	slog.InfoContext(ctx, "linked product reviews", "resolved", summary.Resolved, "total", summary.Total)

	return summary, nil
}
