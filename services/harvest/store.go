package harvest

import (
	"context"
	"database/sql"
	"reviewharvest/lib/dataset"
	"reviewharvest/services/harvest/db"
	"time"
)

// Store mirrors finished crawl runs into a sql database, every run keeps its
// own copy of the four tables keyed by run id.
type Store struct {
	db  *sql.DB
	qry *db.Queries
}

// NewStore creates the schema if it does not exist yet.
func NewStore(ctx context.Context, database *sql.DB) (Store, error) {
	_, err := database.ExecContext(ctx, db.Schema)
	if err != nil {
		return Store{}, err
	}
	return Store{
		db:  database,
		qry: db.New(database),
	}, nil
}

func (s Store) SaveRun(ctx context.Context, res Result) error {
	ctx, span := tracer.Start(ctx, "Store.SaveRun")
	defer span.End()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	runId := res.RunID.String()
	headless := int64(0)
	if res.Headless {
		headless = 1
	}
	err = txqry.CreateCrawlRun(ctx, db.CreateCrawlRunParams{
		ID:             runId,
		StartedAt:      res.StartedAt.Unix(),
		FinishedAt:     res.FinishedAt.Unix(),
		BaseUrl:        res.BaseURL,
		Headless:       headless,
		LinkedResolved: int64(res.Linked.Resolved),
		LinkedTotal:    int64(res.Linked.Total),
	})
	if err != nil {
		return err
	}

	for _, p := range res.Products {
		err = txqry.CreateProduct(ctx, db.CreateProductParams{
			RunID:       runId,
			Pid:         int64(p.Pid),
			Title:       p.Title,
			Description: p.Description,
			Price:       p.Price,
		})
		if err != nil {
			return err
		}
	}
	for _, r := range res.Reviews {
		err = txqry.CreateReview(ctx, db.CreateReviewParams{
			RunID:      runId,
			Rid:        int64(r.Rid),
			Date:       r.Date.Format(dataset.DateLayout),
			ReviewText: r.Text,
			Stars:      int64(r.Stars),
		})
		if err != nil {
			return err
		}
	}
	for _, t := range res.Testimonials {
		err = txqry.CreateTestimonial(ctx, db.CreateTestimonialParams{
			RunID:           runId,
			Tid:             int64(t.Tid),
			TestimonialText: t.Text,
			Stars:           int64(t.Stars),
		})
		if err != nil {
			return err
		}
	}
	for i, s := range res.ProductReviews {
		err = txqry.CreateProductReview(ctx, db.CreateProductReviewParams{
			RunID:      runId,
			Position:   int64(i),
			Pid:        int64(s.Pid),
			ReviewText: s.Text,
			Rid: sql.NullInt64{
				Int64: int64(s.Rid.V),
				Valid: s.Rid.Valid,
			},
		})
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

type StoredRun struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	BaseURL    string
	Linked     int
	Total      int
}

func (s Store) Runs(ctx context.Context) ([]StoredRun, error) {
	rows, err := s.qry.GetCrawlRuns(ctx)
	if err != nil {
		return nil, err
	}
	runs := make([]StoredRun, len(rows))
	for i, r := range rows {
		runs[i] = StoredRun{
			ID:         r.ID,
			StartedAt:  time.Unix(r.StartedAt, 0),
			FinishedAt: time.Unix(r.FinishedAt, 0),
			BaseURL:    r.BaseUrl,
			Linked:     int(r.LinkedResolved),
			Total:      int(r.LinkedTotal),
		}
	}
	return runs, nil
}
