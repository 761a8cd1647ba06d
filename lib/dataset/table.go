package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var ErrMalformedTable = errors.New("malformed table")

// table describes how one entity kind maps onto a csv file, columns are
// always written in header order.
type table[T any] struct {
	file   string
	header []string
	encode func(T) []string
	// decode receives the record reordered into header order
	decode func([]string) (T, error)
}

var productsTable = table[Product]{
	file:   ProductsFile,
	header: []string{"pid", "Title", "Description", "Price"},
	encode: func(p Product) []string {
		return []string{strconv.Itoa(p.Pid), p.Title, p.Description, p.Price}
	},
	decode: func(rec []string) (Product, error) {
		pid, err := parseInt("pid", rec[0])
		if err != nil {
			return Product{}, err
		}
		return Product{Pid: pid, Title: rec[1], Description: rec[2], Price: rec[3]}, nil
	},
}

var reviewsTable = table[Review]{
	file:   ReviewsFile,
	header: []string{"rid", "Date", "Review_Text", "Stars"},
	encode: func(r Review) []string {
		return []string{strconv.Itoa(r.Rid), formatDate(r.Date), r.Text, strconv.Itoa(r.Stars)}
	},
	decode: func(rec []string) (Review, error) {
		rid, err := parseInt("rid", rec[0])
		if err != nil {
			return Review{}, err
		}
		date, err := parseStoredDate(rec[1])
		if err != nil {
			return Review{}, fmt.Errorf("column Date: %w", err)
		}
		stars, err := parseInt("Stars", rec[3])
		if err != nil {
			return Review{}, err
		}
		return Review{Rid: rid, Date: date, Text: rec[2], Stars: stars}, nil
	},
}

var testimonialsTable = table[Testimonial]{
	file:   TestimonialsFile,
	header: []string{"tid", "Testimonial_Text", "Stars"},
	encode: func(t Testimonial) []string {
		return []string{strconv.Itoa(t.Tid), t.Text, strconv.Itoa(t.Stars)}
	},
	decode: func(rec []string) (Testimonial, error) {
		tid, err := parseInt("tid", rec[0])
		if err != nil {
			return Testimonial{}, err
		}
		stars, err := parseInt("Stars", rec[2])
		if err != nil {
			return Testimonial{}, err
		}
		return Testimonial{Tid: tid, Text: rec[1], Stars: stars}, nil
	},
}

var productReviewsTable = table[ProductReviewSnippet]{
	file:   ProductReviewsFile,
	header: []string{"pid", "Review_Text", "rid"},
	encode: func(s ProductReviewSnippet) []string {
		rid := ""
		if s.Rid.Valid {
			rid = strconv.Itoa(s.Rid.V)
		}
		return []string{strconv.Itoa(s.Pid), s.Text, rid}
	},
	decode: func(rec []string) (ProductReviewSnippet, error) {
		pid, err := parseInt("pid", rec[0])
		if err != nil {
			return ProductReviewSnippet{}, err
		}
		snippet := ProductReviewSnippet{Pid: pid, Text: rec[1]}
		if strings.TrimSpace(rec[2]) != "" {
			rid, err := parseRid(rec[2])
			if err != nil {
				return ProductReviewSnippet{}, err
			}
			snippet.Rid = RidOf(rid)
		}
		return snippet, nil
	},
}

func parseInt(column, value string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", column, err)
	}
	return n, nil
}

// parseRid also accepts the float form ("12.0") produced by tools that store
// nullable integer columns as floats.
func parseRid(value string) (int, error) {
	value = strings.TrimSpace(value)
	if n, err := strconv.Atoi(value); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("column rid: invalid id %q", value)
	}
	return int(f), nil
}

// write replaces dir/<file> with rows. the table is written to a temporary
// file first so an interrupted write never leaves a truncated table behind.
func (t table[T]) write(dir string, rows []T) (err error) {
	err = os.MkdirAll(dir, 0755)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, t.file+".*.tmp")
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := csv.NewWriter(tmp)
	err = w.Write(t.header)
	if err != nil {
		return err
	}
	for _, row := range rows {
		err = w.Write(t.encode(row))
		if err != nil {
			return err
		}
	}
	w.Flush()
	err = w.Error()
	if err != nil {
		return err
	}
	err = tmp.Close()
	if err != nil {
		return err
	}
	err = os.Chmod(tmp.Name(), 0644)
	if err != nil {
		return err
	}

	return os.Rename(tmp.Name(), filepath.Join(dir, t.file))
}

// read loads dir/<file>. columns are matched by header name so files with
// extra or reordered columns still load. a missing file yields an error
// matching fs.ErrNotExist.
func (t table[T]) read(dir string) ([]T, error) {
	f, err := os.Open(filepath.Join(dir, t.file))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s: empty file: %w", t.file, ErrMalformedTable)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", t.file, err)
	}

	positions := make([]int, len(t.header))
	for i, column := range t.header {
		positions[i] = -1
		for j, got := range header {
			if strings.TrimSpace(strings.TrimPrefix(got, "\ufeff")) == column {
				positions[i] = j
				break
			}
		}
		if positions[i] < 0 {
			return nil, fmt.Errorf("%s: missing column %q: %w", t.file, column, ErrMalformedTable)
		}
	}

	rows := []T{}
	line := 1
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("%s: %w", t.file, err)
		}

		ordered := make([]string, len(positions))
		for i, pos := range positions {
			if pos < len(rec) {
				ordered[i] = rec[pos]
			}
		}
		row, err := t.decode(ordered)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", t.file, line, err)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

func WriteProducts(dir string, rows []Product) error {
	return productsTable.write(dir, rows)
}

func ReadProducts(dir string) ([]Product, error) {
	return productsTable.read(dir)
}

func WriteReviews(dir string, rows []Review) error {
	return reviewsTable.write(dir, rows)
}

func ReadReviews(dir string) ([]Review, error) {
	return reviewsTable.read(dir)
}

func WriteTestimonials(dir string, rows []Testimonial) error {
	return testimonialsTable.write(dir, rows)
}

func ReadTestimonials(dir string) ([]Testimonial, error) {
	return testimonialsTable.read(dir)
}

func WriteProductReviews(dir string, rows []ProductReviewSnippet) error {
	return productReviewsTable.write(dir, rows)
}

func ReadProductReviews(dir string) ([]ProductReviewSnippet, error) {
	return productReviewsTable.read(dir)
}
