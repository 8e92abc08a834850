package database

import (
	"context"
	"database/sql"
	"fmt"
	"math"

	"penx/pkg/models"
)

func (s *Store) queryReviews(ctx context.Context, query string, args ...any) ([]models.Review, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	out := []models.Review{}
	for rows.Next() {
		var (
			r       models.Review
			created string
		)
		if err := rows.Scan(&r.ID, &r.BookID, &r.UserEmail, &r.UserName, &r.Rating, &r.ReviewText, &created); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		r.CreatedAt = parseTime(created)
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpsertReview stores the reader's review of a book in one statement. A second
// submission for the same book and email rewrites the first in place and
// keeps its id; created reports whether a new row was inserted.
func (s *Store) UpsertReview(ctx context.Context, r models.Review) (id int64, created bool, err error) {
	var revision int
	err = s.db.QueryRowContext(ctx,
		`INSERT INTO reviews (book_id, user_email, user_name, rating, review_text, created_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(book_id, user_email) DO UPDATE SET
            rating = excluded.rating,
            review_text = excluded.review_text,
            user_name = excluded.user_name,
            created_at = excluded.created_at,
            revision = reviews.revision + 1
         RETURNING id, revision`,
		r.BookID, r.UserEmail, r.UserName, r.Rating, r.ReviewText, s.timestamp(),
	).Scan(&id, &revision)
	if err != nil {
		return 0, false, fmt.Errorf("upsert review: %w", err)
	}
	return id, revision == 0, nil
}

// ReviewsForBook lists a book's reviews, newest first.
func (s *Store) ReviewsForBook(ctx context.Context, bookID string) ([]models.Review, error) {
	return s.queryReviews(ctx,
		`SELECT id, book_id, user_email, user_name, rating, review_text, created_at
         FROM reviews WHERE book_id = ? ORDER BY created_at DESC, id DESC`, bookID)
}

// RecentReviews lists the latest reviews across all books.
func (s *Store) RecentReviews(ctx context.Context, limit int) ([]models.Review, error) {
	return s.queryReviews(ctx,
		`SELECT id, book_id, user_email, user_name, rating, review_text, created_at
         FROM reviews ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
}

// AverageRating returns the mean rating rounded to one decimal. A book with
// no reviews reports zero for both values.
func (s *Store) AverageRating(ctx context.Context, bookID string) (models.RatingSummary, error) {
	var (
		avg   sql.NullFloat64
		count int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT AVG(rating), COUNT(*) FROM reviews WHERE book_id = ?`, bookID,
	).Scan(&avg, &count)
	if err != nil {
		return models.RatingSummary{}, fmt.Errorf("average rating: %w", err)
	}
	if !avg.Valid || count == 0 {
		return models.RatingSummary{}, nil
	}
	return models.RatingSummary{
		AverageRating: math.Round(avg.Float64*10) / 10,
		TotalReviews:  count,
	}, nil
}
