package library

import (
	"context"
	"strings"

	"penx/internal/apperr"
	"penx/pkg/models"
)

// ValidateRating accepts whole ratings from 1 to 5.
func ValidateRating(rating int) error {
	if rating < 1 || rating > 5 {
		return badRequest("Rating must be between 1 and 5")
	}
	return nil
}

// SubmitReview adds the reader's review of a book or replaces their earlier
// one. created is false when an existing review was updated; its id is kept.
func (s *Service) SubmitReview(ctx context.Context, req models.ReviewRequest) (id int64, created bool, err error) {
	r := models.Review{
		BookID:     strings.TrimSpace(req.BookID),
		UserEmail:  strings.TrimSpace(req.UserEmail),
		UserName:   strings.TrimSpace(req.UserName),
		Rating:     req.Rating,
		ReviewText: req.ReviewText,
	}
	if r.BookID == "" || r.UserEmail == "" || r.UserName == "" {
		return 0, false, badRequest("Book ID, user email, user name, and rating are required")
	}
	if err := ValidateRating(r.Rating); err != nil {
		return 0, false, err
	}

	id, created, err = s.db.UpsertReview(ctx, r)
	if err != nil {
		return 0, false, apperr.Internal("Failed to save review", err)
	}
	return id, created, nil
}

// Reviews lists a book's reviews, newest first.
func (s *Service) Reviews(ctx context.Context, bookID string) ([]models.Review, error) {
	reviews, err := s.db.ReviewsForBook(ctx, bookID)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch reviews", err)
	}
	return reviews, nil
}

// AverageRating summarises a book's ratings.
func (s *Service) AverageRating(ctx context.Context, bookID string) (models.RatingSummary, error) {
	summary, err := s.db.AverageRating(ctx, bookID)
	if err != nil {
		return models.RatingSummary{}, apperr.Internal("Failed to fetch average rating", err)
	}
	return summary, nil
}
