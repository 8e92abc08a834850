package library

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"penx/pkg/models"
)

func TestValidateRating(t *testing.T) {
	for _, r := range []int{1, 3, 5} {
		assert.NoError(t, ValidateRating(r))
	}
	for _, r := range []int{-1, 0, 6} {
		assertCode(t, http.StatusBadRequest, ValidateRating(r))
	}
}

func TestSubmitReviewKeepsIDOnUpdate(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	req := models.ReviewRequest{BookID: "1", UserEmail: "a@x.io", UserName: "A", Rating: 4, ReviewText: "good"}

	id, created, err := f.svc.SubmitReview(ctx, req)
	require.NoError(t, err)
	assert.True(t, created)

	req.Rating, req.ReviewText = 2, "changed my mind"
	again, created, err := f.svc.SubmitReview(ctx, req)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id, again)

	reviews, err := f.svc.Reviews(ctx, "1")
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, 2, reviews[0].Rating)
	assert.Equal(t, "changed my mind", reviews[0].ReviewText)
}

func TestSubmitReviewRejectsBadInput(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, _, err := f.svc.SubmitReview(ctx, models.ReviewRequest{BookID: "1", UserEmail: "a@x.io", UserName: "A", Rating: 6})
	assertCode(t, http.StatusBadRequest, err)
	_, _, err = f.svc.SubmitReview(ctx, models.ReviewRequest{BookID: "1", UserEmail: "a@x.io", UserName: "A"})
	assertCode(t, http.StatusBadRequest, err)
	_, _, err = f.svc.SubmitReview(ctx, models.ReviewRequest{BookID: "1", UserName: "A", Rating: 3})
	assertCode(t, http.StatusBadRequest, err)

	reviews, err := f.svc.Reviews(ctx, "1")
	require.NoError(t, err)
	assert.Empty(t, reviews)
}

func TestAverageRating(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	summary, err := f.svc.AverageRating(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, models.RatingSummary{}, summary)

	for i, rating := range []int{5, 4, 4} {
		_, _, err := f.svc.SubmitReview(ctx, models.ReviewRequest{
			BookID: "1", UserEmail: string(rune('a'+i)) + "@x.io", UserName: "R", Rating: rating,
		})
		require.NoError(t, err)
	}
	summary, err = f.svc.AverageRating(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 4.3, summary.AverageRating)
	assert.Equal(t, 3, summary.TotalReviews)
}
