package database

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"penx/pkg/models"
)

func tempDB(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), filepath.Join(t.TempDir(), "penx.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	// deterministic, strictly increasing clock
	var mu sync.Mutex
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		base = base.Add(time.Second)
		return base
	}
	return s
}

func ptr[T any](v T) *T { return &v }

func TestMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "penx.db")
	ctx := context.Background()

	s, err := Open(ctx, path)
	require.NoError(t, err)
	v, err := s.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, v)
	require.NoError(t, s.Close())

	s, err = Open(ctx, path)
	require.NoError(t, err)
	defer s.Close()
	v, err = s.Version(ctx)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, v)
}

func TestAuthors(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()

	a, err := s.CreateAuthor(ctx, models.Author{Name: "Ada", Email: "ada@x.io", PasswordHash: "h", Bio: "hi"})
	require.NoError(t, err)
	assert.NotZero(t, a.ID)
	assert.Nil(t, a.InstitutionID)

	_, err = s.CreateAuthor(ctx, models.Author{Name: "Other", Email: "ada@x.io", PasswordHash: "h"})
	assert.ErrorIs(t, err, ErrDuplicate)

	got, err := s.AuthorByEmail(ctx, "ada@x.io")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	_, err = s.AuthorByID(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	updated, err := s.UpdateAuthorProfile(ctx, a.ID, nil, ptr("/uploads/profile-pictures/a.png"))
	require.NoError(t, err)
	assert.Equal(t, "hi", updated.Bio)
	require.NotNil(t, updated.ProfilePicture)
	assert.Equal(t, "/uploads/profile-pictures/a.png", *updated.ProfilePicture)

	_, err = s.UpdateAuthorProfile(ctx, 999, ptr("x"), nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInstitutions(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()
	admin, err := s.CreateAuthor(ctx, models.Author{Name: "Ada", Email: "ada@x.io", PasswordHash: "h"})
	require.NoError(t, err)

	in, err := s.CreateInstitution(ctx, models.Institution{Name: "Guild", Description: "d", Location: "Paris", AdminID: admin.ID})
	require.NoError(t, err)
	assert.Equal(t, "Guild", in.Name)

	got, err := s.InstitutionByID(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, in, got)

	_, err = s.InstitutionByID(ctx, 42)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBooks(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()
	a, err := s.CreateAuthor(ctx, models.Author{Name: "Ada", Email: "ada@x.io", PasswordHash: "h"})
	require.NoError(t, err)

	_, err = s.CreateBook(ctx, a.ID, "1")
	require.NoError(t, err)
	_, err = s.CreateBook(ctx, a.ID, "2")
	require.NoError(t, err)
	_, err = s.CreateBook(ctx, a.ID, "2")
	assert.ErrorIs(t, err, ErrDuplicate)

	books, err := s.BooksByAuthor(ctx, a.ID)
	require.NoError(t, err)
	require.Len(t, books, 2)
	assert.Equal(t, "1", books[0].FolderName)

	recent, err := s.RecentBooks(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "2", recent[0].FolderName)

	b, err := s.BookByFolder(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.AuthorID)

	require.NoError(t, s.DeleteBook(ctx, "2"))
	_, err = s.BookByFolder(ctx, "2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSoftDeleteComment(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()

	c, err := s.InsertComment(ctx, models.Comment{BookID: "1", UserEmail: "a@x.io", UserName: "A", Comment: "hi"})
	require.NoError(t, err)
	assert.False(t, c.Deleted())

	assert.ErrorIs(t, s.SoftDeleteComment(ctx, c.ID, "b@x.io"), ErrNotFound)
	assert.ErrorIs(t, s.SoftDeleteComment(ctx, 999, "a@x.io"), ErrNotFound)

	require.NoError(t, s.SoftDeleteComment(ctx, c.ID, "a@x.io"))
	first, err := s.CommentByID(ctx, c.ID)
	require.NoError(t, err)
	require.True(t, first.Deleted())

	require.NoError(t, s.SoftDeleteComment(ctx, c.ID, "a@x.io"))
	second, err := s.CommentByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, *first.DeletedAt, *second.DeletedAt, "first deletion time is kept")

	all, err := s.CommentsForBook(ctx, "1")
	require.NoError(t, err)
	assert.Len(t, all, 1)

	recent, err := s.RecentComments(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestReviewUpsertKeepsID(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()

	id, created, err := s.UpsertReview(ctx, models.Review{BookID: "1", UserEmail: "a@x.io", UserName: "A", Rating: 2, ReviewText: "meh"})
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := s.UpsertReview(ctx, models.Review{BookID: "1", UserEmail: "a@x.io", UserName: "A", Rating: 5, ReviewText: "great"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, id, again)

	reviews, err := s.ReviewsForBook(ctx, "1")
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, 5, reviews[0].Rating)
	assert.Equal(t, "great", reviews[0].ReviewText)
}

func TestEveryConnectionGetsPragmas(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()

	conns := make([]*sql.Conn, 0, 4)
	for i := 0; i < 4; i++ {
		conn, err := s.db.Conn(ctx)
		require.NoError(t, err)
		conns = append(conns, conn)
	}
	defer func() {
		for _, c := range conns {
			c.Close()
		}
	}()

	for i, conn := range conns {
		var fk, timeout int
		require.NoError(t, conn.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk))
		require.NoError(t, conn.QueryRowContext(ctx, "PRAGMA busy_timeout").Scan(&timeout))
		assert.Equal(t, 1, fk, "conn %d", i)
		assert.Equal(t, 5000, timeout, "conn %d", i)
	}
}

func TestConcurrentReviewUpserts(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()

	const workers, rounds = 16, 10
	var wg sync.WaitGroup
	errs := make(chan error, workers*rounds)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			email := fmt.Sprintf("reader%d@x.io", w)
			for r := 0; r < rounds; r++ {
				_, _, err := s.UpsertReview(ctx, models.Review{BookID: "1", UserEmail: email, UserName: "R", Rating: r%5 + 1})
				if err != nil {
					errs <- err
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	reviews, err := s.ReviewsForBook(ctx, "1")
	require.NoError(t, err)
	assert.Len(t, reviews, workers)
}

func TestReviewRatingConstraint(t *testing.T) {
	s := tempDB(t)
	_, _, err := s.UpsertReview(context.Background(), models.Review{BookID: "1", UserEmail: "a@x.io", UserName: "A", Rating: 6})
	assert.Error(t, err)
}

func TestReviewsNewestFirstAndAverage(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()

	summary, err := s.AverageRating(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, models.RatingSummary{}, summary)

	for i, rating := range []int{5, 4, 4} {
		_, _, err := s.UpsertReview(ctx, models.Review{
			BookID: "1", UserEmail: string(rune('a'+i)) + "@x.io", UserName: "R", Rating: rating,
		})
		require.NoError(t, err)
	}

	summary, err = s.AverageRating(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, models.RatingSummary{AverageRating: 4.3, TotalReviews: 3}, summary)

	reviews, err := s.ReviewsForBook(ctx, "1")
	require.NoError(t, err)
	require.Len(t, reviews, 3)
	assert.Equal(t, "c@x.io", reviews[0].UserEmail)
	assert.Equal(t, "a@x.io", reviews[2].UserEmail)

	recent, err := s.RecentReviews(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestParseTimeAcceptsLegacyFormat(t *testing.T) {
	got := parseTime("2024-01-02 03:04:05")
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), got)
	assert.True(t, parseTime("garbage").IsZero())
}
