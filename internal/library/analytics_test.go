package library

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"penx/pkg/models"
)

func TestAnalytics(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	f.signupReader(t, "lan@x.io")
	f.signupReader(t, "minh@x.io")

	ada := f.signupAuthor(t, "ada@x.io")
	f.addBook(t, ada, NewBook{Title: "Engines", AuthorName: "Ada", Language: "English", Genres: `["Science"]`})
	f.addBook(t, ada, NewBook{Title: "Looms", AuthorName: "Ada", Language: "English", Genres: `["Science","History"]`})
	f.writeMeta(t, "3", models.BookMetadata{Title: "Kieu", Author: "Du", Language: "Vietnamese", Genres: []string{"Poetry"}})

	require.NoError(t, f.svc.TrackRead("lan@x.io", "3"))
	require.NoError(t, f.svc.TrackRead("minh@x.io", "3"))
	require.NoError(t, f.svc.TrackRead("lan@x.io", "2"))
	_, err := f.svc.ToggleFavorite("lan@x.io", "3", true)
	require.NoError(t, err)

	_, err = f.svc.AddComment(ctx, models.CommentRequest{BookID: "3", UserEmail: "lan@x.io", UserName: "Lan", Comment: "lovely"})
	require.NoError(t, err)
	_, _, err = f.svc.SubmitReview(ctx, models.ReviewRequest{BookID: "1", UserEmail: "minh@x.io", UserName: "Minh", Rating: 4})
	require.NoError(t, err)

	a, err := f.svc.Analytics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, a.TotalReaders)
	assert.Equal(t, 2, a.TotalAuthors)
	assert.Equal(t, 3, a.TotalBooks)
	assert.Equal(t, 3, a.TotalReads)
	assert.Equal(t, 1, a.TotalFavorites)

	require.Len(t, a.TopBooks, 3)
	assert.Equal(t, "3", a.TopBooks[0].ID)
	assert.Equal(t, 2, a.TopBooks[0].Reads)
	assert.Equal(t, 1, a.TopBooks[0].Favorites)
	assert.Equal(t, "2", a.TopBooks[1].ID)
	assert.Equal(t, "1", a.TopBooks[2].ID)

	assert.Equal(t, []models.AuthorSummary{
		{Name: "Ada", Publications: 2, TotalReads: 1},
		{Name: "Du", Publications: 1, TotalReads: 2},
	}, a.TopAuthors)

	assert.Equal(t, []models.LanguageCount{{Language: "English", Count: 2}, {Language: "Vietnamese", Count: 1}}, a.LanguageDistribution)
	assert.Equal(t, []models.GenreCount{
		{Genre: "Science", Count: 2}, {Genre: "History", Count: 1}, {Genre: "Poetry", Count: 1},
	}, a.GenreDistribution)

	require.Len(t, a.RecentActivity, 4)
	kinds := map[string]int{}
	for _, act := range a.RecentActivity {
		kinds[act.Type]++
		assert.NotEmpty(t, act.Time)
	}
	assert.Equal(t, map[string]int{"book": 2, "comment": 1, "review": 1}, kinds)
	for i := 1; i < len(a.RecentActivity); i++ {
		assert.False(t, a.RecentActivity[i].Timestamp.After(a.RecentActivity[i-1].Timestamp))
	}
}

func TestAnalyticsEmpty(t *testing.T) {
	f := newFixture(t, false)
	a, err := f.svc.Analytics(context.Background())
	require.NoError(t, err)
	assert.Zero(t, a.TotalBooks)
	assert.NotNil(t, a.TopBooks)
	assert.NotNil(t, a.TopAuthors)
	assert.NotNil(t, a.RecentActivity)
}

func TestAnalyticsHonoursCancellation(t *testing.T) {
	f := newFixture(t, false)
	f.writeMeta(t, "1", models.BookMetadata{Title: "A"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := f.svc.Analytics(ctx)
	assertCode(t, http.StatusInternalServerError, err)
}
