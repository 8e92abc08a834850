package library

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"penx/internal/search"
	"penx/pkg/models"
)

func TestParseGenres(t *testing.T) {
	genres, err := ParseGenres(`["Fantasy", " ", "Drama "]`)
	require.NoError(t, err)
	assert.Equal(t, []string{"Fantasy", "Drama"}, genres)

	genres, err = ParseGenres("")
	require.NoError(t, err)
	assert.Equal(t, []string{}, genres)

	_, err = ParseGenres("Fantasy, Drama")
	assertCode(t, http.StatusBadRequest, err)
}

func TestAddBookWritesFolder(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	id := f.signupAuthor(t, "ada@x.io")

	entry := f.addBook(t, id, NewBook{
		Title: " Engines ", AuthorName: "Ada", Language: "English",
		Genres: `["Science","History"]`, Description: "On *engines*",
	})
	assert.Equal(t, "1", entry.ID)
	assert.Equal(t, "Engines", entry.Title)
	assert.Equal(t, "/Books/1/1BookCover.jpg", entry.Cover)
	assert.True(t, strings.HasPrefix(entry.Pdf, "/Books/1/"))
	assert.True(t, strings.HasSuffix(entry.Pdf, ".pdf"))

	meta, err := f.books.Read("1")
	require.NoError(t, err)
	assert.Equal(t, entry.BookMetadata, meta)

	files, err := f.svc.FolderFiles("1")
	require.NoError(t, err)
	assert.Contains(t, files, "1BookCover.jpg")
	assert.Contains(t, files, "book.json")
	assert.Contains(t, files, filepath.Base(entry.Pdf))

	row, err := f.db.BookByFolder(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, id, row.AuthorID)

	second := f.addBook(t, id, NewBook{Title: "Looms", AuthorName: "Ada"})
	assert.Equal(t, "2", second.ID)

	folders, err := f.svc.ListFolders()
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, folders)

	found, err := f.svc.SearchBooks(ctx, search.Query{Q: "engines"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "1", found[0].ID)
}

func TestAddBookValidation(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	id := f.signupAuthor(t, "ada@x.io")

	_, err := f.svc.AddBook(ctx, id, NewBook{Title: "T", AuthorName: "A"}, nil, upload("b.pdf", "x"))
	assertCode(t, http.StatusBadRequest, err)
	_, err = f.svc.AddBook(ctx, id, NewBook{AuthorName: "A"}, upload("c.png", "x"), upload("b.pdf", "x"))
	assertCode(t, http.StatusBadRequest, err)
	_, err = f.svc.AddBook(ctx, id, NewBook{Title: "T", AuthorName: "A", Genres: "nope"}, upload("c.png", "x"), upload("b.pdf", "x"))
	assertCode(t, http.StatusBadRequest, err)

	big := strings.Repeat("x", int(f.opts.MaxUploadBytes)+1)
	_, err = f.svc.AddBook(ctx, id, NewBook{Title: "T", AuthorName: "A"}, upload("c.png", "x"), upload("b.pdf", big))
	assertCode(t, http.StatusBadRequest, err)

	folders, err := f.svc.ListFolders()
	require.NoError(t, err)
	assert.Empty(t, folders)
}

func TestAddBookRemovesFolderWhenCopyFails(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	id := f.signupAuthor(t, "ada@x.io")

	pdf := upload("b.pdf", strings.Repeat("x", int(f.opts.MaxUploadBytes)+1))
	pdf.Size = 1
	_, err := f.svc.AddBook(ctx, id, NewBook{Title: "T", AuthorName: "A"}, upload("c.png", "x"), pdf)
	assertCode(t, http.StatusBadRequest, err)

	_, statErr := os.Stat(filepath.Join(f.books.Dir(), "1"))
	assert.True(t, os.IsNotExist(statErr))
	_, err = f.db.BookByFolder(ctx, "1")
	assert.Error(t, err)
}

func TestUpdateBookOwnerOnly(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	ada := f.signupAuthor(t, "ada@x.io")
	bob := f.signupAuthor(t, "bob@x.io")
	f.addBook(t, ada, NewBook{Title: "Engines", AuthorName: "Ada", Genres: `["Science"]`, Description: "old"})

	desc := "new"
	_, err := f.svc.UpdateBook(ctx, bob, models.UpdateBookRequest{BookID: "1", Description: &desc})
	assertCode(t, http.StatusForbidden, err)
	_, err = f.svc.UpdateBook(ctx, ada, models.UpdateBookRequest{BookID: "9", Description: &desc})
	assertCode(t, http.StatusNotFound, err)

	genres := []string{"Poetry"}
	meta, err := f.svc.UpdateBook(ctx, ada, models.UpdateBookRequest{BookID: "1", Genres: &genres})
	require.NoError(t, err)
	assert.Equal(t, "old", meta.Description)
	assert.Equal(t, []string{"Poetry"}, meta.Genres)

	meta, err = f.svc.UpdateBook(ctx, ada, models.UpdateBookRequest{BookID: "1", Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "new", meta.Description)
	assert.Equal(t, "Engines", meta.Title)

	found, err := f.svc.SearchBooks(ctx, search.Query{Genre: "poetry"})
	require.NoError(t, err)
	require.Len(t, found, 1)
}

func TestBookDetail(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	f.writeMeta(t, "3", models.BookMetadata{Title: "Dune", Description: "A **desert** <script>x()</script>"})
	_, _, err := f.svc.SubmitReview(ctx, models.ReviewRequest{BookID: "3", UserEmail: "a@x.io", UserName: "A", Rating: 5})
	require.NoError(t, err)

	detail, err := f.svc.Book(ctx, "3")
	require.NoError(t, err)
	assert.Equal(t, "Dune", detail.Title)
	assert.Contains(t, detail.DescriptionHTML, "<strong>desert</strong>")
	assert.NotContains(t, detail.DescriptionHTML, "<script>")
	assert.Equal(t, 1, detail.Rating.TotalReviews)

	_, err = f.svc.Book(ctx, "4")
	assertCode(t, http.StatusNotFound, err)
	_, err = f.svc.Book(ctx, "../etc")
	assertCode(t, http.StatusNotFound, err)
}

func TestBookFile(t *testing.T) {
	f := newFixture(t, false)
	f.writeMeta(t, "1", models.BookMetadata{Title: "T"})

	path, err := f.svc.BookFile("1", "book.json")
	require.NoError(t, err)
	assert.FileExists(t, path)

	for _, name := range []string{"", "..", "../1/book.json", "missing.pdf", ".hidden", "book.json.lock"} {
		_, err := f.svc.BookFile("1", name)
		assertCode(t, http.StatusNotFound, err)
	}
	_, err = f.svc.BookFile("..", "book.json")
	assertCode(t, http.StatusNotFound, err)
}

func TestSearchWithoutIndexFiltersMetadata(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	f.writeMeta(t, "1", models.BookMetadata{Title: "Dune", Author: "Herbert", Language: "English", Genres: []string{"SciFi"}})
	f.writeMeta(t, "2", models.BookMetadata{Title: "Truyện Kiều", Author: "Nguyễn Du", Language: "Vietnamese", Genres: []string{"Poetry"}})
	f.writeMeta(t, "3", models.BookMetadata{Title: "Dune Messiah", Author: "Herbert", Language: "English", Genres: []string{"SciFi"}})

	found, err := f.svc.SearchBooks(ctx, search.Query{Q: "dune"})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = f.svc.SearchBooks(ctx, search.Query{Language: "vietnamese"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "2", found[0].ID)

	found, err = f.svc.SearchBooks(ctx, search.Query{Genre: "scifi", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	n, err := f.svc.Reindex(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReindex(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()
	f.writeMeta(t, "1", models.BookMetadata{Title: "Dune", Author: "Herbert"})
	f.writeMeta(t, "2", models.BookMetadata{Title: "Emma", Author: "Austen"})

	n, err := f.svc.Reindex(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	found, err := f.svc.SearchBooks(ctx, search.Query{Q: "austen"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Emma", found[0].Title)
}

func TestRenderDescription(t *testing.T) {
	assert.Empty(t, RenderDescription("  "))
	html := RenderDescription("[x](javascript:void) <b>raw</b>")
	assert.NotContains(t, html, "javascript:")
	assert.NotContains(t, html, "<b>")
}
