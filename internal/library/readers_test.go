package library

import (
	"context"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"penx/pkg/models"
)

func (f *fixture) signupReader(t *testing.T, email string) {
	t.Helper()
	require.NoError(t, f.svc.SignupReader(context.Background(), models.ReaderSignupRequest{
		FirstName: "Lan", LastName: "Tran", Email: email, Password: "secret",
	}))
}

func TestReaderSignupAndLogin(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	f.signupReader(t, "lan@x.io")

	err := f.svc.SignupReader(ctx, models.ReaderSignupRequest{FirstName: "L", LastName: "T", Email: "lan@x.io", Password: "x"})
	assertCode(t, http.StatusBadRequest, err)
	err = f.svc.SignupReader(ctx, models.ReaderSignupRequest{FirstName: "L", Email: "new@x.io", Password: "x"})
	assertCode(t, http.StatusBadRequest, err)

	r, err := f.svc.LoginReader(ctx, "lan@x.io", "secret")
	require.NoError(t, err)
	assert.Equal(t, "Lan", r.FirstName)

	_, err = f.svc.LoginReader(ctx, "lan@x.io", "wrong")
	assertCode(t, http.StatusUnauthorized, err)
	_, err = f.svc.LoginReader(ctx, "ghost@x.io", "secret")
	assertCode(t, http.StatusUnauthorized, err)
}

func TestReaderStats(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	f.signupReader(t, "lan@x.io")
	f.writeMeta(t, "1", models.BookMetadata{Title: "A", Genres: []string{"Drama", "Poetry"}})
	f.writeMeta(t, "2", models.BookMetadata{Title: "B", Genres: []string{"Poetry"}})
	f.writeMeta(t, "3", models.BookMetadata{Title: "C", Genres: []string{"Comedy"}})

	_, err := f.svc.ToggleFavorite("lan@x.io", "1", true)
	require.NoError(t, err)
	_, err = f.svc.ToggleFavorite("lan@x.io", "2", true)
	require.NoError(t, err)
	_, err = f.svc.ToggleFavorite("lan@x.io", "missing", true)
	require.NoError(t, err)
	require.NoError(t, f.svc.TrackRead("lan@x.io", "3"))
	require.NoError(t, f.svc.TrackRead("lan@x.io", "3"))
	require.NoError(t, f.svc.TrackRead("lan@x.io", "1"))

	stats, err := f.svc.ReaderStats(ctx, "lan@x.io")
	require.NoError(t, err)
	assert.Equal(t, models.ReaderStats{
		FirstName:      "Lan",
		LastName:       "Tran",
		Email:          "lan@x.io",
		BooksRead:      2,
		FavoriteGenres: []string{"Poetry", "Drama"},
		ProfilePicture: DefaultReaderPicture,
	}, stats)

	_, err = f.svc.ReaderStats(ctx, "ghost@x.io")
	assertCode(t, http.StatusNotFound, err)
	_, err = f.svc.ReaderStats(ctx, "")
	assertCode(t, http.StatusBadRequest, err)
}

func TestAccountDataOmitsPassword(t *testing.T) {
	f := newFixture(t, false)
	f.signupReader(t, "lan@x.io")

	row, err := f.svc.AccountData("lan@x.io")
	require.NoError(t, err)
	assert.Equal(t, "lan@x.io", row["Email"])
	assert.Equal(t, "Lan", row["First Name"])
	assert.NotContains(t, row, "Password")

	_, err = f.svc.AccountData("ghost@x.io")
	assertCode(t, http.StatusNotFound, err)
}

func TestReaderPictures(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	f.signupReader(t, "lan@x.io")

	require.NoError(t, f.svc.UpdateReaderPicture(ctx, "lan@x.io", "/images/cat.png"))
	stats, err := f.svc.ReaderStats(ctx, "lan@x.io")
	require.NoError(t, err)
	assert.Equal(t, "/images/cat.png", stats.ProfilePicture)

	assertCode(t, http.StatusNotFound, f.svc.UpdateReaderPicture(ctx, "ghost@x.io", "/images/cat.png"))
	assertCode(t, http.StatusBadRequest, f.svc.UpdateReaderPicture(ctx, "lan@x.io", " "))

	first, err := f.svc.UploadReaderPicture(ctx, "lan@x.io", upload("me.JPG", "jpeg"))
	require.NoError(t, err)
	assert.Regexp(t, `^/uploads/profile-pictures/[0-9a-f]{12}-\d+-[0-9a-f]{8}\.jpg$`, first)
	firstFile := filepath.Join(f.opts.ProfilePicturesDir, filepath.Base(first))
	assert.FileExists(t, firstFile)

	second, err := f.svc.UploadReaderPicture(ctx, "lan@x.io", upload("me.png", "png"))
	require.NoError(t, err)
	assert.NoFileExists(t, firstFile)
	row, err := f.svc.AccountData("lan@x.io")
	require.NoError(t, err)
	assert.Equal(t, second, row["ProfilePicture"])

	_, err = f.svc.UploadReaderPicture(ctx, "ghost@x.io", upload("me.png", "png"))
	assertCode(t, http.StatusNotFound, err)
	_, err = f.svc.UploadReaderPicture(ctx, "lan@x.io", nil)
	assertCode(t, http.StatusBadRequest, err)
}

func TestReaderCannotClaimAnotherUpload(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	f.signupReader(t, "lan@x.io")
	id := f.signupAuthor(t, "ada@x.io")

	author, err := f.svc.UpdateAuthorProfile(ctx, id, id, "", upload("ada.png", "ada"))
	require.NoError(t, err)
	authorPicture := *author.ProfilePicture
	authorFile := filepath.Join(f.opts.ProfilePicturesDir, filepath.Base(authorPicture))

	assertCode(t, http.StatusBadRequest, f.svc.UpdateReaderPicture(ctx, "lan@x.io", authorPicture))

	f.svc.removeProfilePicture(readerOwner("lan@x.io"), authorPicture)
	assert.FileExists(t, authorFile)

	own, err := f.svc.UploadReaderPicture(ctx, "lan@x.io", upload("lan.png", "lan"))
	require.NoError(t, err)
	require.NoError(t, f.svc.UpdateReaderPicture(ctx, "lan@x.io", "/images/cat.png"))
	require.NoError(t, f.svc.UpdateReaderPicture(ctx, "lan@x.io", own))
	assert.FileExists(t, authorFile)
}

func TestOwnsPicture(t *testing.T) {
	owner := readerOwner("lan@x.io")
	assert.Equal(t, owner, readerOwner(" Lan@X.io "))
	assert.NotEqual(t, owner, authorOwner(1))

	assert.True(t, ownsPicture(owner, ProfilePicturesURL+"/"+owner+"-1-abcdef01.png"))
	assert.False(t, ownsPicture(owner, ProfilePicturesURL+"/"+authorOwner(1)+"-1-abcdef01.png"))
	assert.False(t, ownsPicture(owner, ProfilePicturesURL+"/1-abcdef01.png"))
	assert.False(t, ownsPicture(owner, ProfilePicturesURL+"/x/"+owner+"-1.png"))
	assert.False(t, ownsPicture(owner, "/images/"+owner+"-1.png"))
}

func TestFavorites(t *testing.T) {
	f := newFixture(t, false)

	list, err := f.svc.Favorites("lan@x.io")
	require.NoError(t, err)
	assert.Equal(t, []string{}, list)

	list, err = f.svc.ToggleFavorite("lan@x.io", "1", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, list)
	list, err = f.svc.ToggleFavorite("lan@x.io", "1", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, list)

	list, err = f.svc.ReplaceFavorites("lan@x.io", []string{"2", "3", "2"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3"}, list)

	list, err = f.svc.ToggleFavorite("lan@x.io", "2", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"3"}, list)

	_, err = f.svc.Favorites(" ")
	assertCode(t, http.StatusBadRequest, err)
	_, err = f.svc.ToggleFavorite("lan@x.io", "", true)
	assertCode(t, http.StatusBadRequest, err)
}

func TestBookStats(t *testing.T) {
	f := newFixture(t, false)
	require.NoError(t, f.svc.TrackRead("a@x.io", "1"))
	require.NoError(t, f.svc.TrackRead("b@x.io", "1"))
	_, err := f.svc.ToggleFavorite("b@x.io", "1", true)
	require.NoError(t, err)

	stats, err := f.svc.BookStats("a@x.io", "1")
	require.NoError(t, err)
	assert.Equal(t, models.BookStats{HasRead: true, Reads: 2, Favorites: 1}, stats)

	_, err = f.svc.BookStats("a@x.io", "")
	assertCode(t, http.StatusBadRequest, err)
	assertCode(t, http.StatusBadRequest, f.svc.TrackRead("", "1"))
}
