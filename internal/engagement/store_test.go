package engagement

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/boltdb/bolt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"penx/pkg/models"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "engagement.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestFavoritesEmptyByDefault(t *testing.T) {
	s := tempStore(t)
	list, err := s.Favorites("a@x.io")
	require.NoError(t, err)
	assert.Equal(t, []string{}, list)
}

func TestSetFavoriteIsIdempotent(t *testing.T) {
	s := tempStore(t)

	_, err := s.SetFavorite("a@x.io", "1", true)
	require.NoError(t, err)
	_, err = s.SetFavorite("a@x.io", "2", true)
	require.NoError(t, err)
	list, err := s.SetFavorite("a@x.io", "1", true)
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, list)

	list, err = s.SetFavorite("a@x.io", "1", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, list)

	list, err = s.SetFavorite("a@x.io", "9", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"2"}, list)
}

func TestConcurrentFavoritesAreNotLost(t *testing.T) {
	s := tempStore(t)
	var wg sync.WaitGroup
	for _, id := range []string{"1", "2", "3", "4", "5", "6"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := s.SetFavorite("a@x.io", id, true)
			assert.NoError(t, err)
		}(id)
	}
	wg.Wait()

	list, err := s.Favorites("a@x.io")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1", "2", "3", "4", "5", "6"}, list)
}

func TestReplaceFavoritesDedupes(t *testing.T) {
	s := tempStore(t)
	list, err := s.ReplaceFavorites("a@x.io", []string{"3", "1", "3", ""})
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "1"}, list)

	got, err := s.Favorites("a@x.io")
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "1"}, got)
}

func TestBookStats(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.TrackRead("a@x.io", "1"))
	require.NoError(t, s.TrackRead("a@x.io", "1"))
	require.NoError(t, s.TrackRead("b@x.io", "1"))
	_, err := s.SetFavorite("b@x.io", "1", true)
	require.NoError(t, err)

	stats, err := s.BookStats("a@x.io", "1")
	require.NoError(t, err)
	assert.Equal(t, models.BookStats{IsFavorited: false, HasRead: true, Reads: 2, Favorites: 1}, stats)

	stats, err = s.BookStats("c@x.io", "1")
	require.NoError(t, err)
	assert.Equal(t, models.BookStats{Reads: 2, Favorites: 1}, stats)
}

func TestTotals(t *testing.T) {
	s := tempStore(t)
	require.NoError(t, s.TrackRead("a@x.io", "1"))
	require.NoError(t, s.TrackRead("a@x.io", "2"))
	require.NoError(t, s.TrackRead("b@x.io", "1"))
	_, err := s.ReplaceFavorites("a@x.io", []string{"2"})
	require.NoError(t, err)

	totals, err := s.Totals()
	require.NoError(t, err)
	assert.Equal(t, 3, totals.TotalReads)
	assert.Equal(t, 1, totals.TotalFavorites)
	assert.Equal(t, 2, totals.Reads["1"])
	assert.Equal(t, 1, totals.Favorites["2"])

	read, err := s.ReadBooks("a@x.io")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, read)
}

func TestOpenReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "engagement.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.TrackRead("a@x.io", "1"))
	require.NoError(t, s.Close())

	first, err := OpenReadOnly(path)
	require.NoError(t, err)
	defer first.Close()
	second, err := OpenReadOnly(path)
	require.NoError(t, err)
	defer second.Close()

	totals, err := second.Totals()
	require.NoError(t, err)
	assert.Equal(t, 1, totals.TotalReads)

	assert.ErrorIs(t, first.TrackRead("b@x.io", "2"), bolt.ErrDatabaseReadOnly)
}

func TestImportLegacy(t *testing.T) {
	s := tempStore(t)
	dir := t.TempDir()
	favDir := filepath.Join(dir, "favorites")
	require.NoError(t, os.MkdirAll(favDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(favDir, "a@x.io.json"), []byte(`["1","2"]`), 0o644))
	readsPath := filepath.Join(dir, "reads.json")
	require.NoError(t, os.WriteFile(readsPath, []byte(`{"a@x.io":{"1":true},"b@x.io":{"3":true}}`), 0o644))

	_, err := s.SetFavorite("a@x.io", "5", true)
	require.NoError(t, err)

	report, err := s.ImportLegacy(favDir, readsPath)
	require.NoError(t, err)
	assert.Equal(t, ImportReport{FavoriteFiles: 1, ReadReaders: 2}, report)

	list, err := s.Favorites("a@x.io")
	require.NoError(t, err)
	assert.Equal(t, []string{"5", "1", "2"}, list)

	read, err := s.ReadBooks("b@x.io")
	require.NoError(t, err)
	assert.Equal(t, []string{"3"}, read)
}

func TestImportLegacyMissingSources(t *testing.T) {
	s := tempStore(t)
	report, err := s.ImportLegacy(filepath.Join(t.TempDir(), "nope"), filepath.Join(t.TempDir(), "none.json"))
	require.NoError(t, err)
	assert.Equal(t, ImportReport{}, report)
}
