package engagement

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/boltdb/bolt"
)

// ImportReport counts what ImportLegacy merged.
type ImportReport struct {
	FavoriteFiles int
	ReadReaders   int
}

// ImportLegacy merges the old per-reader favorites files (<email>.json holding
// a list of folder names) and the single reads.json map into the store.
// Existing entries are kept; imported ones are added. Missing sources are
// skipped.
func (s *Store) ImportLegacy(favoritesDir, readsPath string) (ImportReport, error) {
	var report ImportReport

	favorites := map[string][]string{}
	if favoritesDir != "" {
		entries, err := os.ReadDir(favoritesDir)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return report, fmt.Errorf("read favorites dir: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
				continue
			}
			data, err := os.ReadFile(filepath.Join(favoritesDir, e.Name()))
			if err != nil {
				return report, err
			}
			var list []string
			if err := json.Unmarshal(data, &list); err != nil {
				return report, fmt.Errorf("parse %s: %w", e.Name(), err)
			}
			favorites[strings.TrimSuffix(e.Name(), ".json")] = list
		}
	}

	reads := map[string]map[string]bool{}
	if readsPath != "" {
		data, err := os.ReadFile(readsPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return report, fmt.Errorf("read reads file: %w", err)
		default:
			if err := json.Unmarshal(data, &reads); err != nil {
				return report, fmt.Errorf("parse reads file: %w", err)
			}
		}
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		fb := tx.Bucket(favoritesBucket)
		for email, list := range favorites {
			current, err := getFavorites(fb, email)
			if err != nil {
				return err
			}
			if err := putJSON(fb, email, dedupe(append(current, list...))); err != nil {
				return err
			}
			report.FavoriteFiles++
		}

		rb := tx.Bucket(readsBucket)
		for email, books := range reads {
			current, err := getReads(rb, email)
			if err != nil {
				return err
			}
			for id, ok := range books {
				if ok {
					current[id] = true
				}
			}
			if err := putJSON(rb, email, current); err != nil {
				return err
			}
			report.ReadReaders++
		}
		return nil
	})
	return report, err
}
