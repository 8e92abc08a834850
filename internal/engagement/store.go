// Package engagement stores reader favorites and reads in a bolt database.
// Every mutation runs in a single read-write transaction.
package engagement

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/boltdb/bolt"

	"penx/pkg/models"
)

var (
	favoritesBucket = []byte("favorites")
	readsBucket     = []byte("reads")
)

type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the bolt file at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{favoritesBucket, readsBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %s", name, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// OpenReadOnly opens an existing bolt file under a shared lock. Several
// read-only stores may be open at once; writes fail with
// bolt.ErrDatabaseReadOnly.
func OpenReadOnly(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second, ReadOnly: true})
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func getFavorites(b *bolt.Bucket, email string) ([]string, error) {
	data := b.Get([]byte(email))
	if data == nil {
		return []string{}, nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode favorites of %s: %w", email, err)
	}
	if list == nil {
		list = []string{}
	}
	return list, nil
}

func putJSON(b *bolt.Bucket, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return b.Put([]byte(key), data)
}

func getReads(b *bolt.Bucket, email string) (map[string]bool, error) {
	data := b.Get([]byte(email))
	reads := map[string]bool{}
	if data == nil {
		return reads, nil
	}
	if err := json.Unmarshal(data, &reads); err != nil {
		return nil, fmt.Errorf("decode reads of %s: %w", email, err)
	}
	return reads, nil
}

// Favorites returns the reader's favorites in the order they were added.
func (s *Store) Favorites(email string) ([]string, error) {
	var list []string
	err := s.db.View(func(tx *bolt.Tx) error {
		var err error
		list, err = getFavorites(tx.Bucket(favoritesBucket), email)
		return err
	})
	return list, err
}

// ReplaceFavorites overwrites the reader's favorites. Duplicates are dropped,
// keeping the first occurrence.
func (s *Store) ReplaceFavorites(email string, books []string) ([]string, error) {
	list := dedupe(books)
	err := s.db.Update(func(tx *bolt.Tx) error {
		return putJSON(tx.Bucket(favoritesBucket), email, list)
	})
	return list, err
}

// SetFavorite adds or removes one book. Adding a book that is already a
// favorite leaves the list unchanged.
func (s *Store) SetFavorite(email, bookID string, on bool) ([]string, error) {
	var list []string
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(favoritesBucket)
		current, err := getFavorites(b, email)
		if err != nil {
			return err
		}
		list = toggle(current, bookID, on)
		return putJSON(b, email, list)
	})
	return list, err
}

func toggle(list []string, bookID string, on bool) []string {
	idx := -1
	for i, id := range list {
		if id == bookID {
			idx = i
			break
		}
	}
	switch {
	case on && idx < 0:
		return append(list, bookID)
	case !on && idx >= 0:
		out := make([]string, 0, len(list)-1)
		for _, id := range list {
			if id != bookID {
				out = append(out, id)
			}
		}
		return out
	}
	return list
}

func dedupe(books []string) []string {
	seen := make(map[string]bool, len(books))
	out := make([]string, 0, len(books))
	for _, id := range books {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// TrackRead records that the reader opened the book.
func (s *Store) TrackRead(email, bookID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(readsBucket)
		reads, err := getReads(b, email)
		if err != nil {
			return err
		}
		if reads[bookID] {
			return nil
		}
		reads[bookID] = true
		return putJSON(b, email, reads)
	})
}

// ReadBooks returns the books the reader has read, sorted.
func (s *Store) ReadBooks(email string) ([]string, error) {
	var out []string
	err := s.db.View(func(tx *bolt.Tx) error {
		reads, err := getReads(tx.Bucket(readsBucket), email)
		if err != nil {
			return err
		}
		out = make([]string, 0, len(reads))
		for id, ok := range reads {
			if ok {
				out = append(out, id)
			}
		}
		return nil
	})
	sort.Strings(out)
	return out, err
}

// BookStats reports the reader's own engagement with a book along with how
// many readers have read and favorited it.
func (s *Store) BookStats(email, bookID string) (models.BookStats, error) {
	var stats models.BookStats
	err := s.db.View(func(tx *bolt.Tx) error {
		err := tx.Bucket(readsBucket).ForEach(func(k, v []byte) error {
			var reads map[string]bool
			if err := json.Unmarshal(v, &reads); err != nil {
				return fmt.Errorf("decode reads of %s: %w", k, err)
			}
			if reads[bookID] {
				stats.Reads++
				if string(k) == email {
					stats.HasRead = true
				}
			}
			return nil
		})
		if err != nil {
			return err
		}

		return tx.Bucket(favoritesBucket).ForEach(func(k, v []byte) error {
			var list []string
			if err := json.Unmarshal(v, &list); err != nil {
				return fmt.Errorf("decode favorites of %s: %w", k, err)
			}
			for _, id := range list {
				if id == bookID {
					stats.Favorites++
					if string(k) == email {
						stats.IsFavorited = true
					}
					break
				}
			}
			return nil
		})
	})
	return stats, err
}

// Totals are engagement counts across all readers.
type Totals struct {
	Reads          map[string]int
	Favorites      map[string]int
	TotalReads     int
	TotalFavorites int
}

// Totals counts reads and favorites per book.
func (s *Store) Totals() (Totals, error) {
	t := Totals{Reads: map[string]int{}, Favorites: map[string]int{}}
	err := s.db.View(func(tx *bolt.Tx) error {
		err := tx.Bucket(readsBucket).ForEach(func(k, v []byte) error {
			var reads map[string]bool
			if err := json.Unmarshal(v, &reads); err != nil {
				return fmt.Errorf("decode reads of %s: %w", k, err)
			}
			for id, ok := range reads {
				if ok {
					t.Reads[id]++
					t.TotalReads++
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		return tx.Bucket(favoritesBucket).ForEach(func(k, v []byte) error {
			var list []string
			if err := json.Unmarshal(v, &list); err != nil {
				return fmt.Errorf("decode favorites of %s: %w", k, err)
			}
			for _, id := range list {
				t.Favorites[id]++
				t.TotalFavorites++
			}
			return nil
		})
	})
	return t, err
}
