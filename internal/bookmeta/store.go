// Package bookmeta reads and writes the per-folder book.json documents under
// the books directory.
package bookmeta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"penx/internal/filestore"
	"penx/pkg/models"
)

const (
	// FileName is the metadata document inside each book folder.
	FileName = "book.json"
	// TempFolder holds in-flight uploads and is never listed as a book.
	TempFolder = "temp"

	allocateKey = ".allocate"
)

var (
	ErrNotFound      = errors.New("book not found")
	ErrInvalidFolder = errors.New("invalid book folder name")
)

// Store manages book folders below one root directory.
type Store struct {
	dir   string
	files *filestore.Store
}

// New returns a Store rooted at dir.
func New(dir string, files *filestore.Store) *Store {
	return &Store{dir: dir, files: files}
}

// Dir returns the books root directory.
func (s *Store) Dir() string { return s.dir }

// FolderPath returns the directory of one book.
func (s *Store) FolderPath(folder string) (string, error) {
	if err := checkFolder(folder); err != nil {
		return "", err
	}
	return filepath.Join(s.dir, folder), nil
}

func checkFolder(folder string) error {
	if folder == "" || folder == "." || folder == ".." ||
		strings.ContainsAny(folder, `/\`) || folder != filepath.Base(folder) {
		return fmt.Errorf("%w: %q", ErrInvalidFolder, folder)
	}
	return nil
}

// Read loads the metadata document of folder.
func (s *Store) Read(folder string) (models.BookMetadata, error) {
	var meta models.BookMetadata
	dir, err := s.FolderPath(folder)
	if err != nil {
		return meta, err
	}
	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if errors.Is(err, fs.ErrNotExist) {
		return meta, fmt.Errorf("%w: %s", ErrNotFound, folder)
	}
	if err != nil {
		return meta, fmt.Errorf("read %s: %w", folder, err)
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return meta, fmt.Errorf("parse %s/%s: %w", folder, FileName, err)
	}
	return meta, nil
}

// Write replaces the metadata document of folder.
func (s *Store) Write(ctx context.Context, folder string, meta models.BookMetadata) error {
	dir, err := s.FolderPath(folder)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, FileName)
	return s.files.Locked(ctx, path, func() error {
		return s.files.WriteJSON(ctx, path, normalize(meta))
	})
}

// Update applies fn to the current document of folder and writes the result
// back while holding the folder lock.
func (s *Store) Update(ctx context.Context, folder string, fn func(*models.BookMetadata) error) (models.BookMetadata, error) {
	var meta models.BookMetadata
	dir, err := s.FolderPath(folder)
	if err != nil {
		return meta, err
	}
	path := filepath.Join(dir, FileName)
	err = s.files.Locked(ctx, path, func() error {
		current, err := s.Read(folder)
		if err != nil {
			return err
		}
		if err := fn(&current); err != nil {
			return err
		}
		meta = normalize(current)
		return s.files.WriteJSON(ctx, path, meta)
	})
	return meta, err
}

func normalize(meta models.BookMetadata) models.BookMetadata {
	if meta.Genres == nil {
		meta.Genres = []string{}
	}
	return meta
}

// ListFolders returns the book folder names, numeric names first in numeric
// order. The temp folder is excluded.
func (s *Store) ListFolders() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read books dir: %w", err)
	}
	folders := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || e.Name() == TempFolder || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		folders = append(folders, e.Name())
	}
	sortFolders(folders)
	return folders, nil
}

func sortFolders(folders []string) {
	sort.Slice(folders, func(i, j int) bool {
		a, errA := strconv.Atoi(folders[i])
		b, errB := strconv.Atoi(folders[j])
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		}
		return folders[i] < folders[j]
	})
}

// Files lists the file names inside one book folder.
func (s *Store) Files(folder string) ([]string, error) {
	dir, err := s.FolderPath(folder)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, folder)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", folder, err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") || strings.HasSuffix(e.Name(), ".lock") {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// Skipped describes a folder whose metadata could not be loaded during a scan.
type Skipped struct {
	Folder string
	Err    error
}

// All loads every readable metadata document. Folders without a readable
// book.json are reported in skipped instead of failing the scan. The context
// is checked between folders.
func (s *Store) All(ctx context.Context) (books []models.BookEntry, skipped []Skipped, err error) {
	folders, err := s.ListFolders()
	if err != nil {
		return nil, nil, err
	}
	books = make([]models.BookEntry, 0, len(folders))
	for _, folder := range folders {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		meta, err := s.Read(folder)
		if err != nil {
			skipped = append(skipped, Skipped{Folder: folder, Err: err})
			continue
		}
		books = append(books, models.BookEntry{ID: folder, BookMetadata: normalize(meta)})
	}
	return books, skipped, nil
}

// Allocate creates the next numeric book folder (highest existing number
// plus one) and returns its name. Creation is exclusive, so concurrent
// callers never share a folder.
func (s *Store) Allocate(ctx context.Context) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create books dir: %w", err)
	}

	var folder string
	err := s.files.Locked(ctx, filepath.Join(s.dir, allocateKey), func() error {
		next, err := s.maxFolder()
		if err != nil {
			return err
		}
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			next++
			name := strconv.Itoa(next)
			err := os.Mkdir(filepath.Join(s.dir, name), 0o755)
			if errors.Is(err, fs.ErrExist) {
				continue
			}
			if err != nil {
				return fmt.Errorf("create book folder: %w", err)
			}
			folder = name
			return nil
		}
	})
	return folder, err
}

func (s *Store) maxFolder() (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("read books dir: %w", err)
	}
	highest := 0
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if n, err := strconv.Atoi(e.Name()); err == nil && n > highest {
			highest = n
		}
	}
	return highest, nil
}

// Remove deletes a book folder and everything in it.
func (s *Store) Remove(folder string) error {
	dir, err := s.FolderPath(folder)
	if err != nil {
		return err
	}
	return os.RemoveAll(dir)
}
