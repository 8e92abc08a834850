package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/russross/blackfriday/v2"

	"penx/internal/apperr"
	"penx/internal/bookmeta"
	"penx/internal/database"
	"penx/internal/search"
	"penx/pkg/models"
)

const coverBaseName = "1BookCover"

// NewBook holds the text fields of an add-book form. Genres is a JSON array
// of strings.
type NewBook struct {
	Title       string
	AuthorName  string
	Language    string
	Genres      string
	Description string
}

// ParseGenres decodes a JSON array of genre names. Blank input means none.
func ParseGenres(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return []string{}, nil
	}
	var genres []string
	if err := json.Unmarshal([]byte(raw), &genres); err != nil {
		return nil, badRequest("Genres must be a JSON array of strings")
	}
	out := make([]string, 0, len(genres))
	for _, g := range genres {
		if g = strings.TrimSpace(g); g != "" {
			out = append(out, g)
		}
	}
	return out, nil
}

func (s *Service) logSkipped(skipped []bookmeta.Skipped) {
	for _, sk := range skipped {
		s.log.WithError(sk.Err).WithField("folder", sk.Folder).Warn("skipping book with unreadable metadata")
	}
}

func (s *Service) indexBook(id string, meta models.BookMetadata) {
	if s.index == nil {
		return
	}
	if err := s.index.Index(id, meta); err != nil {
		s.log.WithError(err).WithField("book", id).Warn("failed to index book")
	}
}

// AddBook stores a new book for the author: a fresh numeric folder with the
// cover, the pdf and book.json, plus the ownership row.
func (s *Service) AddBook(ctx context.Context, authorID int64, fields NewBook, cover, pdf *Upload) (models.BookEntry, error) {
	title := strings.TrimSpace(fields.Title)
	authorName := strings.TrimSpace(fields.AuthorName)
	if title == "" || authorName == "" || cover == nil || pdf == nil {
		return models.BookEntry{}, badRequest("All fields are required.")
	}
	genres, err := ParseGenres(fields.Genres)
	if err != nil {
		return models.BookEntry{}, err
	}
	if err := s.checkSize(cover); err != nil {
		return models.BookEntry{}, err
	}
	if err := s.checkSize(pdf); err != nil {
		return models.BookEntry{}, err
	}

	folder, err := s.books.Allocate(ctx)
	if err != nil {
		return models.BookEntry{}, apperr.Internal("Failed to add book", err)
	}
	logger := s.log.WithField("folder", folder).WithField("author_id", authorID)

	entry, err := s.storeBook(ctx, authorID, folder, title, authorName, fields, genres, cover, pdf)
	if err != nil {
		if rerr := s.books.Remove(folder); rerr != nil {
			logger.WithError(rerr).Error("failed to remove incomplete book folder")
		}
		return models.BookEntry{}, err
	}

	s.indexBook(entry.ID, entry.BookMetadata)
	logger.WithField("cover", humanize.IBytes(uint64(cover.Size))).
		WithField("pdf", humanize.IBytes(uint64(pdf.Size))).
		Info("book added")
	return entry, nil
}

func (s *Service) storeBook(ctx context.Context, authorID int64, folder, title, authorName string,
	fields NewBook, genres []string, cover, pdf *Upload) (models.BookEntry, error) {
	dir, err := s.books.FolderPath(folder)
	if err != nil {
		return models.BookEntry{}, apperr.Internal("Failed to add book", err)
	}

	coverName := coverBaseName + uploadExt(cover.Name, ".png")
	if err := s.writeUpload(cover, filepath.Join(dir, coverName)); err != nil {
		return models.BookEntry{}, err
	}
	pdfName := fmt.Sprintf("%d.pdf", time.Now().UnixMilli())
	if err := s.writeUpload(pdf, filepath.Join(dir, pdfName)); err != nil {
		return models.BookEntry{}, err
	}

	meta := models.BookMetadata{
		Title:       title,
		Author:      authorName,
		Language:    strings.TrimSpace(fields.Language),
		Genres:      genres,
		Description: fields.Description,
		Cover:       "/Books/" + folder + "/" + coverName,
		Pdf:         "/Books/" + folder + "/" + pdfName,
	}
	if err := s.books.Write(ctx, folder, meta); err != nil {
		return models.BookEntry{}, apperr.Internal("Failed to add book", err)
	}
	if _, err := s.db.CreateBook(ctx, authorID, folder); err != nil {
		return models.BookEntry{}, apperr.Internal("Failed to add book", err)
	}
	return models.BookEntry{ID: folder, BookMetadata: meta}, nil
}

// UpdateBook edits the description or genres of a book owned by requesterID.
func (s *Service) UpdateBook(ctx context.Context, requesterID int64, req models.UpdateBookRequest) (models.BookMetadata, error) {
	bookID := strings.TrimSpace(req.BookID)
	if bookID == "" {
		return models.BookMetadata{}, badRequest("Book ID is required")
	}

	owner, err := s.db.BookByFolder(ctx, bookID)
	if errors.Is(err, database.ErrNotFound) {
		return models.BookMetadata{}, notFound("Book not found.", err)
	}
	if err != nil {
		return models.BookMetadata{}, apperr.Internal("Failed to update book", err)
	}
	if owner.AuthorID != requesterID {
		return models.BookMetadata{}, forbidden("Not authorized to update this book")
	}

	meta, err := s.books.Update(ctx, bookID, func(m *models.BookMetadata) error {
		if req.Description != nil {
			m.Description = *req.Description
		}
		if req.Genres != nil {
			genres := make([]string, 0, len(*req.Genres))
			for _, g := range *req.Genres {
				if g = strings.TrimSpace(g); g != "" {
					genres = append(genres, g)
				}
			}
			m.Genres = genres
		}
		return nil
	})
	if errors.Is(err, bookmeta.ErrNotFound) || errors.Is(err, bookmeta.ErrInvalidFolder) {
		return models.BookMetadata{}, notFound("Book not found.", err)
	}
	if err != nil {
		return models.BookMetadata{}, apperr.Internal("Failed to update book", err)
	}

	s.indexBook(bookID, meta)
	return meta, nil
}

// ListFolders returns the book folder names.
func (s *Service) ListFolders() ([]string, error) {
	folders, err := s.books.ListFolders()
	if err != nil {
		return nil, apperr.Internal("Unable to fetch books.", err)
	}
	return folders, nil
}

// FolderFiles returns the file names in one book folder.
func (s *Service) FolderFiles(bookID string) ([]string, error) {
	files, err := s.books.Files(bookID)
	if errors.Is(err, bookmeta.ErrNotFound) || errors.Is(err, bookmeta.ErrInvalidFolder) {
		return nil, notFound("Unable to fetch files for the book.", err)
	}
	if err != nil {
		return nil, apperr.Internal("Unable to fetch files for the book.", err)
	}
	return files, nil
}

// BookFile resolves a file inside a book folder for download.
func (s *Service) BookFile(bookID, name string) (string, error) {
	dir, err := s.books.FolderPath(bookID)
	if err != nil || name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") ||
		name == bookmeta.FileName+".lock" {
		return "", notFound("File not found", err)
	}
	path := filepath.Join(dir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", notFound("File not found", err)
	}
	return path, nil
}

// Books lists every book with readable metadata.
func (s *Service) Books(ctx context.Context) ([]models.BookEntry, error) {
	books, skipped, err := s.books.All(ctx)
	if err != nil {
		return nil, apperr.Internal("Unable to fetch books.", err)
	}
	s.logSkipped(skipped)
	if books == nil {
		books = []models.BookEntry{}
	}
	return books, nil
}

var markdownParams = blackfriday.HTMLRendererParameters{
	Flags: blackfriday.SkipHTML | blackfriday.Safelink | blackfriday.NofollowLinks | blackfriday.HrefTargetBlank,
}

// RenderDescription converts a markdown description to HTML. Raw HTML in the
// source is dropped.
func RenderDescription(markdown string) string {
	if strings.TrimSpace(markdown) == "" {
		return ""
	}
	renderer := blackfriday.NewHTMLRenderer(markdownParams)
	return string(blackfriday.Run([]byte(markdown), blackfriday.WithRenderer(renderer)))
}

// Book returns one book with its rendered description and rating.
func (s *Service) Book(ctx context.Context, bookID string) (models.BookDetail, error) {
	meta, err := s.books.Read(bookID)
	if errors.Is(err, bookmeta.ErrNotFound) || errors.Is(err, bookmeta.ErrInvalidFolder) {
		return models.BookDetail{}, notFound("Book not found.", err)
	}
	if err != nil {
		return models.BookDetail{}, apperr.Internal("Unable to fetch book.", err)
	}

	detail := models.BookDetail{
		BookEntry:       models.BookEntry{ID: bookID, BookMetadata: meta},
		DescriptionHTML: RenderDescription(meta.Description),
	}
	rating, err := s.db.AverageRating(ctx, bookID)
	if err != nil {
		s.log.WithError(err).WithField("book", bookID).Warn("failed to load rating")
	} else {
		detail.Rating = rating
	}
	return detail, nil
}

// SearchBooks finds books by text, language and genre. Without an index the
// metadata is filtered directly.
func (s *Service) SearchBooks(ctx context.Context, q search.Query) ([]models.BookEntry, error) {
	if q.Limit <= 0 {
		q.Limit = search.DefaultLimit
	}
	q.Limit = min(q.Limit, search.MaxLimit)
	if s.index == nil {
		return s.scanBooks(ctx, q)
	}

	ids, err := s.index.Search(q)
	if err != nil {
		return nil, apperr.Internal("Search failed", err)
	}
	results := make([]models.BookEntry, 0, len(ids))
	for _, id := range ids {
		meta, err := s.books.Read(id)
		if err != nil {
			s.log.WithError(err).WithField("book", id).Debug("indexed book no longer readable")
			continue
		}
		results = append(results, models.BookEntry{ID: id, BookMetadata: meta})
	}
	return results, nil
}

func (s *Service) scanBooks(ctx context.Context, q search.Query) ([]models.BookEntry, error) {
	books, err := s.Books(ctx)
	if err != nil {
		return nil, err
	}
	text := strings.ToLower(strings.TrimSpace(q.Q))
	results := []models.BookEntry{}
	for _, b := range books {
		if len(results) == q.Limit {
			break
		}
		if q.Language != "" && !strings.EqualFold(b.Language, q.Language) {
			continue
		}
		if q.Genre != "" && !hasGenre(b.Genres, q.Genre) {
			continue
		}
		if text != "" && !strings.Contains(strings.ToLower(b.Title+" "+b.Author+" "+b.Description), text) {
			continue
		}
		results = append(results, b)
	}
	return results, nil
}

func hasGenre(genres []string, want string) bool {
	for _, g := range genres {
		if strings.EqualFold(g, want) {
			return true
		}
	}
	return false
}

// Reindex rebuilds the search index from the metadata on disk and returns
// the number of indexed books.
func (s *Service) Reindex(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, nil
	}
	books, err := s.Books(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.index.Rebuild(ctx, books); err != nil {
		return 0, apperr.Internal("Failed to rebuild search index", err)
	}
	return len(books), nil
}
