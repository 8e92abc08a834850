package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"penx/pkg/models"
)

func scanBook(row rowScanner) (models.Book, error) {
	var (
		b       models.Book
		created string
	)
	if err := row.Scan(&b.ID, &b.AuthorID, &b.FolderName, &created); err != nil {
		return b, err
	}
	b.CreatedAt = parseTime(created)
	return b, nil
}

func (s *Store) queryBooks(ctx context.Context, query string, args ...any) ([]models.Book, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()

	books := []models.Book{}
	for rows.Next() {
		b, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, b)
	}
	return books, rows.Err()
}

// CreateBook links a book folder to its author. A folder already linked
// yields ErrDuplicate.
func (s *Store) CreateBook(ctx context.Context, authorID int64, folder string) (models.Book, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO books (author_id, folder_name, created_at) VALUES (?, ?, ?)`,
		authorID, folder, s.timestamp(),
	)
	if isUniqueViolation(err) {
		return models.Book{}, fmt.Errorf("book folder %s: %w", folder, ErrDuplicate)
	}
	if err != nil {
		return models.Book{}, fmt.Errorf("insert book: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Book{}, fmt.Errorf("last insert id: %w", err)
	}
	b, err := scanBook(s.db.QueryRowContext(ctx,
		`SELECT id, author_id, folder_name, created_at FROM books WHERE id = ?`, id))
	if err != nil {
		return models.Book{}, fmt.Errorf("get book: %w", err)
	}
	return b, nil
}

// BookByFolder returns the relational record of a book folder.
func (s *Store) BookByFolder(ctx context.Context, folder string) (models.Book, error) {
	b, err := scanBook(s.db.QueryRowContext(ctx,
		`SELECT id, author_id, folder_name, created_at FROM books WHERE folder_name = ?`, folder))
	if errors.Is(err, sql.ErrNoRows) {
		return b, fmt.Errorf("book %s: %w", folder, ErrNotFound)
	}
	if err != nil {
		return b, fmt.Errorf("get book: %w", err)
	}
	return b, nil
}

// BooksByAuthor lists an author's books in creation order.
func (s *Store) BooksByAuthor(ctx context.Context, authorID int64) ([]models.Book, error) {
	return s.queryBooks(ctx,
		`SELECT id, author_id, folder_name, created_at FROM books WHERE author_id = ? ORDER BY id`, authorID)
}

// RecentBooks lists the latest books, newest first.
func (s *Store) RecentBooks(ctx context.Context, limit int) ([]models.Book, error) {
	return s.queryBooks(ctx,
		`SELECT id, author_id, folder_name, created_at FROM books ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
}

// DeleteBook removes the record of a book folder.
func (s *Store) DeleteBook(ctx context.Context, folder string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM books WHERE folder_name = ?`, folder)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	return nil
}
