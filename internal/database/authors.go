package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"penx/pkg/models"
)

const authorColumns = `id, name, email, password_hash, bio, institution_id, profile_picture, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAuthor(row rowScanner) (models.Author, error) {
	var (
		a           models.Author
		institution sql.NullInt64
		picture     sql.NullString
		created     string
	)
	if err := row.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &a.Bio, &institution, &picture, &created); err != nil {
		return a, err
	}
	a.InstitutionID = int64Ptr(institution)
	a.ProfilePicture = stringPtr(picture)
	a.CreatedAt = parseTime(created)
	return a, nil
}

// CreateAuthor inserts a new author and returns it with its id. A taken email
// yields ErrDuplicate.
func (s *Store) CreateAuthor(ctx context.Context, a models.Author) (models.Author, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO authors (name, email, password_hash, bio, institution_id, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		a.Name, a.Email, a.PasswordHash, a.Bio, nullableInt(a.InstitutionID), s.timestamp(),
	)
	if isUniqueViolation(err) {
		return models.Author{}, fmt.Errorf("author %s: %w", a.Email, ErrDuplicate)
	}
	if err != nil {
		return models.Author{}, fmt.Errorf("insert author: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Author{}, fmt.Errorf("last insert id: %w", err)
	}
	return s.AuthorByID(ctx, id)
}

// AuthorByID fetches an author by identifier.
func (s *Store) AuthorByID(ctx context.Context, id int64) (models.Author, error) {
	a, err := scanAuthor(s.db.QueryRowContext(ctx, `SELECT `+authorColumns+` FROM authors WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return a, fmt.Errorf("author %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return a, fmt.Errorf("get author: %w", err)
	}
	return a, nil
}

// AuthorByEmail fetches an author by login email.
func (s *Store) AuthorByEmail(ctx context.Context, email string) (models.Author, error) {
	a, err := scanAuthor(s.db.QueryRowContext(ctx, `SELECT `+authorColumns+` FROM authors WHERE email = ?`, email))
	if errors.Is(err, sql.ErrNoRows) {
		return a, fmt.Errorf("author %s: %w", email, ErrNotFound)
	}
	if err != nil {
		return a, fmt.Errorf("get author: %w", err)
	}
	return a, nil
}

// UpdateAuthorProfile sets bio and profile picture. A nil argument leaves the
// column unchanged.
func (s *Store) UpdateAuthorProfile(ctx context.Context, id int64, bio, picture *string) (models.Author, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE authors
         SET bio = COALESCE(?, bio), profile_picture = COALESCE(?, profile_picture)
         WHERE id = ?`,
		nullableString(bio), nullableString(picture), id,
	)
	if err != nil {
		return models.Author{}, fmt.Errorf("update author: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return models.Author{}, fmt.Errorf("author %d: %w", id, ErrNotFound)
	}
	return s.AuthorByID(ctx, id)
}
