package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"penx/pkg/models"
)

const commentColumns = `id, book_id, user_email, user_name, comment, parent_id, created_at, deleted_at`

func scanComment(row rowScanner) (models.Comment, error) {
	var (
		c       models.Comment
		parent  sql.NullInt64
		created string
		deleted sql.NullString
	)
	if err := row.Scan(&c.ID, &c.BookID, &c.UserEmail, &c.UserName, &c.Comment, &parent, &created, &deleted); err != nil {
		return c, err
	}
	c.ParentID = int64Ptr(parent)
	c.CreatedAt = parseTime(created)
	if deleted.Valid {
		t := parseTime(deleted.String)
		c.DeletedAt = &t
	}
	return c, nil
}

func (s *Store) queryComments(ctx context.Context, query string, args ...any) ([]models.Comment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	out := []models.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// InsertComment stores a comment or reply and returns it with id and
// timestamp filled in.
func (s *Store) InsertComment(ctx context.Context, c models.Comment) (models.Comment, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO comments (book_id, user_email, user_name, comment, parent_id, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		c.BookID, c.UserEmail, c.UserName, c.Comment, nullableInt(c.ParentID), s.timestamp(),
	)
	if err != nil {
		return models.Comment{}, fmt.Errorf("insert comment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Comment{}, fmt.Errorf("last insert id: %w", err)
	}
	return s.CommentByID(ctx, id)
}

// CommentByID fetches a comment, including soft-deleted ones.
func (s *Store) CommentByID(ctx context.Context, id int64) (models.Comment, error) {
	c, err := scanComment(s.db.QueryRowContext(ctx, `SELECT `+commentColumns+` FROM comments WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return c, fmt.Errorf("comment %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return c, fmt.Errorf("get comment: %w", err)
	}
	return c, nil
}

// CommentsForBook returns every comment row of a book, soft-deleted ones
// included.
func (s *Store) CommentsForBook(ctx context.Context, bookID string) ([]models.Comment, error) {
	return s.queryComments(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE book_id = ? ORDER BY parent_id ASC, created_at ASC`, bookID)
}

// SoftDeleteComment marks a comment deleted when it belongs to email. The
// first deletion time is kept, so repeated deletes by the owner succeed. Any
// other caller gets ErrNotFound.
func (s *Store) SoftDeleteComment(ctx context.Context, id int64, email string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE comments SET deleted_at = COALESCE(deleted_at, ?) WHERE id = ? AND user_email = ?`,
		s.timestamp(), id, email,
	)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("comment %d: %w", id, ErrNotFound)
	}
	return nil
}

// RecentComments lists the latest live comments across all books.
func (s *Store) RecentComments(ctx context.Context, limit int) ([]models.Comment, error) {
	return s.queryComments(ctx,
		`SELECT `+commentColumns+` FROM comments WHERE deleted_at IS NULL ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
}
