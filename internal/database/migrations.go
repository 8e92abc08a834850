package database

import (
	"context"
	"fmt"
)

// migrations are applied in order; a database at version N runs steps N+1...
var migrations = [][]string{
	{
		`CREATE TABLE IF NOT EXISTS authors (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            email TEXT UNIQUE NOT NULL,
            password_hash TEXT NOT NULL,
            bio TEXT NOT NULL DEFAULT '',
            institution_id INTEGER,
            created_at TEXT NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS institutions (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            description TEXT NOT NULL,
            website TEXT NOT NULL DEFAULT '',
            location TEXT NOT NULL,
            admin_id INTEGER NOT NULL REFERENCES authors(id),
            created_at TEXT NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS books (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            author_id INTEGER NOT NULL REFERENCES authors(id),
            folder_name TEXT NOT NULL,
            created_at TEXT NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS comments (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            book_id TEXT NOT NULL,
            user_email TEXT NOT NULL,
            user_name TEXT NOT NULL,
            comment TEXT NOT NULL,
            parent_id INTEGER DEFAULT NULL REFERENCES comments(id),
            created_at TEXT NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS reviews (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            book_id TEXT NOT NULL,
            user_email TEXT NOT NULL,
            user_name TEXT NOT NULL,
            rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
            review_text TEXT NOT NULL DEFAULT '',
            created_at TEXT NOT NULL,
            UNIQUE(book_id, user_email)
        )`,
	},
	{
		`ALTER TABLE authors ADD COLUMN profile_picture TEXT`,
		`ALTER TABLE comments ADD COLUMN deleted_at TEXT`,
		`ALTER TABLE reviews ADD COLUMN revision INTEGER NOT NULL DEFAULT 0`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_books_folder ON books(folder_name)`,
		`CREATE INDEX IF NOT EXISTS idx_books_author ON books(author_id)`,
		`CREATE INDEX IF NOT EXISTS idx_comments_book ON comments(book_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reviews_book ON reviews(book_id)`,
	},
}

// SchemaVersion is the version a freshly migrated database reports.
var SchemaVersion = len(migrations)

func (s *Store) migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT)`); err != nil {
		return fmt.Errorf("create meta table: %w", err)
	}

	current, err := s.Version(ctx)
	if err != nil {
		return err
	}

	for version := current + 1; version <= len(migrations); version++ {
		if err := s.applyMigration(ctx, version, migrations[version-1]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) applyMigration(ctx context.Context, version int, stmts []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", version, err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply migration %d: %w", version, err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO meta(key, value) VALUES('schema_version', ?)
         ON CONFLICT(key) DO UPDATE SET value = excluded.value`, version); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return tx.Commit()
}

// Version reports the applied schema version, 0 for an empty database.
func (s *Store) Version(ctx context.Context) (int, error) {
	var current int
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(CAST(value AS INTEGER)), 0) FROM meta WHERE key = 'schema_version'`).Scan(&current)
	if err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return current, nil
}
