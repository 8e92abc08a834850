package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"penx/pkg/models"
)

// CreateInstitution inserts an institution and returns it with its id.
func (s *Store) CreateInstitution(ctx context.Context, in models.Institution) (models.Institution, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO institutions (name, description, website, location, admin_id, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		in.Name, in.Description, in.Website, in.Location, in.AdminID, s.timestamp(),
	)
	if err != nil {
		return models.Institution{}, fmt.Errorf("insert institution: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.Institution{}, fmt.Errorf("last insert id: %w", err)
	}
	return s.InstitutionByID(ctx, id)
}

// InstitutionByID fetches an institution by identifier.
func (s *Store) InstitutionByID(ctx context.Context, id int64) (models.Institution, error) {
	var (
		in      models.Institution
		created string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, description, website, location, admin_id, created_at
         FROM institutions WHERE id = ?`, id,
	).Scan(&in.ID, &in.Name, &in.Description, &in.Website, &in.Location, &in.AdminID, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return in, fmt.Errorf("institution %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return in, fmt.Errorf("get institution: %w", err)
	}
	in.CreatedAt = parseTime(created)
	return in, nil
}
