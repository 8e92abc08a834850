package library

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"

	"penx/internal/apperr"
	"penx/internal/database"
	"penx/pkg/models"
)

// PointsPerPublication is the score an author earns for each book.
const PointsPerPublication = 10

const defaultAuthorPicture = "/images/default_profile.png"

// authorPicture returns the public path of an author's picture in the
// images folder, or the default picture when none was uploaded.
func (s *Service) authorPicture(name string) string {
	file := strings.Join(strings.Fields(name), "_") + "_profile.png"
	if _, err := os.Stat(filepath.Join(s.opts.ImagesDir, file)); err == nil {
		return "/images/" + file
	}
	return defaultAuthorPicture
}

// InstitutionRollup groups every book by its author's display name.
func (s *Service) InstitutionRollup(ctx context.Context) (models.InstitutionRollup, error) {
	books, skipped, err := s.books.All(ctx)
	if err != nil {
		return models.InstitutionRollup{}, apperr.Internal("Failed to load institution data", err)
	}
	s.logSkipped(skipped)

	rollup := models.InstitutionRollup{Name: s.opts.InstitutionName, Authors: []models.InstitutionAuthor{}}
	index := map[string]int{}
	for _, book := range books {
		name := strings.TrimSpace(book.Author)
		if name == "" {
			continue
		}
		i, ok := index[name]
		if !ok {
			i = len(rollup.Authors)
			index[name] = i
			rollup.Authors = append(rollup.Authors, models.InstitutionAuthor{Name: name})
		}
		rollup.Authors[i].Publications++
	}

	for i := range rollup.Authors {
		a := &rollup.Authors[i]
		a.Score = a.Publications * PointsPerPublication
		a.ProfilePicture = s.authorPicture(a.Name)
		rollup.CollectiveScore += a.Score
		rollup.CollectivePublications += a.Publications
	}
	return rollup, nil
}

// AuthorStats counts the books whose author matches name, ignoring case.
func (s *Service) AuthorStats(ctx context.Context, name string) (models.AuthorStats, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.AuthorStats{}, badRequest("Author name is required.")
	}

	books, skipped, err := s.books.All(ctx)
	if err != nil {
		return models.AuthorStats{}, apperr.Internal("Failed to fetch author stats", err)
	}
	s.logSkipped(skipped)

	fold := cases.Fold()
	want := fold.String(name)
	var stats models.AuthorStats
	for _, book := range books {
		if fold.String(strings.TrimSpace(book.Author)) == want {
			stats.Publications++
		}
	}
	stats.Score = stats.Publications * PointsPerPublication
	return stats, nil
}

// CreateInstitution stores an institution administered by an existing author.
func (s *Service) CreateInstitution(ctx context.Context, req models.InstitutionRequest) (models.Institution, error) {
	in := models.Institution{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Website:     strings.TrimSpace(req.Website),
		Location:    strings.TrimSpace(req.Location),
		AdminID:     req.AdminID,
	}
	if in.Name == "" || in.Description == "" || in.Location == "" || in.AdminID == 0 {
		return models.Institution{}, badRequest("Name, description, location and admin are required")
	}

	if _, err := s.db.AuthorByID(ctx, in.AdminID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return models.Institution{}, badRequest("Admin author not found")
		}
		return models.Institution{}, apperr.Internal("Failed to create institution", err)
	}

	created, err := s.db.CreateInstitution(ctx, in)
	if err != nil {
		return models.Institution{}, apperr.Internal("Failed to create institution", err)
	}
	return created, nil
}

func (s *Service) Institution(ctx context.Context, id int64) (models.Institution, error) {
	in, err := s.db.InstitutionByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return models.Institution{}, notFound("Institution not found.", err)
	}
	if err != nil {
		return models.Institution{}, apperr.Internal("Failed to fetch institution", err)
	}
	return in, nil
}
