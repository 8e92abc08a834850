package library

import (
	"context"
	"errors"
	"strings"

	"penx/internal/apperr"
	"penx/internal/auth"
	"penx/internal/bookmeta"
	"penx/internal/database"
	"penx/pkg/models"
)

// SignupAuthor registers an author and returns a token for them.
func (s *Service) SignupAuthor(ctx context.Context, req models.AuthorSignupRequest) (models.AuthResponse, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	if name == "" || email == "" || req.Password == "" {
		return models.AuthResponse{}, badRequest("Name, email and password are required")
	}

	hash, err := s.passwords.Hash(req.Password)
	if err != nil {
		return models.AuthResponse{}, apperr.Internal("Error creating account", err)
	}

	author, err := s.db.CreateAuthor(ctx, models.Author{
		Name:          name,
		Email:         email,
		PasswordHash:  hash,
		Bio:           req.Bio,
		InstitutionID: req.Institution,
	})
	if errors.Is(err, database.ErrDuplicate) {
		return models.AuthResponse{}, badRequest("Email already registered")
	}
	if err != nil {
		return models.AuthResponse{}, apperr.Internal("Error creating account", err)
	}

	return s.authorToken(author.ID)
}

// LoginAuthor checks an author's credentials and returns a token.
func (s *Service) LoginAuthor(ctx context.Context, email, password string) (models.AuthResponse, error) {
	author, err := s.db.AuthorByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, database.ErrNotFound) {
		return models.AuthResponse{}, unauthorized("Invalid credentials")
	}
	if err != nil {
		return models.AuthResponse{}, apperr.Internal("Error logging in", err)
	}
	if !s.passwords.Check(password, author.PasswordHash) {
		return models.AuthResponse{}, unauthorized("Invalid credentials")
	}
	return s.authorToken(author.ID)
}

func (s *Service) authorToken(id int64) (models.AuthResponse, error) {
	token, err := s.tokens.AuthorToken(id)
	if err != nil {
		return models.AuthResponse{}, apperr.Internal("Failed to generate token", err)
	}
	return models.AuthResponse{Success: true, Token: token, AuthorID: id}, nil
}

// AdminEnabled reports whether admin credentials are configured.
func (s *Service) AdminEnabled() bool {
	return s.opts.AdminPasswordHash != ""
}

// AdminLogin checks the configured admin credentials and returns an admin token.
func (s *Service) AdminLogin(username, password string) (string, error) {
	if !s.AdminEnabled() {
		return "", badRequest("Admin login is not configured")
	}
	if username != s.opts.AdminUsername || !s.passwords.Check(password, s.opts.AdminPasswordHash) {
		return "", unauthorized("Invalid credentials")
	}
	token, err := s.tokens.GenerateToken(username, auth.RoleAdmin)
	if err != nil {
		return "", apperr.Internal("Failed to generate token", err)
	}
	return token, nil
}

func authorize(requesterID, authorID int64) error {
	if requesterID != authorID {
		return forbidden("Unauthorized access")
	}
	return nil
}

func (s *Service) author(ctx context.Context, id int64) (models.Author, error) {
	author, err := s.db.AuthorByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return models.Author{}, notFound("Author not found", err)
	}
	if err != nil {
		return models.Author{}, apperr.Internal("Failed to fetch author", err)
	}
	return author, nil
}

// AuthorBooks lists an author's books joined with their metadata. Only the
// author may list them.
func (s *Service) AuthorBooks(ctx context.Context, requesterID, authorID int64) ([]models.AuthorBook, error) {
	if err := authorize(requesterID, authorID); err != nil {
		return nil, err
	}

	rows, err := s.db.BooksByAuthor(ctx, authorID)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch books", err)
	}

	books := make([]models.AuthorBook, 0, len(rows))
	for _, row := range rows {
		book := models.AuthorBook{Book: row}
		meta, err := s.books.Read(row.FolderName)
		if err != nil {
			if !errors.Is(err, bookmeta.ErrNotFound) {
				s.log.WithError(err).WithField("folder", row.FolderName).Warn("unreadable book metadata")
			}
			books = append(books, book)
			continue
		}
		book.Title = meta.Title
		book.Author = meta.Author
		book.Cover = meta.Cover
		book.Language = meta.Language
		book.Genres = meta.Genres
		books = append(books, book)
	}
	return books, nil
}

// AuthorProfile returns the author with their institution when it exists.
func (s *Service) AuthorProfile(ctx context.Context, requesterID, authorID int64) (models.AuthorProfile, error) {
	if err := authorize(requesterID, authorID); err != nil {
		return models.AuthorProfile{}, err
	}
	author, err := s.author(ctx, authorID)
	if err != nil {
		return models.AuthorProfile{}, err
	}

	profile := models.AuthorProfile{Author: author}
	if author.InstitutionID != nil {
		in, err := s.db.InstitutionByID(ctx, *author.InstitutionID)
		switch {
		case err == nil:
			profile.InstitutionDetails = &in
		case !errors.Is(err, database.ErrNotFound):
			s.log.WithError(err).WithField("institution", *author.InstitutionID).Warn("failed to load institution")
		}
	}
	return profile, nil
}

// UpdateAuthorProfile changes the bio and, when picture is set, replaces the
// profile picture. An empty bio keeps the current one.
func (s *Service) UpdateAuthorProfile(ctx context.Context, requesterID, authorID int64, bio string, picture *Upload) (models.Author, error) {
	if err := authorize(requesterID, authorID); err != nil {
		return models.Author{}, err
	}
	current, err := s.author(ctx, authorID)
	if err != nil {
		return models.Author{}, err
	}

	var bioArg, pictureArg *string
	if strings.TrimSpace(bio) != "" {
		bioArg = &bio
	}
	if picture != nil {
		path, err := s.saveProfilePicture(authorOwner(authorID), picture)
		if err != nil {
			return models.Author{}, err
		}
		pictureArg = &path
	}

	updated, err := s.db.UpdateAuthorProfile(ctx, authorID, bioArg, pictureArg)
	if err != nil {
		if pictureArg != nil {
			s.removeProfilePicture(authorOwner(authorID), *pictureArg)
		}
		return models.Author{}, apperr.Internal("Failed to update profile", err)
	}

	if pictureArg != nil && current.ProfilePicture != nil && *current.ProfilePicture != *pictureArg {
		s.removeProfilePicture(authorOwner(authorID), *current.ProfilePicture)
	}
	return updated, nil
}

