package library

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"penx/internal/apperr"
	"penx/internal/readers"
	"penx/pkg/models"
)

// DefaultReaderPicture is shown for readers without a profile picture.
const DefaultReaderPicture = "/images/PenX logo 0002.png"

func requireEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return "", badRequest("Email is required")
	}
	return email, nil
}

func readerNotFound(err error) error {
	return notFound("User not found.", err)
}

// SignupReader registers a reader account.
func (s *Service) SignupReader(ctx context.Context, req models.ReaderSignupRequest) error {
	r := models.Reader{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     strings.TrimSpace(req.Email),
	}
	if r.FirstName == "" || r.LastName == "" || r.Email == "" || req.Password == "" {
		return badRequest("All fields are required.")
	}

	err := s.readers.Create(ctx, r, req.Password)
	if errors.Is(err, readers.ErrDuplicate) {
		return badRequest("Email already exists.")
	}
	if err != nil {
		return apperr.Internal("Error saving user data.", err)
	}
	return nil
}

// LoginReader checks a reader's credentials.
func (s *Service) LoginReader(ctx context.Context, email, password string) (models.Reader, error) {
	r, err := s.readers.Authenticate(ctx, strings.TrimSpace(email), password)
	if errors.Is(err, readers.ErrInvalidCredentials) || errors.Is(err, readers.ErrNotFound) {
		return models.Reader{}, unauthorized("Invalid email or password.")
	}
	if err != nil {
		return models.Reader{}, apperr.Internal("Error reading user data.", err)
	}
	return r, nil
}

// ReaderStats summarises a reader's profile and activity. Favorite genres
// are ordered by how many favorited books carry them.
func (s *Service) ReaderStats(ctx context.Context, email string) (models.ReaderStats, error) {
	email, err := requireEmail(email)
	if err != nil {
		return models.ReaderStats{}, err
	}
	r, err := s.readers.Find(email)
	if errors.Is(err, readers.ErrNotFound) {
		return models.ReaderStats{}, readerNotFound(err)
	}
	if err != nil {
		return models.ReaderStats{}, apperr.Internal("Error reading user data.", err)
	}

	read, err := s.engagement.ReadBooks(email)
	if err != nil {
		return models.ReaderStats{}, apperr.Internal("Error reading user data.", err)
	}
	favorites, err := s.engagement.Favorites(email)
	if err != nil {
		return models.ReaderStats{}, apperr.Internal("Error reading user data.", err)
	}

	counts := map[string]int{}
	for _, id := range favorites {
		if err := ctx.Err(); err != nil {
			return models.ReaderStats{}, apperr.Internal("Error reading user data.", err)
		}
		meta, err := s.books.Read(id)
		if err != nil {
			continue
		}
		for _, g := range meta.Genres {
			counts[g]++
		}
	}

	picture := r.ProfilePicture
	if picture == "" {
		picture = DefaultReaderPicture
	}
	return models.ReaderStats{
		FirstName:      r.FirstName,
		LastName:       r.LastName,
		Email:          r.Email,
		BooksRead:      len(read),
		FavoriteGenres: rankByCount(counts),
		ProfilePicture: picture,
	}, nil
}

func rankByCount(counts map[string]int) []string {
	genres := make([]string, 0, len(counts))
	for g := range counts {
		genres = append(genres, g)
	}
	sort.Slice(genres, func(i, j int) bool {
		if counts[genres[i]] != counts[genres[j]] {
			return counts[genres[i]] > counts[genres[j]]
		}
		return genres[i] < genres[j]
	})
	return genres
}

// AccountData returns the reader's stored row without the password.
func (s *Service) AccountData(email string) (map[string]string, error) {
	email, err := requireEmail(email)
	if err != nil {
		return nil, err
	}
	row, err := s.readers.Row(email)
	if errors.Is(err, readers.ErrNotFound) {
		return nil, readerNotFound(err)
	}
	if err != nil {
		return nil, apperr.Internal("Error reading user data.", err)
	}
	return row, nil
}

// UpdateReaderPicture points the reader's picture at an existing path. An
// uploaded picture can only be chosen by the reader who uploaded it.
func (s *Service) UpdateReaderPicture(ctx context.Context, email, path string) error {
	email, err := requireEmail(email)
	if err != nil {
		return err
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return badRequest("Email and profile picture path are required.")
	}
	if strings.HasPrefix(path, ProfilePicturesURL+"/") && !ownsPicture(readerOwner(email), path) {
		return badRequest("Invalid profile picture path.")
	}
	err = s.readers.SetProfilePicture(ctx, email, path)
	if errors.Is(err, readers.ErrNotFound) {
		return readerNotFound(err)
	}
	if err != nil {
		return apperr.Internal("Error updating profile picture.", err)
	}
	return nil
}

// UploadReaderPicture stores an uploaded picture and sets it as the reader's
// profile picture. It returns the public path.
func (s *Service) UploadReaderPicture(ctx context.Context, email string, up *Upload) (string, error) {
	email, err := requireEmail(email)
	if err != nil {
		return "", err
	}
	if up == nil {
		return "", badRequest("No file uploaded.")
	}
	previous, err := s.readers.Find(email)
	if errors.Is(err, readers.ErrNotFound) {
		return "", readerNotFound(err)
	}
	if err != nil {
		return "", apperr.Internal("Error updating profile picture.", err)
	}

	path, err := s.saveProfilePicture(readerOwner(email), up)
	if err != nil {
		return "", err
	}
	if err := s.readers.SetProfilePicture(ctx, email, path); err != nil {
		_ = os.Remove(filepath.Join(s.opts.ProfilePicturesDir, filepath.Base(path)))
		if errors.Is(err, readers.ErrNotFound) {
			return "", readerNotFound(err)
		}
		return "", apperr.Internal("Error updating profile picture.", err)
	}
	if previous.ProfilePicture != "" && previous.ProfilePicture != path {
		s.removeProfilePicture(readerOwner(email), previous.ProfilePicture)
	}
	return path, nil
}

// Favorites returns the reader's favorite book ids.
func (s *Service) Favorites(email string) ([]string, error) {
	email, err := requireEmail(email)
	if err != nil {
		return nil, err
	}
	list, err := s.engagement.Favorites(email)
	if err != nil {
		return nil, apperr.Internal("Failed to fetch favorites", err)
	}
	if list == nil {
		list = []string{}
	}
	return list, nil
}

// ReplaceFavorites overwrites the reader's favorites.
func (s *Service) ReplaceFavorites(email string, books []string) ([]string, error) {
	email, err := requireEmail(email)
	if err != nil {
		return nil, err
	}
	list, err := s.engagement.ReplaceFavorites(email, books)
	if err != nil {
		return nil, apperr.Internal("Failed to save favorites", err)
	}
	return list, nil
}

// ToggleFavorite adds or removes one favorite. Adding an existing favorite
// changes nothing.
func (s *Service) ToggleFavorite(email, bookID string, on bool) ([]string, error) {
	email, err := requireEmail(email)
	if err != nil {
		return nil, err
	}
	if bookID = strings.TrimSpace(bookID); bookID == "" {
		return nil, badRequest("Book ID is required")
	}
	list, err := s.engagement.SetFavorite(email, bookID, on)
	if err != nil {
		return nil, apperr.Internal("Failed to update favorites", err)
	}
	return list, nil
}

// TrackRead records that the reader opened a book.
func (s *Service) TrackRead(email, bookID string) error {
	email, err := requireEmail(email)
	if err != nil {
		return err
	}
	if bookID = strings.TrimSpace(bookID); bookID == "" {
		return badRequest("Book ID is required")
	}
	if err := s.engagement.TrackRead(email, bookID); err != nil {
		return apperr.Internal("Failed to track read", err)
	}
	return nil
}

// BookStats reports the reader's engagement with a book and its totals.
func (s *Service) BookStats(email, bookID string) (models.BookStats, error) {
	email, err := requireEmail(email)
	if err != nil {
		return models.BookStats{}, err
	}
	if bookID = strings.TrimSpace(bookID); bookID == "" {
		return models.BookStats{}, badRequest("Book ID is required")
	}
	stats, err := s.engagement.BookStats(email, bookID)
	if err != nil {
		return models.BookStats{}, apperr.Internal("Failed to fetch book stats", err)
	}
	return stats, nil
}
