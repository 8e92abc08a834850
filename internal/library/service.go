// Package library implements the PenX domain operations on top of the
// relational, metadata, reader and engagement stores.
package library

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	"penx/internal/apperr"
	"penx/internal/auth"
	"penx/internal/bookmeta"
	"penx/internal/database"
	"penx/internal/engagement"
	"penx/internal/readers"
	"penx/internal/search"
	"penx/internal/shared"
	"penx/pkg/models"
)

// Publisher receives comment events for live subscribers.
type Publisher interface {
	Publish(event shared.CommentEvent)
}

// Indexer is the search index the service keeps in sync with book metadata.
type Indexer interface {
	Index(id string, meta models.BookMetadata) error
	Search(q search.Query) ([]string, error)
	Rebuild(ctx context.Context, books []models.BookEntry) error
}

// Options holds the settings the service needs from configuration.
type Options struct {
	InstitutionName    string
	ImagesDir          string
	ProfilePicturesDir string
	MaxUploadBytes     int64
	AdminUsername      string
	AdminPasswordHash  string
}

// Deps are the stores and collaborators of the service. Index and Feed are
// optional.
type Deps struct {
	DB         *database.Store
	Books      *bookmeta.Store
	Readers    *readers.Store
	Engagement *engagement.Store
	Index      Indexer
	Feed       Publisher
	Tokens     *auth.Manager
	Passwords  auth.Passwords
	Logger     *logrus.Logger
}

type Service struct {
	db         *database.Store
	books      *bookmeta.Store
	readers    *readers.Store
	engagement *engagement.Store
	index      Indexer
	feed       Publisher
	tokens     *auth.Manager
	passwords  auth.Passwords
	log        *logrus.Logger
	opts       Options
}

func New(d Deps, opts Options) *Service {
	log := d.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Service{
		db:         d.DB,
		books:      d.Books,
		readers:    d.Readers,
		engagement: d.Engagement,
		index:      d.Index,
		feed:       d.Feed,
		tokens:     d.Tokens,
		passwords:  d.Passwords,
		log:        log,
		opts:       opts,
	}
}

// Upload is a file received from a client.
type Upload struct {
	Name    string
	Size    int64
	Content io.Reader
}

// Health checks the relational store.
func (s *Service) Health(ctx context.Context) error {
	if err := s.db.Ping(ctx); err != nil {
		return apperr.Internal("Database unavailable", err)
	}
	return nil
}

func badRequest(msg string) error {
	return apperr.New(msg, apperr.BadRequest())
}

func notFound(msg string, cause error) error {
	return apperr.New(msg, apperr.NotFound(), apperr.WithCause(cause))
}

func forbidden(msg string) error {
	return apperr.New(msg, apperr.Forbidden())
}

func unauthorized(msg string) error {
	return apperr.New(msg, apperr.Unauthorized())
}
