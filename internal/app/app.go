// Package app opens every PenX store from configuration and wires the
// domain service on top of them.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"
	"gopkg.in/robfig/cron.v2"

	"penx/internal/auth"
	"penx/internal/bookmeta"
	"penx/internal/config"
	"penx/internal/database"
	"penx/internal/engagement"
	"penx/internal/filestore"
	"penx/internal/library"
	"penx/internal/readers"
	"penx/internal/search"
	"penx/internal/websocket"
)

// App holds the opened stores and the service built on them.
type App struct {
	Config     *config.Config
	Log        *logrus.Logger
	DB         *database.Store
	Books      *bookmeta.Store
	Readers    *readers.Store
	Engagement *engagement.Store
	Index      *search.BookIndex
	Hub        *websocket.Hub
	Tokens     *auth.Manager
	Service    *library.Service

	lock *flock.Flock
}

// ErrInUse reports that another process holds the data directory, normally
// a running api-server.
var ErrInUse = errors.New("data directory is in use by another process")

// Options adjusts how Open acquires the stores.
type Options struct {
	// ReadOnly takes a shared lock on the data directory and opens the
	// engagement store and search index without write access. Any number of
	// read-only Apps may be open together, but never alongside a writable one.
	ReadOnly bool
}

// LockPath is the advisory lock guarding the data directory.
func LockPath(cfg *config.Config) string {
	return filepath.Join(cfg.Paths.DataDir, "penx.lock")
}

// Open creates the data directories and opens every store for writing. The
// caller must Close the returned App.
func Open(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*App, error) {
	return OpenWith(ctx, cfg, log, Options{})
}

// OpenWith is Open with explicit options. It fails with ErrInUse when the
// data directory lock cannot be taken.
func OpenWith(ctx context.Context, cfg *config.Config, log *logrus.Logger, opts Options) (*App, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}

	lock := flock.New(LockPath(cfg))
	var locked bool
	var err error
	if opts.ReadOnly {
		locked, err = lock.TryRLock()
	} else {
		locked, err = lock.TryLock()
	}
	if err != nil {
		return nil, fmt.Errorf("lock data directory: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w (%s)", ErrInUse, lock.Path())
	}

	a := &App{Config: cfg, Log: log, Hub: websocket.NewHub(), lock: lock}
	files := filestore.New(filestore.Policy{Attempts: cfg.Retry.Attempts, Delay: cfg.RetryDelay()})
	passwords := auth.Passwords{Cost: cfg.Auth.BcryptCost}
	a.Tokens = auth.NewManager(cfg.Auth.JWTSecret, cfg.TokenTTL())

	if a.DB, err = database.Open(ctx, cfg.Paths.Database); err != nil {
		a.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}
	if a.Engagement, err = openEngagement(cfg.Paths.EngagementDB, opts.ReadOnly); err != nil {
		a.Close()
		return nil, fmt.Errorf("open engagement store: %w", err)
	}

	a.Books = bookmeta.New(cfg.Paths.BooksDir, files)
	a.Readers = readers.New(readers.Options{
		Path:      cfg.Paths.ReadersCSV,
		Files:     files,
		Hasher:    passwords,
		LegacyKey: cfg.Auth.LegacyReaderKey,
	})
	if !opts.ReadOnly {
		if err := a.Readers.Init(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("init reader accounts: %w", err)
		}
	}

	deps := library.Deps{
		DB:         a.DB,
		Books:      a.Books,
		Readers:    a.Readers,
		Engagement: a.Engagement,
		Feed:       a.Hub,
		Tokens:     a.Tokens,
		Passwords:  passwords,
		Logger:     log,
	}
	if cfg.Search.Enabled {
		if a.Index, err = openIndex(cfg.Paths.SearchIndex, opts.ReadOnly); err != nil {
			a.Close()
			return nil, fmt.Errorf("open search index: %w", err)
		}
		if a.Index != nil {
			deps.Index = a.Index
		}
	}

	a.Service = library.New(deps, library.Options{
		InstitutionName:    cfg.Institution.Name,
		ImagesDir:          cfg.Paths.ImagesDir,
		ProfilePicturesDir: cfg.ProfilePicturesDir(),
		MaxUploadBytes:     cfg.Server.MaxUploadBytes,
		AdminUsername:      cfg.Admin.Username,
		AdminPasswordHash:  cfg.Admin.PasswordHash,
	})
	return a, nil
}

// Close releases every opened store.
func (a *App) Close() error {
	var errs []error
	if a.Index != nil {
		errs = append(errs, a.Index.Close())
	}
	if a.Engagement != nil {
		errs = append(errs, a.Engagement.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	if a.lock != nil {
		errs = append(errs, a.lock.Unlock())
	}
	return errors.Join(errs...)
}

// openEngagement opens the bolt file read-only when asked, unless it has
// never been created.
func openEngagement(path string, readOnly bool) (*engagement.Store, error) {
	if readOnly && fileExists(path) {
		return engagement.OpenReadOnly(path)
	}
	return engagement.Open(path)
}

// openIndex returns nil without error for a read-only open of an index that
// was never built; searches then fall back to scanning metadata.
func openIndex(path string, readOnly bool) (*search.BookIndex, error) {
	if !readOnly {
		return search.Open(path)
	}
	if !fileExists(path) {
		return nil, nil
	}
	return search.OpenReadOnly(path)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// StartReindex rebuilds the search index on the configured schedule until
// the returned stop function is called. It does nothing when search is
// disabled or no schedule is set.
func (a *App) StartReindex(ctx context.Context) (stop func(), err error) {
	spec := a.Config.Search.ReindexSchedule
	if a.Index == nil || spec == "" {
		return func() {}, nil
	}

	c := cron.New()
	_, err = c.AddFunc(spec, func() {
		n, err := a.Service.Reindex(ctx)
		if err != nil {
			a.Log.WithError(err).Error("scheduled reindex failed")
			return
		}
		a.Log.WithField("books", n).Debug("search index rebuilt")
	})
	if err != nil {
		return nil, fmt.Errorf("reindex schedule %q: %w", spec, err)
	}
	c.Start()
	return c.Stop, nil
}
