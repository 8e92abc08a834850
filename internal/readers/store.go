// Package readers keeps reader accounts in a CSV file. The file is read in
// full and rewritten in full on every change.
package readers

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"penx/internal/filestore"
	"penx/pkg/models"
)

const (
	colFirstName      = "First Name"
	colLastName       = "Last Name"
	colEmail          = "Email"
	colPassword       = "Password"
	colProfilePicture = "ProfilePicture"
)

// Header is the column layout of a fresh accounts file.
var Header = []string{colFirstName, colLastName, colEmail, colPassword, colProfilePicture}

var (
	ErrNotFound           = errors.New("reader not found")
	ErrDuplicate          = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// PasswordHasher hashes and verifies reader passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Check(password, hash string) bool
}

// Store is the reader accounts file.
type Store struct {
	path      string
	files     *filestore.Store
	hasher    PasswordHasher
	legacyKey []byte
}

// Options configures a Store. LegacyKey enables logins against rows whose
// password is still in the old reversible format.
type Options struct {
	Path      string
	Files     *filestore.Store
	Hasher    PasswordHasher
	LegacyKey string
}

func New(opts Options) *Store {
	s := &Store{path: opts.Path, files: opts.Files, hasher: opts.Hasher}
	if len(opts.LegacyKey) >= legacyKeySize {
		s.legacyKey = []byte(opts.LegacyKey[:legacyKeySize])
	}
	return s
}

// Path returns the location of the accounts file.
func (s *Store) Path() string { return s.path }

// table is the parsed file. Unknown columns are preserved on rewrite.
type table struct {
	header []string
	rows   [][]string
	index  map[string]int
}

func newTable(header []string) *table {
	t := &table{header: header}
	t.reindex()
	return t
}

func (t *table) reindex() {
	t.index = make(map[string]int, len(t.header))
	for i, h := range t.header {
		t.index[strings.TrimSpace(h)] = i
	}
}

// ensureColumn appends col to the header (and every row) when missing.
func (t *table) ensureColumn(col string) bool {
	if _, ok := t.index[col]; ok {
		return false
	}
	t.header = append(t.header, col)
	for i := range t.rows {
		t.rows[i] = append(t.rows[i], "")
	}
	t.reindex()
	return true
}

func (t *table) get(row []string, col string) string {
	i, ok := t.index[col]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func (t *table) set(row []string, col, value string) {
	if i, ok := t.index[col]; ok {
		row[i] = value
	}
}

func (t *table) find(email string) int {
	email = strings.TrimSpace(email)
	for i, row := range t.rows {
		if strings.TrimSpace(t.get(row, colEmail)) == email {
			return i
		}
	}
	return -1
}

func (t *table) reader(row []string) models.Reader {
	return models.Reader{
		FirstName:      t.get(row, colFirstName),
		LastName:       t.get(row, colLastName),
		Email:          t.get(row, colEmail),
		Password:       t.get(row, colPassword),
		ProfilePicture: t.get(row, colProfilePicture),
	}
}

func (s *Store) load() (*table, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return newTable(append([]string(nil), Header...)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("open readers file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse readers file: %w", err)
	}
	if len(records) == 0 {
		return newTable(append([]string(nil), Header...)), nil
	}

	t := newTable(records[0])
	for _, rec := range records[1:] {
		if len(rec) == 1 && strings.TrimSpace(rec[0]) == "" {
			continue
		}
		for len(rec) < len(t.header) {
			rec = append(rec, "")
		}
		t.rows = append(t.rows, rec)
	}
	return t, nil
}

func (s *Store) save(ctx context.Context, t *table) error {
	var b strings.Builder
	w := csv.NewWriter(&b)
	if err := w.Write(t.header); err != nil {
		return err
	}
	if err := w.WriteAll(t.rows); err != nil {
		return fmt.Errorf("encode readers file: %w", err)
	}
	return s.files.WriteFile(ctx, s.path, []byte(b.String()), 0o600)
}

// mutate runs fn on the parsed file under the file lock and saves the result
// when fn reports a change.
func (s *Store) mutate(ctx context.Context, fn func(*table) (bool, error)) error {
	return s.files.Locked(ctx, s.path, func() error {
		t, err := s.load()
		if err != nil {
			return err
		}
		changed, err := fn(t)
		if err != nil || !changed {
			return err
		}
		return s.save(ctx, t)
	})
}

// Init creates the accounts file when missing and adds the ProfilePicture
// column to files written before it existed.
func (s *Store) Init(ctx context.Context) error {
	return s.mutate(ctx, func(t *table) (bool, error) {
		_, err := os.Stat(s.path)
		created := errors.Is(err, fs.ErrNotExist)
		added := t.ensureColumn(colProfilePicture)
		return created || added, nil
	})
}

// All returns every account.
func (s *Store) All() ([]models.Reader, error) {
	t, err := s.load()
	if err != nil {
		return nil, err
	}
	out := make([]models.Reader, 0, len(t.rows))
	for _, row := range t.rows {
		out = append(out, t.reader(row))
	}
	return out, nil
}

// Find returns the account registered under email.
func (s *Store) Find(email string) (models.Reader, error) {
	t, err := s.load()
	if err != nil {
		return models.Reader{}, err
	}
	i := t.find(email)
	if i < 0 {
		return models.Reader{}, ErrNotFound
	}
	return t.reader(t.rows[i]), nil
}

// Row returns the raw account row keyed by column name, without the password.
func (s *Store) Row(email string) (map[string]string, error) {
	t, err := s.load()
	if err != nil {
		return nil, err
	}
	i := t.find(email)
	if i < 0 {
		return nil, ErrNotFound
	}
	out := make(map[string]string, len(t.header))
	for col, idx := range t.index {
		if col == colPassword {
			continue
		}
		out[col] = t.rows[i][idx]
	}
	return out, nil
}

// Create registers a new account with a hashed password.
func (s *Store) Create(ctx context.Context, r models.Reader, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.mutate(ctx, func(t *table) (bool, error) {
		if t.find(r.Email) >= 0 {
			return false, ErrDuplicate
		}
		t.ensureColumn(colProfilePicture)
		row := make([]string, len(t.header))
		t.set(row, colFirstName, r.FirstName)
		t.set(row, colLastName, r.LastName)
		t.set(row, colEmail, strings.TrimSpace(r.Email))
		t.set(row, colPassword, hash)
		t.set(row, colProfilePicture, r.ProfilePicture)
		t.rows = append(t.rows, row)
		return true, nil
	})
}

// Authenticate checks a login. Rows still holding a legacy encrypted password
// are upgraded to a bcrypt hash after a successful match.
func (s *Store) Authenticate(ctx context.Context, email, password string) (models.Reader, error) {
	r, err := s.Find(email)
	if errors.Is(err, ErrNotFound) {
		return models.Reader{}, ErrInvalidCredentials
	}
	if err != nil {
		return models.Reader{}, err
	}

	if !isLegacy(r.Password) {
		if !s.hasher.Check(password, r.Password) {
			return models.Reader{}, ErrInvalidCredentials
		}
		return r, nil
	}

	if s.legacyKey == nil {
		return models.Reader{}, ErrInvalidCredentials
	}
	plain, err := decryptLegacy(s.legacyKey, r.Password)
	if err != nil || plain != password {
		return models.Reader{}, ErrInvalidCredentials
	}
	if err := s.upgrade(ctx, r.Email, r.Password, password); err != nil {
		return models.Reader{}, err
	}
	return r, nil
}

func (s *Store) upgrade(ctx context.Context, email, old, password string) error {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.mutate(ctx, func(t *table) (bool, error) {
		i := t.find(email)
		if i < 0 || t.get(t.rows[i], colPassword) != old {
			return false, nil
		}
		t.set(t.rows[i], colPassword, hash)
		return true, nil
	})
}

// SetProfilePicture points the account's picture at path.
func (s *Store) SetProfilePicture(ctx context.Context, email, path string) error {
	return s.mutate(ctx, func(t *table) (bool, error) {
		i := t.find(email)
		if i < 0 {
			return false, ErrNotFound
		}
		t.ensureColumn(colProfilePicture)
		t.set(t.rows[i], colProfilePicture, path)
		return true, nil
	})
}
