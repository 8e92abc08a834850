// Package search maintains a bleve full-text index over book metadata.
package search

import (
	"context"
	"strings"

	"github.com/blevesearch/bleve"
	"github.com/blevesearch/bleve/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/analysis/lang/en"
	"github.com/blevesearch/bleve/mapping"
	"github.com/blevesearch/bleve/search/query"

	"penx/pkg/models"
)

const docType = "book"

// Query filters a search. Q is free text matched against title, author and
// description; Language and Genre are exact, case-insensitive filters.
type Query struct {
	Q        string
	Language string
	Genre    string
	Limit    int
}

// DefaultLimit caps result sets when Query.Limit is unset; MaxLimit caps
// them always.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// BookIndex is the book search index.
type BookIndex struct {
	index bleve.Index
}

// Open opens the index at path, creating it when it does not exist yet.
func Open(path string) (*BookIndex, error) {
	index, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		index, err = bleve.New(path, newMapping())
	}
	if err != nil {
		return nil, err
	}
	return &BookIndex{index: index}, nil
}

// OpenReadOnly opens an existing index without write access.
func OpenReadOnly(path string) (*BookIndex, error) {
	index, err := bleve.OpenUsing(path, map[string]interface{}{"read_only": true})
	if err != nil {
		return nil, err
	}
	return &BookIndex{index: index}, nil
}

// NewMemOnly returns an index that lives in memory, for tests and for
// deployments that rebuild on start.
func NewMemOnly() (*BookIndex, error) {
	index, err := bleve.NewMemOnly(newMapping())
	if err != nil {
		return nil, err
	}
	return &BookIndex{index: index}, nil
}

func newMapping() *mapping.IndexMappingImpl {
	text := bleve.NewTextFieldMapping()
	text.Analyzer = en.AnalyzerName

	exact := bleve.NewTextFieldMapping()
	exact.Analyzer = keyword.Name

	dm := bleve.NewDocumentMapping()
	dm.AddFieldMappingsAt("title", text)
	dm.AddFieldMappingsAt("author", text)
	dm.AddFieldMappingsAt("description", text)
	dm.AddFieldMappingsAt("language", exact)
	dm.AddFieldMappingsAt("genres", exact)

	m := bleve.NewIndexMapping()
	m.AddDocumentMapping(docType, dm)
	m.DefaultType = docType
	m.DefaultAnalyzer = en.AnalyzerName
	return m
}

func (s *BookIndex) Close() error {
	if s.index == nil {
		return nil
	}
	return s.index.Close()
}

func document(meta models.BookMetadata) map[string]interface{} {
	genres := make([]string, 0, len(meta.Genres))
	for _, g := range meta.Genres {
		genres = append(genres, normalizeTerm(g))
	}
	return map[string]interface{}{
		"title":       meta.Title,
		"author":      meta.Author,
		"description": meta.Description,
		"language":    normalizeTerm(meta.Language),
		"genres":      genres,
	}
}

func normalizeTerm(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Index adds or replaces the document of one book folder.
func (s *BookIndex) Index(id string, meta models.BookMetadata) error {
	return s.index.Index(id, document(meta))
}

// Delete removes one book folder from the index.
func (s *BookIndex) Delete(id string) error {
	return s.index.Delete(id)
}

// Count returns the number of indexed books.
func (s *BookIndex) Count() (uint64, error) {
	return s.index.DocCount()
}

// Rebuild makes the index match books exactly: every entry is (re)indexed
// and stale documents are deleted.
func (s *BookIndex) Rebuild(ctx context.Context, books []models.BookEntry) error {
	keep := make(map[string]bool, len(books))
	batch := s.index.NewBatch()
	for _, b := range books {
		if err := ctx.Err(); err != nil {
			return err
		}
		keep[b.ID] = true
		if err := batch.Index(b.ID, document(b.BookMetadata)); err != nil {
			return err
		}
	}

	existing, err := s.allIDs()
	if err != nil {
		return err
	}
	for _, id := range existing {
		if !keep[id] {
			batch.Delete(id)
		}
	}
	return s.index.Batch(batch)
}

func (s *BookIndex) allIDs() ([]string, error) {
	count, err := s.index.DocCount()
	if err != nil || count == 0 {
		return nil, err
	}
	req := bleve.NewSearchRequest(query.NewMatchAllQuery())
	req.Size = int(count)
	res, err := s.index.Search(req)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(res.Hits))
	for i, hit := range res.Hits {
		ids[i] = hit.ID
	}
	return ids, nil
}

// Search returns matching book folder names, best match first. Without
// free text the matches are ordered by folder name.
func (s *BookIndex) Search(q Query) ([]string, error) {
	text := s.textQuery(q.Q)
	root := andQ(
		query.NewMatchAllQuery(),
		text,
		termQ(q.Language, "language"),
		termQ(q.Genre, "genres"),
	)

	req := bleve.NewSearchRequest(root)
	if text == nil {
		req.SortBy([]string{"_id"})
	}
	req.Size = q.Limit
	if req.Size <= 0 {
		req.Size = DefaultLimit
	}
	if req.Size > MaxLimit {
		req.Size = MaxLimit
	}

	res, err := s.index.Search(req)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(res.Hits))
	for i, hit := range res.Hits {
		ids[i] = hit.ID
	}
	return ids, nil
}

func (s *BookIndex) textQuery(q string) query.Query {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil
	}
	fields := []string{"title", "author", "description"}
	ors := make([]query.Query, 0, len(fields)*2)
	for _, field := range fields {
		match := query.NewMatchQuery(q)
		match.SetField(field)
		ors = append(ors, match)
	}

	// prefix matching on the title so partial words still hit
	analyzer := s.index.Mapping().AnalyzerNamed(en.AnalyzerName)
	for _, token := range analyzer.Analyze([]byte(q)) {
		prefix := query.NewPrefixQuery(string(token.Term))
		prefix.SetField("title")
		ors = append(ors, prefix)
	}
	return query.NewDisjunctionQuery(ors)
}

func termQ(value, field string) query.Query {
	value = normalizeTerm(value)
	if value == "" {
		return nil
	}
	t := query.NewTermQuery(value)
	t.SetField(field)
	return t
}

func andQ(qs ...query.Query) query.Query {
	ands := make([]query.Query, 0, len(qs))
	for _, q := range qs {
		if q != nil {
			ands = append(ands, q)
		}
	}
	if len(ands) == 0 {
		return nil
	}
	return query.NewConjunctionQuery(ands)
}
