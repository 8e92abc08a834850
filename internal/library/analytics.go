package library

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"penx/internal/apperr"
	"penx/pkg/models"
)

const (
	topLimit      = 5
	recentPerKind = 5
	activityLimit = 10
)

// Analytics aggregates readers, books and engagement for the admin dashboard.
func (s *Service) Analytics(ctx context.Context) (models.Analytics, error) {
	accounts, err := s.readers.All()
	if err != nil {
		return models.Analytics{}, apperr.Internal("Failed to load analytics", err)
	}
	books, skipped, err := s.books.All(ctx)
	if err != nil {
		return models.Analytics{}, apperr.Internal("Failed to load analytics", err)
	}
	s.logSkipped(skipped)
	totals, err := s.engagement.Totals()
	if err != nil {
		return models.Analytics{}, apperr.Internal("Failed to load analytics", err)
	}

	out := models.Analytics{
		TotalReaders:   len(accounts),
		TotalBooks:     len(books),
		TotalReads:     totals.TotalReads,
		TotalFavorites: totals.TotalFavorites,
	}

	summaries := make([]models.BookSummary, 0, len(books))
	authors := map[string]*models.AuthorSummary{}
	var authorOrder []string
	languages := map[string]int{}
	genres := map[string]int{}

	for _, b := range books {
		reads, favs := totals.Reads[b.ID], totals.Favorites[b.ID]
		summaries = append(summaries, models.BookSummary{
			ID:        b.ID,
			Title:     b.Title,
			Author:    b.Author,
			Language:  b.Language,
			Genres:    b.Genres,
			Reads:     reads,
			Favorites: favs,
		})

		if name := strings.TrimSpace(b.Author); name != "" {
			a, ok := authors[name]
			if !ok {
				a = &models.AuthorSummary{Name: name}
				authors[name] = a
				authorOrder = append(authorOrder, name)
			}
			a.Publications++
			a.TotalReads += reads
		}
		if b.Language != "" {
			languages[b.Language]++
		}
		for _, g := range b.Genres {
			genres[g]++
		}
	}
	if err := ctx.Err(); err != nil {
		return models.Analytics{}, apperr.Internal("Failed to load analytics", err)
	}
	out.TotalAuthors = len(authors)

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Reads+summaries[i].Favorites > summaries[j].Reads+summaries[j].Favorites
	})
	if len(summaries) > topLimit {
		summaries = summaries[:topLimit]
	}
	out.TopBooks = summaries

	top := make([]models.AuthorSummary, 0, len(authorOrder))
	for _, name := range authorOrder {
		top = append(top, *authors[name])
	}
	sort.SliceStable(top, func(i, j int) bool {
		si, sj := top[i].Publications+top[i].TotalReads, top[j].Publications+top[j].TotalReads
		if si != sj {
			return si > sj
		}
		return top[i].Name < top[j].Name
	})
	if len(top) > topLimit {
		top = top[:topLimit]
	}
	out.TopAuthors = top

	out.LanguageDistribution = make([]models.LanguageCount, 0, len(languages))
	for _, name := range rankByCount(languages) {
		out.LanguageDistribution = append(out.LanguageDistribution, models.LanguageCount{Language: name, Count: languages[name]})
	}
	out.GenreDistribution = make([]models.GenreCount, 0, len(genres))
	for _, name := range rankByCount(genres) {
		out.GenreDistribution = append(out.GenreDistribution, models.GenreCount{Genre: name, Count: genres[name]})
	}

	titles := make(map[string]string, len(books))
	for _, b := range books {
		titles[b.ID] = b.Title
	}
	out.RecentActivity = s.recentActivity(ctx, titles)
	return out, nil
}

// recentActivity lists the latest books, comments and reviews. Failures are
// logged and yield a shorter list.
func (s *Service) recentActivity(ctx context.Context, titles map[string]string) []models.Activity {
	title := func(id string) string {
		if t := titles[id]; t != "" {
			return t
		}
		return "Book " + id
	}

	var events []models.Activity
	if books, err := s.db.RecentBooks(ctx, recentPerKind); err != nil {
		s.log.WithError(err).Warn("failed to load recent books")
	} else {
		for _, b := range books {
			events = append(events, models.Activity{
				Type:        "book",
				Description: fmt.Sprintf("New book published: %q", title(b.FolderName)),
				Timestamp:   b.CreatedAt,
			})
		}
	}
	if comments, err := s.db.RecentComments(ctx, recentPerKind); err != nil {
		s.log.WithError(err).Warn("failed to load recent comments")
	} else {
		for _, c := range comments {
			events = append(events, models.Activity{
				Type:        "comment",
				Description: fmt.Sprintf("%s commented on %q", c.UserName, title(c.BookID)),
				Timestamp:   c.CreatedAt,
			})
		}
	}
	if reviews, err := s.db.RecentReviews(ctx, recentPerKind); err != nil {
		s.log.WithError(err).Warn("failed to load recent reviews")
	} else {
		for _, r := range reviews {
			events = append(events, models.Activity{
				Type:        "review",
				Description: fmt.Sprintf("%s rated %q %d/5", r.UserName, title(r.BookID), r.Rating),
				Timestamp:   r.CreatedAt,
			})
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})
	if len(events) > activityLimit {
		events = events[:activityLimit]
	}
	now := time.Now()
	for i := range events {
		events[i].Time = humanize.RelTime(events[i].Timestamp, now, "ago", "from now")
	}
	if events == nil {
		events = []models.Activity{}
	}
	return events
}
