package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"penx/internal/app"
	"penx/pkg/models"
)

func newAnalyticsCommand(ctx *commandContext) *cobra.Command {
	var server string

	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Print platform analytics",
		Long: "Reads the stores directly. While api-server holds the data directory the\n" +
			"report is fetched from its admin analytics endpoint instead.",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := ctx.withApp(cmd, app.Options{ReadOnly: true}, func(a *app.App) error {
				report, err := a.Service.Analytics(cmd.Context())
				if err != nil {
					return err
				}
				writeAnalytics(cmd.OutOrStdout(), report)
				return nil
			})
			if !errors.Is(err, app.ErrInUse) {
				return err
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			base := server
			if base == "" {
				base = serverURL(cfg.Server.Addr)
			}
			report, err := fetchAnalytics(cmd.Context(), base, cfg)
			if err != nil {
				return err
			}
			writeAnalytics(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().StringVar(&server, "server", "", "Base URL of the running api-server (default from server.addr)")
	return cmd
}

var activityType = cases.Title(language.English)

func count(n int) string { return humanize.Comma(int64(n)) }

func writeAnalytics(w io.Writer, a models.Analytics) {
	right := []columnAlignment{alignLeft, alignRight}

	fmt.Fprintln(w, renderTable("Totals", []string{"Metric", "Value"}, [][]string{
		{"Readers", count(a.TotalReaders)},
		{"Authors", count(a.TotalAuthors)},
		{"Books", count(a.TotalBooks)},
		{"Reads", count(a.TotalReads)},
		{"Favorites", count(a.TotalFavorites)},
	}, right))

	books := make([][]string, 0, len(a.TopBooks))
	for _, b := range a.TopBooks {
		books = append(books, []string{b.ID, b.Title, b.Author, count(b.Reads), count(b.Favorites)})
	}
	fmt.Fprintln(w, renderTable("Top books", []string{"ID", "Title", "Author", "Reads", "Favorites"}, books,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight}))

	authors := make([][]string, 0, len(a.TopAuthors))
	for _, au := range a.TopAuthors {
		authors = append(authors, []string{au.Name, count(au.Publications), count(au.TotalReads)})
	}
	fmt.Fprintln(w, renderTable("Top authors", []string{"Author", "Publications", "Reads"}, authors,
		[]columnAlignment{alignLeft, alignRight, alignRight}))

	languages := make([][]string, 0, len(a.LanguageDistribution))
	for _, l := range a.LanguageDistribution {
		languages = append(languages, []string{l.Language, count(l.Count)})
	}
	fmt.Fprintln(w, renderTable("Languages", []string{"Language", "Books"}, languages, right))

	genres := make([][]string, 0, len(a.GenreDistribution))
	for _, g := range a.GenreDistribution {
		genres = append(genres, []string{g.Genre, count(g.Count)})
	}
	fmt.Fprintln(w, renderTable("Genres", []string{"Genre", "Books"}, genres, right))

	activity := make([][]string, 0, len(a.RecentActivity))
	for _, act := range a.RecentActivity {
		activity = append(activity, []string{act.Time, activityType.String(act.Type), act.Description})
	}
	fmt.Fprintln(w, renderTable("Recent activity", []string{"When", "Type", "Description"}, activity, nil))
}
