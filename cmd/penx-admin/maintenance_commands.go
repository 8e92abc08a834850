package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"penx/internal/app"
	"penx/internal/bookmeta"
	"penx/internal/config"
	"penx/internal/database"
	"penx/internal/filestore"
	"penx/internal/readers"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show store locations and sizes",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := ctx.withApp(cmd, app.Options{ReadOnly: true}, func(a *app.App) error {
				indexed := "disabled"
				if a.Index != nil {
					n, err := a.Index.Count()
					if err != nil {
						return err
					}
					indexed = count(int(n))
				} else if a.Config.Search.Enabled {
					indexed = "not built"
				}
				return writeStatus(cmd, a.Config, a.DB, a.Books, a.Readers, "", indexed)
			})
			if !errors.Is(err, app.ErrInUse) {
				return err
			}
			return sharedStatus(cmd, ctx)
		},
	}
}

// sharedStatus reports what can be read next to a running api-server: the
// relational database, book folders and reader accounts.
func sharedStatus(cmd *cobra.Command, ctx *commandContext) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	db, err := database.Open(cmd.Context(), cfg.Paths.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	files := filestore.New(filestore.Policy{Attempts: cfg.Retry.Attempts, Delay: cfg.RetryDelay()})
	books := bookmeta.New(cfg.Paths.BooksDir, files)
	accounts := readers.New(readers.Options{Path: cfg.Paths.ReadersCSV, Files: files})
	return writeStatus(cmd, cfg, db, books, accounts, inUse, inUse)
}

const inUse = "in use by api-server"

func writeStatus(cmd *cobra.Command, cfg *config.Config, db *database.Store, books *bookmeta.Store, accounts *readers.Store, engagement, indexed string) error {
	version, err := db.Version(cmd.Context())
	if err != nil {
		return err
	}
	folders, err := books.ListFolders()
	if err != nil {
		return err
	}
	all, err := accounts.All()
	if err != nil {
		return err
	}

	p := cfg.Paths
	fmt.Fprintln(cmd.OutOrStdout(), renderTable("", []string{"Store", "Location", "Size"}, [][]string{
		{"Database", p.Database, fmt.Sprintf("schema v%d", version)},
		{"Books", p.BooksDir, count(len(folders))},
		{"Readers", p.ReadersCSV, count(len(all))},
		{"Engagement", p.EngagementDB, engagement},
		{"Search index", p.SearchIndex, indexed},
	}, []columnAlignment{alignLeft, alignLeft, alignRight}))
	return nil
}

func newReindexCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the book search index",
		Long:  "Rebuilds the search index from book metadata. api-server must be stopped.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, app.Options{}, func(a *app.App) error {
				if a.Index == nil {
					return fmt.Errorf("search is disabled in configuration")
				}
				n, err := a.Service.Reindex(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Indexed %s books\n", count(n))
				return nil
			})
		},
	}
}

func newImportLegacyCommand(ctx *commandContext) *cobra.Command {
	var favoritesDir, readsPath string

	cmd := &cobra.Command{
		Use:   "import-legacy",
		Short: "Import per-reader favorites files and the reads map",
		Long:  "Merges legacy favorites and reads into the engagement store. api-server must be stopped.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, app.Options{}, func(a *app.App) error {
				if favoritesDir == "" {
					favoritesDir = a.Config.Paths.LegacyFavorites
				}
				if readsPath == "" {
					readsPath = a.Config.Paths.LegacyReads
				}
				report, err := a.Engagement.ImportLegacy(favoritesDir, readsPath)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported favorites of %s readers and reads of %s readers\n",
					count(report.FavoriteFiles), count(report.ReadReaders))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&favoritesDir, "favorites", "", "Directory of <email>.json favorites files")
	cmd.Flags().StringVar(&readsPath, "reads", "", "Path of the reads.json map")
	return cmd
}
