package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/cesargomez89/musicdl/internal/app"
	"github.com/cesargomez89/musicdl/internal/catalog"
	"github.com/cesargomez89/musicdl/internal/config"
	"github.com/cesargomez89/musicdl/internal/constants"
	"github.com/cesargomez89/musicdl/internal/domain"
	"github.com/cesargomez89/musicdl/internal/logger"
	"github.com/cesargomez89/musicdl/internal/progress"
)

// loadConfig applies the global flags on top of the environment.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Load()
	if c.IsSet("dir") {
		cfg.DownloadsDir = c.String("dir")
	}
	if c.IsSet("concurrency") {
		cfg.Concurrency = c.Int("concurrency")
	}
	if c.IsSet("tagger") {
		cfg.Tagger = c.String("tagger")
	}
	if c.IsSet("format") {
		cfg.AudioFormat = strings.ToLower(c.String("format"))
	}
	if c.IsSet("db") {
		cfg.DBPath = c.String("db")
	}
	// The flag reads LOG_LEVEL itself, so it already ranks flag > env > warn.
	cfg.LogLevel = c.String("log-level")
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func withApp(c *cli.Context, fn func(a *app.App) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: os.Stderr,
	})
	a, err := app.New(cfg, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if c.IsSet("dir") {
		a.Manager.SetBaseDir(cfg.DownloadsDir)
	}
	return fn(a)
}

func runGet(c *cli.Context) error {
	items, err := loadBatchFile(c.String("file"))
	if err != nil {
		return err
	}
	return withApp(c, func(a *app.App) error {
		return downloadBatch(c, a, items)
	})
}

func runAlbum(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("expected exactly one ALBUM_ID", 2)
	}
	return withApp(c, func(a *app.App) error {
		items, err := catalog.AlbumItems(c.Context, a.Provider, c.Args().First())
		if err != nil {
			return fmt.Errorf("loading album %s: %w", c.Args().First(), err)
		}
		return downloadBatch(c, a, items)
	})
}

// downloadBatch runs items to completion while drawing a progress bar, then
// prints a summary table. It fails when any item failed.
func downloadBatch(c *cli.Context, a *app.App, items []domain.Item) error {
	if missing := a.CheckDependencies(c.Context); len(missing) > 0 {
		return cli.Exit("missing external tools: "+strings.Join(missing, ", "), 1)
	}

	updates, unsubscribe := a.Manager.Subscribe()
	defer unsubscribe()

	a.Manager.Start(c.Context)
	handle, err := a.Manager.Submit(c.Context, items)
	if err != nil {
		return err
	}

	r := newRenderer(os.Stderr, len(items))
	var last progress.Snapshot
	for !last.Finished() {
		select {
		case <-c.Context.Done():
			return c.Context.Err()
		case snap, ok := <-updates:
			if !ok {
				return domain.ErrManagerStopped
			}
			if snap.BatchID != handle.BatchID {
				continue
			}
			last = snap
			r.update(snap)
		}
	}
	r.finish()
	fmt.Fprintln(os.Stderr)

	printSummary(os.Stdout, last)
	if n := failedCount(last); n > 0 {
		return cli.Exit(fmt.Sprintf("%d of %d downloads failed, see \"musicdl logs\"", n, last.Total), 1)
	}
	return nil
}

func runSearch(c *cli.Context) error {
	query := strings.Join(c.Args().Slice(), " ")
	if query == "" {
		return cli.Exit("expected a QUERY", 2)
	}
	return withApp(c, func(a *app.App) error {
		switch catalog.ParseSearchType(c.String("type")) {
		case catalog.SearchAlbums:
			albums, err := a.Provider.SearchAlbums(c.Context, query)
			if err != nil {
				return err
			}
			printAlbums(os.Stdout, albums)
		case catalog.SearchArtists:
			artists, err := a.Provider.SearchArtists(c.Context, query)
			if err != nil {
				return err
			}
			printArtists(os.Stdout, artists)
		default:
			items, err := a.Provider.SearchTracks(c.Context, query)
			if err != nil {
				return err
			}
			printItems(os.Stdout, items)
		}
		return nil
	})
}

func runLogs(c *cli.Context) error {
	return withApp(c, func(a *app.App) error {
		if c.Bool("clear") {
			if err := a.DB.ClearLogs(); err != nil {
				return fmt.Errorf("clearing session log: %w", err)
			}
			fmt.Fprintln(os.Stdout, "session log cleared")
			return nil
		}

		var (
			entries []*domain.LogEntry
			err     error
		)
		if batchID := c.String("batch"); batchID != "" {
			entries, err = a.DB.ListLogsByBatch(batchID)
		} else {
			entries, err = a.DB.ListLogs(c.Int("limit"))
		}
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return errors.New("no downloads logged yet")
		}
		for _, entry := range entries {
			fmt.Fprintf(os.Stdout, "%s\n\n", entry.Text())
		}
		return nil
	})
}

func runHistory(c *cli.Context) error {
	return withApp(c, func(a *app.App) error {
		if c.Bool("clear") {
			if err := a.DB.ClearDownloads(); err != nil {
				return fmt.Errorf("clearing history: %w", err)
			}
			fmt.Fprintln(os.Stdout, "history cleared")
			return nil
		}

		var (
			downloads []*domain.Download
			err       error
		)
		if batchID := c.String("batch"); batchID != "" {
			downloads, err = a.DB.ListDownloadsByBatch(batchID)
		} else {
			downloads, err = a.DB.ListDownloads(c.Int("limit"))
		}
		if err != nil {
			return err
		}
		printDownloads(os.Stdout, downloads)
		return nil
	})
}

func runBatches(c *cli.Context) error {
	return withApp(c, func(a *app.App) error {
		batches, err := a.DB.ListBatches(constants.MaxHistoryItems)
		if err != nil {
			return err
		}
		printBatches(os.Stdout, batches)
		return nil
	})
}

func runCacheClear(c *cli.Context) error {
	return withApp(c, func(a *app.App) error {
		if err := a.DB.ClearCache(); err != nil {
			return fmt.Errorf("clearing cache: %w", err)
		}
		fmt.Fprintln(os.Stdout, "cache cleared")
		return nil
	})
}
