// Package app wires configuration, persistence, the catalog and the download
// manager into one value shared by the server and the CLI.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cesargomez89/musicdl/internal/catalog"
	"github.com/cesargomez89/musicdl/internal/config"
	"github.com/cesargomez89/musicdl/internal/constants"
	"github.com/cesargomez89/musicdl/internal/coverart"
	"github.com/cesargomez89/musicdl/internal/downloader"
	"github.com/cesargomez89/musicdl/internal/ffmpeg"
	"github.com/cesargomez89/musicdl/internal/httpclient"
	"github.com/cesargomez89/musicdl/internal/logger"
	"github.com/cesargomez89/musicdl/internal/storage"
	"github.com/cesargomez89/musicdl/internal/store"
	"github.com/cesargomez89/musicdl/internal/tagging"
	"github.com/cesargomez89/musicdl/internal/ytdlp"
)

type versioner interface {
	Version(ctx context.Context) (string, error)
}

type App struct {
	DB       *store.DB
	Settings *store.SettingsRepo
	Provider catalog.Provider
	Manager  *downloader.Manager
	Logger   *logger.Logger

	tools map[string]versioner
}

// New opens the database and builds every component. The persisted download
// directory setting takes precedence over cfg.DownloadsDir.
func New(cfg *config.Config, log *logger.Logger) (*App, error) {
	db, err := store.NewSQLiteDB(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	settings := store.NewSettingsRepo(db)
	baseDir := cfg.DownloadsDir
	if saved, err := settings.Get(store.SettingDownloadDir); err != nil {
		log.Warn("Failed to read download dir setting", "error", err)
	} else if saved != "" {
		baseDir = saved
	}

	apiClient := httpclient.NewClient(&http.Client{Timeout: constants.DefaultHTTPTimeout}, constants.CatalogMinInterval)
	imageClient := httpclient.NewClient(&http.Client{Timeout: constants.ImageHTTPTimeout}, 0)

	apiClient.SetRetryBase(constants.CatalogRetryBase)

	var provider catalog.Provider
	if cfg.CatalogURL == constants.MockCatalog {
		log.Info("Using offline mock catalog")
		provider = catalog.NewMockProvider()
	} else {
		provider = catalog.NewCachedProvider(
			catalog.NewDeezerProvider(cfg.CatalogURL, apiClient),
			db,
			constants.DefaultCacheTTL,
		)
	}
	covers := coverart.NewCachedSource(coverart.NewClient(imageClient), db, constants.DefaultCacheTTL)

	fetcher := ytdlp.NewClient(cfg.YTDLPBin, cfg.AudioFormat)
	tools := map[string]versioner{"yt-dlp": fetcher}

	var transcoder downloader.Transcoder
	switch cfg.Tagger {
	case constants.TaggerNative:
		transcoder = tagging.NewTagger()
	default:
		remuxer := ffmpeg.NewRemuxer(cfg.FFmpegBin)
		tools["ffmpeg"] = remuxer
		transcoder = remuxer
	}

	manager := downloader.NewManager(downloader.Options{
		Fetcher:     fetcher,
		Covers:      covers,
		Transcoder:  transcoder,
		Journal:     db,
		Logger:      log,
		Layout:      storage.DefaultLayout,
		BaseDir:     baseDir,
		Ext:         cfg.AudioExt(),
		Concurrency: cfg.Concurrency,
	})

	return &App{
		DB:       db,
		Settings: settings,
		Provider: provider,
		Manager:  manager,
		Logger:   log,
		tools:    tools,
	}, nil
}

// CheckDependencies runs each external tool's version command and returns the
// names of the tools that are missing or broken.
func (a *App) CheckDependencies(ctx context.Context) []string {
	var missing []string
	for name, tool := range a.tools {
		version, err := tool.Version(ctx)
		if err != nil {
			a.Logger.Warn("External tool unavailable", "tool", name, "error", err)
			missing = append(missing, name)
			continue
		}
		a.Logger.Info("External tool found", "tool", name, "version", version)
	}
	return missing
}

// Close stops the manager and closes the database.
func (a *App) Close() error {
	a.Manager.Stop()
	return a.DB.Close()
}
