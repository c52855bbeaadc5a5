package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/cesargomez89/musicdl/internal/constants"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

// globalFlags override the environment configuration. --log-level also reads
// LOG_LEVEL and defaults to warn to keep the progress bar readable.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "dir",
			Aliases: []string{"d"},
			Usage:   "base directory for downloaded files",
		},
		&cli.IntFlag{
			Name:    "concurrency",
			Aliases: []string{"c"},
			Usage:   "number of tracks downloaded at once",
			Value:   constants.DefaultConcurrency,
		},
		&cli.StringFlag{
			Name:  "tagger",
			Usage: "how files are tagged: ffmpeg or native",
		},
		&cli.StringFlag{
			Name:  "format",
			Usage: "audio format: mp3 or flac",
		},
		&cli.StringFlag{
			Name:  "db",
			Usage: "path to the sqlite database",
		},
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "debug, info, warn or error",
			EnvVars: []string{"LOG_LEVEL"},
			Value:   "warn",
		},
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "musicdl",
		Usage: "search a music catalog and download tracks as tagged audio files",
		Flags: globalFlags(),
		Commands: []*cli.Command{{
			Name:      "get",
			Usage:     "download every track listed in a batch file",
			ArgsUsage: " ",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "file",
					Aliases:  []string{"f"},
					Usage:    "YAML batch file",
					Required: true,
				},
			},
			Action: runGet,
		}, {
			Name:      "album",
			Usage:     "download every track of a catalog album",
			ArgsUsage: "ALBUM_ID",
			Action:    runAlbum,
		}, {
			Name:      "search",
			Usage:     "search the catalog",
			ArgsUsage: "QUERY",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "type",
					Aliases: []string{"t"},
					Usage:   "track, album or artist",
					Value:   "track",
				},
			},
			Action: runSearch,
		}, {
			Name:  "logs",
			Usage: "print the session log of recent downloads",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "limit",
					Usage: "number of log blocks",
					Value: constants.MaxHistoryItems,
				},
				&cli.StringFlag{
					Name:  "batch",
					Usage: "only print the log of this batch id",
				},
				&cli.BoolFlag{
					Name:  "clear",
					Usage: "delete the session log instead of printing it",
				},
			},
			Action: runLogs,
		}, {
			Name:  "history",
			Usage: "list recent download outcomes",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "limit",
					Usage: "number of downloads",
					Value: constants.MaxHistoryItems,
				},
				&cli.StringFlag{
					Name:  "batch",
					Usage: "only list the downloads of this batch id",
				},
				&cli.BoolFlag{
					Name:  "clear",
					Usage: "delete the download history instead of listing it",
				},
			},
			Action: runHistory,
		}, {
			Name:   "batches",
			Usage:  "list recent batches",
			Action: runBatches,
		}, {
			Name:  "cache",
			Usage: "manage cached catalog responses and covers",
			Subcommands: []*cli.Command{{
				Name:   "clear",
				Usage:  "delete every cached entry",
				Action: runCacheClear,
			}},
		}},
	}
}
