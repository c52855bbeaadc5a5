package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"

	"github.com/cesargomez89/musicdl/internal/catalog"
	"github.com/cesargomez89/musicdl/internal/domain"
	"github.com/cesargomez89/musicdl/internal/progress"
)

type renderer struct {
	bar *progressbar.ProgressBar
}

// newRenderer draws one bar for the whole batch, 100 units per track.
func newRenderer(out io.Writer, total int) *renderer {
	return &renderer{
		bar: progressbar.NewOptions(
			total*100,
			progressbar.OptionSetWriter(out),
			progressbar.OptionSetDescription(fmt.Sprintf("dl %d tracks", total)),
			progressbar.OptionSetWidth(30),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "=",
				SaucerHead:    ">",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		),
	}
}

func (r *renderer) update(snap progress.Snapshot) {
	r.bar.Describe(describe(snap))
	_ = r.bar.Set(progressUnits(snap))
}

func (r *renderer) finish() {
	_ = r.bar.Finish()
}

func describe(snap progress.Snapshot) string {
	if snap.ETA == "" {
		return snap.Status
	}
	return snap.Status + " " + snap.ETA
}

func progressUnits(snap progress.Snapshot) int {
	var sum float64
	for _, rec := range snap.Records {
		sum += rec.Progress
	}
	return int(sum)
}

func failedCount(snap progress.Snapshot) int {
	n := 0
	for _, rec := range snap.Records {
		if rec.Status.State == domain.StateFailed {
			n++
		}
	}
	return n
}

func printSummary(out io.Writer, snap progress.Snapshot) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"#", "Track", "Status", "Path"})
	table.SetAutoWrapText(false)
	for i, rec := range snap.Records {
		path := rec.FilePath
		if rec.Warning != "" {
			path += " (" + rec.Warning + ")"
		}
		table.Append([]string{fmt.Sprint(i + 1), rec.Item.Label(), rec.Status.String(), path})
	}
	table.Render()
}

func printItems(out io.Writer, items []domain.Item) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"#", "Artist", "Title", "Album", "Length"})
	for i, item := range items {
		table.Append([]string{fmt.Sprint(i + 1), item.Artist, item.Title, item.Album, item.DurationString()})
	}
	table.Render()
}

func printAlbums(out io.Writer, albums []catalog.Album) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Album ID", "Artist", "Title", "Tracks"})
	for _, a := range albums {
		table.Append([]string{a.ID, a.Artist, a.Title, fmt.Sprint(a.TrackCount)})
	}
	table.Render()
}

func printArtists(out io.Writer, artists []catalog.Artist) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Artist ID", "Name", "Albums"})
	for _, a := range artists {
		table.Append([]string{a.ID, a.Name, fmt.Sprint(a.AlbumCount)})
	}
	table.Render()
}

func printDownloads(out io.Writer, downloads []*domain.Download) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"When", "Track", "State", "Path"})
	table.SetAutoWrapText(false)
	for _, d := range downloads {
		detail := d.FilePath
		if d.State == domain.StateFailed {
			detail, _, _ = strings.Cut(d.Error, "\n")
		}
		table.Append([]string{
			d.CompletedAt.Local().Format("2006-01-02 15:04"),
			d.Artist + " - " + d.Title,
			string(d.State),
			detail,
		})
	}
	table.Render()
}

func printBatches(out io.Writer, batches []*domain.Batch) {
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Batch ID", "Started", "Done", "Finished"})
	for _, b := range batches {
		finished := "-"
		if b.FinishedAt != nil {
			finished = b.FinishedAt.Local().Format("2006-01-02 15:04")
		}
		table.Append([]string{
			b.ID,
			b.StartedAt.Local().Format("2006-01-02 15:04"),
			fmt.Sprintf("%d/%d", b.Completed, b.Total),
			finished,
		})
	}
	table.Render()
}
