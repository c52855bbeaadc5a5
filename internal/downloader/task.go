package downloader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cesargomez89/musicdl/internal/constants"
	"github.com/cesargomez89/musicdl/internal/domain"
	"github.com/cesargomez89/musicdl/internal/storage"
)

// Fetcher finds and downloads audio for a query. onLine receives every
// output line as it is produced and may be called from several goroutines.
type Fetcher interface {
	Fetch(ctx context.Context, req domain.FetchRequest, onLine func(domain.OutputStream, string)) error
}

// CoverSource returns the raw bytes of a cover image.
type CoverSource interface {
	FetchCover(ctx context.Context, url string) ([]byte, error)
}

// Transcoder writes a tagged copy of a downloaded file.
type Transcoder interface {
	Remux(ctx context.Context, req domain.RemuxRequest) error
}

// Task runs the fetch, cover, tag and place steps for one item. A task is
// used once.
type Task struct {
	Fetcher    Fetcher
	Covers     CoverSource
	Transcoder Transcoder
	Publish    func(domain.Event)
	Logger     *slog.Logger
	Layout     storage.Layout
	Item       domain.Item
	BaseDir    string
	Ext        string
	ID         domain.ItemID
}

// Run executes the task and returns its result. It never panics.
func (t *Task) Run(ctx context.Context) (res domain.Result) {
	if t.Logger == nil {
		t.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	defer func() {
		if r := recover(); r != nil {
			t.Logger.Error("Panic in download task", "panic", r)
			res = domain.Result{Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	t.emit(domain.PhaseFetching, constants.ProgressStart)

	dir, err := t.Layout.TrackDir(t.BaseDir, t.Item)
	if err != nil {
		return domain.Result{Err: fmt.Errorf("%w: %v", domain.ErrPlacementFailed, err)}
	}
	if err := storage.EnsureDir(dir); err != nil {
		return domain.Result{Err: fmt.Errorf("%w: %v", domain.ErrPlacementFailed, err)}
	}

	out := newFetchOutput(t.Ext)
	source, err := t.fetch(ctx, dir, out)
	if err != nil {
		t.Logger.Warn("Fetch failed", "error", err)
		return domain.Result{Err: err, Log: out.String()}
	}
	t.Logger.Debug("Fetched", "path", source)

	t.emit(domain.PhaseCoverFetch, constants.PostProcessCheckpoint)
	var warnings []string
	cover, err := t.fetchCover(ctx)
	if err != nil {
		t.Logger.Warn("Cover unavailable", "error", err)
		warnings = append(warnings, err.Error())
	}
	defer func() {
		if err := storage.RemoveFile(cover); err != nil {
			t.Logger.Warn("Failed to remove temp cover", "path", cover, "error", err)
		}
	}()

	t.emit(domain.PhaseTagging, constants.PostProcessCheckpoint)
	tagged, err := t.tag(ctx, source, cover)
	if err != nil {
		t.Logger.Warn("Tagging failed", "error", err)
		return domain.Result{Err: err, Log: out.String()}
	}

	t.emit(domain.PhasePlacing, constants.PostProcessCheckpoint)
	path, err := t.place(source, tagged)
	if err != nil {
		t.Logger.Warn("Placement failed, keeping untagged file", "error", err)
		warnings = append(warnings, err.Error())
	}

	res = domain.Result{
		Path:    path,
		Log:     out.String(),
		Warning: strings.Join(warnings, "; "),
	}
	if hash, err := storage.HashFile(path); err == nil {
		res.FileHash = hash
	} else {
		t.Logger.Warn("Failed to hash file", "path", path, "error", err)
	}
	return res
}

func (t *Task) emit(phase domain.Phase, pct float64) {
	if t.Publish != nil {
		t.Publish(domain.ProgressEvent(t.ID, phase, pct))
	}
}

func (t *Task) fetch(ctx context.Context, dir string, out *fetchOutput) (string, error) {
	req := domain.FetchRequest{
		Query:          t.Item.Query(),
		OutputTemplate: filepath.Join(dir, constants.YTDLPOutputTemplate),
	}

	var last float64
	onLine := func(stream domain.OutputStream, line string) {
		out.add(stream, line)
		if stream != domain.StreamStdout {
			return
		}
		pct, ok := ParseFetchPercent(line)
		if !ok {
			return
		}
		// 100 is reserved for the finished file.
		if pct > constants.PostProcessCheckpoint {
			pct = constants.PostProcessCheckpoint
		}
		if pct > last {
			last = pct
			t.emit(domain.PhaseFetching, pct)
		}
	}

	if err := t.Fetcher.Fetch(ctx, req, onLine); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %v", domain.ErrCancelled, ctx.Err())
		}
		return "", fmt.Errorf("%w: %v\n%s", domain.ErrFetchFailed, err, out.String())
	}

	source := out.candidate()
	if source == "" {
		return "", fmt.Errorf("%w: no %s file reported\n%s", domain.ErrFetchFailed, t.Ext, out.String())
	}
	return source, nil
}

// fetchCover downloads the cover to a temp file and returns its path. An
// empty path means no cover.
func (t *Task) fetchCover(ctx context.Context) (string, error) {
	if t.Item.CoverURL == "" || t.Covers == nil {
		return "", nil
	}

	data, err := t.Covers.FetchCover(ctx, t.Item.CoverURL)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrCoverFailed, err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty image", domain.ErrCoverFailed)
	}

	path := storage.TempCoverPath()
	if err := storage.WriteFile(path, data); err != nil {
		_ = storage.RemoveFile(path)
		return "", fmt.Errorf("%w: %v", domain.ErrCoverFailed, err)
	}
	return path, nil
}

func (t *Task) tag(ctx context.Context, source, cover string) (string, error) {
	tmp := storage.TaggedTempPath(source)
	req := domain.RemuxRequest{
		Source: source,
		Cover:  cover,
		Output: tmp,
		Meta:   t.Item.Meta(),
	}
	if err := t.Transcoder.Remux(ctx, req); err != nil {
		if rmErr := storage.RemoveFile(tmp); rmErr != nil {
			t.Logger.Warn("Failed to remove temp file", "path", tmp, "error", rmErr)
		}
		return "", fmt.Errorf("%w: %v", domain.ErrTagFailed, err)
	}
	return tmp, nil
}

// place moves the tagged file to its final name and removes the source. If
// that move fails the tagged file replaces the source instead, and the
// source path is returned along with the error. The untagged source is kept
// only when both moves fail.
func (t *Task) place(source, tagged string) (string, error) {
	final, err := t.Layout.TrackPath(t.BaseDir, t.Item, t.Ext)
	if err == nil {
		err = storage.MoveFile(tagged, final)
	}
	if err != nil {
		if keepErr := storage.MoveFile(tagged, source); keepErr != nil {
			t.Logger.Warn("Failed to keep tagged file, keeping untagged source", "path", source, "error", keepErr)
			_ = storage.RemoveFile(tagged)
		}
		return source, fmt.Errorf("%w: %v", domain.ErrPlacementFailed, err)
	}

	if final != source {
		if err := storage.RemoveFile(source); err != nil {
			t.Logger.Warn("Failed to remove source file", "path", source, "error", err)
		}
	}
	return final, nil
}

// fetchOutput collects fetcher output and remembers the last line naming an
// existing file with the expected extension.
type fetchOutput struct {
	ext  string
	last string
	buf  strings.Builder
	mu   sync.Mutex
}

func newFetchOutput(ext string) *fetchOutput {
	return &fetchOutput{ext: storage.ParseExtension(ext)}
}

func (o *fetchOutput) add(stream domain.OutputStream, line string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.buf.Len() < constants.MaxFetchLogBytes {
		if stream == domain.StreamStderr {
			o.buf.WriteString("[stderr] ")
		}
		o.buf.WriteString(line)
		o.buf.WriteByte('\n')
	}

	if stream != domain.StreamStdout {
		return
	}
	trimmed := strings.TrimSpace(line)
	if strings.HasSuffix(strings.ToLower(trimmed), o.ext) && storage.Exists(trimmed) {
		o.last = trimmed
	}
}

func (o *fetchOutput) candidate() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}

func (o *fetchOutput) String() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.buf.String()
}
