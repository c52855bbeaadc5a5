package downloader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cesargomez89/musicdl/internal/domain"
)

type fakeFetcher struct {
	// block makes Fetch wait for ctx when the query contains it.
	block   string
	err     error
	lines   []string
	delay   time.Duration
	panics  bool
	noFile  bool
	active  atomic.Int32
	maxSeen atomic.Int32
	calls   atomic.Int32
}

func (f *fakeFetcher) Fetch(ctx context.Context, req domain.FetchRequest, onLine func(domain.OutputStream, string)) error {
	f.calls.Add(1)
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	if f.panics {
		panic("fetcher exploded")
	}
	if f.block != "" && strings.Contains(req.Query, f.block) {
		<-ctx.Done()
		return ctx.Err()
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for _, line := range f.lines {
		onLine(domain.StreamStdout, line)
	}
	if f.err != nil {
		onLine(domain.StreamStderr, "ERROR: "+f.err.Error())
		return f.err
	}
	if f.noFile {
		return nil
	}

	path := filepath.Join(filepath.Dir(req.OutputTemplate), "raw "+req.Query+".mp3")
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		return err
	}
	onLine(domain.StreamStdout, path)
	return nil
}

type fakeCovers struct {
	err  error
	data []byte
}

func (c *fakeCovers) FetchCover(ctx context.Context, url string) ([]byte, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.data, nil
}

type fakeTranscoder struct {
	err  error
	mu   sync.Mutex
	reqs []domain.RemuxRequest
	// covers records whether the cover file existed during Remux.
	covers []bool
}

func (t *fakeTranscoder) Remux(ctx context.Context, req domain.RemuxRequest) error {
	t.mu.Lock()
	t.reqs = append(t.reqs, req)
	_, statErr := os.Stat(req.Cover)
	t.covers = append(t.covers, req.Cover != "" && statErr == nil)
	t.mu.Unlock()

	if t.err != nil {
		_ = os.WriteFile(req.Output, []byte("partial"), 0o644)
		return t.err
	}
	return os.WriteFile(req.Output, []byte("tagged "+req.Meta.Title), 0o644)
}

func (t *fakeTranscoder) requests() []domain.RemuxRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]domain.RemuxRequest(nil), t.reqs...)
}

type fakeJournal struct {
	mu        sync.Mutex
	batches   []*domain.Batch
	finished  map[string]int
	downloads []*domain.Download
	logs      []*domain.LogEntry
	fail      bool
}

func newFakeJournal() *fakeJournal {
	return &fakeJournal{finished: make(map[string]int)}
}

func (j *fakeJournal) CreateBatch(b *domain.Batch) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.fail {
		return errors.New("db down")
	}
	j.batches = append(j.batches, b)
	return nil
}

func (j *fakeJournal) FinishBatch(id string, completed int, at time.Time) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.fail {
		return errors.New("db down")
	}
	j.finished[id] = completed
	return nil
}

func (j *fakeJournal) SaveDownload(d *domain.Download) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.fail {
		return errors.New("db down")
	}
	j.downloads = append(j.downloads, d)
	return nil
}

func (j *fakeJournal) AppendLog(e *domain.LogEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.fail {
		return errors.New("db down")
	}
	j.logs = append(j.logs, e)
	return nil
}

func (j *fakeJournal) ClearLogs() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.fail {
		return errors.New("db down")
	}
	j.logs = nil
	return nil
}

type eventRecorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *eventRecorder) publish(ev domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *eventRecorder) percents() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]float64, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Percent)
	}
	return out
}

func progressLine(pct float64) string {
	return fmt.Sprintf("[download]  %.1f%% of 3.50MiB at 1.00MiB/s ETA 00:02", pct)
}
