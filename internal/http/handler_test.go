package httpapp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cesargomez89/musicdl/internal/catalog"
	"github.com/cesargomez89/musicdl/internal/domain"
	"github.com/cesargomez89/musicdl/internal/http/dto"
	"github.com/cesargomez89/musicdl/internal/logger"
	"github.com/cesargomez89/musicdl/internal/progress"
	"github.com/cesargomez89/musicdl/internal/store"
)

type fakeDownloads struct {
	mu        sync.Mutex
	submitted [][]domain.Item
	snap      progress.Snapshot
	logs      []domain.LogEntry
	cleared   int
	updates   chan progress.Snapshot
	baseDir   string
	err       error
}

func newFakeDownloads() *fakeDownloads {
	return &fakeDownloads{
		snap:    progress.Snapshot{Status: "dl 1 tracks", Total: 1, Active: true},
		updates: make(chan progress.Snapshot, 1),
		baseDir: "/music",
	}
}

func (f *fakeDownloads) Submit(ctx context.Context, items []domain.Item) (domain.BatchHandle, error) {
	if f.err != nil {
		return domain.BatchHandle{}, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, items)
	ids := make([]domain.ItemID, len(items))
	for i := range ids {
		ids[i] = domain.ItemID(i + 1)
	}
	return domain.BatchHandle{BatchID: "batch-1", ItemIDs: ids}, nil
}

func (f *fakeDownloads) Snapshot(ctx context.Context) (progress.Snapshot, error) {
	return f.snap, f.err
}

func (f *fakeDownloads) Logs(ctx context.Context) ([]domain.LogEntry, error) {
	return f.logs, f.err
}

func (f *fakeDownloads) ClearLogs(ctx context.Context) error {
	if f.err != nil {
		return f.err
	}
	f.logs = nil
	f.cleared++
	return nil
}

func (f *fakeDownloads) Subscribe() (<-chan progress.Snapshot, func()) {
	return f.updates, func() {}
}

func (f *fakeDownloads) BaseDir() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.baseDir
}

func (f *fakeDownloads) SetBaseDir(dir string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.baseDir = dir
}

func (f *fakeDownloads) submissions() [][]domain.Item {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitted
}

type fakeSettings struct {
	values map[string]string
}

func (f *fakeSettings) Set(key, value string) error {
	f.values[key] = value
	return nil
}

func (f *fakeSettings) Delete(key string) error {
	delete(f.values, key)
	return nil
}

type testEnv struct {
	downloads *fakeDownloads
	history   *store.DB
	settings  *fakeSettings
	router    chi.Router
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := store.NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	env := &testEnv{
		downloads: newFakeDownloads(),
		history:   db,
		settings:  &fakeSettings{values: map[string]string{}},
	}
	h := NewHandler(env.downloads, catalog.NewMockProvider(), env.history, env.settings)
	h.Logger = logger.Discard()
	env.router = chi.NewRouter()
	h.RegisterRoutes(env.router)
	return env
}

func (env *testEnv) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestSubmitDownloads(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantField  string
	}{
		{
			name:       "valid",
			body:       `{"items":[{"title":"Song","artist":"Artist","album":"Album","duration":200}]}`,
			wantStatus: http.StatusAccepted,
		},
		{
			name:       "empty batch",
			body:       `{"items":[]}`,
			wantStatus: http.StatusBadRequest,
			wantField:  "items",
		},
		{
			name:       "missing title",
			body:       `{"items":[{"artist":"Artist"}]}`,
			wantStatus: http.StatusBadRequest,
			wantField:  "items[0].title",
		},
		{
			name:       "malformed json",
			body:       `{"items":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown field",
			body:       `{"tracks":[]}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			rec := env.do(http.MethodPost, "/api/downloads", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantStatus == http.StatusAccepted {
				var resp dto.SubmitResponse
				if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if resp.BatchID != "batch-1" || len(resp.ItemIDs) != 1 {
					t.Errorf("response = %+v", resp)
				}
				subs := env.downloads.submissions()
				if len(subs) != 1 || subs[0][0].Album != "Album" || subs[0][0].Duration != 200 {
					t.Errorf("submitted = %+v", subs)
				}
				return
			}
			if len(env.downloads.submissions()) != 0 {
				t.Error("invalid request reached the manager")
			}
			if tt.wantField != "" {
				var resp dto.ErrorResponse
				if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if _, ok := resp.Fields[tt.wantField]; !ok {
					t.Errorf("fields = %v, want %s", resp.Fields, tt.wantField)
				}
			}
		})
	}
}

func TestSubmitManagerStopped(t *testing.T) {
	env := newTestEnv(t)
	env.downloads.err = domain.ErrManagerStopped
	rec := env.do(http.MethodPost, "/api/downloads", `{"items":[{"title":"a","artist":"b"}]}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestGetSnapshot(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/api/downloads", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var snap progress.Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Status != "dl 1 tracks" || snap.Total != 1 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestStreamSnapshots(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/downloads/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	next := func() progress.Snapshot {
		t.Helper()
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if data, ok := strings.CutPrefix(strings.TrimSpace(line), "data: "); ok {
				var snap progress.Snapshot
				if err := json.Unmarshal([]byte(data), &snap); err != nil {
					t.Fatalf("decode: %v", err)
				}
				return snap
			}
		}
	}

	if snap := next(); snap.Status != "dl 1 tracks" {
		t.Errorf("first snapshot status = %q", snap.Status)
	}

	env.downloads.updates <- progress.Snapshot{Status: "done (1 tracks)", Completed: 1, Total: 1}
	if snap := next(); snap.Status != "done (1 tracks)" || !snap.Finished() {
		t.Errorf("second snapshot = %+v", snap)
	}
}

func TestGetLogs(t *testing.T) {
	env := newTestEnv(t)
	env.downloads.logs = []domain.LogEntry{
		{Label: "A - B", Body: "ok"},
		{Label: "C - D", Body: "boom", Failed: true},
	}

	rec := env.do(http.MethodGet, "/api/logs", "")
	var logs []domain.LogEntry
	if err := json.NewDecoder(rec.Body).Decode(&logs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(logs) != 2 || !logs[1].Failed {
		t.Errorf("logs = %+v", logs)
	}

	rec = env.do(http.MethodGet, "/api/logs?format=text", "")
	body := rec.Body.String()
	if !strings.Contains(body, "=== A - B ===\nok") || !strings.Contains(body, "=== fail: C - D ===\nboom") {
		t.Errorf("text logs = %q", body)
	}
}

func TestGetLogsEmpty(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/api/logs", "")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("body = %q, want []", rec.Body.String())
	}
}

func TestClearLogs(t *testing.T) {
	env := newTestEnv(t)
	env.downloads.logs = []domain.LogEntry{{Label: "A - B", Body: "ok"}}

	rec := env.do(http.MethodDelete, "/api/logs", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if env.downloads.cleared != 1 {
		t.Errorf("cleared = %d, want 1", env.downloads.cleared)
	}
	rec = env.do(http.MethodGet, "/api/logs", "")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("logs after clear = %q", rec.Body.String())
	}

	env.downloads.err = errors.New("db down")
	if rec := env.do(http.MethodDelete, "/api/logs", ""); rec.Code != http.StatusInternalServerError {
		t.Errorf("error status = %d, want 500", rec.Code)
	}
}

func seedHistory(t *testing.T, db *store.DB) string {
	t.Helper()
	now := time.Now()
	batch := &domain.Batch{ID: "batch-1", Total: 2, StartedAt: now}
	if err := db.CreateBatch(batch); err != nil {
		t.Fatal(err)
	}
	for i, state := range []domain.State{domain.StateDone, domain.StateFailed} {
		d := &domain.Download{
			ItemID:      domain.ItemID(i + 1),
			BatchID:     batch.ID,
			Title:       fmt.Sprintf("Song %d", i),
			Artist:      "Artist",
			State:       state,
			CompletedAt: now.Add(time.Duration(i) * time.Second),
		}
		if err := db.SaveDownload(d); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.AppendLog(&domain.LogEntry{BatchID: batch.ID, Label: "Artist - Song 0", Body: "ok", CreatedAt: now}); err != nil {
		t.Fatal(err)
	}
	if err := db.FinishBatch(batch.ID, 2, now.Add(2*time.Second)); err != nil {
		t.Fatal(err)
	}
	return batch.ID
}

func TestGetHistory(t *testing.T) {
	env := newTestEnv(t)
	batchID := seedHistory(t, env.history)

	rec := env.do(http.MethodGet, "/api/history?limit=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var downloads []*domain.Download
	if err := json.NewDecoder(rec.Body).Decode(&downloads); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(downloads) != 1 || downloads[0].Title != "Song 1" {
		t.Errorf("limited history = %+v", downloads)
	}

	rec = env.do(http.MethodGet, "/api/history?batch="+batchID, "")
	downloads = nil
	if err := json.NewDecoder(rec.Body).Decode(&downloads); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(downloads) != 2 {
		t.Errorf("batch history = %d entries, want 2", len(downloads))
	}

	rec = env.do(http.MethodGet, "/api/history?limit=zero", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad limit status = %d", rec.Code)
	}
}

func TestClearHistory(t *testing.T) {
	env := newTestEnv(t)
	seedHistory(t, env.history)

	rec := env.do(http.MethodDelete, "/api/history", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	rec = env.do(http.MethodGet, "/api/history", "")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("history after clear = %q", rec.Body.String())
	}
}

func TestBatches(t *testing.T) {
	env := newTestEnv(t)
	batchID := seedHistory(t, env.history)

	rec := env.do(http.MethodGet, "/api/batches", "")
	var batches []*domain.Batch
	if err := json.NewDecoder(rec.Body).Decode(&batches); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(batches) != 1 || batches[0].Completed != 2 || batches[0].FinishedAt == nil {
		t.Errorf("batches = %+v", batches)
	}

	rec = env.do(http.MethodGet, "/api/batches/"+batchID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp dto.BatchResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Batch.ID != batchID || len(resp.Downloads) != 2 || len(resp.Logs) != 1 {
		t.Errorf("batch = %+v", resp)
	}

	rec = env.do(http.MethodGet, "/api/batches/unknown", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown batch status = %d, want 404", rec.Code)
	}
}

func TestSearch(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/search?q=mock", "")
	var items []domain.Item
	if err := json.NewDecoder(rec.Body).Decode(&items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(items) != 1 || items[0].Title != "Mock Track" {
		t.Errorf("tracks = %+v", items)
	}

	rec = env.do(http.MethodGet, "/api/search?q=mock&type=album", "")
	var albums []catalog.Album
	if err := json.NewDecoder(rec.Body).Decode(&albums); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(albums) != 1 || albums[0].ID != "1" {
		t.Errorf("albums = %+v", albums)
	}

	rec = env.do(http.MethodGet, "/api/search", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing query status = %d", rec.Code)
	}
}

func TestGetAlbum(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/api/albums/1", "")
	var resp dto.AlbumResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Album.Title != "Mock Album" || len(resp.Tracks) != 2 {
		t.Errorf("album = %+v", resp)
	}

	rec = env.do(http.MethodGet, "/api/albums/404", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown album status = %d", rec.Code)
	}
}

func TestDownloadAlbum(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodPost, "/api/albums/1/download", "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	subs := env.downloads.submissions()
	if len(subs) != 1 || len(subs[0]) != 2 {
		t.Fatalf("submitted = %+v", subs)
	}
	for _, item := range subs[0] {
		if !item.AlbumMember || item.Album != "Mock Album" {
			t.Errorf("item = %+v", item)
		}
	}

	rec = env.do(http.MethodPost, "/api/albums/missing/download", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing album status = %d", rec.Code)
	}
}

func TestArtistAlbums(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(http.MethodGet, "/api/artists/1/albums", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestDownloadDir(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/settings/download-dir", "")
	var resp dto.DownloadDirResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Path != "/music" {
		t.Errorf("path = %q, want /music", resp.Path)
	}

	dir := filepath.Join(t.TempDir(), "library")
	body, _ := json.Marshal(dto.DownloadDirRequest{Path: dir})
	rec = env.do(http.MethodPut, "/api/settings/download-dir", string(body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	if env.downloads.BaseDir() != dir {
		t.Errorf("base dir = %q, want %q", env.downloads.BaseDir(), dir)
	}
	if env.settings.values[store.SettingDownloadDir] != dir {
		t.Errorf("setting = %q, want %q", env.settings.values[store.SettingDownloadDir], dir)
	}

	rec = env.do(http.MethodPut, "/api/settings/download-dir", `{"path":""}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty path status = %d", rec.Code)
	}
}

func TestResetDownloadDir(t *testing.T) {
	env := newTestEnv(t)
	dir := filepath.Join(t.TempDir(), "library")
	body, _ := json.Marshal(dto.DownloadDirRequest{Path: dir})
	if rec := env.do(http.MethodPut, "/api/settings/download-dir", string(body)); rec.Code != http.StatusOK {
		t.Fatalf("put status = %d", rec.Code)
	}

	rec := env.do(http.MethodDelete, "/api/settings/download-dir", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rec.Code, rec.Body.String())
	}
	var resp dto.DownloadDirResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Path != "/music" || env.downloads.BaseDir() != "/music" {
		t.Errorf("path = %q, base dir = %q, want /music", resp.Path, env.downloads.BaseDir())
	}
	if _, ok := env.settings.values[store.SettingDownloadDir]; ok {
		t.Error("saved download dir not deleted")
	}
}

func TestSnapshotError(t *testing.T) {
	env := newTestEnv(t)
	env.downloads.err = errors.New("stopped")
	rec := env.do(http.MethodGet, "/api/downloads", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d", rec.Code)
	}
}
