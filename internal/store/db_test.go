package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/cesargomez89/musicdl/internal/domain"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewSQLiteDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to open db: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("db.Close error: %v", err)
		}
	})
	return db
}

func TestDB_Batches(t *testing.T) {
	db := setupTestDB(t)

	started := time.Now().Truncate(time.Second)
	batch := &domain.Batch{ID: "b1", Total: 3, StartedAt: started}
	if err := db.CreateBatch(batch); err != nil {
		t.Fatalf("CreateBatch failed: %v", err)
	}

	fetched, err := db.GetBatch("b1")
	if err != nil {
		t.Fatalf("GetBatch failed: %v", err)
	}
	if fetched.Total != 3 || fetched.Completed != 0 || fetched.FinishedAt != nil {
		t.Errorf("batch = %+v", fetched)
	}
	if !fetched.StartedAt.Equal(started) {
		t.Errorf("started_at = %v, want %v", fetched.StartedAt, started)
	}

	if err := db.FinishBatch("b1", 3, started.Add(time.Minute)); err != nil {
		t.Fatalf("FinishBatch failed: %v", err)
	}
	fetched, _ = db.GetBatch("b1")
	if fetched.Completed != 3 || fetched.FinishedAt == nil {
		t.Errorf("batch after finish = %+v", fetched)
	}

	if err := db.FinishBatch("missing", 1, time.Now()); !errors.Is(err, ErrNotFound) {
		t.Errorf("FinishBatch(missing) = %v, want ErrNotFound", err)
	}
	if _, err := db.GetBatch("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetBatch(missing) = %v, want ErrNotFound", err)
	}

	if err := db.CreateBatch(&domain.Batch{ID: "b2", Total: 1, StartedAt: started.Add(time.Hour)}); err != nil {
		t.Fatal(err)
	}
	batches, err := db.ListBatches(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(batches) != 2 || batches[0].ID != "b2" {
		t.Errorf("ListBatches = %+v", batches)
	}
}

func TestDB_Downloads(t *testing.T) {
	db := setupTestDB(t)
	if err := db.CreateBatch(&domain.Batch{ID: "b1", Total: 2, StartedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}

	now := time.Now()
	ok := &domain.Download{
		ItemID: 7, BatchID: "b1", Title: "Song", Artist: "Artist", Album: "Album",
		State: domain.StateDone, FilePath: "/music/Artist - Song.mp3", FileHash: "abc",
		CompletedAt: now,
	}
	if err := db.SaveDownload(ok); err != nil {
		t.Fatalf("SaveDownload failed: %v", err)
	}
	if ok.ID == 0 {
		t.Error("ID not set")
	}

	failed := &domain.Download{
		ItemID: 8, BatchID: "b1", Title: "Other", Artist: "Artist",
		State: domain.StateFailed, Error: "fetch failed", CompletedAt: now.Add(time.Second),
	}
	if err := db.SaveDownload(failed); err != nil {
		t.Fatal(err)
	}

	recent, err := db.ListDownloads(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 || recent[0].ItemID != 8 || recent[0].State != domain.StateFailed {
		t.Errorf("ListDownloads = %+v", recent)
	}

	byBatch, err := db.ListDownloadsByBatch("b1")
	if err != nil {
		t.Fatal(err)
	}
	if len(byBatch) != 2 || byBatch[0].FilePath != "/music/Artist - Song.mp3" {
		t.Errorf("ListDownloadsByBatch = %+v", byBatch)
	}

	if err := db.ClearDownloads(); err != nil {
		t.Fatal(err)
	}
	recent, _ = db.ListDownloads(10)
	if len(recent) != 0 {
		t.Errorf("downloads after clear = %d", len(recent))
	}
}

func TestDB_SessionLog(t *testing.T) {
	db := setupTestDB(t)

	for i, label := range []string{"A - One", "A - Two", "A - Three"} {
		entry := &domain.LogEntry{
			ItemID:    domain.ItemID(i + 1),
			BatchID:   "b1",
			Label:     label,
			Failed:    i == 1,
			Body:      "body",
			CreatedAt: time.Now(),
		}
		if err := db.AppendLog(entry); err != nil {
			t.Fatalf("AppendLog failed: %v", err)
		}
	}

	logs, err := db.ListLogs(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 2 || logs[0].Label != "A - Two" || logs[1].Label != "A - Three" {
		t.Errorf("ListLogs = %+v", logs)
	}
	if !logs[0].Failed || logs[1].Failed {
		t.Errorf("failed flags = %v %v", logs[0].Failed, logs[1].Failed)
	}

	byBatch, err := db.ListLogsByBatch("b1")
	if err != nil {
		t.Fatal(err)
	}
	if len(byBatch) != 3 || byBatch[0].ItemID != 1 {
		t.Errorf("ListLogsByBatch = %+v", byBatch)
	}

	if err := db.ClearLogs(); err != nil {
		t.Fatal(err)
	}
	logs, _ = db.ListLogs(10)
	if len(logs) != 0 {
		t.Errorf("logs after clear = %d", len(logs))
	}
}

func TestDB_Cache(t *testing.T) {
	db := setupTestDB(t)

	data, err := db.GetCache("missing")
	if err != nil || data != nil {
		t.Errorf("GetCache(missing) = %v, %v", data, err)
	}

	if err := db.SetCache("k", []byte("v1"), time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := db.SetCache("k", []byte("v2"), time.Hour); err != nil {
		t.Fatal(err)
	}
	data, err = db.GetCache("k")
	if err != nil || string(data) != "v2" {
		t.Errorf("GetCache = %q, %v", data, err)
	}

	if err := db.SetCache("expired", []byte("x"), time.Nanosecond); err != nil {
		t.Fatal(err)
	}
	time.Sleep(2 * time.Millisecond)
	data, err = db.GetCache("expired")
	if err != nil || data != nil {
		t.Errorf("expired entry returned %q, %v", data, err)
	}

	if err := db.ClearCache(); err != nil {
		t.Fatal(err)
	}
	if data, _ := db.GetCache("k"); data != nil {
		t.Error("cache not cleared")
	}
}

func TestSettingsRepo(t *testing.T) {
	repo := NewSettingsRepo(setupTestDB(t))

	value, err := repo.Get(SettingDownloadDir)
	if err != nil || value != "" {
		t.Errorf("Get unset = %q, %v", value, err)
	}

	if err := repo.Set(SettingDownloadDir, "/music"); err != nil {
		t.Fatal(err)
	}
	if err := repo.Set(SettingDownloadDir, "/srv/music"); err != nil {
		t.Fatal(err)
	}
	value, _ = repo.Get(SettingDownloadDir)
	if value != "/srv/music" {
		t.Errorf("Get = %q", value)
	}

	if err := repo.Delete(SettingDownloadDir); err != nil {
		t.Fatal(err)
	}
	value, _ = repo.Get(SettingDownloadDir)
	if value != "" {
		t.Errorf("Get after delete = %q", value)
	}
}
