package store

import (
	"slices"

	"github.com/cesargomez89/musicdl/internal/domain"
)

func (db *DB) AppendLog(entry *domain.LogEntry) error {
	res, err := db.NamedExec(`
		INSERT INTO session_log (item_id, batch_id, label, failed, body, created_at)
		VALUES (:item_id, :batch_id, :label, :failed, :body, :created_at)
	`, entry)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	entry.ID = id
	return nil
}

// ListLogs returns up to limit blocks, oldest first.
func (db *DB) ListLogs(limit int) ([]*domain.LogEntry, error) {
	var entries []*domain.LogEntry
	err := db.Select(&entries, "SELECT id, item_id, batch_id, label, failed, body, created_at FROM session_log ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	slices.Reverse(entries)
	return entries, nil
}

func (db *DB) ListLogsByBatch(batchID string) ([]*domain.LogEntry, error) {
	var entries []*domain.LogEntry
	err := db.Select(&entries, "SELECT id, item_id, batch_id, label, failed, body, created_at FROM session_log WHERE batch_id = ? ORDER BY id", batchID)
	return entries, err
}

func (db *DB) ClearLogs() error {
	_, err := db.Exec("DELETE FROM session_log")
	return err
}
