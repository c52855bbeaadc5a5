package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/cesargomez89/musicdl/internal/domain"
)

var ErrNotFound = errors.New("record not found")

func (db *DB) CreateBatch(batch *domain.Batch) error {
	_, err := db.NamedExec(`
		INSERT INTO batches (id, total, completed, started_at, finished_at)
		VALUES (:id, :total, :completed, :started_at, :finished_at)
	`, batch)
	return err
}

func (db *DB) FinishBatch(id string, completed int, at time.Time) error {
	res, err := db.Exec("UPDATE batches SET completed = ?, finished_at = ? WHERE id = ?", completed, at, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (db *DB) GetBatch(id string) (*domain.Batch, error) {
	var batch domain.Batch
	err := db.Get(&batch, "SELECT id, total, completed, started_at, finished_at FROM batches WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func (db *DB) ListBatches(limit int) ([]*domain.Batch, error) {
	var batches []*domain.Batch
	err := db.Select(&batches, "SELECT id, total, completed, started_at, finished_at FROM batches ORDER BY started_at DESC LIMIT ?", limit)
	return batches, err
}
