package store

import "github.com/cesargomez89/musicdl/internal/domain"

const downloadColumns = "id, item_id, batch_id, title, artist, album, state, error, warning, file_path, file_hash, completed_at"

func (db *DB) SaveDownload(d *domain.Download) error {
	res, err := db.NamedExec(`
		INSERT INTO downloads (item_id, batch_id, title, artist, album, state, error, warning, file_path, file_hash, completed_at)
		VALUES (:item_id, :batch_id, :title, :artist, :album, :state, :error, :warning, :file_path, :file_hash, :completed_at)
	`, d)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = id
	return nil
}

// ListDownloads returns the most recent outcomes first.
func (db *DB) ListDownloads(limit int) ([]*domain.Download, error) {
	var downloads []*domain.Download
	err := db.Select(&downloads, "SELECT "+downloadColumns+" FROM downloads ORDER BY completed_at DESC, id DESC LIMIT ?", limit)
	return downloads, err
}

func (db *DB) ListDownloadsByBatch(batchID string) ([]*domain.Download, error) {
	var downloads []*domain.Download
	err := db.Select(&downloads, "SELECT "+downloadColumns+" FROM downloads WHERE batch_id = ? ORDER BY id", batchID)
	return downloads, err
}

func (db *DB) ClearDownloads() error {
	_, err := db.Exec("DELETE FROM downloads")
	return err
}
