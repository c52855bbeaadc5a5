package store

const Schema = `
CREATE TABLE IF NOT EXISTS batches (
	id TEXT PRIMARY KEY,
	total INTEGER NOT NULL,
	completed INTEGER NOT NULL DEFAULT 0,
	started_at DATETIME NOT NULL,
	finished_at DATETIME
);

CREATE TABLE IF NOT EXISTS downloads (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	item_id INTEGER NOT NULL,
	batch_id TEXT NOT NULL,
	title TEXT NOT NULL,
	artist TEXT,
	album TEXT,
	state TEXT NOT NULL,
	error TEXT,
	warning TEXT,
	file_path TEXT,
	file_hash TEXT,
	completed_at DATETIME NOT NULL,

	FOREIGN KEY (batch_id) REFERENCES batches(id)
);

CREATE INDEX IF NOT EXISTS idx_downloads_batch_id ON downloads(batch_id);
CREATE INDEX IF NOT EXISTS idx_downloads_completed_at ON downloads(completed_at);

CREATE TABLE IF NOT EXISTS session_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	item_id INTEGER NOT NULL,
	batch_id TEXT NOT NULL,
	label TEXT NOT NULL,
	failed BOOLEAN NOT NULL DEFAULT 0,
	body TEXT,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_session_log_batch_id ON session_log(batch_id);

CREATE TABLE IF NOT EXISTS cache (
	key TEXT PRIMARY KEY,
	data BLOB,
	expires_at DATETIME
);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
);
`
