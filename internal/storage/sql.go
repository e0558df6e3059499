package storage

const (
	initSchemaSQL = `
CREATE TABLE IF NOT EXISTS sessions (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    start_time   DATETIME NOT NULL,
    label        TEXT     NOT NULL,
    window_width INTEGER  NOT NULL,
    config       TEXT
);

CREATE TABLE IF NOT EXISTS samples (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id INTEGER NOT NULL REFERENCES sessions (id),
    timestamp  INTEGER NOT NULL,
    bin        INTEGER NOT NULL,
    value      REAL    NOT NULL
);`

	initIndexesSQL = `
CREATE INDEX IF NOT EXISTS idx_samples_session_timestamp ON samples (session_id, timestamp, bin);`

	insertSessionSQL = `
INSERT INTO sessions (
                      start_time,
                      label,
                      window_width,
                      config)
VALUES (?, ?, ?, ?)`

	selectSessionSQL = `
SELECT
    id,
    start_time,
    label,
    window_width,
    config
FROM sessions
WHERE
    id = ?`

	selectSessionsSQL = `
SELECT
    id,
    start_time,
    label,
    window_width,
    config
FROM sessions
ORDER BY id`

	insertSampleSQL = `
INSERT INTO samples (session_id,
                     timestamp,
                     bin,
                     value)
VALUES `

	selectSamplesSQL = `
SELECT
    timestamp,
    bin,
    value
FROM samples
WHERE
    session_id = ?
    AND timestamp BETWEEN ? AND ?
ORDER BY timestamp, bin`
)
