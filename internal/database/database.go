package database

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// Schema creates the archive tables. Every statement is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS analyses (
	id                SERIAL PRIMARY KEY,
	run_id            UUID NOT NULL,
	filename          TEXT NOT NULL,
	file_path         TEXT NOT NULL,
	checksum          TEXT NOT NULL UNIQUE,
	slide_count       INTEGER NOT NULL DEFAULT 0,
	total_media_bytes BIGINT NOT NULL DEFAULT 0,
	report            JSONB,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS slide_stats (
	id                SERIAL PRIMARY KEY,
	analysis_id       INTEGER NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
	rank              INTEGER NOT NULL,
	slide_index       INTEGER NOT NULL,
	title             TEXT,
	total_media_bytes BIGINT NOT NULL DEFAULT 0,
	image_bytes       BIGINT NOT NULL DEFAULT 0,
	video_bytes       BIGINT NOT NULL DEFAULT 0,
	audio_bytes       BIGINT NOT NULL DEFAULT 0,
	other_media_bytes BIGINT NOT NULL DEFAULT 0
);
`

func NewConnection(connectStr string) (*sql.DB, error) {
	db, err := sql.Open("postgres", connectStr)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}

	return db, nil
}

func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(Schema); err != nil {
		return fmt.Errorf("error creating schema: %w", err)
	}
	return nil
}
