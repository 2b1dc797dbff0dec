package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/bdougie/videojudge/internal/models"
)

const sqliteSchema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA busy_timeout = 5000;

CREATE TABLE IF NOT EXISTS records (
    video       TEXT NOT NULL,
    frame       TEXT NOT NULL,
    run_id      TEXT NOT NULL,
    timestamp   REAL NOT NULL,
    label       TEXT NOT NULL,
    confidence  REAL NOT NULL,
    created_at  TEXT NOT NULL,
    PRIMARY KEY (video, frame)
);

CREATE TABLE IF NOT EXISTS verdicts (
    run_id      TEXT PRIMARY KEY,
    video       TEXT NOT NULL,
    label       TEXT NOT NULL,
    confidence  REAL NOT NULL,
    summary     TEXT NOT NULL,
    passes      INTEGER NOT NULL,
    created_at  TEXT NOT NULL
);
`

// SQLite keeps records of many videos in a single local database file
type SQLite struct {
	db    *sql.DB
	video string
	runID uuid.UUID
}

// OpenSQLite opens (or creates) the database at path for videoName
func OpenSQLite(path, videoName string) (*SQLite, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SQLite{db: db, video: videoName, runID: uuid.New()}, nil
}

func (s *SQLite) RunID() uuid.UUID { return s.runID }

func (s *SQLite) AddResult(ctx context.Context, result models.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO records (video, frame, run_id, timestamp, label, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (video, frame) DO UPDATE SET
			run_id = excluded.run_id,
			timestamp = excluded.timestamp,
			label = excluded.label,
			confidence = excluded.confidence,
			created_at = excluded.created_at`,
		s.video, result.FrameID, s.runID.String(), result.Timestamp,
		string(result.Label), result.Confidence, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert record %s: %w", result.FrameID, err)
	}
	return nil
}

func (s *SQLite) SaveVerdict(ctx context.Context, v models.Verdict) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO verdicts (run_id, video, label, confidence, summary, passes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		s.runID.String(), s.video, string(v.Label), v.Confidence, v.Summary, v.Passes,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert verdict: %w", err)
	}
	return nil
}

func (s *SQLite) Results(ctx context.Context) ([]models.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT frame, timestamp, label, confidence FROM records
		WHERE video = ? ORDER BY timestamp, frame`, s.video)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var results []models.Record
	for rows.Next() {
		var r models.Record
		var label string
		if err := rows.Scan(&r.FrameID, &r.Timestamp, &label, &r.Confidence); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		r.Label = models.Label(label)
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
