package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/bdougie/videojudge/internal/embeddings"
	"github.com/bdougie/videojudge/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS videos (
    id SERIAL PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    UNIQUE(name)
);

CREATE TABLE IF NOT EXISTS frames (
    id SERIAL PRIMARY KEY,
    video_id INTEGER REFERENCES videos(id) ON DELETE CASCADE,
    frame_path VARCHAR(255) NOT NULL,
    timestamp DOUBLE PRECISION NOT NULL,
    label VARCHAR(16) NOT NULL,
    confidence DOUBLE PRECISION NOT NULL,
    embedding vector(4),
    created_at TIMESTAMPTZ NOT NULL,
    UNIQUE(video_id, frame_path)
);

CREATE TABLE IF NOT EXISTS verdicts (
    id SERIAL PRIMARY KEY,
    video_id INTEGER REFERENCES videos(id) ON DELETE CASCADE,
    label VARCHAR(16) NOT NULL,
    confidence DOUBLE PRECISION NOT NULL,
    summary TEXT NOT NULL,
    passes INTEGER NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_frames_video_id ON frames(video_id);
CREATE INDEX IF NOT EXISTS idx_verdicts_video_id ON verdicts(video_id);
`

// Postgres stores frame records and verdicts in PostgreSQL, with a judgment
// vector per frame for similarity search.
type Postgres struct {
	pool      *pgxpool.Pool
	videoID   int
	videoName string
}

// NewPostgres connects, ensures the schema and registers videoName
func NewPostgres(ctx context.Context, connString, videoName string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := InitSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	s := &Postgres{pool: pool, videoName: videoName}
	videoID, err := s.getOrCreateVideo(ctx, videoName)
	if err != nil {
		pool.Close()
		return nil, err
	}
	s.videoID = videoID

	return s, nil
}

// InitSchema creates the vector extension and tables if they don't exist
func InitSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to create database schema: %w", err)
	}
	return nil
}

func (s *Postgres) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *Postgres) getOrCreateVideo(ctx context.Context, videoName string) (int, error) {
	var id int
	err := s.pool.QueryRow(ctx,
		"SELECT id FROM videos WHERE name = $1",
		videoName).Scan(&id)

	if err == nil {
		return id, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("error checking for existing video: %w", err)
	}

	err = s.pool.QueryRow(ctx,
		"INSERT INTO videos (name, created_at) VALUES ($1, $2) RETURNING id",
		videoName, time.Now()).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to create video entry: %w", err)
	}

	return id, nil
}

// AddResult upserts the record of one frame
func (s *Postgres) AddResult(ctx context.Context, result models.Record) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO frames
        (video_id, frame_path, timestamp, label, confidence, embedding, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        ON CONFLICT (video_id, frame_path) DO UPDATE SET
            timestamp = EXCLUDED.timestamp,
            label = EXCLUDED.label,
            confidence = EXCLUDED.confidence,
            embedding = EXCLUDED.embedding`,
		s.videoID, result.FrameID, result.Timestamp, string(result.Label), result.Confidence,
		pgvector.NewVector(embeddings.Record(result)), time.Now())
	if err != nil {
		return fmt.Errorf("failed to store frame %s: %w", result.FrameID, err)
	}
	return nil
}

func (s *Postgres) SaveVerdict(ctx context.Context, v models.Verdict) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO verdicts (video_id, label, confidence, summary, passes, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`,
		s.videoID, string(v.Label), v.Confidence, v.Summary, v.Passes, time.Now())
	if err != nil {
		return fmt.Errorf("failed to store verdict: %w", err)
	}
	return nil
}

// Results returns the stored frame records of the video ordered by timestamp
func (s *Postgres) Results(ctx context.Context) ([]models.Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT frame_path, timestamp, label, confidence
        FROM frames WHERE video_id = $1
        ORDER BY timestamp, frame_path`, s.videoID)
	if err != nil {
		return nil, fmt.Errorf("failed to load frames: %w", err)
	}
	defer rows.Close()

	var results []models.Record
	for rows.Next() {
		var r models.Record
		var label string
		if err := rows.Scan(&r.FrameID, &r.Timestamp, &label, &r.Confidence); err != nil {
			return nil, fmt.Errorf("failed to scan frame: %w", err)
		}
		r.Label = models.Label(label)
		results = append(results, r)
	}
	return results, rows.Err()
}

// SearchSimilarFrames finds the frames whose judgment is closest to the given one
func (s *Postgres) SearchSimilarFrames(ctx context.Context, label models.Label, confidence float64, limit int) ([]models.FrameSearchResult, error) {
	query := pgvector.NewVector(embeddings.Judgment(label, confidence))

	rows, err := s.pool.Query(ctx,
		`SELECT frame_path, timestamp, label, confidence,
        1 - (embedding <=> $1) AS similarity
        FROM frames
        WHERE video_id = $2
        ORDER BY embedding <=> $1
        LIMIT $3`,
		query, s.videoID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search similar frames: %w", err)
	}
	defer rows.Close()

	var results []models.FrameSearchResult
	for rows.Next() {
		var r models.FrameSearchResult
		var l string
		if err := rows.Scan(&r.FramePath, &r.Timestamp, &l, &r.Confidence, &r.Similarity); err != nil {
			return nil, fmt.Errorf("failed to scan search results: %w", err)
		}
		r.Label = models.Label(l)
		results = append(results, r)
	}

	return results, rows.Err()
}
