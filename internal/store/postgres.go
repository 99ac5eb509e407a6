package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// PostgresStore manages a single pgx connection.
type PostgresStore struct {
	conn *pgx.Conn
}

// NewPostgres establishes a connection to the database and ensures the schema is initialized.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, err
	}

	// Initialize schema (Auto-Migration)
	if err := initSchema(ctx, conn); err != nil {
		conn.Close(ctx)
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	return &PostgresStore{conn: conn}, nil
}

func initSchema(ctx context.Context, conn *pgx.Conn) error {
	_, err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS willis_analyses (
			id TEXT PRIMARY KEY,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			source TEXT NOT NULL,
			session_id TEXT NOT NULL DEFAULT '',
			mode TEXT NOT NULL,
			method TEXT NOT NULL,
			classification TEXT NOT NULL,
			ratio DOUBLE PRECISION NOT NULL,
			symmetry DOUBLE PRECISION NOT NULL,
			pupil_to_mouth DOUBLE PRECISION NOT NULL,
			nose_to_chin DOUBLE PRECISION NOT NULL,
			jaw_prominence DOUBLE PRECISION NOT NULL,
			chin_angle DOUBLE PRECISION NOT NULL,
			result JSONB NOT NULL
		);
		CREATE INDEX IF NOT EXISTS willis_analyses_created_at_idx ON willis_analyses (created_at DESC);
	`)
	return err
}

func (s *PostgresStore) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}

func (s *PostgresStore) SaveAnalysis(ctx context.Context, r Record) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO willis_analyses (id, created_at, source, session_id, mode, method, classification,
			ratio, symmetry, pupil_to_mouth, nose_to_chin, jaw_prominence, chin_angle, result)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, r.ID, r.CreatedAt, r.Source, r.SessionID, r.Mode, r.Method, r.Classification,
		r.Ratio, r.Symmetry, r.PupilToMouth, r.NoseToChin, r.JawProminence, r.ChinAngle, string(r.Result))
	return err
}

func (s *PostgresStore) ListAnalyses(ctx context.Context, limit int) ([]Record, error) {
	query := `
		SELECT id, created_at, source, session_id, mode, method, classification,
			ratio, symmetry, pupil_to_mouth, nose_to_chin, jaw_prominence, chin_angle, result::text
		FROM willis_analyses
		ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += " LIMIT $1"
		args = append(args, limit)
	}

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var raw string
		if err := rows.Scan(&r.ID, &r.CreatedAt, &r.Source, &r.SessionID, &r.Mode, &r.Method, &r.Classification,
			&r.Ratio, &r.Symmetry, &r.PupilToMouth, &r.NoseToChin, &r.JawProminence, &r.ChinAngle, &raw); err != nil {
			return nil, err
		}
		r.Result = []byte(raw)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Reset drops the analyses table and recreates it empty.
func (s *PostgresStore) Reset(ctx context.Context) error {
	if _, err := s.conn.Exec(ctx, `DROP TABLE IF EXISTS willis_analyses CASCADE;`); err != nil {
		return err
	}
	return initSchema(ctx, s.conn)
}
