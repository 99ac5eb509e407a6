package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const analysesTable = "willis_analyses"

// SQLStore serves the SQLite and MySQL backends.
type SQLStore struct {
	db      *sqlx.DB
	backend string
}

// sqlRow mirrors Record with the timestamp as unix milliseconds, which both
// drivers round-trip without extra DSN options.
type sqlRow struct {
	ID             string  `db:"id"`
	CreatedAt      int64   `db:"created_at"`
	Source         string  `db:"source"`
	SessionID      string  `db:"session_id"`
	Mode           string  `db:"mode"`
	Method         string  `db:"method"`
	Classification string  `db:"classification"`
	Ratio          float64 `db:"ratio"`
	Symmetry       float64 `db:"symmetry"`
	PupilToMouth   float64 `db:"pupil_to_mouth"`
	NoseToChin     float64 `db:"nose_to_chin"`
	JawProminence  float64 `db:"jaw_prominence"`
	ChinAngle      float64 `db:"chin_angle"`
	Result         string  `db:"result"`
}

func toRow(r Record) sqlRow {
	return sqlRow{
		ID:             r.ID,
		CreatedAt:      r.CreatedAt.UnixMilli(),
		Source:         r.Source,
		SessionID:      r.SessionID,
		Mode:           r.Mode,
		Method:         r.Method,
		Classification: r.Classification,
		Ratio:          r.Ratio,
		Symmetry:       r.Symmetry,
		PupilToMouth:   r.PupilToMouth,
		NoseToChin:     r.NoseToChin,
		JawProminence:  r.JawProminence,
		ChinAngle:      r.ChinAngle,
		Result:         string(r.Result),
	}
}

func (row sqlRow) record() Record {
	return Record{
		ID:             row.ID,
		CreatedAt:      time.UnixMilli(row.CreatedAt).UTC(),
		Source:         row.Source,
		SessionID:      row.SessionID,
		Mode:           row.Mode,
		Method:         row.Method,
		Classification: row.Classification,
		Ratio:          row.Ratio,
		Symmetry:       row.Symmetry,
		PupilToMouth:   row.PupilToMouth,
		NoseToChin:     row.NoseToChin,
		JawProminence:  row.JawProminence,
		ChinAngle:      row.ChinAngle,
		Result:         []byte(row.Result),
	}
}

// NewSQL opens a SQLite file (created if missing) or a MySQL database.
func NewSQL(ctx context.Context, backend, dsn string) (*SQLStore, error) {
	var db *sqlx.DB
	var err error

	switch backend {
	case SQLite:
		if dsn == "" {
			return nil, fmt.Errorf("sqlite store needs a database path")
		}
		if dir := filepath.Dir(dsn); dir != "." && !strings.HasPrefix(dsn, "file:") {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create database directory %q: %w", dir, err)
			}
		}
		db, err = sqlx.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite database at %q: %w. Check that the directory is writable", dsn, err)
		}
		// Limit SQLite to a single open connection to avoid "database is locked" errors
		db.SetMaxOpenConns(1)

	case MySQL:
		db, err = sqlx.Open("mysql", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open MySQL database: %w. Check connection string format: user:password@tcp(host:port)/dbname", err)
		}

	default:
		return nil, fmt.Errorf("unsupported sql backend: %s", backend)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to %s database: %w", backend, err)
	}

	s := &SQLStore{db: db, backend: backend}
	if err := s.createTable(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create analyses table: %w", err)
	}
	return s, nil
}

func (s *SQLStore) createTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, createTableQuery(s.backend))
	return err
}

func createTableQuery(backend string) string {
	if backend == MySQL {
		return fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s (
				id VARCHAR(36) PRIMARY KEY,
				created_at BIGINT NOT NULL,
				source VARCHAR(1024) NOT NULL,
				session_id VARCHAR(64) NOT NULL DEFAULT '',
				mode VARCHAR(16) NOT NULL,
				method VARCHAR(16) NOT NULL,
				classification VARCHAR(32) NOT NULL,
				ratio DOUBLE NOT NULL,
				symmetry DOUBLE NOT NULL,
				pupil_to_mouth DOUBLE NOT NULL,
				nose_to_chin DOUBLE NOT NULL,
				jaw_prominence DOUBLE NOT NULL,
				chin_angle DOUBLE NOT NULL,
				result LONGTEXT NOT NULL,
				INDEX idx_created_at (created_at)
			);
		`, analysesTable)
	}
	return fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL,
			source TEXT NOT NULL,
			session_id TEXT NOT NULL DEFAULT '',
			mode TEXT NOT NULL,
			method TEXT NOT NULL,
			classification TEXT NOT NULL,
			ratio REAL NOT NULL,
			symmetry REAL NOT NULL,
			pupil_to_mouth REAL NOT NULL,
			nose_to_chin REAL NOT NULL,
			jaw_prominence REAL NOT NULL,
			chin_angle REAL NOT NULL,
			result TEXT NOT NULL
		);
	`, analysesTable)
}

func (s *SQLStore) SaveAnalysis(ctx context.Context, r Record) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO `+analysesTable+` (id, created_at, source, session_id, mode, method, classification,
			ratio, symmetry, pupil_to_mouth, nose_to_chin, jaw_prominence, chin_angle, result)
		VALUES (:id, :created_at, :source, :session_id, :mode, :method, :classification,
			:ratio, :symmetry, :pupil_to_mouth, :nose_to_chin, :jaw_prominence, :chin_angle, :result)
	`, toRow(r))
	return err
}

func (s *SQLStore) ListAnalyses(ctx context.Context, limit int) ([]Record, error) {
	query := `SELECT * FROM ` + analysesTable + ` ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	var rows []sqlRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}
	out := make([]Record, len(rows))
	for i, row := range rows {
		out[i] = row.record()
	}
	return out, nil
}

func (s *SQLStore) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DROP TABLE IF EXISTS `+analysesTable); err != nil {
		return err
	}
	return s.createTable(ctx)
}

func (s *SQLStore) Close(context.Context) error {
	return s.db.Close()
}
