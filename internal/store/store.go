// Package store persists analysis results. PostgreSQL is accessed through
// pgx directly; SQLite and MySQL go through database/sql with sqlx.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/andresmejia3/willis/internal/willis"
)

// Backend names accepted by Open.
const (
	SQLite   = "sqlite"
	Postgres = "postgres"
	MySQL    = "mysql"
	None     = "none"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Record is one stored analysis. Result holds the full JSON encoding.
type Record struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	Source         string    `json:"source"`
	SessionID      string    `json:"session_id,omitempty"`
	Mode           string    `json:"mode"`
	Method         string    `json:"method"`
	Classification string    `json:"classification"`
	Ratio          float64   `json:"ratio"`
	Symmetry       float64   `json:"symmetry"`
	PupilToMouth   float64   `json:"pupil_to_mouth"`
	NoseToChin     float64   `json:"nose_to_chin"`
	JawProminence  float64   `json:"jaw_prominence"`
	ChinAngle      float64   `json:"chin_angle"`
	Result         []byte    `json:"-"`
}

// NewRecord flattens res for storage. The mesh is not persisted.
func NewRecord(source, sessionID string, res willis.Result) (Record, error) {
	res.Mesh = nil
	raw, err := json.Marshal(res)
	if err != nil {
		return Record{}, fmt.Errorf("encode result: %w", err)
	}
	return Record{
		ID:             uuid.NewString(),
		CreatedAt:      time.Now().UTC(),
		Source:         source,
		SessionID:      sessionID,
		Mode:           string(res.Mode),
		Method:         string(res.Method),
		Classification: res.Classification(),
		Ratio:          res.Ratio,
		Symmetry:       res.Symmetry,
		PupilToMouth:   res.PupilToMouth,
		NoseToChin:     res.NoseToChin,
		JawProminence:  res.JawProminence,
		ChinAngle:      res.ChinAngle,
		Result:         raw,
	}, nil
}

// Decode returns the stored result.
func (r Record) Decode() (willis.Result, error) {
	var res willis.Result
	if len(r.Result) == 0 {
		return res, fmt.Errorf("record %s has no result payload", r.ID)
	}
	err := json.Unmarshal(r.Result, &res)
	return res, err
}

// Store is implemented by every backend.
type Store interface {
	SaveAnalysis(ctx context.Context, rec Record) error
	// ListAnalyses returns the newest records first; limit <= 0 means all.
	ListAnalyses(ctx context.Context, limit int) ([]Record, error)
	// Reset drops all stored analyses.
	Reset(ctx context.Context) error
	Close(ctx context.Context) error
}

// Open connects to backend and creates the schema if needed.
func Open(ctx context.Context, backend, dsn string) (Store, error) {
	switch backend {
	case Postgres:
		return NewPostgres(ctx, dsn)
	case SQLite, MySQL:
		return NewSQL(ctx, backend, dsn)
	case None, "":
		return Nop{}, nil
	}
	return nil, fmt.Errorf("unsupported store backend %q (valid: sqlite, postgres, mysql, none)", backend)
}

// Nop discards everything.
type Nop struct{}

func (Nop) SaveAnalysis(context.Context, Record) error { return nil }
func (Nop) ListAnalyses(context.Context, int) ([]Record, error) { return nil, nil }
func (Nop) Reset(context.Context) error { return nil }
func (Nop) Close(context.Context) error { return nil }
