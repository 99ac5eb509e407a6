// Package export writes stored analyses to Parquet files using
// github.com/parquet-go/parquet-go.
package export

import (
	"fmt"
	"os"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/andresmejia3/willis/internal/store"
)

// AnalysisRow is one stored analysis flattened into columns.
type AnalysisRow struct {
	ID             string    `parquet:"id,snappy"`
	CreatedAt      time.Time `parquet:"created_at,snappy"`
	Source         string    `parquet:"source,snappy"`
	SessionID      *string   `parquet:"session_id,optional,snappy"`
	Mode           string    `parquet:"mode,snappy,dict"`
	Method         string    `parquet:"method,snappy,dict"`
	Classification string    `parquet:"classification,snappy,dict"`
	Ratio          float64   `parquet:"ratio,snappy"`
	Symmetry       float64   `parquet:"symmetry,snappy"`
	PupilToMouth   float64   `parquet:"pupil_to_mouth,snappy"`
	NoseToChin     float64   `parquet:"nose_to_chin,snappy"`
	JawProminence  float64   `parquet:"jaw_prominence,snappy"`
	ChinAngle      float64   `parquet:"chin_angle,snappy"`

	// Result is the full JSON-encoded analysis.
	Result string `parquet:"result,snappy"`
}

// Rows converts store records to Parquet rows.
func Rows(recs []store.Record) []AnalysisRow {
	rows := make([]AnalysisRow, len(recs))
	for i, r := range recs {
		var session *string
		if r.SessionID != "" {
			s := r.SessionID
			session = &s
		}
		rows[i] = AnalysisRow{
			ID:             r.ID,
			CreatedAt:      r.CreatedAt,
			Source:         r.Source,
			SessionID:      session,
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
	return rows
}

// WriteParquet writes rows to outputPath, replacing any existing file.
func WriteParquet(rows []AnalysisRow, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	// The schema is derived from the AnalysisRow struct tags
	writer := parquet.NewGenericWriter[AnalysisRow](file)
	if _, err := writer.Write(rows); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return file.Close()
}
