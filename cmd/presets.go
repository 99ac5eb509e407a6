package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/andresmejia3/willis/internal/willis"
)

var presetsCmd = &cobra.Command{
	Use:         "presets",
	Short:       "Show the threshold presets and the thresholds currently in effect",
	Annotations: map[string]string{skipStore: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		active, err := cfg.Thresholds()
		if err != nil {
			return err
		}
		return writePresets(os.Stdout, active)
	},
}

func init() {
	rootCmd.AddCommand(presetsCmd)
}

func writePresets(w io.Writer, active willis.Thresholds) error {
	names := willis.PresetNames()
	headers := append([]string{"Threshold"}, names...)
	headers = append(headers, "active")

	sets := make([]willis.Thresholds, 0, len(names)+1)
	for _, n := range names {
		t, err := willis.Preset(n)
		if err != nil {
			return err
		}
		sets = append(sets, t)
	}
	sets = append(sets, active)

	fields := []struct {
		name string
		get  func(willis.Thresholds) string
	}{
		{"Frontal symmetry", func(t willis.Thresholds) string { return fmt.Sprintf("%.2f", t.FrontalSymmetry) }},
		{"Normal ratio", func(t willis.Thresholds) string { return fmt.Sprintf("%.2f - %.2f", t.NormalRatioMin, t.NormalRatioMax) }},
		{"Jaw prominence %", func(t willis.Thresholds) string { return fmt.Sprintf("%.0f - %.0f", t.JawProminenceMin, t.JawProminenceMax) }},
		{"Chin angle °", func(t willis.Thresholds) string { return fmt.Sprintf("%.0f - %.0f", t.ChinAngleMin, t.ChinAngleMax) }},
		{"Lateral ratio", func(t willis.Thresholds) string {
			return fmt.Sprintf("%.2f - %.2f (±%.2f)", t.LateralRatioMin, t.LateralRatioMax, t.LateralMargin)
		}},
	}

	rows := make([][]string, 0, len(fields))
	for _, f := range fields {
		row := []string{f.name}
		for _, t := range sets {
			row = append(row, f.get(t))
		}
		rows = append(rows, row)
	}
	return renderTable(newTable(w, headers...), rows)
}
