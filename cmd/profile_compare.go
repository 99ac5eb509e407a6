package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/andresmejia3/willis/internal/report"
	"github.com/andresmejia3/willis/internal/worker"
)

var (
	profileMaxMovement float64
	profileJSON        bool
)

var profileCompareCmd = &cobra.Command{
	Use:   "profile-compare <before> <after>",
	Short: "Compare chin position and facial angle between two side photos (e.g. before/after dentures)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runProfileCompare(cmd.Context(), args[0], args[1])
	},
}

func init() {
	profileCompareCmd.Flags().Float64Var(&profileMaxMovement, "max-movement", report.DefaultMaxMovement, "Acceptable chin movement in pixels")
	profileCompareCmd.Flags().BoolVar(&profileJSON, "json", false, "Print the comparison as JSON")
	profileCompareCmd.Annotations = map[string]string{skipStore: "true"}
	rootCmd.AddCommand(profileCompareCmd)
}

func runProfileCompare(ctx context.Context, beforePath, afterPath string) error {
	if profileMaxMovement <= 0 {
		return fmt.Errorf("--max-movement must be positive, got %v", profileMaxMovement)
	}
	pool, err := worker.NewPool(1, cfg.Detector, cfg.Timeout)
	if err != nil {
		return fmt.Errorf("worker startup failed: %w", err)
	}
	defer pool.Close()

	before, err := profileFrame(ctx, pool, beforePath)
	if err != nil {
		return err
	}
	after, err := profileFrame(ctx, pool, afterPath)
	if err != nil {
		return err
	}

	change := report.CompareProfiles(before, after, profileMaxMovement)
	if profileJSON {
		return writeJSON(os.Stdout, change)
	}
	return writeProfileChange(os.Stdout, change)
}

func profileFrame(ctx context.Context, det worker.Detector, path string) (report.ProfileFrame, error) {
	data, err := readImage(path)
	if err != nil {
		return report.ProfileFrame{}, err
	}
	d, err := det.Detect(ctx, data)
	if err != nil {
		return report.ProfileFrame{}, fmt.Errorf("%s: %w", path, err)
	}
	if !d.HasLandmarks() {
		return report.ProfileFrame{}, fmt.Errorf("%s: profile comparison needs facial landmarks, only a face box was found", path)
	}
	return report.NewProfileFrame(d.Landmarks, d.Width, d.Height)
}

func writeProfileChange(w io.Writer, c report.ProfileChange) error {
	rows := [][]string{
		{"Chin (before)", fmt.Sprintf("(%.0f, %.0f)", c.Before.Chin.X, c.Before.Chin.Y)},
		{"Chin (after)", fmt.Sprintf("(%.0f, %.0f)", c.After.Chin.X, c.After.Chin.Y)},
		{"Facial angle (before)", fmt.Sprintf("%.1f°", c.Before.Angle)},
		{"Facial angle (after)", fmt.Sprintf("%.1f°", c.After.Angle)},
		{"Chin movement", fmt.Sprintf("%.1f px (max %.0f)", c.Movement, c.MaxMovement)},
		{"Angle change", fmt.Sprintf("%+.1f°", c.AngleChange)},
		{"Naturalness", fmt.Sprintf("%.1f / 100", c.Naturalness)},
	}
	if err := renderTable(newTable(w, "Measurement", "Value"), rows); err != nil {
		return err
	}
	status := cautionColor.Sprint(c.Status())
	if c.Acceptable {
		status = normalColor.Sprint(c.Status())
	}
	_, err := fmt.Fprintf(w, "Result: %s\n", status)
	return err
}
