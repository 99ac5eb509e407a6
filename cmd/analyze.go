package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var analyzeOpts Options

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image>",
	Short: "Measure the Willis ratio (frontal) or jaw contour (profile) of one photo",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runAnalyze(cmd.Context(), args[0], analyzeOpts)
	},
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeOpts.OutputPath, "output", "o", "", "Write an annotated copy of the image to this path (.png or .jpg)")
	analyzeCmd.Flags().BoolVar(&analyzeOpts.JSON, "json", false, "Print the result as JSON")
	analyzeCmd.Flags().BoolVar(&analyzeOpts.NoSave, "no-save", false, "Do not store the result")
	analyzeCmd.Flags().BoolVar(&analyzeOpts.Mesh, "mesh", false, "Draw the full landmark mesh on the annotated image")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(ctx context.Context, path string, opts Options) error {
	if err := validateOutputPath(path, opts.OutputPath); err != nil {
		return err
	}
	data, err := readImage(path)
	if err != nil {
		return err
	}

	keepMesh := opts.Mesh && opts.OutputPath != ""
	p, pool, err := newPipeline(ctx, 1, keepMesh)
	if err != nil {
		return err
	}
	defer pool.Close()

	out, err := p.Process(ctx, data)
	if err != nil {
		return fmt.Errorf("analyze %s: %w", path, err)
	}
	res := out.Result
	logrus.WithFields(logrus.Fields{
		"mode":   res.Mode,
		"method": res.Method,
		"cached": out.Cached,
	}).Debug("analysis complete")

	if opts.OutputPath != "" {
		if err := writeOverlay(opts.OutputPath, data, res); err != nil {
			return fmt.Errorf("write annotated image: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Annotated image saved to %s\n", opts.OutputPath)
	}

	saveResult(ctx, opts, path, "", res)

	res.Mesh = nil
	if opts.JSON {
		return writeJSON(os.Stdout, res)
	}
	return writeResult(os.Stdout, "", res)
}

// validateOutputPath prevents the annotated copy from replacing the input.
func validateOutputPath(input, output string) error {
	if output == "" {
		return nil
	}
	inAbs, _ := filepath.Abs(input)
	outAbs, _ := filepath.Abs(output)
	if inAbs == outAbs {
		return fmt.Errorf("input and output paths must be different")
	}
	return nil
}
