package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/spf13/cobra"

	"github.com/andresmejia3/willis/internal/report"
)

var compareOpts Options

var compareCmd = &cobra.Command{
	Use:   "compare <image> <image>...",
	Short: "Compare the Willis ratio across several photos (the first is the baseline)",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runCompare(cmd.Context(), args, compareOpts)
	},
}

func init() {
	compareCmd.Flags().BoolVar(&compareOpts.JSON, "json", false, "Print the comparison as JSON")
	compareCmd.Flags().BoolVar(&compareOpts.NoSave, "no-save", false, "Do not store the results")
	rootCmd.AddCommand(compareCmd)
}

func runCompare(ctx context.Context, paths []string, opts Options) error {
	workers := min(cfg.Workers, len(paths))
	p, pool, err := newPipeline(ctx, workers, false)
	if err != nil {
		return err
	}
	defer pool.Close()

	bar := newProgressBar(len(paths), "Analyzing photos")

	// Results keep input order; the first photo is the baseline.
	items := make([]*report.Item, len(paths))
	errs := make([]error, len(paths))
	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			defer bar.Add(1)

			data, err := readImage(path)
			if err != nil {
				errs[i] = err
				return
			}
			out, err := p.Process(ctx, data)
			if err != nil {
				errs[i] = err
				return
			}
			saveResult(ctx, opts, path, "", out.Result)
			out.Result.Mesh = nil
			items[i] = &report.Item{Name: path, Result: out.Result}
		}()
	}
	wg.Wait()
	_ = bar.Finish()

	if err := ctx.Err(); err != nil {
		return err
	}

	var ok []report.Item
	var failed []report.Failure
	for i, path := range paths {
		if errs[i] != nil {
			failed = append(failed, report.Failure{Name: path, Error: errs[i].Error()})
			continue
		}
		ok = append(ok, *items[i])
	}

	cmp, err := report.Compare(ok, failed)
	if opts.JSON {
		if werr := writeJSON(os.Stdout, cmp); werr != nil {
			return werr
		}
		return err
	}
	if err != nil {
		writeFailures(os.Stdout, failed)
		return fmt.Errorf("none of the %d photos gave a frontal measurement: %w", len(paths), err)
	}
	return writeComparison(os.Stdout, cmp)
}

func writeComparison(w io.Writer, cmp report.Comparison) error {
	rows := make([][]string, 0, len(cmp.Items))
	for i, it := range cmp.Items {
		change := "baseline"
		if i > 0 {
			change = fmt.Sprintf("%+.1f%%", it.ChangePercent)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			it.Name,
			string(it.Mode),
			px(it.PupilToMouth),
			px(it.NoseToChin),
			fmt.Sprintf("%.3f", it.Ratio),
			change,
			it.Classification,
		})
	}
	if err := renderTable(newTable(w, "#", "Photo", "Mode", "Pupil-Mouth", "Nose-Chin", "Ratio", "Change", "Class"), rows); err != nil {
		return err
	}

	s := cmp.Ratio
	if _, err := fmt.Fprintf(w, "Ratio mean %.3f, std %.3f, min %.3f (%s), max %.3f (%s)\n",
		s.Mean, s.Std, s.Min, cmp.MinName, s.Max, cmp.MaxName); err != nil {
		return err
	}
	writeFailures(w, cmp.Failed)
	return nil
}

func writeFailures(w io.Writer, failed []report.Failure) {
	for _, f := range failed {
		fmt.Fprintf(w, "Skipped %s: %s\n", f.Name, f.Error)
	}
}
