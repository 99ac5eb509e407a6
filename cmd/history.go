package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/andresmejia3/willis/internal/store"
	"github.com/andresmejia3/willis/internal/willis"
)

var (
	historyLimit int
	historyJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored analyses, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		recs, err := DB.ListAnalyses(cmd.Context(), historyLimit)
		if err != nil {
			return fmt.Errorf("failed to list analyses: %w", err)
		}
		if historyJSON {
			return writeJSON(os.Stdout, recs)
		}
		return writeHistory(os.Stdout, recs)
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "Maximum number of analyses to show (0 for all)")
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "Print the records as JSON")
	rootCmd.AddCommand(historyCmd)
}

func writeHistory(w io.Writer, recs []store.Record) error {
	if len(recs) == 0 {
		_, err := fmt.Fprintln(w, "No analyses found in database.")
		return err
	}
	rows := make([][]string, 0, len(recs))
	for _, r := range recs {
		session := r.SessionID
		if len(session) > 10 {
			session = session[:10]
		}
		rows = append(rows, []string{
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			shortenPath(r.Source, 40),
			r.Mode,
			r.Method,
			fmt.Sprintf("%.3f", r.Ratio),
			recordLabel(r),
			session,
		})
	}
	return renderTable(newTable(w, "Created", "Source", "Mode", "Method", "Ratio", "Result", "Session"), rows)
}

// recordLabel colors a stored classification without decoding the payload.
func recordLabel(r store.Record) string {
	res := willis.Result{Mode: willis.Mode(r.Mode)}
	if res.Mode == willis.Frontal {
		res.Frontal = willis.FrontalClass(r.Classification)
	} else {
		res.Profile = willis.ProfileClass(r.Classification)
	}
	return classColor(res).Sprint(r.Classification)
}

// shortenPath keeps the tail of long paths.
func shortenPath(p string, maxLen int) string {
	if len(p) <= maxLen || maxLen < 4 {
		return p
	}
	return "..." + strings.TrimLeft(p[len(p)-(maxLen-3):], "/")
}
