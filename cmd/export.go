package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/andresmejia3/willis/internal/export"
)

var exportLimit int

var exportCmd = &cobra.Command{
	Use:   "export <file.parquet>",
	Short: "Export stored analyses to a Parquet file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		recs, err := DB.ListAnalyses(cmd.Context(), exportLimit)
		if err != nil {
			return fmt.Errorf("failed to list analyses: %w", err)
		}
		if err := export.WriteParquet(export.Rows(recs), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Exported %d analyses to %s\n", len(recs), args[0])
		return nil
	},
}

func init() {
	exportCmd.Flags().IntVarP(&exportLimit, "limit", "l", 0, "Maximum number of analyses to export, newest first (0 for all)")
	rootCmd.AddCommand(exportCmd)
}
