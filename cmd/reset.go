package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/andresmejia3/willis/internal/cache"
)

var (
	resetDB    bool
	resetCache bool
	resetYes   bool
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset stored state (analysis database, result cache)",
	Long:  "Clears stored data. By default, it resets everything. Use flags to clear specific components.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		// If no flags are set, default to clearing EVERYTHING
		if !resetDB && !resetCache {
			resetDB = true
			resetCache = true
		}

		reader := bufio.NewReader(os.Stdin)
		ask := func(prompt string) bool {
			return resetYes || confirm(reader, os.Stdout, prompt)
		}

		if resetDB && ask(fmt.Sprintf("Are you sure you want to DROP all stored analyses (%s)?", cfg.Store)) {
			fmt.Println("Clearing Database...")
			if err := DB.Reset(cmd.Context()); err != nil {
				return fmt.Errorf("failed to reset database: %w", err)
			}
		}

		if resetCache {
			if cfg.Cache == "" {
				logrus.Debug("no result cache configured")
			} else if ask("Are you sure you want to delete all cached results?") {
				c, err := cache.New(cmd.Context(), cfg.Cache, cfg.CacheTTL)
				if err != nil {
					return err
				}
				defer c.Close()
				n, err := c.Clear(cmd.Context())
				if err != nil {
					return fmt.Errorf("failed to clear cache: %w", err)
				}
				fmt.Printf("Removed %d cached results.\n", n)
			}
		}

		fmt.Println("Reset Complete.")
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVar(&resetDB, "analyses", false, "Clear stored analyses")
	resetCmd.Flags().BoolVar(&resetCache, "results-cache", false, "Clear the Redis result cache")
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "Do not ask for confirmation")
	rootCmd.AddCommand(resetCmd)
}

func confirm(r *bufio.Reader, w io.Writer, prompt string) bool {
	fmt.Fprintf(w, "%s [y/N]: ", prompt)
	res, _ := r.ReadString('\n')
	res = strings.TrimSpace(strings.ToLower(res))
	return res == "y" || res == "yes"
}
