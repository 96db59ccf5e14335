package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/seamline/seamline/cmd/seamline/commands"
	"github.com/seamline/seamline/logger"
)

var rootCmd = &cobra.Command{
	Use:   "seamline",
	Short: "Seamline - can seamer line event reconciliation",
	Long: `Seamline - production line event reconciliation service.

Seamline joins the three event streams of a can seamer line (conveyor
triggers, operator scan codes, seamer controller samples) into combined
per-cycle records, and maintains daily analytics rollups on top of them.

Available commands:
  serve  - Run the reconciliation service
  db     - Manage the seamline database
  config - Inspect the effective configuration

Examples:
  seamline serve             # Run reconciliation in foreground
  seamline db migrate        # Apply schema migrations
  seamline db stats          # Show record statistics
  seamline config show       # Print the effective configuration`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Root().PersistentFlags().GetBool("json")
		if err := logger.Initialize(jsonOutput); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().Bool("json", false, "Emit structured JSON logs")

	rootCmd.AddCommand(commands.ServeCmd)
	rootCmd.AddCommand(commands.DbCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
}

func main() {
	defer logger.Cleanup()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
