package commands

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seamline/seamline/config"
	"github.com/seamline/seamline/db"
	"github.com/seamline/seamline/logger"
	"github.com/seamline/seamline/reconcile"
)

// DbCmd groups database operations.
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: "Manage the seamline database",
	Long: `Manage seamline database operations.

Examples:
  seamline db migrate   # Apply schema migrations
  seamline db stats     # Show record statistics and daily rollups`,
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply schema migrations",
	RunE:  runDbMigrate,
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show record statistics and daily rollups",
	RunE:  runDbStats,
}

var statsDaysFlag int

func init() {
	DbCmd.AddCommand(dbMigrateCmd)
	DbCmd.AddCommand(dbStatsCmd)
	dbStatsCmd.Flags().IntVar(&statsDaysFlag, "days", 7, "Number of recent daily summaries to show")
}

func runDbMigrate(cmd *cobra.Command, args []string) error {
	database, err := openDatabase("")
	if err != nil {
		return err
	}
	defer database.Close()

	fmt.Println("Migrations applied")
	return nil
}

func runDbStats(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	database, err := openDatabase("")
	if err != nil {
		return err
	}
	defer database.Close()

	exec := db.NewExecutor(database, logger.Logger)
	stats, err := reconcile.CollectStats(cmd.Context(), exec)
	if err != nil {
		return err
	}

	fmt.Printf("Seamline Database Statistics\n")
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n\n")
	fmt.Printf("Database Path:    %s\n", cfg.Database.Path)
	fmt.Printf("Combined Records: %d\n", stats.TotalRecords)
	fmt.Printf("Unique Triggers:  %d\n", stats.UniqueTriggers)
	fmt.Printf("Unique Codes:     %d\n", stats.UniqueCodes)
	if stats.FirstTrigger != "" {
		fmt.Printf("First Trigger:    %s\n", stats.FirstTrigger)
		fmt.Printf("Last Trigger:     %s\n", stats.LastTrigger)
	}
	fmt.Println()

	return printDailySummaries(cmd.Context(), database)
}

func printDailySummaries(ctx context.Context, database *sql.DB) error {
	rows, err := database.QueryContext(ctx, `
		SELECT day, total_cycles, completed_cycles, efficiency_pct, avg_cycle_minutes
		FROM daily_summaries
		ORDER BY day DESC
		LIMIT ?`, statsDaysFlag)
	if err != nil {
		return fmt.Errorf("failed to query daily summaries: %w", err)
	}
	defer rows.Close()

	fmt.Printf("Recent Daily Summaries (last %d):\n", statsDaysFlag)
	fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")

	var hasRows bool
	for rows.Next() {
		hasRows = true
		var (
			day                 string
			cycles, completed   int
			efficiency, avgMins float64
		)
		if err := rows.Scan(&day, &cycles, &completed, &efficiency, &avgMins); err != nil {
			return fmt.Errorf("failed to scan daily summary: %w", err)
		}
		fmt.Printf("  %s  cycles=%-4d completed=%-4d efficiency=%5.1f%%  avg=%.1fm\n",
			day, cycles, completed, efficiency, avgMins)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate daily summaries: %w", err)
	}
	if !hasRows {
		fmt.Println("  No daily summaries computed yet")
	}
	return nil
}
