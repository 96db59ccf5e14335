package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/seamline/seamline/config"
)

// ConfigCmd groups configuration inspection.
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the effective configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the effective configuration after merging defaults, the user
config, the project seamline.toml and SEAMLINE_* environment variables.`,
	RunE: runConfigShow,
}

func init() {
	ConfigCmd.AddCommand(configShowCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	fmt.Println("[database]")
	fmt.Printf("path = %q\n\n", cfg.Database.Path)

	fmt.Println("[reconcile]")
	fmt.Printf("poll_interval_seconds = %d\n", cfg.Reconcile.PollIntervalSeconds)
	fmt.Printf("min_wait_seconds = %d\n", cfg.Reconcile.MinWaitSeconds)
	fmt.Printf("overlap_minutes = %d\n", cfg.Reconcile.OverlapMinutes)
	fmt.Printf("default_horizon_minutes = %d\n", cfg.Reconcile.DefaultHorizonMinutes)
	fmt.Printf("max_code_wait_minutes = %d\n", cfg.Reconcile.MaxCodeWaitMinutes)
	fmt.Printf("warn_cache_size = %d\n", cfg.Reconcile.WarnCacheSize)
	fmt.Printf("terminal_phases = [%s]\n\n", quoteList(cfg.Reconcile.TerminalPhases))

	fmt.Println("[notify]")
	fmt.Printf("enabled = %t\n", cfg.Notify.Enabled)
	fmt.Printf("url = %q\n", cfg.Notify.URL)
	fmt.Printf("channel = %q\n", cfg.Notify.Channel)
	fmt.Printf("read_timeout_seconds = %d\n\n", cfg.Notify.ReadTimeoutSeconds)

	fmt.Println("[log]")
	fmt.Printf("json = %t\n", cfg.Log.JSON)

	return nil
}

func quoteList(items []string) string {
	quoted := make([]string, 0, len(items))
	for _, item := range items {
		quoted = append(quoted, fmt.Sprintf("%q", item))
	}
	return strings.Join(quoted, ", ")
}
