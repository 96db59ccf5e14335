package config

import "github.com/spf13/viper"

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	// Database defaults
	v.SetDefault("database.path", "seamline.db")

	// Reconciliation defaults
	v.SetDefault("reconcile.poll_interval_seconds", 120)
	v.SetDefault("reconcile.min_wait_seconds", 5)
	v.SetDefault("reconcile.overlap_minutes", 5)        // absorbs late-arriving triggers near the cursor
	v.SetDefault("reconcile.default_horizon_minutes", 10)
	v.SetDefault("reconcile.max_code_wait_minutes", 0)  // 0 = retry unmatched triggers forever
	v.SetDefault("reconcile.warn_cache_size", 1024)
	v.SetDefault("reconcile.terminal_phases", []string{"start_phase_6"})

	// Notification channel defaults (disabled: fixed-interval polling)
	v.SetDefault("notify.enabled", false)
	v.SetDefault("notify.url", "ws://localhost:8765/events")
	v.SetDefault("notify.channel", "seamer:1:scan")
	v.SetDefault("notify.read_timeout_seconds", 30)

	// Logging defaults
	v.SetDefault("log.json", false)
}

// BindSensitiveEnvVars explicitly binds sensitive configuration to environment variables
func BindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("notify.url", "SEAMLINE_NOTIFY_URL")
	v.BindEnv("database.path", "SEAMLINE_DATABASE_PATH")
}
