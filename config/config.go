package config

import "time"

// Config represents the seamline service configuration
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database"`
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
	Notify    NotifyConfig    `mapstructure:"notify"`
	Log       LogConfig       `mapstructure:"log"`
}

// DatabaseConfig configures the SQLite database
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ReconcileConfig configures the reconciliation driver
type ReconcileConfig struct {
	PollIntervalSeconds   int `mapstructure:"poll_interval_seconds"`   // target cycle period (default: 120)
	MinWaitSeconds        int `mapstructure:"min_wait_seconds"`        // floor on inter-cycle wait (default: 5)
	OverlapMinutes        int `mapstructure:"overlap_minutes"`         // backward fetch overlap from cursor (default: 5)
	DefaultHorizonMinutes int `mapstructure:"default_horizon_minutes"` // window length when no next trigger exists (default: 10)

	// MaxCodeWaitMinutes bounds how long a trigger with no matching scan code
	// can block cursor advancement. 0 retries forever, matching the line's
	// historical behavior.
	MaxCodeWaitMinutes int `mapstructure:"max_code_wait_minutes"`

	WarnCacheSize  int      `mapstructure:"warn_cache_size"` // entries in the no-code warning de-dup cache
	TerminalPhases []string `mapstructure:"terminal_phases"` // phases that mark a cycle complete
}

// NotifyConfig configures the optional scan-event channel used instead of
// fixed-interval sleeping between cycles. Selection is static at startup.
type NotifyConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	URL                string `mapstructure:"url"`     // websocket endpoint of the scan broadcaster
	Channel            string `mapstructure:"channel"` // channel name, e.g. "seamer:1:scan"
	ReadTimeoutSeconds int    `mapstructure:"read_timeout_seconds"`
}

// LogConfig configures logger output
type LogConfig struct {
	JSON bool `mapstructure:"json"`
}

// PollInterval returns the cycle period as a duration.
func (c ReconcileConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

// MinWait returns the inter-cycle wait floor as a duration.
func (c ReconcileConfig) MinWait() time.Duration {
	return time.Duration(c.MinWaitSeconds) * time.Second
}

// Overlap returns the backward fetch overlap as a duration.
func (c ReconcileConfig) Overlap() time.Duration {
	return time.Duration(c.OverlapMinutes) * time.Minute
}

// DefaultHorizon returns the tail-trigger window length as a duration.
func (c ReconcileConfig) DefaultHorizon() time.Duration {
	return time.Duration(c.DefaultHorizonMinutes) * time.Minute
}

// MaxCodeWait returns the unmatched-trigger bound, 0 meaning unbounded.
func (c ReconcileConfig) MaxCodeWait() time.Duration {
	return time.Duration(c.MaxCodeWaitMinutes) * time.Minute
}

// ReadTimeout returns the channel read deadline as a duration.
func (c NotifyConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}
