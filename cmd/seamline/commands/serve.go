package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/seamline/seamline/analytics"
	"github.com/seamline/seamline/config"
	"github.com/seamline/seamline/db"
	"github.com/seamline/seamline/errors"
	"github.com/seamline/seamline/logger"
	"github.com/seamline/seamline/notify"
	"github.com/seamline/seamline/reconcile"
)

// ServeCmd runs the reconciliation service in the foreground.
var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reconciliation service",
	Long: `Run the reconciliation service in foreground mode.

The service will:
- Derive the processing cursor from existing combined records
- Join conveyor triggers, scan codes and seamer samples each cycle
- Maintain daily analytics rollups after each cycle
- Run until interrupted (Ctrl+C), finishing the in-flight cycle first

Between cycles the service either sleeps toward a fixed poll interval or
blocks on the scan broadcaster channel, depending on configuration.`,
	RunE: runServe,
}

var noAnalyticsFlag bool

func init() {
	ServeCmd.Flags().BoolVar(&noAnalyticsFlag, "no-analytics", false,
		"Disable the per-cycle analytics processors")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}

	database, err := openDatabase(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer database.Close()

	exec := db.NewExecutor(database, logger.Logger)

	cursor, err := reconcile.NewCursorStore(cmd.Context(), exec, logger.Logger)
	if err != nil {
		return err
	}

	terminal := cfg.Reconcile.TerminalPhases
	driver := reconcile.NewDriver(
		exec,
		cursor,
		reconcile.NewCodeMatcher(exec, logger.Logger),
		reconcile.NewSampleFetcher(exec, logger.Logger),
		reconcile.NewCycleValidator(exec, logger.Logger, terminal),
		reconcile.NewRecordWriter(exec, logger.Logger),
		reconcile.NewCatalog(exec, logger.Logger),
		reconcile.DriverConfig{
			Overlap:        cfg.Reconcile.Overlap(),
			DefaultHorizon: cfg.Reconcile.DefaultHorizon(),
			MaxCodeWait:    cfg.Reconcile.MaxCodeWait(),
			WarnCacheSize:  cfg.Reconcile.WarnCacheSize,
		},
		logger.Logger,
	)

	var waiter reconcile.Waiter
	if cfg.Notify.Enabled {
		channelWaiter := notify.NewChannelWaiter(cfg.Notify.URL, cfg.Notify.Channel,
			cfg.Notify.ReadTimeout(), logger.Logger)
		defer channelWaiter.Close()
		waiter = channelWaiter
		logger.Infow("Waiting on scan channel between cycles",
			"url", cfg.Notify.URL, "channel", cfg.Notify.Channel)
	} else {
		waiter = notify.NewIntervalWaiter(cfg.Reconcile.PollInterval(), cfg.Reconcile.MinWait())
		logger.Infow("Polling on fixed interval between cycles",
			"interval", cfg.Reconcile.PollInterval())
	}

	var hooks []reconcile.CycleHook
	if !noAnalyticsFlag {
		terminalPhase := reconcile.TerminalPhase
		if len(terminal) > 0 {
			terminalPhase = terminal[0]
		}
		hooks = []reconcile.CycleHook{
			analytics.NewDailyProcessor(exec, logger.Logger, terminalPhase),
			analytics.NewOperatorProcessor(exec, logger.Logger, terminalPhase),
			analytics.NewProductProcessor(exec, logger.Logger, terminalPhase),
			analytics.NewProcessProcessor(exec, logger.Logger),
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Println("Seamline reconciliation service starting, Ctrl+C to stop")

	runner := reconcile.NewRunner(driver, exec, waiter, hooks, logger.Logger)
	return runner.Run(ctx)
}
