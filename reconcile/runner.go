package reconcile

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/seamline/seamline/db"
)

// Waiter suspends the runner between poll cycles: either a fixed-interval
// sleeper or a blocking receive on an external scan-event channel. Chosen
// once at startup, never mixed. Wait must return promptly when ctx is
// cancelled.
type Waiter interface {
	Wait(ctx context.Context, elapsed time.Duration) error
}

// CycleHook is work run once per poll cycle after reconciliation, such as the
// analytics processors. Hook errors are logged and never affect the cursor.
type CycleHook interface {
	Name() string
	RunForDate(ctx context.Context, day time.Time) error
}

// waitFailurePause floors the inter-cycle gap when the waiter itself fails,
// such as an unreachable scan broadcaster. Without it a persistent waiter
// failure would spin the loop against the database.
const waitFailurePause = 5 * time.Second

// Runner owns the continuous reconciliation loop: initialization from
// existing data, per-cycle driving, cycle hooks, periodic statistics, and the
// inter-cycle suspension. Cancellation is observed only at cycle boundaries;
// an in-flight cycle always reaches a consistent stopping point.
type Runner struct {
	driver *Driver
	exec   *db.Executor
	waiter Waiter
	hooks  []CycleHook
	log    *zap.SugaredLogger

	cycleCount int64
	failPause  time.Duration
	now        func() time.Time
}

// NewRunner wires a runner.
func NewRunner(driver *Driver, exec *db.Executor, waiter Waiter, hooks []CycleHook, log *zap.SugaredLogger) *Runner {
	return &Runner{
		driver:    driver,
		exec:      exec,
		waiter:    waiter,
		hooks:     hooks,
		log:       log,
		failPause: waitFailurePause,
		now:       time.Now,
	}
}

// Run executes the main loop until ctx is cancelled. It returns the first
// initialization error; cycle-level errors are logged and the loop continues.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.initialize(ctx); err != nil {
		return err
	}

	for {
		if ctx.Err() != nil {
			r.shutdown(ctx)
			return nil
		}

		start := r.now()
		r.cycleCount++
		r.log.Infow("Starting cycle", "cycle", r.cycleCount)

		if err := r.driver.RunCycle(ctx); err != nil {
			if ctx.Err() != nil {
				r.shutdown(ctx)
				return nil
			}
			r.log.Errorw("Cycle completed with errors, continuing",
				"cycle", r.cycleCount, "error", err)
		}

		r.runHooks(ctx)

		if r.cycleCount%10 == 0 {
			r.logStats(ctx, "Cycle statistics")
		}

		elapsed := r.now().Sub(start)
		r.log.Infow("Cycle completed",
			"cycle", r.cycleCount,
			"duration", elapsed.Round(10*time.Millisecond))

		if err := r.waiter.Wait(ctx, elapsed); err != nil {
			if ctx.Err() != nil {
				r.shutdown(ctx)
				return nil
			}
			r.log.Warnw("Inter-cycle wait failed, pausing before next cycle",
				"pause", r.failPause, "error", err)
			r.pause(ctx)
		}
	}
}

// pause sleeps the failure floor, returning early on cancellation.
func (r *Runner) pause(ctx context.Context) {
	timer := time.NewTimer(r.failPause)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// initialize logs initial statistics and derives the cursor from existing
// data, correcting it when inconsistent.
func (r *Runner) initialize(ctx context.Context) error {
	r.logStats(ctx, "Initial statistics")

	cursor, ok, err := r.driver.Cursor().ReinitializeFromData(ctx)
	if err != nil {
		return err
	}
	if ok {
		r.log.Infow("Reconciliation starting", "last_processed_time", FormatTimestamp(cursor))
	} else {
		r.log.Infow("Reconciliation starting with no prior state")
	}
	return nil
}

// runHooks executes all cycle hooks for the current date.
func (r *Runner) runHooks(ctx context.Context) {
	if len(r.hooks) == 0 {
		return
	}
	day := r.now()
	for _, hook := range r.hooks {
		if err := hook.RunForDate(ctx, day); err != nil {
			r.log.Errorw("Cycle hook failed",
				"hook", hook.Name(), "error", err)
		}
	}
}

func (r *Runner) shutdown(ctx context.Context) {
	r.log.Infow("Stopping after completed cycle", "cycles", r.cycleCount)
	// Use a fresh context: the run context is already cancelled.
	statsCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r.logStats(statsCtx, "Final statistics")
}

func (r *Runner) logStats(ctx context.Context, msg string) {
	stats, err := CollectStats(ctx, r.exec)
	if err != nil {
		r.log.Warnw("Could not collect statistics", "error", err)
		return
	}
	r.log.Infow(msg,
		"total_records", stats.TotalRecords,
		"unique_triggers", stats.UniqueTriggers,
		"unique_codes", stats.UniqueCodes,
		"first_trigger", stats.FirstTrigger,
		"last_trigger", stats.LastTrigger,
	)
}
