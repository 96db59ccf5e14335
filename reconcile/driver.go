package reconcile

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/seamline/seamline/db"
	"github.com/seamline/seamline/errors"
)

// Collaborator contracts consumed by the driver. Concrete implementations
// live in this package; tests substitute them to inject failures.
type codeMatcher interface {
	Match(ctx context.Context, after, until time.Time) (*CodeEvent, error)
}

type sampleSource interface {
	SamplesBetween(ctx context.Context, start, end time.Time) ([]EquipmentSample, error)
}

type cycleChecker interface {
	Complete(ctx context.Context, triggerTS time.Time, nextTriggerTS *time.Time) bool
}

type recordSink interface {
	WriteBatch(ctx context.Context, records []CombinedRecord) error
}

type descriptionSource interface {
	Description(ctx context.Context, productCode string) string
}

// DriverConfig tunes the reconciliation driver.
type DriverConfig struct {
	// Overlap is subtracted from the cursor when fetching triggers, to absorb
	// rows written slightly out of order relative to wall-clock polling.
	// Fetched triggers strictly before the cursor are still discarded.
	Overlap time.Duration

	// DefaultHorizon bounds the window of the newest trigger, which has no
	// next trigger to bound it.
	DefaultHorizon time.Duration

	// MaxCodeWait bounds how long a trigger with no matching scan code can
	// block cursor advancement. Zero retries forever.
	MaxCodeWait time.Duration

	// WarnCacheSize caps the no-code warning de-duplication cache.
	WarnCacheSize int
}

// DefaultDriverConfig returns the line's production settings.
func DefaultDriverConfig() DriverConfig {
	return DriverConfig{
		Overlap:        5 * time.Minute,
		DefaultHorizon: 10 * time.Minute,
		MaxCodeWait:    0,
		WarnCacheSize:  1024,
	}
}

// Driver orchestrates one reconciliation pass per poll cycle: trigger
// retrieval with overlap, per-trigger code matching, sample fetching,
// decoding, combined-record persistence, and cursor advancement gated on
// write success.
//
// Triggers are processed strictly in ascending timestamp order and never in
// parallel: the previous-cycle check for trigger i depends on trigger i-1's
// data, and each trigger's window end is the next trigger's start.
type Driver struct {
	exec      *db.Executor
	cursor    *CursorStore
	matcher   codeMatcher
	samples   sampleSource
	validator cycleChecker
	writer    recordSink
	catalog   descriptionSource
	cfg       DriverConfig
	log       *zap.SugaredLogger

	// warnedNoCode de-duplicates "no code found" warnings per trigger
	// timestamp, per driver instance. Values record the cycle that last
	// warned so the oldest entries can be evicted at the cap.
	warnedNoCode map[string]int64
	cycleCount   int64

	now func() time.Time
}

// NewDriver wires a driver from its collaborators.
func NewDriver(
	exec *db.Executor,
	cursor *CursorStore,
	matcher codeMatcher,
	samples sampleSource,
	validator cycleChecker,
	writer recordSink,
	catalog descriptionSource,
	cfg DriverConfig,
	log *zap.SugaredLogger,
) *Driver {
	if cfg.Overlap <= 0 {
		cfg.Overlap = 5 * time.Minute
	}
	if cfg.DefaultHorizon <= 0 {
		cfg.DefaultHorizon = 10 * time.Minute
	}
	if cfg.WarnCacheSize <= 0 {
		cfg.WarnCacheSize = 1024
	}
	return &Driver{
		exec:         exec,
		cursor:       cursor,
		matcher:      matcher,
		samples:      samples,
		validator:    validator,
		writer:       writer,
		catalog:      catalog,
		cfg:          cfg,
		log:          log,
		warnedNoCode: make(map[string]int64),
		now:          time.Now,
	}
}

// Cursor exposes the driver's cursor store.
func (d *Driver) Cursor() *CursorStore {
	return d.cursor
}

// RunCycle executes one full reconciliation pass. Per-trigger failures are
// absorbed: the affected trigger keeps the cursor behind it and is retried on
// a later cycle. Only context cancellation stops the pass early; a trigger is
// never left half-processed because the cancellation check sits between
// triggers. This is deliberately finer-grained than the runner's
// cycle-boundary shutdown: an already-cancelled run gets to stop without
// draining a long trigger backlog, and every trigger still either advanced
// the cursor or is retried in full, so the early exit never costs
// consistency.
func (d *Driver) RunCycle(ctx context.Context) error {
	d.cycleCount++

	triggers, err := d.fetchNewTriggers(ctx)
	if err != nil {
		return err
	}
	if len(triggers) == 0 {
		d.log.Debugw("No new triggers to process", "cycle", d.cycleCount)
		return nil
	}

	d.log.Infow("Processing triggers", "count", len(triggers), "cycle", d.cycleCount)

	for i := range triggers {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		d.processTrigger(ctx, triggers, i)
	}
	return nil
}

// fetchNewTriggers retrieves ordered trigger events for this cycle. With no
// cursor the window is the start of the current day onward; otherwise it
// starts Overlap before the cursor, and fetched rows strictly before the
// cursor are discarded after precise comparison.
func (d *Driver) fetchNewTriggers(ctx context.Context) ([]TriggerEvent, error) {
	cursor, haveCursor := d.cursor.Get()

	var since time.Time
	if haveCursor {
		since = cursor.Add(-d.cfg.Overlap)
		d.log.Debugw("Searching for triggers after overlap window start",
			"since", FormatTimestamp(since))
	} else {
		now := d.now()
		since = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		d.log.Infow("No cursor set, searching for triggers from start of day",
			"since", FormatTimestamp(since))
	}

	rows, err := d.exec.Query(ctx, `
		SELECT triggered_at
		FROM conveyor_triggers
		WHERE triggered_at >= ?
		ORDER BY triggered_at ASC, id ASC`,
		FormatTimestamp(since),
	)
	if err != nil {
		return nil, errors.Wrap(err, "fetch conveyor triggers")
	}
	defer rows.Close()

	var (
		fetched  int
		triggers []TriggerEvent
	)
	for rows.Next() {
		var triggeredAt string
		if err := rows.Scan(&triggeredAt); err != nil {
			return nil, errors.Wrap(err, "scan conveyor trigger")
		}
		at, perr := ParseTimestamp(triggeredAt)
		if perr != nil {
			return nil, errors.Wrapf(perr, "triggered_at %q", triggeredAt)
		}
		fetched++
		if haveCursor && at.Before(cursor) {
			continue
		}
		triggers = append(triggers, TriggerEvent{At: at})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate conveyor triggers")
	}

	d.log.Debugw("Triggers fetched",
		"raw", fetched,
		"after_cursor_filter", len(triggers))
	return triggers, nil
}

// processTrigger handles one trigger event. Every exit either advances the
// cursor past the trigger or leaves it untouched for retry; there is no third
// state.
func (d *Driver) processTrigger(ctx context.Context, all []TriggerEvent, i int) {
	trigger := all[i]
	triggerKey := FormatTimestamp(trigger.At)

	// Check the previous cycle's completeness. Non-fatal: an incomplete
	// cycle is an observability signal, not a processing gate.
	if i > 0 {
		prev := all[i-1]
		if !d.validator.Complete(ctx, prev.At, &trigger.At) {
			d.log.Warnw("Previous cycle incomplete, continuing",
				"previous_trigger", FormatTimestamp(prev.At),
				"trigger", triggerKey)
		}
	}

	// Window end: the next trigger, or the default horizon for the newest.
	var windowEnd time.Time
	if i < len(all)-1 {
		windowEnd = all[i+1].At
	} else {
		windowEnd = trigger.At.Add(d.cfg.DefaultHorizon)
	}

	code, err := d.matcher.Match(ctx, trigger.At, windowEnd)
	if errors.IsNoCodeMatch(err) {
		d.handleNoCode(ctx, trigger, windowEnd, triggerKey)
		return
	}
	if err != nil {
		d.log.Errorw("Scan code lookup failed, will retry",
			"trigger", triggerKey, "error", err)
		return
	}
	// A code arrived after earlier warnings; clear the de-dup entry.
	delete(d.warnedNoCode, triggerKey)

	samples, err := d.samples.SamplesBetween(ctx, trigger.At, windowEnd)
	if err != nil {
		d.log.Errorw("Sample retrieval failed, will retry",
			"trigger", triggerKey, "error", err)
		return
	}

	if len(samples) > 0 {
		records := d.buildRecords(ctx, trigger, code, samples)
		if err := d.writer.WriteBatch(ctx, records); err != nil {
			d.log.Errorw("Failed saving combined records, cursor not advanced",
				"trigger", triggerKey, "error", err)
			return
		}
	} else {
		d.log.Infow("No samples in cycle window, nothing to persist",
			"trigger", triggerKey)
	}

	if err := d.cursor.Update(ctx, trigger.At); err != nil {
		d.log.Errorw("Cursor advancement failed, trigger will be reprocessed",
			"trigger", triggerKey, "error", err)
	}
}

// handleNoCode logs an unmatched trigger once per distinct timestamp and, if
// a wait bound is configured and exceeded with the window closed, advances
// past the trigger and flags it permanently unmatched.
func (d *Driver) handleNoCode(ctx context.Context, trigger TriggerEvent, windowEnd time.Time, triggerKey string) {
	if _, warned := d.warnedNoCode[triggerKey]; !warned {
		d.log.Warnw("No scan code found for trigger, skipping without cursor advance",
			"trigger", triggerKey)
		d.rememberWarned(triggerKey)
	}

	if d.cfg.MaxCodeWait <= 0 {
		return
	}
	now := d.now()
	if now.Sub(trigger.At) > d.cfg.MaxCodeWait && now.After(windowEnd) {
		d.log.Errorw("Trigger permanently unmatched, advancing cursor past it",
			"trigger", triggerKey,
			"waited", now.Sub(trigger.At).Round(time.Second))
		delete(d.warnedNoCode, triggerKey)
		if err := d.cursor.Update(ctx, trigger.At); err != nil {
			d.log.Errorw("Cursor advancement failed for unmatched trigger",
				"trigger", triggerKey, "error", err)
		}
	}
}

// rememberWarned records a warned trigger, evicting the oldest entries when
// the cache exceeds its cap.
func (d *Driver) rememberWarned(triggerKey string) {
	d.warnedNoCode[triggerKey] = d.cycleCount
	for len(d.warnedNoCode) > d.cfg.WarnCacheSize {
		oldestKey := ""
		oldestCycle := int64(1<<63 - 1)
		for k, c := range d.warnedNoCode {
			if c < oldestCycle {
				oldestKey, oldestCycle = k, c
			}
		}
		delete(d.warnedNoCode, oldestKey)
	}
}

// buildRecords decodes each sample and joins it with the trigger and its
// matched scan code.
func (d *Driver) buildRecords(ctx context.Context, trigger TriggerEvent, code *CodeEvent, samples []EquipmentSample) []CombinedRecord {
	description := d.catalog.Description(ctx, code.ProductCode)

	records := make([]CombinedRecord, 0, len(samples))
	for _, sample := range samples {
		records = append(records, CombinedRecord{
			ScanTS:       code.At,
			SampleTS:     sample.At,
			TriggerTS:    trigger.At,
			StatusBits:   sample.StatusBits,
			CurrentPhase: CurrentStatus(sample.StatusBits),
			PhaseHistory: StatusHistory(sample.StatusBits),
			ProductCode:  code.ProductCode,
			Description:  description,
			OperatorID:   code.OperatorID,
			WorkOrder:    code.WorkOrder,
		})
	}
	return records
}
