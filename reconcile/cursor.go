package reconcile

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/seamline/seamline/db"
	"github.com/seamline/seamline/errors"
)

// CursorStore manages the durable reconciliation cursor: the timestamp of the
// last trigger whose cycle was fully reconciled. The in-memory cached value is
// only mutated through Update, which persists first, so memory never runs
// ahead of the durable row. Single writer: only the driver touches this.
type CursorStore struct {
	exec   *db.Executor
	log    *zap.SugaredLogger
	last   time.Time
	loaded bool
}

// NewCursorStore creates the store and reads the persisted cursor once.
// A stored value that parses under neither accepted timestamp layout returns
// errors.ErrMalformedCursor; callers must treat that as fatal rather than
// defaulting, since proceeding risks mis-ordered reconciliation.
func NewCursorStore(ctx context.Context, exec *db.Executor, log *zap.SugaredLogger) (*CursorStore, error) {
	s := &CursorStore{exec: exec, log: log}

	var stored string
	err := exec.QueryRow(ctx,
		"SELECT last_processed_time FROM reconcile_state WHERE id = 1",
	).Scan(&stored)
	switch {
	case err == sql.ErrNoRows:
		return s, nil
	case err != nil:
		return nil, errors.Wrap(err, "read reconcile_state")
	}

	t, perr := ParseTimestamp(stored)
	if perr != nil {
		return nil, errors.Wrapf(errors.ErrMalformedCursor, "stored value %q", stored)
	}

	s.last = t
	s.loaded = true
	log.Infow("Reconciliation cursor loaded", "last_processed_time", FormatTimestamp(t))
	return s, nil
}

// Get returns the cached cursor value. ok is false when no cursor is set.
func (s *CursorStore) Get() (time.Time, bool) {
	return s.last, s.loaded
}

// ReinitializeFromData derives the cursor from the combined-record store.
//
// When a cursor is held but sits ahead of the newest trigger-derived
// timestamp in the data (for example after a rollback of raw tables), the
// cursor is corrected backward to that value. When no cursor is held, it is
// initialized from the newest trigger-derived timestamp, falling back to the
// newest scan-derived timestamp. When the store is empty the cursor stays
// unset.
func (s *CursorStore) ReinitializeFromData(ctx context.Context) (time.Time, bool, error) {
	maxTrigger, haveTrigger, err := s.maxCombined(ctx, "trigger_ts")
	if err != nil {
		return time.Time{}, false, err
	}

	if s.loaded {
		if haveTrigger && s.last.After(maxTrigger) {
			s.log.Warnw("Inconsistent cursor ahead of combined data, resetting",
				"cursor", FormatTimestamp(s.last),
				"last_trigger", FormatTimestamp(maxTrigger))
			if err := s.Persist(ctx, maxTrigger); err != nil {
				return time.Time{}, false, err
			}
			s.last = maxTrigger
		}
		return s.last, true, nil
	}

	if haveTrigger {
		s.log.Infow("Initializing cursor from last trigger-derived record",
			"last_trigger", FormatTimestamp(maxTrigger))
		if err := s.Persist(ctx, maxTrigger); err != nil {
			return time.Time{}, false, err
		}
		s.last = maxTrigger
		s.loaded = true
		return maxTrigger, true, nil
	}

	maxScan, haveScan, err := s.maxCombined(ctx, "scan_ts")
	if err != nil {
		return time.Time{}, false, err
	}
	if haveScan {
		s.log.Infow("Initializing cursor from last scan-derived record",
			"last_scan", FormatTimestamp(maxScan))
		if err := s.Persist(ctx, maxScan); err != nil {
			return time.Time{}, false, err
		}
		s.last = maxScan
		s.loaded = true
		return maxScan, true, nil
	}

	s.log.Infow("No existing combined data, cursor stays unset")
	return time.Time{}, false, nil
}

// Persist upserts the singleton cursor row. Failure is returned, not
// panicked, so callers can decide not to advance in-memory state.
func (s *CursorStore) Persist(ctx context.Context, ts time.Time) error {
	err := s.exec.Update(ctx, `
		INSERT INTO reconcile_state (id, last_processed_time, updated_at)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			last_processed_time = excluded.last_processed_time,
			updated_at = excluded.updated_at`,
		FormatTimestamp(ts),
		FormatTimestamp(time.Now()),
	)
	if err != nil {
		return errors.Wrap(err, "persist cursor")
	}
	return nil
}

// Update persists the cursor and, only on success, updates the cached value.
func (s *CursorStore) Update(ctx context.Context, ts time.Time) error {
	if err := s.Persist(ctx, ts); err != nil {
		return err
	}
	s.last = ts
	s.loaded = true
	s.log.Debugw("Cursor advanced", "last_processed_time", FormatTimestamp(ts))
	return nil
}

func (s *CursorStore) maxCombined(ctx context.Context, column string) (time.Time, bool, error) {
	// column is one of the fixed timestamp column names, never user input
	var stored sql.NullString
	err := s.exec.QueryRow(ctx,
		"SELECT MAX("+column+") FROM combined_records WHERE "+column+" IS NOT NULL",
	).Scan(&stored)
	if err != nil && err != sql.ErrNoRows {
		return time.Time{}, false, errors.Wrapf(err, "max %s from combined_records", column)
	}
	if !stored.Valid {
		return time.Time{}, false, nil
	}
	t, perr := ParseTimestamp(stored.String)
	if perr != nil {
		return time.Time{}, false, errors.Wrapf(perr, "parse max %s", column)
	}
	return t, true, nil
}
