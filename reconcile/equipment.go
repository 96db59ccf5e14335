package reconcile

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/seamline/seamline/db"
	"github.com/seamline/seamline/errors"
)

// SampleFetcher retrieves seamer controller samples for a cycle window.
type SampleFetcher struct {
	exec *db.Executor
	log  *zap.SugaredLogger
}

// NewSampleFetcher creates a fetcher over the seamer_samples table.
func NewSampleFetcher(exec *db.Executor, log *zap.SugaredLogger) *SampleFetcher {
	return &SampleFetcher{exec: exec, log: log}
}

// SamplesBetween returns all samples with timestamp in the half-open window
// (start, end], ordered ascending with insertion order breaking ties.
func (f *SampleFetcher) SamplesBetween(ctx context.Context, start, end time.Time) ([]EquipmentSample, error) {
	rows, err := f.exec.Query(ctx, `
		SELECT sampled_at, status_bits
		FROM seamer_samples
		WHERE sampled_at > ? AND sampled_at <= ?
		ORDER BY sampled_at ASC, id ASC`,
		FormatTimestamp(start),
		FormatTimestamp(end),
	)
	if err != nil {
		return nil, errors.Wrap(err, "fetch seamer samples")
	}
	defer rows.Close()

	var samples []EquipmentSample
	for rows.Next() {
		var s EquipmentSample
		var sampledAt string
		if err := rows.Scan(&sampledAt, &s.StatusBits); err != nil {
			return nil, errors.Wrap(err, "scan seamer sample")
		}
		at, perr := ParseTimestamp(sampledAt)
		if perr != nil {
			return nil, errors.Wrapf(perr, "sampled_at %q", sampledAt)
		}
		s.At = at
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate seamer samples")
	}
	return samples, nil
}
