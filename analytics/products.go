package analytics

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/seamline/seamline/db"
	"github.com/seamline/seamline/errors"
)

// ProductProcessor maintains the product_summaries table: per-product cycle
// and record counts with completion totals for one day.
type ProductProcessor struct {
	exec     *db.Executor
	log      *zap.SugaredLogger
	terminal string
}

// NewProductProcessor creates the product summary processor.
func NewProductProcessor(exec *db.Executor, log *zap.SugaredLogger, terminal string) *ProductProcessor {
	return &ProductProcessor{exec: exec, log: log, terminal: terminal}
}

// Name identifies the processor in runner logs.
func (p *ProductProcessor) Name() string { return "products" }

// RunForDate recomputes and upserts one row per product seen on the day.
func (p *ProductProcessor) RunForDate(ctx context.Context, day time.Time) error {
	date := dayKey(day)

	rows, err := p.exec.Query(ctx, `
		WITH cycles AS (
			SELECT
				trigger_ts,
				MIN(product_code) AS product_code,
				COUNT(*) AS records,
				`+completedExpr+` AS completed
			FROM combined_records
			WHERE trigger_ts IS NOT NULL AND DATE(trigger_ts) = ?
			GROUP BY trigger_ts
		)
		SELECT
			product_code,
			COUNT(*),
			COALESCE(SUM(records), 0),
			COALESCE(SUM(completed), 0)
		FROM cycles
		GROUP BY product_code`,
		p.terminal, p.terminal, date,
	)
	if err != nil {
		return errors.Wrapf(err, "product summaries for %s", date)
	}
	defer rows.Close()

	type productRow struct {
		code      string
		cycles    int
		records   int
		completed int
	}
	var summaries []productRow
	for rows.Next() {
		var r productRow
		if err := rows.Scan(&r.code, &r.cycles, &r.records, &r.completed); err != nil {
			return errors.Wrapf(err, "scan product summary for %s", date)
		}
		summaries = append(summaries, r)
	}
	if err := rows.Err(); err != nil {
		return errors.Wrapf(err, "iterate product summaries for %s", date)
	}

	if len(summaries) == 0 {
		p.log.Debugw("No products for day, skipping summaries", "day", date)
		return nil
	}

	stamp := nowStamp()
	for _, r := range summaries {
		err := p.exec.Update(ctx, `
			INSERT INTO product_summaries
				(day, product_code, cycles, records, completed_cycles, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(day, product_code) DO UPDATE SET
				cycles = excluded.cycles,
				records = excluded.records,
				completed_cycles = excluded.completed_cycles,
				updated_at = excluded.updated_at`,
			date, r.code, r.cycles, r.records, r.completed, stamp,
		)
		if err != nil {
			return errors.Wrapf(err, "save product summary for %s/%s", date, r.code)
		}
	}

	p.log.Infow("Product summaries saved", "day", date, "products", len(summaries))
	return nil
}
