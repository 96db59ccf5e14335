// Package reconcile implements the seamline reconciliation engine: it joins
// conveyor trigger events, barcode scan events and seamer controller status
// samples into per-cycle combined records, advancing a durable cursor so each
// trigger is processed exactly once across restarts.
package reconcile

import (
	"database/sql"
	"time"

	"github.com/seamline/seamline/errors"
)

// Timestamp layouts accepted throughout the engine. The collectors write
// full-second timestamps; some historical rows carry a fractional part.
const (
	layoutSeconds  = "2006-01-02 15:04:05"
	layoutFraction = "2006-01-02 15:04:05.999999"
)

// ParseTimestamp parses a stored timestamp, trying the full-seconds layout
// first and the fractional layout second.
func ParseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(layoutSeconds, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(layoutFraction, s)
	if err != nil {
		return time.Time{}, errors.Newf("unparseable timestamp %q", s)
	}
	return t, nil
}

// FormatTimestamp renders a timestamp in the canonical stored layout.
func FormatTimestamp(t time.Time) string {
	return t.Format(layoutSeconds)
}

// TriggerEvent is a physical conveyor trigger marking the start of a seaming
// cycle's observation window.
type TriggerEvent struct {
	At time.Time
}

// CodeEvent is a barcode scan reading correlated to a trigger.
type CodeEvent struct {
	At          time.Time
	ProductCode string
	OperatorID  string
	WorkOrder   string
}

// EquipmentSample is one raw seamer controller reading. StatusBits is kept as
// the raw stored text so malformed controller values decode to a sentinel
// instead of being dropped.
type EquipmentSample struct {
	At         time.Time
	StatusBits sql.NullString
}

// CombinedRecord is the persisted join of one trigger+scan pairing with one
// equipment sample, carrying the decoded phase information.
type CombinedRecord struct {
	ScanTS       time.Time
	SampleTS     time.Time
	TriggerTS    time.Time
	StatusBits   sql.NullString
	CurrentPhase string
	PhaseHistory string
	ProductCode  string
	Description  string
	OperatorID   string
	WorkOrder    string
}
