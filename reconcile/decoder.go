package reconcile

import (
	"database/sql"
	"strconv"
	"strings"
)

// Decoder sentinels. Stored verbatim in combined records so downstream
// consumers can distinguish "controller reported nothing" from "controller
// reported garbage".
const (
	StatusNone    = "no_status"
	StatusInvalid = "invalid_value"
	HistoryNone   = "no_states"
)

// phaseNames maps status bit positions 1..6 to seaming phases. Index 0 is bit
// position 1. Bit order is chronological phase order by line convention.
var phaseNames = [6]string{
	"start_phase_1",
	"start_phase_2",
	"start_phase_3",
	"start_phase_4",
	"start_phase_5",
	"start_phase_6",
}

// TerminalPhase is the canonical phase marking a completed seaming cycle:
// the last bit the controller sets.
const TerminalPhase = "start_phase_6"

// phaseMask restricts decoding to bit positions 1..6; higher bits are line
// diagnostics and never name a phase.
const phaseMask = 0x3f

func init() {
	for i, name := range phaseNames {
		if name == "" {
			panic("reconcile: phase table entry " + strconv.Itoa(i+1) + " is empty")
		}
	}
}

// DecodeCurrent returns the phase of the highest set bit among positions 1..6,
// or StatusNone when none are set.
func DecodeCurrent(bits int64) string {
	masked := bits & phaseMask
	for pos := 6; pos >= 1; pos-- {
		if masked&(1<<(pos-1)) != 0 {
			return phaseNames[pos-1]
		}
	}
	return StatusNone
}

// DecodeHistory returns the phases of all set bits in ascending bit order,
// which is chronological phase order. Empty when no phase bits are set.
func DecodeHistory(bits int64) []string {
	masked := bits & phaseMask
	var phases []string
	for pos := 1; pos <= 6; pos++ {
		if masked&(1<<(pos-1)) != 0 {
			phases = append(phases, phaseNames[pos-1])
		}
	}
	return phases
}

// CurrentStatus decodes a raw stored status value to the current phase.
// Null or zero decodes to StatusNone; unparseable values to StatusInvalid.
func CurrentStatus(raw sql.NullString) string {
	bits, ok, valid := parseBits(raw)
	switch {
	case !ok:
		return StatusNone
	case !valid:
		return StatusInvalid
	}
	return DecodeCurrent(bits)
}

// StatusHistory decodes a raw stored status value to the space-separated phase
// history. Null or zero decodes to HistoryNone; unparseable values to
// StatusInvalid.
func StatusHistory(raw sql.NullString) string {
	bits, ok, valid := parseBits(raw)
	switch {
	case !ok:
		return HistoryNone
	case !valid:
		return StatusInvalid
	}
	phases := DecodeHistory(bits)
	if len(phases) == 0 {
		return HistoryNone
	}
	return strings.Join(phases, " ")
}

// parseBits normalizes a raw status value. ok is false for null/empty input,
// valid is false when the value is not an integer.
func parseBits(raw sql.NullString) (bits int64, ok bool, valid bool) {
	if !raw.Valid {
		return 0, false, true
	}
	s := strings.TrimSpace(raw.String)
	if s == "" {
		return 0, false, true
	}
	bits, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, true, false
	}
	if bits == 0 {
		return 0, false, true
	}
	return bits, true, true
}
