package reconcile

import (
	"database/sql"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawStatus(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

func TestDecodeCurrentIsHighestSetBit(t *testing.T) {
	for n := int64(0); n <= 63; n++ {
		want := StatusNone
		for pos := 6; pos >= 1; pos-- {
			if n&(1<<(pos-1)) != 0 {
				want = phaseNames[pos-1]
				break
			}
		}
		assert.Equal(t, want, DecodeCurrent(n), "n=%d", n)
	}
}

func TestDecodeHistoryIsAscendingSetBits(t *testing.T) {
	for n := int64(0); n <= 63; n++ {
		var want []string
		for pos := 1; pos <= 6; pos++ {
			if n&(1<<(pos-1)) != 0 {
				want = append(want, phaseNames[pos-1])
			}
		}
		assert.Equal(t, want, DecodeHistory(n), "n=%d", n)
	}
}

func TestDecodeIsDeterministic(t *testing.T) {
	for n := int64(0); n <= 63; n++ {
		assert.Equal(t, DecodeCurrent(n), DecodeCurrent(n))
		assert.Equal(t, DecodeHistory(n), DecodeHistory(n))
	}
}

func TestCurrentStatusSentinels(t *testing.T) {
	assert.Equal(t, StatusNone, CurrentStatus(sql.NullString{}))
	assert.Equal(t, StatusNone, CurrentStatus(rawStatus("0")))
	assert.Equal(t, StatusNone, CurrentStatus(rawStatus("")))
	assert.Equal(t, StatusInvalid, CurrentStatus(rawStatus("garbage")))
	assert.Equal(t, StatusInvalid, CurrentStatus(rawStatus("1.5")))
}

func TestStatusHistorySentinels(t *testing.T) {
	assert.Equal(t, HistoryNone, StatusHistory(sql.NullString{}))
	assert.Equal(t, HistoryNone, StatusHistory(rawStatus("0")))
	assert.Equal(t, StatusInvalid, StatusHistory(rawStatus("not-a-number")))
}

func TestBitsAbovePositionSixAreIgnored(t *testing.T) {
	// Bit 7 set, bits 1-6 clear
	assert.Equal(t, StatusNone, CurrentStatus(rawStatus("64")))
	assert.Equal(t, HistoryNone, StatusHistory(rawStatus("64")))

	// Bit 7 set alongside bit 1: only the low six bits decode
	assert.Equal(t, phaseNames[0], CurrentStatus(rawStatus("65")))
	assert.Equal(t, phaseNames[0], StatusHistory(rawStatus("65")))
}

func TestKnownValues(t *testing.T) {
	cases := []struct {
		bits    string
		current string
		history string
	}{
		{"1", "start_phase_1", "start_phase_1"},
		{"3", "start_phase_2", "start_phase_1 start_phase_2"},
		{"7", "start_phase_3", "start_phase_1 start_phase_2 start_phase_3"},
		{"32", "start_phase_6", "start_phase_6"},
		{"63", "start_phase_6", strings.Join(phaseNames[:], " ")},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("bits_%s", tc.bits), func(t *testing.T) {
			assert.Equal(t, tc.current, CurrentStatus(rawStatus(tc.bits)))
			assert.Equal(t, tc.history, StatusHistory(rawStatus(tc.bits)))
		})
	}
}

func TestTerminalPhaseIsMapped(t *testing.T) {
	require.Contains(t, phaseNames, TerminalPhase)
	assert.Equal(t, TerminalPhase, DecodeCurrent(63))
}
