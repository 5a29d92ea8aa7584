/**
 * @description
 * Display period resolution: maps a requested chart period to a lookback window
 * and an aggregation mode for the downsampling query engine.
 *
 * @notes
 * - Invalid or missing input defaults to 1D. Period is a display preference, so
 *   defaulting beats rejecting here.
 */

package period

import (
	"strings"
	"time"
)

// Mode is the bucketing strategy applied to points inside the lookback window.
type Mode int

const (
	ModeRaw Mode = iota
	ModeHourly
	ModeSixHour
	ModeDaily
)

// BucketWidth returns the fixed bucket width for aggregated modes, 0 for raw.
func (m Mode) BucketWidth() time.Duration {
	switch m {
	case ModeHourly:
		return time.Hour
	case ModeSixHour:
		return 6 * time.Hour
	case ModeDaily:
		return 24 * time.Hour
	default:
		return 0
	}
}

// Period couples a display label with its lookback window and aggregation mode.
type Period struct {
	Label    string
	Lookback time.Duration
	Mode     Mode
}

var table = map[string]Period{
	"1D": {Label: "1D", Lookback: 24 * time.Hour, Mode: ModeRaw},
	"1W": {Label: "1W", Lookback: 7 * 24 * time.Hour, Mode: ModeHourly},
	"1M": {Label: "1M", Lookback: 30 * 24 * time.Hour, Mode: ModeSixHour},
	"1Y": {Label: "1Y", Lookback: 365 * 24 * time.Hour, Mode: ModeDaily},
}

// Resolve maps input to a Period, case-insensitively. Anything unrecognized
// (including empty input) resolves to the 1D mapping.
func Resolve(input string) Period {
	v := strings.ToUpper(strings.TrimSpace(input))
	if p, ok := table[v]; ok {
		return p
	}
	return table["1D"]
}
