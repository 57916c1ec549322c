package domain

import (
	"strings"
	"time"
)

// Timeframe is a named cutoff window used to filter history for charting
type Timeframe string

const (
	TimeframeAll         Timeframe = "ALL"
	TimeframeOneYear     Timeframe = "1Y"
	TimeframeSixMonths   Timeframe = "6M"
	TimeframeThreeMonths Timeframe = "3M"
	TimeframeOneMonth    Timeframe = "1M"
)

var timeframeDays = map[Timeframe]int{
	TimeframeOneYear:     365,
	TimeframeSixMonths:   180,
	TimeframeThreeMonths: 90,
	TimeframeOneMonth:    30,
}

// Timeframes returns the presets in display order
func Timeframes() []Timeframe {
	return []Timeframe{TimeframeAll, TimeframeOneYear, TimeframeSixMonths, TimeframeThreeMonths, TimeframeOneMonth}
}

// ParseTimeframe parses a preset label, case-insensitively. An empty label means ALL.
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(strings.ToUpper(strings.TrimSpace(s)))
	if tf == "" {
		return TimeframeAll, nil
	}
	if tf == TimeframeAll {
		return tf, nil
	}
	if _, ok := timeframeDays[tf]; !ok {
		return "", &ValidationError{Field: "timeframe", Reason: "unknown timeframe " + s}
	}
	return tf, nil
}

// Cutoff returns the earliest instant kept by the timeframe, relative to now.
// The second result is false for ALL, which has no cutoff.
func (tf Timeframe) Cutoff(now time.Time) (time.Time, bool) {
	days, ok := timeframeDays[tf]
	if !ok {
		return time.Time{}, false
	}
	return now.AddDate(0, 0, -days), true
}
