package analytics

import (
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/civicpulse-backend/pkg/errors"
)

// Timeframe is a dashboard lookback window.
type Timeframe string

const (
	Timeframe7d  Timeframe = "7d"
	Timeframe30d Timeframe = "30d"
	Timeframe90d Timeframe = "90d"
	Timeframe1y  Timeframe = "1y"

	ReasonInvalidTimeframe = "INVALID_TIMEFRAME"
)

var timeframeDays = map[Timeframe]int{
	Timeframe7d:  7,
	Timeframe30d: 30,
	Timeframe90d: 90,
	Timeframe1y:  365,
}

// ParseTimeframe accepts 7d, 30d, 90d or 1y. Empty input means 30d.
func ParseTimeframe(value string) (Timeframe, error) {
	tf := Timeframe(strings.ToLower(strings.TrimSpace(value)))
	if tf == "" {
		return Timeframe30d, nil
	}
	if _, ok := timeframeDays[tf]; !ok {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "Timeframe must be one of 7d, 30d, 90d, 1y").WithReason(ReasonInvalidTimeframe)
	}
	return tf, nil
}

// Since returns the start of the window ending at now.
func (t Timeframe) Since(now time.Time) time.Time {
	days, ok := timeframeDays[t]
	if !ok {
		days = timeframeDays[Timeframe30d]
	}
	return now.UTC().AddDate(0, 0, -days)
}
