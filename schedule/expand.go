// Package schedule holds the pure date math behind medication reminders:
// expanding a date range under a recurrence rule, combining due dates with
// times of day into concrete reminder instants, and deriving the stable
// notification identifiers used to correlate and cancel them later.
package schedule

import (
	"errors"
	"strings"
	"time"
)

// DateLayout is the textual form of a due date.  It matches what the mobile
// client stores, and it is embedded in notification identifiers, so it must
// not change.
const DateLayout = "02.01.2006"

// TimeLayout is the textual form of a time of day.
const TimeLayout = "15:04"

// Frequency selects how a date range expands into due dates.
type Frequency string

const (
	// Daily doses every calendar date in the range.
	Daily Frequency = "daily"

	// EveryOtherDay doses on even day offsets from the start date.  The
	// parity is anchored at the start date, so the set of due dates is the
	// same no matter when the expansion runs.
	EveryOtherDay Frequency = "everyOtherDay"

	// Weekdays doses only on the listed days of the week.
	Weekdays Frequency = "weekdays"
)

// every2 is what the mobile client stores for EveryOtherDay.  Records
// written by it must keep expanding, so the alias is accepted on input and
// normalized everywhere else.
const every2 Frequency = "every2"

// Canonical maps stored frequency values, including the mobile client's
// "every2", onto the canonical constants.  Unknown values pass through
// unchanged.
func (f Frequency) Canonical() Frequency {
	if f == every2 {
		return EveryOtherDay
	}
	return f
}

var (
	ErrInvalidRange     = errors.New("start date is after end date")
	ErrInvalidRule      = errors.New("weekday frequency requires at least one weekday")
	ErrUnknownFrequency = errors.New("unknown frequency")
)

var weekdayLabels = [...]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

// WeekdayLabel returns the lowercase three-letter label for d, matching the
// labels the medication form stores in MedicationSchedule.Weekdays.
func WeekdayLabel(d time.Weekday) string {
	return weekdayLabels[d]
}

// Expand turns [start, end] (inclusive, compared at day granularity) and a
// recurrence rule into the ordered list of due dates, formatted with
// DateLayout.  It is pure and deterministic; both inputs are truncated to
// their calendar date before comparison, so the time-of-day components of
// start and end are irrelevant.
func Expand(start, end time.Time, freq Frequency, weekdays []string) ([]string, error) {
	freq = freq.Canonical()

	startDay := truncateToDay(start)
	endDay := truncateToDay(end)

	if startDay.After(endDay) {
		return nil, ErrInvalidRange
	}

	wanted := map[string]bool{}
	switch freq {
	case Daily, EveryOtherDay:
	case Weekdays:
		for _, wd := range weekdays {
			wanted[strings.ToLower(wd)] = true
		}
		if len(wanted) == 0 {
			return nil, ErrInvalidRule
		}
	default:
		return nil, ErrUnknownFrequency
	}

	var dates []string
	for day, offset := startDay, 0; !day.After(endDay); day, offset = day.AddDate(0, 0, 1), offset+1 {
		switch freq {
		case EveryOtherDay:
			if offset%2 != 0 {
				continue
			}
		case Weekdays:
			if !wanted[WeekdayLabel(day.Weekday())] {
				continue
			}
		}
		dates = append(dates, day.Format(DateLayout))
	}

	return dates, nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
