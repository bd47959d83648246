package schedule

import (
	"fmt"
	"sort"
	"time"
)

// Meal offset directions, as stored on the medication record.
const (
	BeforeMeal = "before"
	AfterMeal  = "after"
)

// MealRule shifts every reminder instant relative to a meal.
type MealRule struct {
	// When is BeforeMeal or AfterMeal.
	When string

	// OffsetMinutes is the size of the shift, always positive.
	OffsetMinutes int64
}

// Instant is one concrete reminder: a single absolute point in time at which
// one notification should fire for one medication.
type Instant struct {
	ScheduleID string

	// Date and Time are the due date and time of day in their stored textual
	// forms.  They are what the identifier is derived from, so they are kept
	// verbatim rather than re-derived from EffectiveAt.
	Date string
	Time string

	// EffectiveAt is Date+Time shifted by the meal rule, if any.
	EffectiveAt time.Time

	Identifier string
}

// Identifier derives the stable notification identifier for one (schedule,
// date, time) triple.  The same triple always yields the same identifier,
// which makes cancel/reschedule an exact-match scan.  Changing this format
// orphans previously scheduled notifications.
func Identifier(scheduleID, date, timeOfDay string) string {
	return fmt.Sprintf("med-reminder-%s-%s-%s", scheduleID, date, timeOfDay)
}

// BuildInstants combines due dates and times of day into reminder instants,
// shifted by meal (when non-nil) and filtered to instants strictly after
// now.  Malformed date or time strings are skipped rather than failing the
// whole batch; an empty result means "nothing to schedule", not an error.
//
// The result is ordered by EffectiveAt ascending.  Duplicate inputs that
// land on the same effective instant collapse to one entry.
func BuildInstants(scheduleID string, dueDates, times []string, meal *MealRule, now time.Time, loc *time.Location) []Instant {
	var instants []Instant
	seen := map[string]bool{}

	for _, dateStr := range dueDates {
		day, err := time.ParseInLocation(DateLayout, dateStr, loc)
		if err != nil {
			continue
		}

		for _, timeStr := range times {
			tod, err := time.ParseInLocation(TimeLayout, timeStr, loc)
			if err != nil {
				continue
			}

			at := time.Date(day.Year(), day.Month(), day.Day(), tod.Hour(), tod.Minute(), 0, 0, loc)
			if meal != nil {
				offset := time.Duration(meal.OffsetMinutes) * time.Minute
				switch meal.When {
				case BeforeMeal:
					at = at.Add(-offset)
				case AfterMeal:
					at = at.Add(offset)
				}
			}

			if !at.After(now) {
				continue
			}

			id := Identifier(scheduleID, dateStr, timeStr)
			if seen[id] {
				continue
			}
			seen[id] = true

			instants = append(instants, Instant{
				ScheduleID:  scheduleID,
				Date:        dateStr,
				Time:        timeStr,
				EffectiveAt: at,
				Identifier:  id,
			})
		}
	}

	sort.Slice(instants, func(i, j int) bool {
		if instants[i].EffectiveAt.Equal(instants[j].EffectiveAt) {
			return instants[i].Identifier < instants[j].Identifier
		}
		return instants[i].EffectiveAt.Before(instants[j].EffectiveAt)
	})

	return instants
}
