package dbtypes

import (
	"time"

	"cloud.google.com/go/firestore"
)

// User represents a person registered and interacting with the application.
type User struct {
	ID           string `firestore:"id"`
	Email        string `firestore:"email"`
	DisplayName  string `firestore:"displayName"`
	PasswordHash string `firestore:"passwordHash"`
}

// Session represents a log-in session for a User.
type Session struct {
	Cookie  string                 `firestore:"cookie"`
	User    *firestore.DocumentRef `firestore:"user"`
	Expires time.Time              `firestore:"expires"`
}

// MedicationSchedule is one medication record with its dosing schedule.
//
// The field names mirror the documents written by the mobile client, so both
// surfaces can share the "medication" collection.
type MedicationSchedule struct {
	// ID is stable for the record's lifetime and is the correlation key for
	// every notification identifier derived from this record.
	ID string `firestore:"docId"`

	// OwnerEmail identifies the owning user.  Every derived notification
	// carries it so that cancellation scans can filter by owner.
	OwnerEmail string `firestore:"userEmail"`

	Name string `firestore:"name"`
	Dose string `firestore:"dose"`

	StartDate time.Time `firestore:"startDate"`
	EndDate   time.Time `firestore:"endDate"`

	// Times holds the times of day a dose is due, as "HH:mm" strings.
	Times []string `firestore:"times"`

	// Frequency is one of "daily", "everyOtherDay", or "weekdays".  Records
	// written by the mobile client carry "every2" instead of
	// "everyOtherDay"; schedule.Frequency.Canonical maps it.
	Frequency string `firestore:"frequency"`

	// Weekdays holds lowercase three-letter day labels ("mon" ... "sun").
	// Only consulted when Frequency is "weekdays".
	Weekdays []string `firestore:"weekdays"`

	// When is "before" or "after" when doses are tied to meals, otherwise
	// empty.  MealOffsetMinutes shifts every reminder instant by that many
	// minutes in the indicated direction.
	When              string `firestore:"when"`
	MealOffsetMinutes int64  `firestore:"mealOffset"`

	// DueDates is derived from [StartDate, EndDate] under Frequency/Weekdays,
	// stored as "DD.MM.YYYY" strings.  Recomputed on every create/update,
	// never edited directly.
	DueDates []string `firestore:"dates"`

	// Actions is the append-only log of dose confirmations.
	Actions []DoseAction `firestore:"action"`
}

// DoseAction is one entry in a medication's confirmation log, written after
// the user responds to a reminder.
type DoseAction struct {
	// Status is "Taken" or "Missed".
	Status string `firestore:"status"`

	// Date is the due date the reminder was scheduled for, "DD.MM.YYYY".
	Date string `firestore:"date"`

	// ReminderTime is the scheduled time of day, "HH:mm".
	ReminderTime string `firestore:"reminderTime"`

	// ActualTime is the time of day the user responded, "HH:mm".
	ActualTime string `firestore:"actualTime"`
}
