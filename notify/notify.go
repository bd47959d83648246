// Package notify models the pending-notification queue that mirrors a
// user's upcoming medication reminders.  The scheduling layer talks to the
// Queue interface only; FirestoreQueue is the production implementation.
package notify

import (
	"context"
	"time"
)

// TypeMedicationReminder is the payload type discriminator for reminders
// produced by the scheduling engine.  Consumers check it before acting on a
// payload.
const TypeMedicationReminder = "medication-reminder"

// Payload is the structured data attached to every scheduled notification.
// The field names match the mobile client's notification data keys.
type Payload struct {
	Type       string `firestore:"type"`
	ScheduleID string `firestore:"medId"`
	Date       string `firestore:"date"`
	OwnerEmail string `firestore:"userEmail"`
	Name       string `firestore:"medName"`
	Dose       string `firestore:"medDose"`
	When       string `firestore:"medWhen"`

	// ReminderTime is the scheduled time of day, "HH:mm".  The confirmation
	// flow records it alongside the user's response.
	ReminderTime string `firestore:"reminderTime"`
}

// Pending is one live entry in the notification queue.
type Pending struct {
	Identifier string
	Payload    Payload
	FireAt     time.Time
}

// TapEvent records that the user opened a delivered reminder.
type TapEvent struct {
	Identifier string
	Payload    Payload
	TappedAt   time.Time
}

// Queue is the device-notification collaborator consumed by the scheduling
// engine.  Implementations must treat the identifier as the primary key:
// scheduling twice with the same identifier replaces the entry rather than
// duplicating it.
type Queue interface {
	// ScheduleAt registers a notification to fire at the given instant.
	// Instants in the past are rejected.
	ScheduleAt(ctx context.Context, identifier string, p Payload, at time.Time) error

	// Cancel removes a pending notification.  Cancelling an identifier that
	// is not pending is not an error.
	Cancel(ctx context.Context, identifier string) error

	// ListPending returns every undelivered entry, including entries that
	// are already due but not yet delivered, so that cancellation scans can
	// catch reminders sitting in the delivery window.
	ListPending(ctx context.Context) ([]Pending, error)

	// LastTapResponse returns the owner's most recent tap on a delivered
	// notification, or nil if there has never been one.  Used at cold start
	// to route a tap that happened while the app was not running.
	LastTapResponse(ctx context.Context, ownerEmail string) (*TapEvent, error)
}
