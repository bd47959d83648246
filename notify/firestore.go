package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

// ErrInstantInPast is returned by ScheduleAt for instants that are not in
// the future.  The instant builder's future-only filter should make this
// unreachable; hitting it indicates a caller bug.
var ErrInstantInPast = errors.New("refusing to schedule a notification in the past")

const (
	pendingCollection = "PendingNotifications"
	tapsCollection    = "NotificationTaps"
)

type pendingDoc struct {
	Identifier  string    `firestore:"identifier"`
	Payload     Payload   `firestore:"payload"`
	FireAt      time.Time `firestore:"fireAt"`
	Delivered   bool      `firestore:"delivered"`
	DeliveredAt time.Time `firestore:"deliveredAt"`
	CreatedAt   time.Time `firestore:"createdAt"`
}

type tapDoc struct {
	Identifier string    `firestore:"identifier"`
	Payload    Payload   `firestore:"payload"`
	TappedAt   time.Time `firestore:"tappedAt"`
}

// FirestoreQueue implements Queue on top of a PendingNotifications
// collection, with entries keyed by notification identifier so that
// rescheduling the same identifier overwrites rather than duplicates.
type FirestoreQueue struct {
	firestoreClient *firestore.Client
}

func NewFirestoreQueue(firestoreClient *firestore.Client) *FirestoreQueue {
	return &FirestoreQueue{firestoreClient: firestoreClient}
}

func (q *FirestoreQueue) ScheduleAt(ctx context.Context, identifier string, p Payload, at time.Time) error {
	if !at.After(time.Now()) {
		return ErrInstantInPast
	}

	doc := &pendingDoc{
		Identifier: identifier,
		Payload:    p,
		FireAt:     at,
		CreatedAt:  time.Now(),
	}
	if _, err := q.firestoreClient.Collection(pendingCollection).Doc(identifier).Set(ctx, doc); err != nil {
		return fmt.Errorf("while storing pending notification %q: %w", identifier, err)
	}

	return nil
}

func (q *FirestoreQueue) Cancel(ctx context.Context, identifier string) error {
	// Firestore deletes are idempotent; a missing document is not an error.
	if _, err := q.firestoreClient.Collection(pendingCollection).Doc(identifier).Delete(ctx); err != nil {
		return fmt.Errorf("while deleting pending notification %q: %w", identifier, err)
	}
	return nil
}

func (q *FirestoreQueue) ListPending(ctx context.Context) ([]Pending, error) {
	var pending []Pending
	iter := q.firestoreClient.Collection(pendingCollection).Where("delivered", "==", false).Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("while iterating pending notifications: %w", err)
		}

		doc := &pendingDoc{}
		if err := snap.DataTo(doc); err != nil {
			return nil, fmt.Errorf("while unmarshaling pending notification %q: %w", snap.Ref.ID, err)
		}

		// Due-but-undelivered entries stay visible here; a cancellation that
		// lands during the delivery window must still be able to pull them
		// before the poller emails them.
		pending = append(pending, Pending{
			Identifier: doc.Identifier,
			Payload:    doc.Payload,
			FireAt:     doc.FireAt,
		})
	}

	return pending, nil
}

// DuePending returns undelivered entries whose fire time has passed.  Used
// by the delivery poller, not part of the Queue interface.
func (q *FirestoreQueue) DuePending(ctx context.Context, now time.Time) ([]Pending, error) {
	var due []Pending
	iter := q.firestoreClient.Collection(pendingCollection).Where("delivered", "==", false).Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("while iterating pending notifications: %w", err)
		}

		doc := &pendingDoc{}
		if err := snap.DataTo(doc); err != nil {
			return nil, fmt.Errorf("while unmarshaling pending notification %q: %w", snap.Ref.ID, err)
		}

		if doc.FireAt.After(now) {
			continue
		}

		due = append(due, Pending{
			Identifier: doc.Identifier,
			Payload:    doc.Payload,
			FireAt:     doc.FireAt,
		})
	}

	return due, nil
}

// MarkDelivered flags an entry as delivered so it no longer counts as
// pending.  Delivered entries are kept (rather than deleted) so that taps
// can still be correlated with the original payload.
func (q *FirestoreQueue) MarkDelivered(ctx context.Context, identifier string, at time.Time) error {
	_, err := q.firestoreClient.Collection(pendingCollection).Doc(identifier).Update(ctx, []firestore.Update{
		{Path: "delivered", Value: true},
		{Path: "deliveredAt", Value: at},
	})
	if err != nil {
		return fmt.Errorf("while marking notification %q delivered: %w", identifier, err)
	}
	return nil
}

// RecordTap stores that the user opened a delivered reminder, making it
// visible to LastTapResponse.
func (q *FirestoreQueue) RecordTap(ctx context.Context, identifier string, p Payload) error {
	doc := &tapDoc{
		Identifier: identifier,
		Payload:    p,
		TappedAt:   time.Now(),
	}
	if _, _, err := q.firestoreClient.Collection(tapsCollection).Add(ctx, doc); err != nil {
		return fmt.Errorf("while recording notification tap %q: %w", identifier, err)
	}
	return nil
}

// LastTapResponse returns the owner's most recent tap.  The taps collection
// is shared across users, so the query filters on the payload's owner; one
// user's tap must never surface on another user's home page.
func (q *FirestoreQueue) LastTapResponse(ctx context.Context, ownerEmail string) (*TapEvent, error) {
	iter := q.firestoreClient.Collection(tapsCollection).
		Where("payload.userEmail", "==", ownerEmail).
		OrderBy("tappedAt", firestore.Desc).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	snap, err := iter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("while looking up last notification tap: %w", err)
	}

	doc := &tapDoc{}
	if err := snap.DataTo(doc); err != nil {
		return nil, fmt.Errorf("while unmarshaling notification tap %q: %w", snap.Ref.ID, err)
	}

	return &TapEvent{
		Identifier: doc.Identifier,
		Payload:    doc.Payload,
		TappedAt:   doc.TappedAt,
	}, nil
}
