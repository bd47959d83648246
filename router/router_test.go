package router

import (
	"context"
	"errors"
	"testing"
	"time"

	"dosepilot/dbtypes"
	"dosepilot/notify"

	"github.com/google/go-cmp/cmp"
)

type fakeUsers struct {
	user *dbtypes.User
	err  error
}

func (f *fakeUsers) CurrentUser(ctx context.Context) (*dbtypes.User, error) {
	return f.user, f.err
}

// fakeTaps keys recorded taps by owner email, mirroring the owner-scoped
// query of the production queue.
type fakeTaps struct {
	taps map[string]*notify.TapEvent
	err  error
}

func (f *fakeTaps) LastTapResponse(ctx context.Context, ownerEmail string) (*notify.TapEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.taps[ownerEmail], nil
}

func alice() *dbtypes.User {
	return &dbtypes.User{ID: "u1", Email: "alice@example.com"}
}

func alicePayload() notify.Payload {
	return notify.Payload{
		Type:         notify.TypeMedicationReminder,
		ScheduleID:   "m1",
		Date:         "01.01.2024",
		OwnerEmail:   "alice@example.com",
		Name:         "Amoxicillin",
		Dose:         "500mg",
		When:         "before",
		ReminderTime: "08:00",
	}
}

func TestResolve(t *testing.T) {
	r := New(&fakeUsers{user: alice()}, &fakeTaps{})

	got, err := r.Resolve(context.Background(), alicePayload())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := &Intent{
		ScheduleID: "m1",
		Date:       "01.01.2024",
		Time:       "08:00",
		Name:       "Amoxicillin",
		Dose:       "500mg",
		When:       "before",
	}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Fatalf("Bad intent; diff (-got +want)\n%s", diff)
	}
}

func TestResolveIgnoresWrongType(t *testing.T) {
	r := New(&fakeUsers{user: alice()}, &fakeTaps{})

	p := alicePayload()
	p.Type = "marketing-blast"

	got, err := r.Resolve(context.Background(), p)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("Got intent %+v for a non-reminder payload, want nil", got)
	}
}

func TestResolveIgnoresWhenNobodySignedIn(t *testing.T) {
	r := New(&fakeUsers{}, &fakeTaps{})

	got, err := r.Resolve(context.Background(), alicePayload())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("Got intent %+v with no signed-in user, want nil", got)
	}
}

func TestResolveIgnoresOtherOwners(t *testing.T) {
	r := New(&fakeUsers{user: &dbtypes.User{ID: "u2", Email: "bob@example.com"}}, &fakeTaps{})

	got, err := r.Resolve(context.Background(), alicePayload())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("Got intent %+v for another owner's reminder, want nil", got)
	}
}

func TestResolvePropagatesUserLookupError(t *testing.T) {
	r := New(&fakeUsers{err: errors.New("session store down")}, &fakeTaps{})

	_, err := r.Resolve(context.Background(), alicePayload())
	if err == nil {
		t.Fatalf("Expected an error")
	}
}

func TestResolveLastTap(t *testing.T) {
	taps := &fakeTaps{taps: map[string]*notify.TapEvent{
		"alice@example.com": {
			Identifier: "med-reminder-m1-01.01.2024-08:00",
			Payload:    alicePayload(),
			TappedAt:   time.Date(2024, time.January, 1, 8, 5, 0, 0, time.UTC),
		},
	}}
	r := New(&fakeUsers{user: alice()}, taps)

	got, err := r.ResolveLastTap(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got == nil || got.ScheduleID != "m1" {
		t.Fatalf("Got intent %+v, want the tapped reminder", got)
	}
}

func TestResolveLastTapOnlySeesOwnTaps(t *testing.T) {
	// Bob tapped a reminder more recently than Alice did anything; Alice's
	// cold-start check must come back empty, not with Bob's tap.
	bobPayload := alicePayload()
	bobPayload.OwnerEmail = "bob@example.com"
	taps := &fakeTaps{taps: map[string]*notify.TapEvent{
		"bob@example.com": {
			Identifier: "med-reminder-m1-01.01.2024-08:00",
			Payload:    bobPayload,
			TappedAt:   time.Date(2024, time.January, 1, 8, 5, 0, 0, time.UTC),
		},
	}}
	r := New(&fakeUsers{user: alice()}, taps)

	got, err := r.ResolveLastTap(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("Got intent %+v from another user's tap, want nil", got)
	}
}

func TestResolveLastTapNoTaps(t *testing.T) {
	r := New(&fakeUsers{user: alice()}, &fakeTaps{})

	got, err := r.ResolveLastTap(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("Got intent %+v with no recorded taps, want nil", got)
	}
}

func TestResolveLastTapNobodySignedIn(t *testing.T) {
	taps := &fakeTaps{taps: map[string]*notify.TapEvent{
		"alice@example.com": {
			Identifier: "med-reminder-m1-01.01.2024-08:00",
			Payload:    alicePayload(),
			TappedAt:   time.Date(2024, time.January, 1, 8, 5, 0, 0, time.UTC),
		},
	}}
	r := New(&fakeUsers{}, taps)

	got, err := r.ResolveLastTap(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("Got intent %+v with nobody signed in, want nil", got)
	}
}
