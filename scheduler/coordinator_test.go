package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"dosepilot/dbtypes"
	"dosepilot/notify"

	"github.com/google/go-cmp/cmp"
)

type fakeSource struct {
	meds    []*dbtypes.MedicationSchedule
	skipped int
	err     error
}

func (s *fakeSource) MedicationSchedulesForOwner(ctx context.Context, ownerEmail string) ([]*dbtypes.MedicationSchedule, int, error) {
	if s.err != nil {
		return nil, 0, s.err
	}
	var owned []*dbtypes.MedicationSchedule
	for _, med := range s.meds {
		if med.OwnerEmail == ownerEmail {
			owned = append(owned, med)
		}
	}
	return owned, s.skipped, nil
}

func TestCoordinatorCreateUpdateDelete(t *testing.T) {
	q := newFakeQueue()
	coord := NewCoordinator(&fakeSource{}, testScheduler(q))
	ctx := context.Background()

	med := testMed()
	if err := coord.OnCreate(ctx, med); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(q.entries) != 2 {
		t.Fatalf("Got %d queue entries after create, want 2", len(q.entries))
	}

	med.Times = []string{"09:00"}
	if err := coord.OnUpdate(ctx, med); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	want := []string{
		"med-reminder-m1-01.01.2024-09:00",
		"med-reminder-m1-02.01.2024-09:00",
	}
	if diff := cmp.Diff(q.identifiers(), want); diff != "" {
		t.Fatalf("Bad queue contents after update; diff (-got +want)\n%s", diff)
	}

	if err := coord.OnDelete(ctx, med.OwnerEmail, med.ID); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(q.entries) != 0 {
		t.Fatalf("Got %d queue entries after delete, want 0", len(q.entries))
	}
}

func TestResyncAllHealsOrphans(t *testing.T) {
	q := newFakeQueue()
	ctx := context.Background()

	// An entry whose medication record no longer exists.
	q.ScheduleAt(ctx, "med-reminder-gone-01.01.2024-08:00", notify.Payload{
		Type:       notify.TypeMedicationReminder,
		ScheduleID: "gone",
		OwnerEmail: "alice@example.com",
	}, time.Date(2024, time.January, 1, 8, 0, 0, 0, time.UTC))

	// Another user's entry, which the resync must not touch.
	q.ScheduleAt(ctx, "med-reminder-b1-01.01.2024-08:00", notify.Payload{
		Type:       notify.TypeMedicationReminder,
		ScheduleID: "b1",
		OwnerEmail: "bob@example.com",
	}, time.Date(2024, time.January, 1, 8, 0, 0, 0, time.UTC))

	source := &fakeSource{meds: []*dbtypes.MedicationSchedule{testMed()}}
	coord := NewCoordinator(source, testScheduler(q))

	if err := coord.ResyncAll(ctx, "alice@example.com"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := []string{
		"med-reminder-b1-01.01.2024-08:00",
		"med-reminder-m1-01.01.2024-08:00",
		"med-reminder-m1-02.01.2024-08:00",
	}
	if diff := cmp.Diff(q.identifiers(), want); diff != "" {
		t.Fatalf("Bad queue contents after resync; diff (-got +want)\n%s", diff)
	}
}

func TestResyncAllReportsPartialFailure(t *testing.T) {
	q := newFakeQueue()
	ctx := context.Background()

	bad := testMed()
	bad.ID = "m2"
	bad.Frequency = "hourly"

	source := &fakeSource{meds: []*dbtypes.MedicationSchedule{testMed(), bad}}
	coord := NewCoordinator(source, testScheduler(q))

	err := coord.ResyncAll(ctx, "alice@example.com")
	if !errors.Is(err, ErrRemindersOutOfDate) {
		t.Fatalf("Got error %v, want %v", err, ErrRemindersOutOfDate)
	}

	// The good medication still got its reminders.
	want := []string{
		"med-reminder-m1-01.01.2024-08:00",
		"med-reminder-m1-02.01.2024-08:00",
	}
	if diff := cmp.Diff(q.identifiers(), want); diff != "" {
		t.Fatalf("Bad queue contents after partial resync; diff (-got +want)\n%s", diff)
	}
}

func TestResyncAllCountsSkippedRecords(t *testing.T) {
	q := newFakeQueue()
	source := &fakeSource{meds: []*dbtypes.MedicationSchedule{testMed()}, skipped: 1}
	coord := NewCoordinator(source, testScheduler(q))

	err := coord.ResyncAll(context.Background(), "alice@example.com")
	if !errors.Is(err, ErrRemindersOutOfDate) {
		t.Fatalf("Got error %v, want %v", err, ErrRemindersOutOfDate)
	}
}

func TestResyncAllFetchFailure(t *testing.T) {
	q := newFakeQueue()
	source := &fakeSource{err: errors.New("store unavailable")}
	coord := NewCoordinator(source, testScheduler(q))

	err := coord.ResyncAll(context.Background(), "alice@example.com")
	if err == nil {
		t.Fatalf("Expected an error")
	}
	if errors.Is(err, ErrRemindersOutOfDate) {
		t.Fatalf("A failed fetch is a hard error, not an advisory: %v", err)
	}
}
