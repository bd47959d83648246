package scheduler

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"dosepilot/dbtypes"
	"dosepilot/notify"

	"github.com/google/go-cmp/cmp"
)

type fakeEntry struct {
	payload notify.Payload
	fireAt  time.Time
}

// fakeQueue is an in-memory notify.Queue with per-identifier failure
// injection.
type fakeQueue struct {
	entries      map[string]fakeEntry
	failSchedule map[string]bool
	failList     bool
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{
		entries:      map[string]fakeEntry{},
		failSchedule: map[string]bool{},
	}
}

func (q *fakeQueue) ScheduleAt(ctx context.Context, identifier string, p notify.Payload, at time.Time) error {
	if q.failSchedule[identifier] {
		return errors.New("injected schedule failure")
	}
	q.entries[identifier] = fakeEntry{payload: p, fireAt: at}
	return nil
}

func (q *fakeQueue) Cancel(ctx context.Context, identifier string) error {
	delete(q.entries, identifier)
	return nil
}

func (q *fakeQueue) ListPending(ctx context.Context) ([]notify.Pending, error) {
	if q.failList {
		return nil, errors.New("injected list failure")
	}
	var pending []notify.Pending
	for id, e := range q.entries {
		pending = append(pending, notify.Pending{
			Identifier: id,
			Payload:    e.payload,
			FireAt:     e.fireAt,
		})
	}
	return pending, nil
}

func (q *fakeQueue) LastTapResponse(ctx context.Context, ownerEmail string) (*notify.TapEvent, error) {
	return nil, nil
}

func (q *fakeQueue) identifiers() []string {
	var ids []string
	for id := range q.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func testMed() *dbtypes.MedicationSchedule {
	return &dbtypes.MedicationSchedule{
		ID:         "m1",
		OwnerEmail: "alice@example.com",
		Name:       "Amoxicillin",
		Dose:       "500mg",
		StartDate:  time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2024, time.January, 2, 0, 0, 0, 0, time.UTC),
		Times:      []string{"08:00"},
		Frequency:  "daily",
	}
}

func testScheduler(q notify.Queue) *Scheduler {
	s := New(q, time.UTC)
	s.nowFn = func() time.Time {
		return time.Date(2023, time.December, 31, 0, 0, 0, 0, time.UTC)
	}
	return s
}

func TestReschedule(t *testing.T) {
	q := newFakeQueue()
	s := testScheduler(q)

	if err := s.Reschedule(context.Background(), testMed()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := []string{
		"med-reminder-m1-01.01.2024-08:00",
		"med-reminder-m1-02.01.2024-08:00",
	}
	if diff := cmp.Diff(q.identifiers(), want); diff != "" {
		t.Fatalf("Bad queue contents; diff (-got +want)\n%s", diff)
	}

	entry := q.entries["med-reminder-m1-01.01.2024-08:00"]
	wantPayload := notify.Payload{
		Type:         notify.TypeMedicationReminder,
		ScheduleID:   "m1",
		Date:         "01.01.2024",
		OwnerEmail:   "alice@example.com",
		Name:         "Amoxicillin",
		Dose:         "500mg",
		ReminderTime: "08:00",
	}
	if diff := cmp.Diff(entry.payload, wantPayload); diff != "" {
		t.Fatalf("Bad payload; diff (-got +want)\n%s", diff)
	}

	wantAt := time.Date(2024, time.January, 1, 8, 0, 0, 0, time.UTC)
	if !entry.fireAt.Equal(wantAt) {
		t.Errorf("Got fire time %v, want %v", entry.fireAt, wantAt)
	}
}

func TestRescheduleIsIdempotent(t *testing.T) {
	q := newFakeQueue()
	s := testScheduler(q)

	if err := s.Reschedule(context.Background(), testMed()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := s.Reschedule(context.Background(), testMed()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(q.entries) != 2 {
		t.Fatalf("Got %d queue entries after double reschedule, want 2", len(q.entries))
	}
}

func TestRescheduleReplacesChangedTimes(t *testing.T) {
	q := newFakeQueue()
	s := testScheduler(q)

	if err := s.Reschedule(context.Background(), testMed()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	med := testMed()
	med.Times = []string{"09:00"}
	if err := s.Reschedule(context.Background(), med); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// The 08:00 entries are gone; only the 09:00 entries remain.
	want := []string{
		"med-reminder-m1-01.01.2024-09:00",
		"med-reminder-m1-02.01.2024-09:00",
	}
	if diff := cmp.Diff(q.identifiers(), want); diff != "" {
		t.Fatalf("Bad queue contents; diff (-got +want)\n%s", diff)
	}
}

func TestRescheduleMealOffsetShiftsFireTime(t *testing.T) {
	q := newFakeQueue()
	s := testScheduler(q)

	med := testMed()
	med.When = "before"
	med.MealOffsetMinutes = 30
	if err := s.Reschedule(context.Background(), med); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	entry, ok := q.entries["med-reminder-m1-01.01.2024-08:00"]
	if !ok {
		t.Fatalf("Missing expected entry; have %v", q.identifiers())
	}
	wantAt := time.Date(2024, time.January, 1, 7, 30, 0, 0, time.UTC)
	if !entry.fireAt.Equal(wantAt) {
		t.Errorf("Got fire time %v, want %v", entry.fireAt, wantAt)
	}
	if entry.payload.When != "before" {
		t.Errorf("Got payload when %q, want %q", entry.payload.When, "before")
	}
}

func TestReschedulePastOnlyIsNotAnError(t *testing.T) {
	q := newFakeQueue()
	s := New(q, time.UTC)
	s.nowFn = func() time.Time {
		return time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC)
	}

	if err := s.Reschedule(context.Background(), testMed()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(q.entries) != 0 {
		t.Fatalf("Got %d queue entries, want 0", len(q.entries))
	}
}

func TestReschedulePartialFailureKeepsRest(t *testing.T) {
	q := newFakeQueue()
	q.failSchedule["med-reminder-m1-01.01.2024-08:00"] = true
	s := testScheduler(q)

	if err := s.Reschedule(context.Background(), testMed()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := []string{"med-reminder-m1-02.01.2024-08:00"}
	if diff := cmp.Diff(q.identifiers(), want); diff != "" {
		t.Fatalf("Bad queue contents; diff (-got +want)\n%s", diff)
	}
}

func TestRescheduleTotalFailure(t *testing.T) {
	q := newFakeQueue()
	q.failSchedule["med-reminder-m1-01.01.2024-08:00"] = true
	q.failSchedule["med-reminder-m1-02.01.2024-08:00"] = true
	s := testScheduler(q)

	err := s.Reschedule(context.Background(), testMed())
	if !errors.Is(err, ErrNoRemindersScheduled) {
		t.Fatalf("Got error %v, want %v", err, ErrNoRemindersScheduled)
	}
}

func TestCancelForScheduleCatchesDueEntries(t *testing.T) {
	q := newFakeQueue()
	s := testScheduler(q)
	ctx := context.Background()

	// An entry already past its fire time but not yet delivered.  Deleting
	// the medication during that window must still cancel it.
	q.ScheduleAt(ctx, "med-reminder-m1-01.01.2020-08:00", notify.Payload{
		Type:       notify.TypeMedicationReminder,
		ScheduleID: "m1",
		OwnerEmail: "alice@example.com",
	}, time.Date(2020, time.January, 1, 8, 0, 0, 0, time.UTC))

	if err := s.CancelForSchedule(ctx, "alice@example.com", "m1"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(q.entries) != 0 {
		t.Fatalf("Got %d queue entries, want 0; due-but-undelivered entries must be cancellable", len(q.entries))
	}
}

func TestCancelForScheduleLeavesOthersAlone(t *testing.T) {
	q := newFakeQueue()
	s := testScheduler(q)

	if err := s.Reschedule(context.Background(), testMed()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	other := testMed()
	other.ID = "m2"
	other.Name = "Ibuprofen"
	if err := s.Reschedule(context.Background(), other); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if err := s.CancelForSchedule(context.Background(), "alice@example.com", "m1"); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	want := []string{
		"med-reminder-m2-01.01.2024-08:00",
		"med-reminder-m2-02.01.2024-08:00",
	}
	if diff := cmp.Diff(q.identifiers(), want); diff != "" {
		t.Fatalf("Bad queue contents; diff (-got +want)\n%s", diff)
	}
}
