package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"dosepilot/dbtypes"
)

// ErrRemindersOutOfDate reports a partial resync: some records could not be
// fetched or rescheduled, so their reminders may be stale.  Callers surface
// it as an advisory, not a failure.
var ErrRemindersOutOfDate = errors.New("some reminders may be out of date")

// ScheduleSource is the document-store collaborator the coordinator reads
// from.  *dblayer.DB satisfies it.
type ScheduleSource interface {
	MedicationSchedulesForOwner(ctx context.Context, ownerEmail string) (meds []*dbtypes.MedicationSchedule, skipped int, err error)
}

// Coordinator serializes scheduling work against the notification queue.
// Operations on different schedule IDs would be safe to interleave (the
// identifiers are namespaced by schedule ID), but a resync touches every
// entry for an owner, so all operations go through one mutex.
type Coordinator struct {
	source ScheduleSource
	sched  *Scheduler

	mu             sync.Mutex
	resyncInFlight atomic.Bool
}

func NewCoordinator(source ScheduleSource, sched *Scheduler) *Coordinator {
	return &Coordinator{
		source: source,
		sched:  sched,
	}
}

// OnCreate schedules notifications for a newly stored medication.
func (c *Coordinator) OnCreate(ctx context.Context, med *dbtypes.MedicationSchedule) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.sched.Reschedule(ctx, med)
}

// OnUpdate is a full reschedule, never an incremental patch.  Cancelling
// and recreating everything is extra queue traffic, but it cannot leave a
// mix of old and new entries behind.
func (c *Coordinator) OnUpdate(ctx context.Context, med *dbtypes.MedicationSchedule) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.sched.Reschedule(ctx, med)
}

// OnDelete cancels the schedule's pending notifications.  It needs only the
// identifier components, not the record, so it works after the record is
// already gone from the store.
func (c *Coordinator) OnDelete(ctx context.Context, ownerEmail, scheduleID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.sched.CancelForSchedule(ctx, ownerEmail, scheduleID)
}

// ResyncAll reconciles the owner's entire notification queue against the
// store: cancel everything for the owner (including orphans whose record no
// longer exists), then reschedule every stored record.  A failure on one
// record does not block the others; partial failures come back as
// ErrRemindersOutOfDate.
//
// A resync requested while another is already running is coalesced into the
// running one and reports success.
func (c *Coordinator) ResyncAll(ctx context.Context, ownerEmail string) error {
	if !c.resyncInFlight.CompareAndSwap(false, true) {
		slog.InfoContext(ctx, "Coalescing resync request; one is already running", slog.String("owner", ownerEmail))
		return nil
	}
	defer c.resyncInFlight.Store(false)

	c.mu.Lock()
	defer c.mu.Unlock()

	meds, skipped, err := c.source.MedicationSchedulesForOwner(ctx, ownerEmail)
	if err != nil {
		return fmt.Errorf("while fetching medication schedules for %q: %w", ownerEmail, err)
	}

	if err := c.sched.cancelAllForOwner(ctx, ownerEmail); err != nil {
		return fmt.Errorf("while cancelling notifications for %q: %w", ownerEmail, err)
	}

	failures := skipped
	for _, med := range meds {
		if err := c.sched.Reschedule(ctx, med); err != nil {
			slog.ErrorContext(ctx, "Skipping medication that failed to reschedule during resync",
				slog.String("id", med.ID), slog.Any("err", err))
			failures++
		}
	}

	slog.InfoContext(ctx, "Finished resync",
		slog.String("owner", ownerEmail),
		slog.Int("medications", len(meds)),
		slog.Int("failures", failures))

	if failures > 0 {
		return fmt.Errorf("%d of %d medication(s) failed to resync: %w", failures, len(meds)+skipped, ErrRemindersOutOfDate)
	}

	return nil
}
