// Package scheduler keeps the pending-notification queue consistent with
// the stored medication schedules.  Scheduler handles one record at a time;
// Coordinator drives it from create/update/delete events and full resyncs.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"dosepilot/dbtypes"
	"dosepilot/notify"
	"dosepilot/schedule"
)

// ErrNoRemindersScheduled is returned when every reminder instant for a
// medication failed to schedule.  Partial failures are logged and skipped
// instead; a single bad instant must not lose the rest of the medication's
// reminders.
var ErrNoRemindersScheduled = errors.New("could not save reminders for this medication")

// Scheduler rebuilds the queue entries for one medication schedule.
type Scheduler struct {
	queue notify.Queue
	loc   *time.Location

	// nowFn is the "future only" reference clock, replaced in tests.
	nowFn func() time.Time
}

func New(queue notify.Queue, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		queue: queue,
		loc:   loc,
		nowFn: time.Now,
	}
}

// Reschedule cancels every pending notification belonging to med and then
// schedules a fresh notification for each future reminder instant.  The
// cancel pass runs first so that an edit which changed times or dates can
// never leave both the old and new entries live.
func (s *Scheduler) Reschedule(ctx context.Context, med *dbtypes.MedicationSchedule) error {
	if err := s.CancelForSchedule(ctx, med.OwnerEmail, med.ID); err != nil {
		return fmt.Errorf("while cancelling stale notifications for medication %s: %w", med.ID, err)
	}

	dueDates, err := schedule.Expand(med.StartDate, med.EndDate, schedule.Frequency(med.Frequency), med.Weekdays)
	if err != nil {
		return err
	}

	var meal *schedule.MealRule
	if (med.When == schedule.BeforeMeal || med.When == schedule.AfterMeal) && med.MealOffsetMinutes > 0 {
		meal = &schedule.MealRule{When: med.When, OffsetMinutes: med.MealOffsetMinutes}
	}

	instants := schedule.BuildInstants(med.ID, dueDates, med.Times, meal, s.nowFn(), s.loc)
	if len(instants) == 0 {
		// All instants are in the past or no time parsed; nothing to
		// schedule, and the stale entries are already gone.
		slog.InfoContext(ctx, "No future reminder instants for medication", slog.String("id", med.ID))
		return nil
	}

	failed := 0
	for _, inst := range instants {
		p := notify.Payload{
			Type:         notify.TypeMedicationReminder,
			ScheduleID:   med.ID,
			Date:         inst.Date,
			OwnerEmail:   med.OwnerEmail,
			Name:         med.Name,
			Dose:         med.Dose,
			When:         med.When,
			ReminderTime: inst.Time,
		}

		if err := s.queue.ScheduleAt(ctx, inst.Identifier, p, inst.EffectiveAt); err != nil {
			slog.ErrorContext(ctx, "Skipping reminder instant that failed to schedule",
				slog.String("identifier", inst.Identifier), slog.Any("err", err))
			failed++
			continue
		}
	}

	if failed == len(instants) {
		return ErrNoRemindersScheduled
	}

	slog.InfoContext(ctx, "Rescheduled medication reminders",
		slog.String("id", med.ID),
		slog.Int("scheduled", len(instants)-failed),
		slog.Int("failed", failed))

	return nil
}

// CancelForSchedule cancels every pending notification whose payload names
// the given owner and schedule ID.  Cancellation is by scan of the live
// queue, not by re-deriving due dates, so it works even when the record's
// fields have already changed or the record is gone.
func (s *Scheduler) CancelForSchedule(ctx context.Context, ownerEmail, scheduleID string) error {
	pending, err := s.queue.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("while listing pending notifications: %w", err)
	}

	for _, p := range pending {
		if p.Payload.OwnerEmail != ownerEmail || p.Payload.ScheduleID != scheduleID {
			continue
		}
		if err := s.queue.Cancel(ctx, p.Identifier); err != nil {
			return fmt.Errorf("while cancelling notification %q: %w", p.Identifier, err)
		}
	}

	return nil
}

// cancelAllForOwner cancels every pending notification carrying the owner's
// email, regardless of whether its schedule still exists.  This is the
// orphan self-healing half of a resync.
func (s *Scheduler) cancelAllForOwner(ctx context.Context, ownerEmail string) error {
	pending, err := s.queue.ListPending(ctx)
	if err != nil {
		return fmt.Errorf("while listing pending notifications: %w", err)
	}

	for _, p := range pending {
		if p.Payload.OwnerEmail != ownerEmail {
			continue
		}
		if err := s.queue.Cancel(ctx, p.Identifier); err != nil {
			return fmt.Errorf("while cancelling notification %q: %w", p.Identifier, err)
		}
	}

	return nil
}
