// Package router maps a tapped reminder notification back to the dose it
// belongs to, after checking the tap is for the currently signed-in user.
package router

import (
	"context"
	"fmt"
	"log/slog"

	"dosepilot/dbtypes"
	"dosepilot/notify"
)

// UserSource is the session-store collaborator: it reports who, if anyone,
// is currently signed in.
type UserSource interface {
	CurrentUser(ctx context.Context) (*dbtypes.User, error)
}

// TapSource supplies the most recent notification tap for the cold-start
// path, scoped to one owner.  notify.Queue satisfies it.
type TapSource interface {
	LastTapResponse(ctx context.Context, ownerEmail string) (*notify.TapEvent, error)
}

// Intent is the resolved confirmation context for one tapped reminder.  The
// confirmation surface uses it to show the dose and record the response; the
// router itself never writes dose status.
type Intent struct {
	ScheduleID string
	Date       string
	Time       string
	Name       string
	Dose       string
	When       string
}

// Router resolves notification payloads into confirmation intents.  It is
// stateless per call; resolving the same payload twice yields the same
// intent, and at-most-once navigation is the caller's job.
type Router struct {
	users UserSource
	taps  TapSource
}

func New(users UserSource, taps TapSource) *Router {
	return &Router{users: users, taps: taps}
}

// Resolve validates p and returns its confirmation intent, or nil when the
// payload should be ignored: wrong payload type, nobody signed in, or a
// notification left over from a different account on the same device.  An
// owner mismatch is a benign case, not an error.
func (r *Router) Resolve(ctx context.Context, p notify.Payload) (*Intent, error) {
	if p.Type != notify.TypeMedicationReminder {
		return nil, nil
	}

	user, err := r.users.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("while looking up current user: %w", err)
	}
	if user == nil {
		return nil, nil
	}

	if p.OwnerEmail != user.Email {
		slog.InfoContext(ctx, "Dropping notification tap for a different owner",
			slog.String("owner", p.OwnerEmail))
		return nil, nil
	}

	return &Intent{
		ScheduleID: p.ScheduleID,
		Date:       p.Date,
		Time:       p.ReminderTime,
		Name:       p.Name,
		Dose:       p.Dose,
		When:       p.When,
	}, nil
}

// ResolveLastTap handles the cold-start case: the user tapped a reminder
// while the app was not running.  Only the signed-in user's own taps are
// consulted, and the last one goes through the exact same validation as a
// live tap.
func (r *Router) ResolveLastTap(ctx context.Context) (*Intent, error) {
	user, err := r.users.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("while looking up current user: %w", err)
	}
	if user == nil {
		return nil, nil
	}

	tap, err := r.taps.LastTapResponse(ctx, user.Email)
	if err != nil {
		return nil, fmt.Errorf("while fetching last notification tap: %w", err)
	}
	if tap == nil {
		return nil, nil
	}

	return r.Resolve(ctx, tap.Payload)
}
