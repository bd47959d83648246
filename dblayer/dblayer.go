// Package dblayer packages up most actual firestore accesses.
package dblayer

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"dosepilot/dbtypes"
	"dosepilot/schedule"

	"cloud.google.com/go/firestore"
	"golang.org/x/crypto/bcrypt"
	"google.golang.org/api/idtoken"
	"google.golang.org/api/iterator"
)

const (
	usersCollection       = "Users"
	sessionsCollection    = "Sessions"
	medicationsCollection = "medication"
)

type DB struct {
	firestoreClient     *firestore.Client
	googleOAuthClientID string
}

func New(firestoreClient *firestore.Client, googleOAuthClientID string) *DB {
	return &DB{
		firestoreClient:     firestoreClient,
		googleOAuthClientID: googleOAuthClientID,
	}
}

var (
	ErrEmailMustNotBeEmpty        = errors.New("email must not be empty")
	ErrPasswordMustNotBeEmpty     = errors.New("password must not be empty")
	ErrUnknownUserOrWrongPassword = errors.New("unknown user or wrong password")
	ErrPermissionDenied           = errors.New("permission denied")
	ErrScheduleNotFound           = errors.New("no medication schedule with that ID")
	ErrNameMustNotBeEmpty         = errors.New("medication name must not be empty")
	ErrNoReminderTimes            = errors.New("at least one reminder time is required")
)

// lookupUserByEmail returns the snapshot for the single user with the given
// email, or nil if there is no such user.
func (db *DB) lookupUserByEmail(ctx context.Context, email string) (*firestore.DocumentSnapshot, error) {
	userIter := db.firestoreClient.Collection(usersCollection).Where("email", "==", email).Documents(ctx)
	defer userIter.Stop()

	userSnapshot, err := userIter.Next()
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("while looking up user with email %q: %w", email, err)
	}

	return userSnapshot, nil
}

func (db *DB) createSession(ctx context.Context, userRef *firestore.DocumentRef) (*dbtypes.Session, error) {
	sessionCookieBytes := make([]byte, 32)
	if _, err := rand.Read(sessionCookieBytes); err != nil {
		return nil, fmt.Errorf("while generating session cookie: %w", err)
	}

	session := &dbtypes.Session{
		Cookie:  base64.StdEncoding.EncodeToString(sessionCookieBytes),
		User:    userRef,
		Expires: time.Now().Add(18 * time.Hour),
	}
	if _, _, err := db.firestoreClient.Collection(sessionsCollection).Add(ctx, session); err != nil {
		return nil, fmt.Errorf("while storing session cookie: %w", err)
	}

	return session, nil
}

// SessionFromPassword runs the password-based login process for a given user,
// returning a session or an error.
func (db *DB) SessionFromPassword(ctx context.Context, email, password string) (*dbtypes.Session, error) {
	if email == "" {
		return nil, ErrEmailMustNotBeEmpty
	}

	if password == "" {
		return nil, ErrPasswordMustNotBeEmpty
	}

	userSnapshot, err := db.lookupUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if userSnapshot == nil {
		return nil, ErrUnknownUserOrWrongPassword
	}

	user := &dbtypes.User{}
	if err := userSnapshot.DataTo(user); err != nil {
		return nil, fmt.Errorf("while unmarshaling user %q: %w", email, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrUnknownUserOrWrongPassword
	}

	return db.createSession(ctx, userSnapshot.Ref)
}

// SessionFromGoogleFederation signs in a user based on a Google identity
// token returned from the "Sign in with Google" process.
func (db *DB) SessionFromGoogleFederation(ctx context.Context, idToken string) (*dbtypes.Session, error) {
	payload, err := idtoken.Validate(ctx, idToken, db.googleOAuthClientID)
	if err != nil {
		return nil, fmt.Errorf("while validating ID token: %w", err)
	}

	email, _ := payload.Claims["email"].(string)
	if email == "" {
		return nil, ErrUnknownUserOrWrongPassword
	}

	userSnapshot, err := db.lookupUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if userSnapshot == nil {
		// The user authenticated with Google but has never been registered
		// here.
		return nil, ErrUnknownUserOrWrongPassword
	}

	return db.createSession(ctx, userSnapshot.Ref)
}

// DeleteSession deletes a session by its cookie.
func (db *DB) DeleteSession(ctx context.Context, cookie string) error {
	sessionIter := db.firestoreClient.Collection(sessionsCollection).Where("cookie", "==", cookie).Documents(ctx)
	defer sessionIter.Stop()
	for {
		sessionSnapshot, err := sessionIter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return fmt.Errorf("while looking up session: %w", err)
		}

		_, err = sessionSnapshot.Ref.Delete(ctx, firestore.LastUpdateTime(sessionSnapshot.UpdateTime))
		if err != nil {
			return fmt.Errorf("while deleting session: %w", err)
		}
	}

	return nil
}

// UserFromSessionCookie looks up a session from its cookie, and then returns
// the corresponding user.  A nil user with a nil error means "not logged
// in".
func (db *DB) UserFromSessionCookie(ctx context.Context, cookie string) (*dbtypes.User, error) {
	sessionIter := db.firestoreClient.Collection(sessionsCollection).Where("cookie", "==", cookie).Documents(ctx)
	defer sessionIter.Stop()

	sessionSnapshot, err := sessionIter.Next()
	if err == iterator.Done {
		// Session object must have been cleaned up due to expiration; user
		// is not logged in.
		slog.InfoContext(ctx, "No logged-in user because there was no session object corresponding to the cookie in the database.")
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("while looking up session: %w", err)
	}

	session := &dbtypes.Session{}
	if err := sessionSnapshot.DataTo(session); err != nil {
		return nil, fmt.Errorf("while unmarshaling session: %w", err)
	}

	if session.Expires.Before(time.Now()) {
		// Session object is expired; user is not logged in.
		slog.InfoContext(ctx, "No logged-in user because the session object in the database was expired.")
		return nil, nil
	}

	userSnapshot, err := session.User.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("while getting user linked from session: %w", err)
	}

	user := &dbtypes.User{}
	if err := userSnapshot.DataTo(user); err != nil {
		return nil, fmt.Errorf("while unmarshaling user: %w", err)
	}

	return user, nil
}

// validateSchedule checks caller-supplied fields and recomputes the derived
// due-date list.  Input errors come back unwrapped so callers can show them
// to the user directly.
func validateSchedule(med *dbtypes.MedicationSchedule) error {
	if med.Name == "" {
		return ErrNameMustNotBeEmpty
	}
	if med.OwnerEmail == "" {
		return ErrEmailMustNotBeEmpty
	}
	if len(med.Times) == 0 {
		return ErrNoReminderTimes
	}

	dueDates, err := schedule.Expand(med.StartDate, med.EndDate, schedule.Frequency(med.Frequency), med.Weekdays)
	if err != nil {
		return err
	}
	med.DueDates = dueDates

	return nil
}

// CreateMedicationSchedule validates med, derives its due dates, assigns it
// a fresh ID, and stores it.
func (db *DB) CreateMedicationSchedule(ctx context.Context, med *dbtypes.MedicationSchedule) error {
	if err := validateSchedule(med); err != nil {
		return err
	}

	newDocRef := db.firestoreClient.Collection(medicationsCollection).NewDoc()
	med.ID = newDocRef.ID
	if _, err := newDocRef.Create(ctx, med); err != nil {
		return fmt.Errorf("while creating medication schedule: %w", err)
	}

	return nil
}

// UpdateMedicationSchedule replaces the stored record wholesale, recomputing
// the derived due dates.  The confirmation log of the stored record is
// preserved.
func (db *DB) UpdateMedicationSchedule(ctx context.Context, med *dbtypes.MedicationSchedule) error {
	if err := validateSchedule(med); err != nil {
		return err
	}

	docRef := db.firestoreClient.Collection(medicationsCollection).Doc(med.ID)
	docSnap, err := docRef.Get(ctx)
	if err != nil {
		return ErrScheduleNotFound
	}

	stored := &dbtypes.MedicationSchedule{}
	if err := docSnap.DataTo(stored); err != nil {
		return fmt.Errorf("while unmarshaling medication schedule %s: %w", med.ID, err)
	}
	med.Actions = stored.Actions

	if _, err := docRef.Set(ctx, med); err != nil {
		return fmt.Errorf("while updating medication schedule %s: %w", med.ID, err)
	}

	return nil
}

// DeleteMedicationSchedule removes the record.  Its notifications are the
// coordinator's problem, not ours.
func (db *DB) DeleteMedicationSchedule(ctx context.Context, id string) error {
	if _, err := db.firestoreClient.Collection(medicationsCollection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("while deleting medication schedule %s: %w", id, err)
	}
	return nil
}

func (db *DB) GetMedicationSchedule(ctx context.Context, id string) (*dbtypes.MedicationSchedule, error) {
	docSnap, err := db.firestoreClient.Collection(medicationsCollection).Doc(id).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("while retrieving medication schedule %s: %w", id, err)
	}

	med := &dbtypes.MedicationSchedule{}
	if err := docSnap.DataTo(med); err != nil {
		return nil, fmt.Errorf("while unmarshaling medication schedule %s: %w", id, err)
	}

	return med, nil
}

// MedicationSchedulesForOwner returns every medication schedule owned by the
// given user.  Individual records that fail to unmarshal are logged and
// skipped rather than failing the whole listing; the skipped count is
// reported so callers can warn the user.
func (db *DB) MedicationSchedulesForOwner(ctx context.Context, ownerEmail string) (meds []*dbtypes.MedicationSchedule, skipped int, err error) {
	medIter := db.firestoreClient.Collection(medicationsCollection).Where("userEmail", "==", ownerEmail).Documents(ctx)
	defer medIter.Stop()
	for {
		medSnapshot, err := medIter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, skipped, fmt.Errorf("while iterating medication schedules for %q: %w", ownerEmail, err)
		}

		med := &dbtypes.MedicationSchedule{}
		if err := medSnapshot.DataTo(med); err != nil {
			slog.ErrorContext(ctx, "Skipping medication schedule that failed to unmarshal",
				slog.String("id", medSnapshot.Ref.ID), slog.Any("err", err))
			skipped++
			continue
		}

		meds = append(meds, med)
	}

	return meds, skipped, nil
}

// CheckUserOwnsSchedule verifies the schedule belongs to the user.
func (db *DB) CheckUserOwnsSchedule(user *dbtypes.User, med *dbtypes.MedicationSchedule) error {
	if user == nil || med.OwnerEmail != user.Email {
		return ErrPermissionDenied
	}
	return nil
}

// AppendDoseAction appends one Taken/Missed entry to the medication's
// confirmation log.  The log is append-only; nothing here ever interprets
// it.
func (db *DB) AppendDoseAction(ctx context.Context, scheduleID string, action dbtypes.DoseAction) error {
	docRef := db.firestoreClient.Collection(medicationsCollection).Doc(scheduleID)
	_, err := docRef.Update(ctx, []firestore.Update{
		{Path: "action", Value: firestore.ArrayUnion(action)},
	})
	if err != nil {
		return fmt.Errorf("while appending dose action to medication schedule %s: %w", scheduleID, err)
	}

	return nil
}
