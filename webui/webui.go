package webui

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"dosepilot/dblayer"
	"dosepilot/dbtypes"
	"dosepilot/notify"
	"dosepilot/router"
	"dosepilot/schedule"
	"dosepilot/scheduler"
	"dosepilot/webui/uitemplates"

	"github.com/golang/glog"
)

const sessionCookieName = "DosePilot-Session"

// weekdayChoices is the form's day order, Monday first.
var weekdayChoices = []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

// Store is the document-store surface the UI handlers consume.
// *dblayer.DB satisfies it.
type Store interface {
	SessionFromPassword(ctx context.Context, email, password string) (*dbtypes.Session, error)
	DeleteSession(ctx context.Context, cookie string) error
	UserFromSessionCookie(ctx context.Context, cookie string) (*dbtypes.User, error)

	CreateMedicationSchedule(ctx context.Context, med *dbtypes.MedicationSchedule) error
	UpdateMedicationSchedule(ctx context.Context, med *dbtypes.MedicationSchedule) error
	DeleteMedicationSchedule(ctx context.Context, id string) error
	GetMedicationSchedule(ctx context.Context, id string) (*dbtypes.MedicationSchedule, error)
	MedicationSchedulesForOwner(ctx context.Context, ownerEmail string) (meds []*dbtypes.MedicationSchedule, skipped int, err error)
	CheckUserOwnsSchedule(user *dbtypes.User, med *dbtypes.MedicationSchedule) error
	AppendDoseAction(ctx context.Context, scheduleID string, action dbtypes.DoseAction) error
}

// TapQueue is the notification-tap surface the UI handlers consume.
// *notify.FirestoreQueue satisfies it.
type TapQueue interface {
	RecordTap(ctx context.Context, identifier string, p notify.Payload) error
	LastTapResponse(ctx context.Context, ownerEmail string) (*notify.TapEvent, error)
}

type WebUI struct {
	db    Store
	coord *scheduler.Coordinator
	queue TapQueue
}

func New(db Store, coord *scheduler.Coordinator, queue TapQueue) *WebUI {
	return &WebUI{
		db:    db,
		coord: coord,
		queue: queue,
	}
}

func (u *WebUI) Register(m *http.ServeMux) {
	m.HandleFunc("/", u.homeHandler)
	m.HandleFunc("/log-in", u.logInHandler)
	m.HandleFunc("/log-out", u.logOutHandler)
	m.HandleFunc("/list-medications", u.listMedicationsHandler)
	m.HandleFunc("/create-medication", u.createMedicationHandler)
	m.HandleFunc("/edit-medication", u.editMedicationHandler)
	m.HandleFunc("/delete-medication", u.deleteMedicationHandler)
	m.HandleFunc("/confirm-dose", u.confirmDoseHandler)
	m.HandleFunc("/resync", u.resyncHandler)
}

// getLoggedInUser loads the user associated with the session cookie in the
// request, if it exists.
func (u *WebUI) getLoggedInUser(ctx context.Context, r *http.Request) (*dbtypes.User, error) {
	var sessionCookie *http.Cookie
	for _, cookie := range r.Cookies() {
		if cookie.Name == sessionCookieName {
			sessionCookie = cookie
		}
	}
	if sessionCookie == nil {
		// No session cookie; user is not logged in.
		glog.Infof("No logged-in user because there was no session cookie.")
		return nil, nil
	}

	return u.db.UserFromSessionCookie(ctx, sessionCookie.Value)
}

// sessionUser adapts an already-loaded user to router.UserSource.
type sessionUser struct {
	user *dbtypes.User
}

func (s sessionUser) CurrentUser(ctx context.Context) (*dbtypes.User, error) {
	return s.user, nil
}

func (u *WebUI) routerFor(user *dbtypes.User) *router.Router {
	return router.New(sessionUser{user: user}, u.queue)
}

func render(w http.ResponseWriter, t *template.Template, params any) {
	content := bytes.Buffer{}
	if err := t.Execute(&content, params); err != nil {
		glog.Errorf("Error while executing template: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	if _, err := io.Copy(w, &content); err != nil {
		// It's too late to write an error to the HTTP response.
		glog.Errorf("Error while writing output: %v", err)
		return
	}
}

// homeHandler renders the home page.  For a logged-in user it also runs the
// cold-start check: if the most recent reminder tap is still unanswered, the
// page links to its confirmation.
func (u *WebUI) homeHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	ctx := r.Context()

	params := &uitemplates.HomeParams{}

	user, err := u.getLoggedInUser(ctx, r)
	if err != nil {
		glog.Errorf("Error while getting logged-in user: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}
	if user != nil {
		params.ActiveUser.LoggedIn = true
		params.ActiveUser.Email = user.Email

		intent, err := u.routerFor(user).ResolveLastTap(ctx)
		if err != nil {
			glog.Errorf("Error while resolving last notification tap: %v", err)
			// The home page is still useful without the banner.
		} else if intent != nil {
			params.PendingConfirm = ConfirmDoseLink(notify.Payload{
				Type:         notify.TypeMedicationReminder,
				ScheduleID:   intent.ScheduleID,
				Date:         intent.Date,
				OwnerEmail:   user.Email,
				Name:         intent.Name,
				Dose:         intent.Dose,
				When:         intent.When,
				ReminderTime: intent.Time,
			})
			params.PendingConfirmName = intent.Name
		}
	}

	render(w, uitemplates.HomeTemplate, params)
}

func (u *WebUI) doLogIn(ctx context.Context, email, password string) (cookie *http.Cookie, toast string, err error) {
	session, err := u.db.SessionFromPassword(ctx, email, password)
	switch {
	case errors.Is(err, dblayer.ErrEmailMustNotBeEmpty):
		return nil, "Email must not be empty", nil
	case errors.Is(err, dblayer.ErrPasswordMustNotBeEmpty):
		return nil, "Password must not be empty", nil
	case errors.Is(err, dblayer.ErrUnknownUserOrWrongPassword):
		return nil, "Unknown user or wrong password", nil
	case err != nil:
		return nil, "", fmt.Errorf("while logging in %q: %w", email, err)
	}

	cookie = &http.Cookie{
		Name:     sessionCookieName,
		Value:    session.Cookie,
		SameSite: http.SameSiteStrictMode,
		Expires:  session.Expires,
	}

	return cookie, "", nil
}

// logInHandler renders the login page.
func (u *WebUI) logInHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/log-in" {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	ctx := r.Context()

	user, err := u.getLoggedInUser(ctx, r)
	if err != nil {
		glog.Errorf("Error while getting logged-in user: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	if user != nil {
		// User is already logged in.  Send them back home.
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	if r.Method == http.MethodPost {
		// The user is submitting a login form.

		if err := r.ParseForm(); err != nil {
			glog.Errorf("Error while parsing form: %v", err)
			http.Error(w, "Internal Error", http.StatusInternalServerError)
			return
		}

		cookie, userErr, err := u.doLogIn(ctx, r.PostForm.Get("email"), r.PostForm.Get("password"))
		if err != nil {
			glog.Errorf("Error while processing log in form: %v", err)
			http.Error(w, "Internal Error", http.StatusInternalServerError)
			return
		}

		if userErr != "" {
			render(w, uitemplates.LogInTemplate, &uitemplates.LogInParams{UserError: userErr})
			return
		}

		// User successfully logged in
		http.SetCookie(w, cookie)
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	// Otherwise, render login form.
	render(w, uitemplates.LogInTemplate, &uitemplates.LogInParams{})
}

func (u *WebUI) logOutHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/log-out" {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	ctx := r.Context()

	if r.Method == http.MethodPost {
		for _, cookie := range r.Cookies() {
			if cookie.Name != sessionCookieName {
				continue
			}
			if err := u.db.DeleteSession(ctx, cookie.Value); err != nil {
				glog.Errorf("Error while deleting session: %v", err)
				http.Error(w, "Internal Error", http.StatusInternalServerError)
				return
			}
		}

		http.SetCookie(w, &http.Cookie{
			Name:   sessionCookieName,
			Value:  "",
			MaxAge: -1,
		})
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	render(w, uitemplates.LogOutTemplate, &uitemplates.LogOutParams{})
}

// describeSchedule renders a one-line summary of the dosing schedule for the
// medication list.
func describeSchedule(med *dbtypes.MedicationSchedule) string {
	var rule string
	switch schedule.Frequency(med.Frequency).Canonical() {
	case schedule.EveryOtherDay:
		rule = "every other day"
	case schedule.Weekdays:
		rule = strings.Join(med.Weekdays, ", ")
	default:
		rule = "daily"
	}
	return fmt.Sprintf("%s at %s", rule, strings.Join(med.Times, ", "))
}

// listMedicationsHandler renders the medication list for the logged-in user.
func (u *WebUI) listMedicationsHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/list-medications" {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	ctx := r.Context()

	user, err := u.getLoggedInUser(ctx, r)
	if err != nil {
		glog.Errorf("Error while getting logged-in user: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	if user == nil {
		// User is not logged in.  Send them to log in.
		http.Redirect(w, r, "/log-in", http.StatusFound)
		return
	}

	if err := r.ParseForm(); err != nil {
		glog.Errorf("Error while parsing form: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	params := &uitemplates.ListMedicationsParams{
		Notice:    r.Form.Get("notice"),
		UserError: r.Form.Get("user-error"),
	}

	meds, skipped, err := u.db.MedicationSchedulesForOwner(ctx, user.Email)
	if err != nil {
		glog.Errorf("Error while listing medications for user %q: %v", user.Email, err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}
	if skipped > 0 && params.Notice == "" {
		params.Notice = "Some medications could not be loaded."
	}

	for _, med := range meds {
		params.Medications = append(params.Medications, uitemplates.ListMedicationsMedication{
			Name:               med.Name,
			Dose:               med.Dose,
			Schedule:           describeSchedule(med),
			EditMedicationLink: EditMedicationLink(med.ID),
			DeleteAction:       deleteMedicationAction(med.ID),
		})
	}

	render(w, uitemplates.ListMedicationsTemplate, params)
}

func EditMedicationLink(id string) string {
	q := url.Values{}
	q.Add("id", id)
	link := &url.URL{
		Path:     "/edit-medication",
		RawQuery: q.Encode(),
	}
	return link.String()
}

func deleteMedicationAction(id string) string {
	q := url.Values{}
	q.Add("id", id)
	link := &url.URL{
		Path:     "/delete-medication",
		RawQuery: q.Encode(),
	}
	return link.String()
}

func listMedicationsLink(notice, userError string) string {
	q := url.Values{}
	if notice != "" {
		q.Add("notice", notice)
	}
	if userError != "" {
		q.Add("user-error", userError)
	}
	link := &url.URL{
		Path:     "/list-medications",
		RawQuery: q.Encode(),
	}
	return link.String()
}

// scheduleFromForm builds a MedicationSchedule from submitted form values.
// A non-empty userErr means the form should be re-rendered with that
// message.
func scheduleFromForm(user *dbtypes.User, form url.Values) (med *dbtypes.MedicationSchedule, userErr string) {
	startDate, err := time.Parse("2006-01-02", form.Get("start-date"))
	if err != nil {
		return nil, fmt.Sprintf("Could not parse start date %q", form.Get("start-date"))
	}

	endDate, err := time.Parse("2006-01-02", form.Get("end-date"))
	if err != nil {
		return nil, fmt.Sprintf("Could not parse end date %q", form.Get("end-date"))
	}

	var times []string
	for _, t := range strings.Split(form.Get("times"), ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, err := time.Parse(schedule.TimeLayout, t); err != nil {
			return nil, fmt.Sprintf("Could not parse time %q; use HH:mm", t)
		}
		times = append(times, t)
	}
	if len(times) == 0 {
		return nil, "At least one reminder time is required"
	}

	med = &dbtypes.MedicationSchedule{
		OwnerEmail: user.Email,
		Name:       form.Get("medication-name"),
		Dose:       form.Get("dose"),
		StartDate:  startDate,
		EndDate:    endDate,
		Times:      times,
		Frequency:  form.Get("frequency"),
		Weekdays:   form["weekdays"],
		When:       form.Get("when"),
	}

	if med.When != "" {
		offset, err := strconv.Atoi(form.Get("meal-offset"))
		if err != nil || offset <= 0 {
			return nil, fmt.Sprintf("Could not parse meal offset %q", form.Get("meal-offset"))
		}
		med.MealOffsetMinutes = int64(offset)
	}

	return med, ""
}

// userErrForScheduleInput maps schedule/dblayer input sentinels to form
// messages.  Returns "" for errors that are not user input problems.
func userErrForScheduleInput(err error) string {
	switch {
	case errors.Is(err, schedule.ErrInvalidRange):
		return "Start date must not be after end date"
	case errors.Is(err, schedule.ErrInvalidRule):
		return "Pick at least one weekday for the weekday frequency"
	case errors.Is(err, schedule.ErrUnknownFrequency):
		return "Unknown frequency"
	case errors.Is(err, dblayer.ErrNameMustNotBeEmpty):
		return "Medication name must not be empty"
	case errors.Is(err, dblayer.ErrNoReminderTimes):
		return "At least one reminder time is required"
	}
	return ""
}

func (u *WebUI) createMedicationHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/create-medication" {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	ctx := r.Context()

	user, err := u.getLoggedInUser(ctx, r)
	if err != nil {
		glog.Errorf("Error while getting logged-in user: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	if user == nil {
		http.Redirect(w, r, "/log-in", http.StatusFound)
		return
	}

	params := &uitemplates.CreateMedicationParams{
		SelfLink: "/create-medication",
		Weekdays: weekdayChoices,
	}

	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			glog.Errorf("Error while parsing form: %v", err)
			http.Error(w, "Internal Error", http.StatusInternalServerError)
			return
		}

		med, userErr := scheduleFromForm(user, r.PostForm)
		if userErr != "" {
			params.UserError = userErr
			render(w, uitemplates.CreateMedicationTemplate, params)
			return
		}

		if err := u.db.CreateMedicationSchedule(ctx, med); err != nil {
			if userErr := userErrForScheduleInput(err); userErr != "" {
				params.UserError = userErr
				render(w, uitemplates.CreateMedicationTemplate, params)
				return
			}
			glog.Errorf("Error while creating medication schedule: %v", err)
			http.Error(w, "Internal Error", http.StatusInternalServerError)
			return
		}

		if err := u.coord.OnCreate(ctx, med); err != nil {
			glog.Errorf("Error while scheduling reminders for new medication %s: %v", med.ID, err)
			http.Redirect(w, r, listMedicationsLink("", "Could not save reminders for this medication"), http.StatusFound)
			return
		}

		http.Redirect(w, r, listMedicationsLink("", ""), http.StatusFound)
		return
	}

	render(w, uitemplates.CreateMedicationTemplate, params)
}

func (u *WebUI) editMedicationHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/edit-medication" {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	ctx := r.Context()

	user, err := u.getLoggedInUser(ctx, r)
	if err != nil {
		glog.Errorf("Error while getting logged-in user: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	if user == nil {
		http.Redirect(w, r, "/log-in", http.StatusFound)
		return
	}

	if err := r.ParseForm(); err != nil {
		glog.Errorf("Error while parsing form: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	id := r.Form.Get("id")

	med, err := u.db.GetMedicationSchedule(ctx, id)
	if err != nil {
		glog.Errorf("Error while retrieving medication schedule %s: %v", id, err)
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	// Permissions check --- is the user allowed to touch this medication?
	if err := u.db.CheckUserOwnsSchedule(user, med); err != nil {
		glog.Errorf("User %s is not allowed to edit medication %s", user.Email, id)
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	if r.Method == http.MethodPost {
		updated, userErr := scheduleFromForm(user, r.PostForm)
		if userErr != "" {
			render(w, uitemplates.EditMedicationTemplate, editParamsFor(med, userErr))
			return
		}
		updated.ID = med.ID

		if err := u.db.UpdateMedicationSchedule(ctx, updated); err != nil {
			if userErr := userErrForScheduleInput(err); userErr != "" {
				render(w, uitemplates.EditMedicationTemplate, editParamsFor(med, userErr))
				return
			}
			glog.Errorf("Error while updating medication schedule %s: %v", id, err)
			http.Error(w, "Internal Error", http.StatusInternalServerError)
			return
		}

		if err := u.coord.OnUpdate(ctx, updated); err != nil {
			glog.Errorf("Error while rescheduling reminders for medication %s: %v", id, err)
			http.Redirect(w, r, listMedicationsLink("", "Could not save reminders for this medication"), http.StatusFound)
			return
		}

		http.Redirect(w, r, listMedicationsLink("", ""), http.StatusFound)
		return
	}

	render(w, uitemplates.EditMedicationTemplate, editParamsFor(med, ""))
}

func editParamsFor(med *dbtypes.MedicationSchedule, userErr string) *uitemplates.EditMedicationParams {
	selected := map[string]bool{}
	for _, wd := range med.Weekdays {
		selected[wd] = true
	}

	params := &uitemplates.EditMedicationParams{
		MedicationName: med.Name,
		Dose:           med.Dose,
		StartDate:      med.StartDate.Format("2006-01-02"),
		EndDate:        med.EndDate.Format("2006-01-02"),
		Times:          strings.Join(med.Times, ", "),
		Frequency:      string(schedule.Frequency(med.Frequency).Canonical()),
		When:           med.When,
		SelfLink:       EditMedicationLink(med.ID),
		UserError:      userErr,
	}
	if med.MealOffsetMinutes > 0 {
		params.MealOffset = strconv.FormatInt(med.MealOffsetMinutes, 10)
	} else {
		params.MealOffset = "30"
	}
	for _, day := range weekdayChoices {
		params.Weekdays = append(params.Weekdays, uitemplates.EditMedicationWeekday{
			Label:    day,
			Selected: selected[day],
		})
	}

	return params
}

func (u *WebUI) deleteMedicationHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/delete-medication" {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	user, err := u.getLoggedInUser(ctx, r)
	if err != nil {
		glog.Errorf("Error while getting logged-in user: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	if user == nil {
		http.Redirect(w, r, "/log-in", http.StatusFound)
		return
	}

	if err := r.ParseForm(); err != nil {
		glog.Errorf("Error while parsing form: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	id := r.Form.Get("id")

	med, err := u.db.GetMedicationSchedule(ctx, id)
	if err != nil {
		glog.Errorf("Error while retrieving medication schedule %s: %v", id, err)
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	if err := u.db.CheckUserOwnsSchedule(user, med); err != nil {
		glog.Errorf("User %s is not allowed to delete medication %s", user.Email, id)
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	if err := u.db.DeleteMedicationSchedule(ctx, id); err != nil {
		glog.Errorf("Error while deleting medication schedule %s: %v", id, err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	// The record is gone; its notifications are cancelled by identifier
	// scan, which doesn't need the record.
	if err := u.coord.OnDelete(ctx, user.Email, id); err != nil {
		glog.Errorf("Error while cancelling reminders for deleted medication %s: %v", id, err)
		http.Redirect(w, r, listMedicationsLink("Some reminders may be out of date", ""), http.StatusFound)
		return
	}

	http.Redirect(w, r, listMedicationsLink("", ""), http.StatusFound)
}

// ConfirmDoseLink builds the confirmation URL for one reminder payload.
// The payload rides along as query parameters so that the link works from a
// delivered email as well as from in-app navigation.
func ConfirmDoseLink(p notify.Payload) string {
	q := url.Values{}
	q.Add("type", p.Type)
	q.Add("medId", p.ScheduleID)
	q.Add("date", p.Date)
	q.Add("time", p.ReminderTime)
	q.Add("owner", p.OwnerEmail)
	q.Add("name", p.Name)
	q.Add("dose", p.Dose)
	q.Add("when", p.When)
	link := &url.URL{
		Path:     "/confirm-dose",
		RawQuery: q.Encode(),
	}
	return link.String()
}

func payloadFromForm(form url.Values) notify.Payload {
	return notify.Payload{
		Type:         form.Get("type"),
		ScheduleID:   form.Get("medId"),
		Date:         form.Get("date"),
		OwnerEmail:   form.Get("owner"),
		Name:         form.Get("name"),
		Dose:         form.Get("dose"),
		When:         form.Get("when"),
		ReminderTime: form.Get("time"),
	}
}

// confirmDoseHandler is the landing page for a tapped reminder.  GET records
// the tap and shows the Taken/Missed choice; POST appends the dose action.
func (u *WebUI) confirmDoseHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/confirm-dose" {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	ctx := r.Context()

	user, err := u.getLoggedInUser(ctx, r)
	if err != nil {
		glog.Errorf("Error while getting logged-in user: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	if user == nil {
		http.Redirect(w, r, "/log-in", http.StatusFound)
		return
	}

	if err := r.ParseForm(); err != nil {
		glog.Errorf("Error while parsing form: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	payload := payloadFromForm(r.Form)

	intent, err := u.routerFor(user).Resolve(ctx, payload)
	if err != nil {
		glog.Errorf("Error while resolving notification payload: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}
	if intent == nil {
		// Wrong payload type or a reminder for somebody else's account.
		// Both are benign; just go home.
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	// The payload rode in on the URL, so the owner field in it proves
	// nothing.  Check ownership against the stored record before touching
	// it.
	med, err := u.db.GetMedicationSchedule(ctx, intent.ScheduleID)
	if err != nil {
		glog.Errorf("Error while retrieving medication schedule %s: %v", intent.ScheduleID, err)
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	if err := u.db.CheckUserOwnsSchedule(user, med); err != nil {
		glog.Errorf("User %s is not allowed to confirm doses for medication %s", user.Email, intent.ScheduleID)
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	if r.Method == http.MethodPost {
		status := r.PostForm.Get("status")
		if status != "Taken" && status != "Missed" {
			http.Error(w, "Bad Request", http.StatusBadRequest)
			return
		}

		action := dbtypes.DoseAction{
			Status:       status,
			Date:         intent.Date,
			ReminderTime: intent.Time,
			ActualTime:   time.Now().Format(schedule.TimeLayout),
		}
		if err := u.db.AppendDoseAction(ctx, intent.ScheduleID, action); err != nil {
			glog.Errorf("Error while recording dose action for medication %s: %v", intent.ScheduleID, err)
			http.Error(w, "Internal Error", http.StatusInternalServerError)
			return
		}

		http.Redirect(w, r, listMedicationsLink("", ""), http.StatusFound)
		return
	}

	// Record the tap so a cold start can pick it back up.
	identifier := schedule.Identifier(payload.ScheduleID, payload.Date, payload.ReminderTime)
	if err := u.queue.RecordTap(ctx, identifier, payload); err != nil {
		glog.Errorf("Error while recording notification tap %q: %v", identifier, err)
		// Not fatal; the user is already on the confirmation page.
	}

	params := &uitemplates.ConfirmDoseParams{
		MedicationName: intent.Name,
		Dose:           intent.Dose,
		Date:           intent.Date,
		Time:           intent.Time,
		SelfLink:       ConfirmDoseLink(payload),
	}
	switch intent.When {
	case schedule.BeforeMeal:
		params.MealHint = "Take it before your meal."
	case schedule.AfterMeal:
		params.MealHint = "Take it after your meal."
	}

	render(w, uitemplates.ConfirmDoseTemplate, params)
}

// resyncHandler reconciles the user's whole reminder queue against the
// stored medications.  The mobile app does this on every launch; here it is
// a button.
func (u *WebUI) resyncHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/resync" {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	if r.Method != http.MethodPost {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	ctx := r.Context()

	user, err := u.getLoggedInUser(ctx, r)
	if err != nil {
		glog.Errorf("Error while getting logged-in user: %v", err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	if user == nil {
		http.Redirect(w, r, "/log-in", http.StatusFound)
		return
	}

	if err := u.coord.ResyncAll(ctx, user.Email); err != nil {
		if errors.Is(err, scheduler.ErrRemindersOutOfDate) {
			http.Redirect(w, r, listMedicationsLink("Some reminders may be out of date", ""), http.StatusFound)
			return
		}
		glog.Errorf("Error while resyncing reminders for user %q: %v", user.Email, err)
		http.Error(w, "Internal Error", http.StatusInternalServerError)
		return
	}

	http.Redirect(w, r, listMedicationsLink("Reminders are up to date", ""), http.StatusFound)
}
