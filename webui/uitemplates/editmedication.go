package uitemplates

import "html/template"

type EditMedicationParams struct {
	MedicationName string
	Dose           string
	StartDate      string
	EndDate        string
	Times          string
	Frequency      string
	When           string
	MealOffset     string

	// Weekdays lists every selectable day label in week order; Selected
	// reports which ones the stored record has.
	Weekdays []EditMedicationWeekday

	SelfLink  string
	UserError string
}

type EditMedicationWeekday struct {
	Label    string
	Selected bool
}

var editMedicationText = `
{{define "title"}}Edit Medication{{end}}

{{define "breadcrumbs" -}}
  <li class="breadcrumb-item"><a href="/">Home</a></li>
  <li class="breadcrumb-item"><a href="/list-medications">My Medications</a></li>
  <li class="breadcrumb-item active" aria-current="page"><a href="{{.SelfLink}}">Edit: {{.MedicationName}}</a></li>
{{- end}}

{{define "content"}}

<h1>Edit Medication: {{.MedicationName}}</h1>

{{if .UserError}}
  <div class="alert alert-danger" role="alert">
    Error: {{.UserError}}
  </div>
{{end}}

<form method="POST">
  <div class="mb-3">
    <label for="medication-name" class="form-label">Medication Name</label>
    <input id="medication-name" type="text" name="medication-name" value="{{.MedicationName}}" class="form-control" required>
  </div>

  <div class="mb-3">
    <label for="dose" class="form-label">Dose</label>
    <input id="dose" type="text" name="dose" value="{{.Dose}}" class="form-control" required>
  </div>

  <div class="mb-3">
    <label for="start-date" class="form-label">Start Date</label>
    <input id="start-date" type="date" name="start-date" value="{{.StartDate}}" class="form-control" required>
  </div>

  <div class="mb-3">
    <label for="end-date" class="form-label">End Date</label>
    <input id="end-date" type="date" name="end-date" value="{{.EndDate}}" class="form-control" required>
  </div>

  <div class="mb-3">
    <label for="times" class="form-label">Reminder Times (HH:mm, comma separated)</label>
    <input id="times" type="text" name="times" value="{{.Times}}" class="form-control" required>
  </div>

  <div class="mb-3">
    <label for="frequency" class="form-label">Frequency</label>
    <select id="frequency" name="frequency" class="form-select">
      <option value="daily" {{if eq .Frequency "daily"}}selected{{end}}>Every day</option>
      <option value="everyOtherDay" {{if eq .Frequency "everyOtherDay"}}selected{{end}}>Every other day</option>
      <option value="weekdays" {{if eq .Frequency "weekdays"}}selected{{end}}>Specific weekdays</option>
    </select>
  </div>

  <div class="mb-3">
    <label class="form-label">Weekdays (for "specific weekdays")</label><br>
    {{range .Weekdays}}
    <div class="form-check form-check-inline">
      <input class="form-check-input" type="checkbox" name="weekdays" value="{{.Label}}" id="weekday-{{.Label}}" {{if .Selected}}checked{{end}}>
      <label class="form-check-label" for="weekday-{{.Label}}">{{.Label}}</label>
    </div>
    {{end}}
  </div>

  <div class="mb-3">
    <label for="when" class="form-label">Relative to Meal</label>
    <select id="when" name="when" class="form-select">
      <option value="" {{if eq .When ""}}selected{{end}}>Not tied to meals</option>
      <option value="before" {{if eq .When "before"}}selected{{end}}>Before meal</option>
      <option value="after" {{if eq .When "after"}}selected{{end}}>After meal</option>
    </select>
  </div>

  <div class="mb-3">
    <label for="meal-offset" class="form-label">Meal Offset (minutes)</label>
    <input id="meal-offset" type="number" name="meal-offset" value="{{.MealOffset}}" class="form-control">
  </div>

  <button type="submit" class="btn btn-primary">Save Changes</button>
</form>

{{end}}
`

var EditMedicationTemplate = template.Must(template.Must(template.New("base").Parse(baseText)).Parse(editMedicationText))
