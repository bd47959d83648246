package uitemplates

import "html/template"

type CreateMedicationParams struct {
	SelfLink  string
	UserError string

	// Weekdays is the list of selectable day labels, in week order.
	Weekdays []string
}

var createMedicationText = `
{{define "title"}}Add Medication{{end}}

{{define "breadcrumbs" -}}
  <li class="breadcrumb-item"><a href="/">Home</a></li>
  <li class="breadcrumb-item"><a href="/list-medications">My Medications</a></li>
  <li class="breadcrumb-item active" aria-current="page"><a href="{{.SelfLink}}">Add Medication</a></li>
{{- end}}

{{define "content"}}

<h1>Add New Medication:</h1>

{{if .UserError}}
  <div class="alert alert-danger" role="alert">
    Error: {{.UserError}}
  </div>
{{end}}

<form method="POST">
  <div class="mb-3">
    <label for="medication-name" class="form-label">Medication Name</label>
    <input id="medication-name" type="text" name="medication-name" class="form-control" required>
  </div>

  <div class="mb-3">
    <label for="dose" class="form-label">Dose</label>
    <input id="dose" type="text" name="dose" class="form-control" required>
  </div>

  <div class="mb-3">
    <label for="start-date" class="form-label">Start Date</label>
    <input id="start-date" type="date" name="start-date" class="form-control" required>
  </div>

  <div class="mb-3">
    <label for="end-date" class="form-label">End Date</label>
    <input id="end-date" type="date" name="end-date" class="form-control" required>
  </div>

  <div class="mb-3">
    <label for="times" class="form-label">Reminder Times (HH:mm, comma separated)</label>
    <input id="times" type="text" name="times" placeholder="08:00, 20:00" class="form-control" required>
  </div>

  <div class="mb-3">
    <label for="frequency" class="form-label">Frequency</label>
    <select id="frequency" name="frequency" class="form-select">
      <option value="daily">Every day</option>
      <option value="everyOtherDay">Every other day</option>
      <option value="weekdays">Specific weekdays</option>
    </select>
  </div>

  <div class="mb-3">
    <label class="form-label">Weekdays (for "specific weekdays")</label><br>
    {{range $day := .Weekdays}}
    <div class="form-check form-check-inline">
      <input class="form-check-input" type="checkbox" name="weekdays" value="{{$day}}" id="weekday-{{$day}}">
      <label class="form-check-label" for="weekday-{{$day}}">{{$day}}</label>
    </div>
    {{end}}
  </div>

  <div class="mb-3">
    <label for="when" class="form-label">Relative to Meal</label>
    <select id="when" name="when" class="form-select">
      <option value="">Not tied to meals</option>
      <option value="before">Before meal</option>
      <option value="after">After meal</option>
    </select>
  </div>

  <div class="mb-3">
    <label for="meal-offset" class="form-label">Meal Offset (minutes)</label>
    <input id="meal-offset" type="number" name="meal-offset" value="30" class="form-control">
  </div>

  <button type="submit" class="btn btn-primary">Add Medication</button>
</form>

{{end}}
`

var CreateMedicationTemplate = template.Must(template.Must(template.New("base").Parse(baseText)).Parse(createMedicationText))
