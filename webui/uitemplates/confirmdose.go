package uitemplates

import "html/template"

type ConfirmDoseParams struct {
	MedicationName string
	Dose           string
	Date           string
	Time           string
	MealHint       string

	SelfLink  string
	UserError string
}

var confirmDoseText = `
{{define "title"}}Confirm Dose{{end}}

{{define "breadcrumbs" -}}
  <li class="breadcrumb-item"><a href="/">Home</a></li>
  <li class="breadcrumb-item active" aria-current="page"><a href="{{.SelfLink}}">Confirm Dose</a></li>
{{- end}}

{{define "content"}}

<h1>Did you take your medication?</h1>

{{if .UserError}}
  <div class="alert alert-danger" role="alert">
    Error: {{.UserError}}
  </div>
{{end}}

<p>
  <strong>{{.MedicationName}}</strong>, {{.Dose}}<br>
  Scheduled for {{.Date}} at {{.Time}}.
  {{if .MealHint}}<br>{{.MealHint}}{{end}}
</p>

<form method="POST">
  <button type="submit" name="status" value="Taken" class="btn btn-success">Taken</button>
  <button type="submit" name="status" value="Missed" class="btn btn-danger">Missed</button>
</form>
{{end}}
`

var ConfirmDoseTemplate = template.Must(template.Must(template.New("base").Parse(baseText)).Parse(confirmDoseText))
