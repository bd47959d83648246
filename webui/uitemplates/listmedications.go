package uitemplates

import "html/template"

type ListMedicationsParams struct {
	Medications []ListMedicationsMedication

	// Notice is an advisory shown after a partial resync.
	Notice    string
	UserError string
}

type ListMedicationsMedication struct {
	Name               string
	Dose               string
	Schedule           string
	EditMedicationLink string
	DeleteAction       string
}

var listMedicationsText = `{{define "title"}}My Medications{{end}}
{{define "breadcrumbs" -}}
<li class="breadcrumb-item"><a href="/">Home</a></li>
<li class="breadcrumb-item active" aria-current="page"><a href="/list-medications">My Medications</a></li>
{{- end}}

{{define "content"}}
{{if .Notice}}
<div class="alert alert-warning" role="alert">
  {{.Notice}}
</div>
{{end}}
{{if .UserError}}
<div class="alert alert-danger" role="alert">
  Error: {{.UserError}}
</div>
{{end}}

<table class="table">
  <thead>
    <tr><td>Medication</td><td>Dose</td><td>Schedule</td><td></td><td></td></tr>
  </thead>
  <tbody>
  {{range .Medications}}
    <tr>
      <td>{{.Name}}</td>
      <td>{{.Dose}}</td>
      <td>{{.Schedule}}</td>
      <td><a href="{{.EditMedicationLink}}">Edit</a></td>
      <td>
        <form method="POST" action="{{.DeleteAction}}">
          <button type="submit" class="btn btn-link p-0">Delete</button>
        </form>
      </td>
    </tr>
  {{end}}
  </tbody>
</table>

<a href="/create-medication" class="btn btn-primary">Add Medication</a>

<form method="POST" action="/resync" class="d-inline">
  <button type="submit" class="btn btn-secondary">Resync Reminders</button>
</form>
{{end}}
`

var ListMedicationsTemplate = template.Must(template.Must(template.New("base").Parse(baseText)).Parse(listMedicationsText))
