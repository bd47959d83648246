package uitemplates

import "html/template"

type HomeParams struct {
	ActiveUser ActiveUserParams

	// PendingConfirm links to the confirmation page for the most recently
	// tapped reminder, when one is waiting for an answer.
	PendingConfirm     string
	PendingConfirmName string
}

var homeText = `{{define "title"}}Home{{end}}
{{define "breadcrumbs" -}}
<li class="breadcrumb-item active" aria-current="page"><a href="/">Home</a></li>
{{- end}}

{{define "content"}}
{{if .ActiveUser.LoggedIn}}
You are now logged in, {{.ActiveUser.Email}}.

{{if .PendingConfirm}}
<div class="alert alert-warning" role="alert">
  You have an unanswered reminder for {{.PendingConfirmName}}.
  <a href="{{.PendingConfirm}}">Confirm it now.</a>
</div>
{{end}}

<ul>
  <li><a href="/list-medications">My Medications</a></li>
  <li><a href="/log-out">Log Out</a></li>
</ul>
{{else}}
<a href="/log-in">Log In</a>
{{end}}
{{end}}
`

var HomeTemplate = template.Must(template.Must(template.New("base").Parse(baseText)).Parse(homeText))
