// Kulkue - Demonstration Catalogue and Event Lifecycle Backend
// Copyright 2026 M. Kosonen (mkosonen)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mkosonen/kulkue

package mailer

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/mkosonen/kulkue/internal/models"
)

// Body templates per notification type. Outbound mail to submitters and
// moderators is in Finnish.
var bodyTemplates = template.Must(template.New("notifications").Parse(`
{{define "admin_pending_reminder" -}}
Odottava mielenosoitusilmoitus: {{.title}}
Päivämäärä: {{.date}} {{.city}}

Ilmoittaja: {{.submitter_name}} <{{.submitter_email}}>

Hyväksy: {{.approve_url}}
Esikatsele: {{.preview_url}}
Hylkää: {{.reject_url}}
{{- end}}

{{define "submission_received" -}}
Kiitos ilmoituksestasi!

Mielenosoituksesi "{{.title}}" ({{.date}}) on vastaanotettu ja odottaa
tarkistusta. Saat viestin, kun ilmoitus on käsitelty.
{{- end}}

{{define "submission_accepted" -}}
Mielenosoituksesi "{{.title}}" ({{.date}}) on hyväksytty ja näkyy nyt
kalenterissa: {{.public_url}}
{{- end}}

{{define "submission_rejected" -}}
Mielenosoitusilmoituksesi "{{.title}}" ({{.date}}) on valitettavasti
hylätty.{{if .reason}} Syy: {{.reason}}{{end}}
{{- end}}

{{define "recurring_created" -}}
Toistuva mielenosoitus "{{.title}}" on luotu. Seuraavat kerrat on lisätty
kalenteriin automaattisesti.
{{- end}}
`))

// Render produces the plain-text body for a message from its template key
// and context.
func Render(msg models.NotificationMessage) (string, error) {
	tmpl := bodyTemplates.Lookup(msg.Template)
	if tmpl == nil {
		return "", fmt.Errorf("unknown notification template %q", msg.Template)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, msg.Context); err != nil {
		return "", err
	}
	return strings.TrimSpace(b.String()), nil
}
