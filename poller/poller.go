// Package poller delivers due reminders: it periodically scans the pending
// queue for entries whose fire time has passed and emails them out.
package poller

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"text/template"
	"time"

	"dosepilot/notify"
	"dosepilot/webui"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Poller runs an infinite loop delivering due reminders.
type Poller struct {
	queue          *notify.FirestoreQueue
	sendgridClient *sendgrid.Client
	recheckPeriod  time.Duration
	externalURL    string
}

func New(queue *notify.FirestoreQueue, sendgridClient *sendgrid.Client, recheckPeriod time.Duration, externalURL string) *Poller {
	return &Poller{
		queue:          queue,
		sendgridClient: sendgridClient,
		recheckPeriod:  recheckPeriod,
		externalURL:    externalURL,
	}
}

func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.recheckPeriod)
	defer ticker.Stop()

	// Poll once right away --- ticker doesn't fire until the tick period has
	// elapsed.
	if err := p.pollDueReminders(ctx); err != nil {
		slog.ErrorContext(ctx, "Error during poller pass", slog.Any("err", err))
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if err := p.pollDueReminders(ctx); err != nil {
			slog.ErrorContext(ctx, "Error during poller pass", slog.Any("err", err))
		}
	}
}

func (p *Poller) pollDueReminders(ctx context.Context) error {
	slog.InfoContext(ctx, "Starting poller pass")
	defer func() {
		slog.InfoContext(ctx, "Finished poller pass")
	}()

	now := time.Now()

	due, err := p.queue.DuePending(ctx, now)
	if err != nil {
		return fmt.Errorf("while listing due reminders: %w", err)
	}

	for _, pending := range due {
		// One undeliverable reminder must not block the rest of the queue.
		if err := p.deliverReminder(ctx, pending); err != nil {
			slog.ErrorContext(ctx, "Skipping reminder that failed to deliver",
				slog.String("identifier", pending.Identifier), slog.Any("err", err))
			continue
		}

		if err := p.queue.MarkDelivered(ctx, pending.Identifier, now); err != nil {
			slog.ErrorContext(ctx, "Error while marking reminder delivered",
				slog.String("identifier", pending.Identifier), slog.Any("err", err))
		}
	}

	return nil
}

const emailPlain = `It's time to take {{.Name}}, {{.Dose}}.
{{if .When}}Take it {{.MealPhrase}}.
{{end}}
Confirm whether you took it: {{.ConfirmLink}}
`

var emailPlainTemplate = template.Must(template.New("email").Parse(emailPlain))

type emailParams struct {
	Name        string
	Dose        string
	When        string
	MealPhrase  string
	ConfirmLink string
}

func (p *Poller) deliverReminder(ctx context.Context, pending notify.Pending) error {
	if pending.Payload.OwnerEmail == "" {
		return fmt.Errorf("reminder %q has no owner email", pending.Identifier)
	}

	message := mail.NewV3Mail()
	message.From = mail.NewEmail("DosePilot Bot", "bot@dosepilot.dev")
	message.Subject = fmt.Sprintf("Medication reminder: %s", pending.Payload.Name)

	personalization := mail.NewPersonalization()
	personalization.To = append(personalization.To, mail.NewEmail("", pending.Payload.OwnerEmail))
	message.Personalizations = append(message.Personalizations, personalization)

	params := &emailParams{
		Name:        pending.Payload.Name,
		Dose:        pending.Payload.Dose,
		When:        pending.Payload.When,
		ConfirmLink: p.externalURL + webui.ConfirmDoseLink(pending.Payload),
	}
	switch pending.Payload.When {
	case "before":
		params.MealPhrase = "before your meal"
	case "after":
		params.MealPhrase = "after your meal"
	}

	textContent := &bytes.Buffer{}
	if err := emailPlainTemplate.Execute(textContent, params); err != nil {
		return fmt.Errorf("while templating plain-text email content: %w", err)
	}

	message.Content = append(message.Content, mail.NewContent("text/plain", textContent.String()))

	resp, err := p.sendgridClient.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("while sending mail through SendGrid: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("non-2XX response while sending mail through Sendgrid: %d %s", resp.StatusCode, resp.Body)
	}

	return nil
}
