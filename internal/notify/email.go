package notify

import (
	"bidmaster/internal/domain"
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/resend/resend-go/v2"
)

const emailSubjectTitleRunes = 30

//nolint:gochecknoglobals // Parsed once.
var leadEmailTemplate = template.Must(template.New("lead").Parse(`<h2>New Lead Found on Reddit: r/{{.Thread.Source}}</h2>
<p><strong>Thread:</strong> <a href="{{.Thread.URL}}">{{.Thread.Title}}</a></p>
<p><strong>User:</strong> u/{{.Thread.Author}}</p>
<hr>
<h3>Draft Reply:</h3>
<pre style="background: #f4f4f4; padding: 10px; white-space: pre-wrap;">{{.Text}}</pre>
<hr>
<p><em>Reply manually on the thread. Nothing was posted automatically.</em></p>
`))

// EmailSender is the part of the Resend client used here.
type EmailSender interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

type Email struct {
	sender EmailSender
	from   string
	to     []string
}

func NewEmail(sender EmailSender, from string, to string) (*Email, error) {
	if sender == nil {
		return nil, errors.New("email sender is nil")
	}

	from = strings.TrimSpace(from)
	if from == "" {
		return nil, errors.New("sender address is empty")
	}

	var recipients []string
	for _, addr := range strings.Split(to, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			recipients = append(recipients, addr)
		}
	}
	if len(recipients) == 0 {
		return nil, errors.New("recipient address is empty")
	}

	return &Email{sender: sender, from: from, to: recipients}, nil
}

// NewResendEmail sends through the Resend API.
func NewResendEmail(apiKey string, from string, to string, client *http.Client) (*Email, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("API key is empty")
	}

	if client == nil {
		client = http.DefaultClient
	}

	return NewEmail(resend.NewCustomClient(client, apiKey).Emails, from, to)
}

func (e *Email) NotifyLead(ctx context.Context, draft domain.ReplyDraft) error {
	var body bytes.Buffer
	if err := leadEmailTemplate.Execute(&body, draft); err != nil {
		return fmt.Errorf("render email: %w", err)
	}

	_, err := e.sender.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    e.from,
		To:      e.to,
		Subject: "Social Scout Alert: " + subjectTitle(draft.Thread.Title, emailSubjectTitleRunes),
		Html:    body.String(),
	})
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	return nil
}
