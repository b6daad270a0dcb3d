package notification

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/smtp"

	"workfit-event-service-golang/internal/config"
	"workfit-event-service-golang/internal/events"

	"github.com/friendsofgo/errors"
)

var emailTemplate = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif;">
  <h2>{{.Subject}}</h2>
  <p>{{.Content}}</p>
  {{if .ActionURL}}<p><a href="{{.ActionURL}}">View details</a></p>{{end}}
  <hr>
  <p style="color:#888;font-size:12px;">WorkFit &middot; {{.EventType}}</p>
</body>
</html>`))

// SMTPSender delivers notification emails over plain SMTP with an HTML body.
type SMTPSender struct {
	host     string
	port     int
	username string
	password string
	from     string
	baseURL  string
}

func NewSMTPSender(cfg *config.Config) *SMTPSender {
	return &SMTPSender{
		host:     cfg.SMTPHost,
		port:     cfg.SMTPPort,
		username: cfg.SMTPUsername,
		password: cfg.SMTPPassword,
		from:     cfg.SMTPFrom,
		baseURL:  cfg.FrontendBaseURL,
	}
}

// Send renders the template and pushes the message to the SMTP relay.
func (s *SMTPSender) Send(_ context.Context, ev events.NotificationEvent) error {
	if ev.RecipientEmail == "" {
		return errors.New("notification event has no recipient email")
	}

	actionURL := ev.ActionURL
	if actionURL != "" && actionURL[0] == '/' {
		actionURL = s.baseURL + actionURL
	}

	var body bytes.Buffer
	err := emailTemplate.Execute(&body, struct {
		Subject   string
		Content   string
		ActionURL string
		EventType string
	}{
		Subject:   ev.Subject,
		Content:   ev.Content,
		ActionURL: actionURL,
		EventType: ev.EventType,
	})
	if err != nil {
		return errors.Wrap(err, "render email template")
	}

	msg := bytes.Buffer{}
	fmt.Fprintf(&msg, "From: %s\r\n", s.from)
	fmt.Fprintf(&msg, "To: %s\r\n", ev.RecipientEmail)
	fmt.Fprintf(&msg, "Subject: %s\r\n", ev.Subject)
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.Write(body.Bytes())

	addr := fmt.Sprintf("%s:%d", s.host, s.port)
	var auth smtp.Auth
	if s.username != "" {
		auth = smtp.PlainAuth("", s.username, s.password, s.host)
	}

	if err := smtp.SendMail(addr, auth, s.from, []string{ev.RecipientEmail}, msg.Bytes()); err != nil {
		return errors.Wrapf(err, "send email to %s", ev.RecipientEmail)
	}
	return nil
}
