package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// SendGridMailer sends dynamic-template email through the SendGrid v3
// API. Sends carry a bounded timeout so a slow provider cannot pin the
// caller indefinitely.
type SendGridMailer struct {
	FromName string
	FromMail string
	Timeout  time.Duration
	client   *sendgrid.Client
}

func NewSendGridMailer(apiKey, fromName, fromMail string) *SendGridMailer {
	return &SendGridMailer{
		FromName: fromName,
		FromMail: fromMail,
		Timeout:  10 * time.Second,
		client:   sendgrid.NewSendClient(apiKey),
	}
}

func (m *SendGridMailer) SendTemplate(ctx context.Context, msg Message) error {
	if len(msg.Personalizations) == 0 {
		return nil
	}

	v3 := mail.NewV3Mail()
	v3.SetFrom(mail.NewEmail(m.FromName, m.FromMail))
	v3.SetTemplateID(msg.TemplateID)

	for _, p := range msg.Personalizations {
		pz := mail.NewPersonalization()
		pz.AddTos(mail.NewEmail("", p.To))
		for k, v := range p.Data {
			pz.SetDynamicTemplateData(k, v)
		}
		v3.AddPersonalizations(pz)
	}

	ctx, cancel := context.WithTimeout(ctx, m.Timeout)
	defer cancel()

	resp, err := m.client.SendWithContext(ctx, v3)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid send: status %d: %s", resp.StatusCode, resp.Body)
	}
	return nil
}
