package mailer

import "context"

// Personalization addresses one recipient with the variables their
// template render uses.
type Personalization struct {
	To   string
	Data map[string]any
}

// Message is one outbound templated email request. Several
// personalizations ride on a single request when the send is batched.
type Message struct {
	TemplateID       string
	Personalizations []Personalization
}

// Mailer sends one templated email request. Delivery is best-effort;
// the transport does not guarantee the mail reaches the recipient.
type Mailer interface {
	SendTemplate(ctx context.Context, msg Message) error
}
