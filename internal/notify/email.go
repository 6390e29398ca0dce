package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/quillhive/backend/internal/models"
	"github.com/quillhive/backend/internal/security"
	"github.com/quillhive/backend/pkg/mailer"
)

// UserDirectory resolves recipient ids to addressable users.
type UserDirectory interface {
	GetUsersByIDs(ctx context.Context, ids []uint) (map[uint]models.User, error)
}

// EmailSender is the email-side delivery capability the dispatcher
// consumes: individualized sends and batched broadcast sends.
type EmailSender interface {
	Channel
	DeliverBatch(ctx context.Context, recipients []uint, event models.Event) error
}

// EmailChannel renders an event into the template selected by the event
// catalog and hands it to the outbound email transport. Fire-and-forget:
// failures are reported to the caller but never retried here.
type EmailChannel struct {
	users  UserDirectory
	mailer mailer.Mailer
	tokens *security.TokenIssuer
	logger *zap.Logger
}

func NewEmailChannel(users UserDirectory, m mailer.Mailer, tokens *security.TokenIssuer, logger *zap.Logger) *EmailChannel {
	return &EmailChannel{users: users, mailer: m, tokens: tokens, logger: logger}
}

// Deliver sends one individualized email to a single recipient.
func (ch *EmailChannel) Deliver(ctx context.Context, recipient uint, event models.Event) error {
	return ch.DeliverBatch(ctx, []uint{recipient}, event)
}

// DeliverBatch sends the event to every recipient in one transport call,
// one personalization per recipient. Recipients that cannot be resolved
// to an address are skipped, not fatal to the batch.
func (ch *EmailChannel) DeliverBatch(ctx context.Context, recipients []uint, event models.Event) error {
	if len(recipients) == 0 {
		return nil
	}

	users, err := ch.users.GetUsersByIDs(ctx, recipients)
	if err != nil {
		return fmt.Errorf("%w: resolving addresses: %v", ErrDeliveryFailed, err)
	}

	info := CatalogLookup(event.Kind)
	msg := mailer.Message{TemplateID: info.TemplateID}
	for _, id := range recipients {
		u, ok := users[id]
		if !ok || u.Email == "" {
			ch.logger.Warn("skipping email recipient",
				zap.Uint("user_id", id), zap.Error(ErrRecipientNotFound))
			continue
		}
		data, err := ch.templateData(event, u, info)
		if err != nil {
			ch.logger.Error("building template data",
				zap.Uint("user_id", id), zap.Error(err))
			continue
		}
		msg.Personalizations = append(msg.Personalizations, mailer.Personalization{
			To:   u.Email,
			Data: data,
		})
	}
	if len(msg.Personalizations) == 0 {
		return nil
	}

	if err := ch.mailer.SendTemplate(ctx, msg); err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	return nil
}

// templateData builds the dynamic variables for one recipient's render.
func (ch *EmailChannel) templateData(event models.Event, to models.User, info KindInfo) (map[string]any, error) {
	data := map[string]any{
		"username":      to.Username,
		"from_username": event.FromUsername,
		"source_name":   event.SourceName,
		"content":       event.Content,
	}

	// Friend requests embed pre-signed accept/decline links usable from
	// the email without a session.
	if event.Kind == models.KindFriendRequest {
		requestID := detailUint(event.Details, "request_id")
		if requestID == 0 {
			return nil, fmt.Errorf("friend request event missing request_id detail")
		}
		accept, err := ch.tokens.FriendActionToken(requestID, security.ActionAccept)
		if err != nil {
			return nil, err
		}
		decline, err := ch.tokens.FriendActionToken(requestID, security.ActionDecline)
		if err != nil {
			return nil, err
		}
		data["accept_token"] = accept
		data["decline_token"] = decline
	}

	unsub, err := ch.tokens.UnsubscribeToken(to.Email, info.Category)
	if err != nil {
		return nil, err
	}
	data["unsubscribe_token"] = unsub
	return data, nil
}

// detailUint reads a numeric detail that may have round-tripped through
// JSON as a float.
func detailUint(details map[string]any, key string) uint {
	switch v := details[key].(type) {
	case uint:
		return v
	case int:
		if v > 0 {
			return uint(v)
		}
	case int64:
		if v > 0 {
			return uint(v)
		}
	case float64:
		if v > 0 {
			return uint(v)
		}
	}
	return 0
}
