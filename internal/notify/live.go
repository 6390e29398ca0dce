package notify

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/quillhive/backend/internal/models"
)

// LiveEventName is the websocket event notifications are pushed under.
const LiveEventName = "notification"

// Channel is the one capability both delivery backends expose.
type Channel interface {
	Deliver(ctx context.Context, recipient uint, event models.Event) error
}

// LivePayload is the structured payload pushed to a connected session.
type LivePayload struct {
	Kind         models.Kind    `json:"kind"`
	Content      string         `json:"content"`
	Details      map[string]any `json:"details,omitempty"`
	SourceID     string         `json:"source_id,omitempty"`
	SourceName   string         `json:"source_name,omitempty"`
	FromUserID   uint           `json:"from_user_id"`
	FromUsername string         `json:"from_username"`
	Timestamp    time.Time      `json:"timestamp"`
}

// LiveChannel pushes events to currently connected sessions. A failed
// delivery here is the dispatcher's fallback trigger, not a hard error.
type LiveChannel struct {
	registry *Registry
	logger   *zap.Logger
}

func NewLiveChannel(registry *Registry, logger *zap.Logger) *LiveChannel {
	return &LiveChannel{registry: registry, logger: logger}
}

func (ch *LiveChannel) Deliver(_ context.Context, recipient uint, event models.Event) error {
	ep, ok := ch.registry.Lookup(recipient)
	if !ok {
		return fmt.Errorf("%w: user %d has no live endpoint", ErrDeliveryFailed, recipient)
	}

	payload := LivePayload{
		Kind:         event.Kind,
		Content:      event.Content,
		Details:      event.Details,
		SourceID:     event.SourceID,
		SourceName:   event.SourceName,
		FromUserID:   event.FromUserID,
		FromUsername: event.FromUsername,
		Timestamp:    time.Now(),
	}
	// A disconnect can race the lookup; a push error here is treated the
	// same as "offline" and triggers the email fallback.
	if err := ep.Emit(LiveEventName, payload); err != nil {
		ch.logger.Warn("live push failed",
			zap.Uint("user_id", recipient), zap.Error(err))
		return fmt.Errorf("%w: push to user %d: %v", ErrDeliveryFailed, recipient, err)
	}
	return nil
}
