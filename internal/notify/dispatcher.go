package notify

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/quillhive/backend/internal/models"
)

// NotificationStore is the notification persistence consumed by fan-out.
// CreateMany is all-or-nothing: on failure no partial record set remains.
type NotificationStore interface {
	CreateMany(ctx context.Context, records []models.Notification) error
}

// task is one queued fan-out.
type task struct {
	event      models.Event
	recipients []uint
}

// Dispatcher expands one event into per-recipient deliveries across the
// live and email channels. Fan-out runs as a background task relative to
// the triggering write, but its own steps are strictly ordered:
// persistence before live push, live push before fallback computation.
type Dispatcher struct {
	store    NotificationStore
	policy   *Policy
	live     Channel
	email    EmailSender
	logger   *zap.Logger
	tasks    chan task
	startOne sync.Once
}

func NewDispatcher(store NotificationStore, policy *Policy, live Channel, email EmailSender, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		store:  store,
		policy: policy,
		live:   live,
		email:  email,
		logger: logger,
		tasks:  make(chan task, 256),
	}
}

// Start launches the background worker consuming queued fan-outs. It
// returns immediately; the worker stops when ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	d.startOne.Do(func() {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case t := <-d.tasks:
					if err := d.Notify(ctx, t.event, t.recipients); err != nil {
						d.logger.Error("fan-out failed",
							zap.String("kind", string(t.event.Kind)),
							zap.Int("recipients", len(t.recipients)),
							zap.Error(err))
					}
				}
			}
		}()
	})
}

// Queue hands a fan-out to the background worker so the triggering
// request returns without waiting on notification delivery.
func (d *Dispatcher) Queue(event models.Event, recipients []uint) {
	t := task{event: event, recipients: recipients}
	select {
	case d.tasks <- t:
	default:
		// Queue saturated; run this one on its own goroutine rather
		// than block the triggering write or drop the event.
		go func() {
			if err := d.Notify(context.Background(), t.event, t.recipients); err != nil {
				d.logger.Error("fan-out failed", zap.Error(err))
			}
		}()
	}
}

// QueueOne queues a single-target event, defaulting to the event's
// natural recipient.
func (d *Dispatcher) QueueOne(event models.Event, recipient uint) {
	d.Queue(event, []uint{recipient})
}

// NotifyOne runs the fan-out for an inherently single-target event, such
// as a friend request. The live/email routing decision applies the same
// way; there is just no recipient list to expand.
func (d *Dispatcher) NotifyOne(ctx context.Context, event models.Event, recipient uint) error {
	return d.Notify(ctx, event, []uint{recipient})
}

// Notify persists and delivers one event to a set of recipients.
//
// Persistence failures abort the whole call before any live push, so a
// notification is never announced to a live client without a durable
// record behind it. Delivery failures after that point are logged and
// never propagate.
func (d *Dispatcher) Notify(ctx context.Context, event models.Event, recipients []uint) error {
	recipients = dedupe(recipients)
	if len(recipients) == 0 {
		return nil
	}
	// Event content is display text; bound it once here so records, live
	// payloads and email variables all carry the same shortened form.
	event.Content = models.ShortenContent(event.Content)

	cls, err := d.policy.Classify(ctx, event.Kind, recipients)
	if err != nil {
		return fmt.Errorf("classify recipients: %w", err)
	}

	if len(cls.Live) > 0 {
		records := make([]models.Notification, 0, len(cls.Live))
		for _, id := range cls.Live {
			records = append(records, models.NotificationFromEvent(event, id))
		}
		if err := d.store.CreateMany(ctx, records); err != nil {
			return fmt.Errorf("persist notification batch: %w", err)
		}
		d.logger.Info("notification records created",
			zap.String("kind", string(event.Kind)), zap.Int("count", len(records)))
	}

	// Email goes to everyone routed there by preference, plus every
	// live-routed recipient without a reachable endpoint. The persisted
	// record for the latter still reconciles on their next feed fetch.
	emailSet := make(map[uint]struct{}, len(cls.Email))
	for _, id := range cls.Email {
		emailSet[id] = struct{}{}
	}
	for _, id := range cls.Live {
		if err := d.live.Deliver(ctx, id, event); err != nil {
			emailSet[id] = struct{}{}
		}
	}
	if len(emailSet) == 0 {
		return nil
	}

	emailTo := make([]uint, 0, len(emailSet))
	for id := range emailSet {
		emailTo = append(emailTo, id)
	}
	d.dispatchEmail(ctx, event, emailTo)
	return nil
}

// dispatchEmail sends the email leg: one batched transport call for
// broadcast-style events, otherwise concurrent individualized sends so a
// slow or failing recipient cannot block its siblings.
func (d *Dispatcher) dispatchEmail(ctx context.Context, event models.Event, recipients []uint) {
	info := CatalogLookup(event.Kind)
	if info.Broadcast {
		if err := d.email.DeliverBatch(ctx, recipients, event); err != nil {
			d.logger.Error("broadcast email failed",
				zap.String("kind", string(event.Kind)),
				zap.Int("recipients", len(recipients)), zap.Error(err))
		}
		return
	}

	var wg sync.WaitGroup
	for _, id := range recipients {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			if err := d.email.Deliver(ctx, id, event); err != nil {
				d.logger.Error("email delivery failed",
					zap.Uint("user_id", id),
					zap.String("kind", string(event.Kind)), zap.Error(err))
			}
		}(id)
	}
	wg.Wait()
}

// dedupe drops repeated recipients while preserving first-seen order. A
// user reachable through overlapping membership sources must still get
// the event only once.
func dedupe(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
