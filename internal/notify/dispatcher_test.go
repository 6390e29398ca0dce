package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quillhive/backend/internal/models"
)

type fakeSettings struct {
	records map[uint]models.Settings
	err     error
}

func (f *fakeSettings) GetOrCreate(_ context.Context, userID uint) (*models.Settings, error) {
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.records[userID]
	if !ok {
		s = models.DefaultSettings(userID)
	}
	return &s, nil
}

func (f *fakeSettings) GetBulk(_ context.Context, userIDs []uint) ([]models.Settings, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([]models.Settings, 0, len(userIDs))
	for _, id := range userIDs {
		if s, ok := f.records[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

type fakeStore struct {
	mu      sync.Mutex
	batches [][]models.Notification
	err     error
}

func (f *fakeStore) CreateMany(_ context.Context, records []models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, records)
	return nil
}

func (f *fakeStore) persistedUserIDs() []uint {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []uint
	for _, batch := range f.batches {
		for _, n := range batch {
			ids = append(ids, n.UserID)
		}
	}
	return ids
}

type fakeEmail struct {
	mu      sync.Mutex
	singles []uint
	batches [][]uint
	err     error
}

func (f *fakeEmail) Deliver(_ context.Context, recipient uint, _ models.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.singles = append(f.singles, recipient)
	return f.err
}

func (f *fakeEmail) DeliverBatch(_ context.Context, recipients []uint, _ models.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, recipients)
	return f.err
}

func (f *fakeEmail) sentTo() []uint {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]uint{}, f.singles...)
	for _, b := range f.batches {
		out = append(out, b...)
	}
	return out
}

type fakeEndpoint struct {
	mu    sync.Mutex
	emits int
	fail  bool
}

func (f *fakeEndpoint) Emit(string, any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emits++
	if f.fail {
		return errors.New("write failed")
	}
	return nil
}

func (f *fakeEndpoint) emitted() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.emits
}

func settingsWithComment(userID uint, channels ...string) models.Settings {
	s := models.DefaultSettings(userID)
	s.CommentSettings = channels
	return s
}

func newTestDispatcher(settings *fakeSettings, store *fakeStore, registry *Registry, email *fakeEmail) *Dispatcher {
	logger := zap.NewNop()
	policy := NewPolicy(settings, logger)
	live := NewLiveChannel(registry, logger)
	return NewDispatcher(store, policy, live, email, logger)
}

func commentEvent() models.Event {
	return models.Event{
		Kind:         models.KindComment,
		SourceID:     "b42",
		SourceName:   "Gardening Basics",
		FromUserID:   9,
		FromUsername: "mira",
		Content:      "mira commented on your blog",
	}
}

func TestNotifyDeduplicatesRecipients(t *testing.T) {
	settings := &fakeSettings{records: map[uint]models.Settings{
		1: settingsWithComment(1, models.ChannelWeb),
		2: settingsWithComment(2, models.ChannelWeb),
	}}
	store := &fakeStore{}
	email := &fakeEmail{}
	registry := NewRegistry()
	ep1, ep2 := &fakeEndpoint{}, &fakeEndpoint{}
	registry.Register(1, ep1)
	registry.Register(2, ep2)

	d := newTestDispatcher(settings, store, registry, email)
	err := d.Notify(context.Background(), commentEvent(), []uint{1, 2, 1, 2, 1})
	require.NoError(t, err)

	assert.ElementsMatch(t, []uint{1, 2}, store.persistedUserIDs())
	assert.Equal(t, 1, ep1.emitted())
	assert.Equal(t, 1, ep2.emitted())
	assert.Empty(t, email.sentTo())
}

func TestNotifyEmptyChannelsOptOut(t *testing.T) {
	settings := &fakeSettings{records: map[uint]models.Settings{
		1: settingsWithComment(1),
	}}
	store := &fakeStore{}
	email := &fakeEmail{}
	registry := NewRegistry()
	ep := &fakeEndpoint{}
	registry.Register(1, ep)

	d := newTestDispatcher(settings, store, registry, email)
	err := d.Notify(context.Background(), commentEvent(), []uint{1})
	require.NoError(t, err)

	assert.Empty(t, store.persistedUserIDs())
	assert.Zero(t, ep.emitted())
	assert.Empty(t, email.sentTo())
}

func TestNotifyAbortsWhenPersistenceFails(t *testing.T) {
	settings := &fakeSettings{records: map[uint]models.Settings{
		1: settingsWithComment(1, models.ChannelWeb),
	}}
	store := &fakeStore{err: errors.New("insert failed")}
	email := &fakeEmail{}
	registry := NewRegistry()
	ep := &fakeEndpoint{}
	registry.Register(1, ep)

	d := newTestDispatcher(settings, store, registry, email)
	err := d.Notify(context.Background(), commentEvent(), []uint{1})
	require.Error(t, err)

	// No live push or email ever happens without the durable record.
	assert.Zero(t, ep.emitted())
	assert.Empty(t, email.sentTo())
}

func TestNotifyFallsBackToEmailWhenOffline(t *testing.T) {
	settings := &fakeSettings{records: map[uint]models.Settings{
		2: settingsWithComment(2, models.ChannelWeb, models.ChannelEmail),
	}}
	store := &fakeStore{}
	email := &fakeEmail{}
	registry := NewRegistry() // user 2 never connects

	d := newTestDispatcher(settings, store, registry, email)
	err := d.Notify(context.Background(), commentEvent(), []uint{2})
	require.NoError(t, err)

	// The record persists either way and reconciles on the next feed fetch.
	assert.ElementsMatch(t, []uint{2}, store.persistedUserIDs())
	assert.ElementsMatch(t, []uint{2}, email.sentTo())
}

func TestNotifyPartitionsByPreference(t *testing.T) {
	settings := &fakeSettings{records: map[uint]models.Settings{
		1: settingsWithComment(1, models.ChannelWeb),
		2: settingsWithComment(2, models.ChannelWeb, models.ChannelEmail),
		3: settingsWithComment(3, models.ChannelEmail),
	}}
	store := &fakeStore{}
	email := &fakeEmail{}
	registry := NewRegistry()
	ep1 := &fakeEndpoint{}
	registry.Register(1, ep1) // user 2 offline, user 3 email-only

	d := newTestDispatcher(settings, store, registry, email)
	err := d.Notify(context.Background(), commentEvent(), []uint{1, 2, 3})
	require.NoError(t, err)

	// Records exist only for web-routed recipients.
	assert.ElementsMatch(t, []uint{1, 2}, store.persistedUserIDs())
	assert.Equal(t, 1, ep1.emitted())
	// User 2 reaches email through both preference and fallback, once.
	assert.ElementsMatch(t, []uint{2, 3}, email.sentTo())
}

func TestNotifyWebOnlyOfflineStillFallsBack(t *testing.T) {
	// The fallback applies even when the recipient never opted into
	// email; an unreachable endpoint routes there regardless.
	settings := &fakeSettings{records: map[uint]models.Settings{
		1: settingsWithComment(1, models.ChannelWeb),
	}}
	store := &fakeStore{}
	email := &fakeEmail{}

	d := newTestDispatcher(settings, store, NewRegistry(), email)
	err := d.Notify(context.Background(), commentEvent(), []uint{1})
	require.NoError(t, err)

	assert.ElementsMatch(t, []uint{1}, store.persistedUserIDs())
	assert.ElementsMatch(t, []uint{1}, email.sentTo())
}

func TestNotifyFailedPushTriggersEmailOnce(t *testing.T) {
	settings := &fakeSettings{records: map[uint]models.Settings{
		1: settingsWithComment(1, models.ChannelWeb, models.ChannelEmail),
	}}
	store := &fakeStore{}
	email := &fakeEmail{}
	registry := NewRegistry()
	registry.Register(1, &fakeEndpoint{fail: true})

	d := newTestDispatcher(settings, store, registry, email)
	err := d.Notify(context.Background(), commentEvent(), []uint{1})
	require.NoError(t, err)

	assert.ElementsMatch(t, []uint{1}, email.sentTo())
}

func TestNotifyBroadcastUsesOneBatch(t *testing.T) {
	records := make(map[uint]models.Settings, 3)
	for _, id := range []uint{1, 2, 3} {
		s := models.DefaultSettings(id)
		s.BlogSettings = []string{models.ChannelEmail}
		records[id] = s
	}
	settings := &fakeSettings{records: records}
	store := &fakeStore{}
	email := &fakeEmail{}

	d := newTestDispatcher(settings, store, NewRegistry(), email)
	event := models.Event{
		Kind:         models.KindBlogNew,
		SourceID:     "b7",
		SourceName:   "Release Notes",
		FromUserID:   9,
		FromUsername: "mira",
		Content:      "mira published a new blog",
	}
	err := d.Notify(context.Background(), event, []uint{1, 2, 3})
	require.NoError(t, err)

	email.mu.Lock()
	defer email.mu.Unlock()
	require.Len(t, email.batches, 1)
	assert.ElementsMatch(t, []uint{1, 2, 3}, email.batches[0])
	assert.Empty(t, email.singles)
}

func TestNotifySettingsStoreErrorPropagates(t *testing.T) {
	settings := &fakeSettings{err: errors.New("mongo down")}
	store := &fakeStore{}
	email := &fakeEmail{}

	d := newTestDispatcher(settings, store, NewRegistry(), email)
	err := d.Notify(context.Background(), commentEvent(), []uint{1})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.Empty(t, store.persistedUserIDs())
	assert.Empty(t, email.sentTo())
}

func TestNotifyOneMessageGoesToEmailOnly(t *testing.T) {
	// A private-message fallback never creates a record or a live push,
	// even for a connected recipient; message preferences are email-only.
	settings := &fakeSettings{records: map[uint]models.Settings{
		1: models.DefaultSettings(1),
	}}
	store := &fakeStore{}
	email := &fakeEmail{}
	registry := NewRegistry()
	ep := &fakeEndpoint{}
	registry.Register(1, ep)

	d := newTestDispatcher(settings, store, registry, email)
	event := models.Event{
		Kind:         models.KindMessage,
		FromUserID:   9,
		FromUsername: "mira",
		Content:      "mira sent you a message",
	}
	err := d.NotifyOne(context.Background(), event, 1)
	require.NoError(t, err)

	assert.Empty(t, store.persistedUserIDs())
	assert.Zero(t, ep.emitted())
	assert.ElementsMatch(t, []uint{1}, email.sentTo())
}

func TestNotifyTruncatesLongContent(t *testing.T) {
	settings := &fakeSettings{records: map[uint]models.Settings{
		1: settingsWithComment(1, models.ChannelWeb),
	}}
	store := &fakeStore{}
	registry := NewRegistry()
	registry.Register(1, &fakeEndpoint{})

	d := newTestDispatcher(settings, store, registry, &fakeEmail{})
	event := commentEvent()
	event.Content = strings.Repeat("x", 500)
	err := d.Notify(context.Background(), event, []uint{1})
	require.NoError(t, err)

	require.Len(t, store.persistedUserIDs(), 1)
	stored := store.batches[0][0].Content
	assert.Equal(t, strings.Repeat("x", 100)+"...", stored)
}

func TestNotifyNoRecipientsIsNoop(t *testing.T) {
	store := &fakeStore{}
	d := newTestDispatcher(&fakeSettings{}, store, NewRegistry(), &fakeEmail{})

	err := d.Notify(context.Background(), commentEvent(), nil)
	require.NoError(t, err)
	assert.Empty(t, store.persistedUserIDs())
}

func TestQueueOneProcessedByWorker(t *testing.T) {
	settings := &fakeSettings{records: map[uint]models.Settings{
		1: settingsWithComment(1, models.ChannelWeb),
	}}
	store := &fakeStore{}
	registry := NewRegistry()
	registry.Register(1, &fakeEndpoint{})

	d := newTestDispatcher(settings, store, registry, &fakeEmail{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	d.QueueOne(commentEvent(), 1)

	assert.Eventually(t, func() bool {
		return len(store.persistedUserIDs()) == 1
	}, time.Second, 10*time.Millisecond)
}
