package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quillhive/backend/internal/models"
	"github.com/quillhive/backend/internal/security"
	"github.com/quillhive/backend/pkg/mailer"
)

type fakeDirectory struct {
	users map[uint]models.User
	err   error
}

func (f *fakeDirectory) GetUsersByIDs(_ context.Context, ids []uint) (map[uint]models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[uint]models.User, len(ids))
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

type fakeMailer struct {
	messages []mailer.Message
	err      error
}

func (f *fakeMailer) SendTemplate(_ context.Context, msg mailer.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msg)
	return nil
}

func newEmailChannel(dir *fakeDirectory, m *fakeMailer) (*EmailChannel, *security.TokenIssuer) {
	tokens := security.NewTokenIssuer("test-secret")
	return NewEmailChannel(dir, m, tokens, zap.NewNop()), tokens
}

func TestDeliverBatchPersonalizesPerRecipient(t *testing.T) {
	dir := &fakeDirectory{users: map[uint]models.User{
		1: {ID: 1, Username: "ana", Email: "ana@example.com"},
		2: {ID: 2, Username: "ben", Email: "ben@example.com"},
	}}
	sent := &fakeMailer{}
	ch, _ := newEmailChannel(dir, sent)

	err := ch.DeliverBatch(context.Background(), []uint{1, 2}, commentEvent())
	require.NoError(t, err)
	require.Len(t, sent.messages, 1)

	msg := sent.messages[0]
	assert.Equal(t, TemplateNewComment, msg.TemplateID)
	require.Len(t, msg.Personalizations, 2)
	assert.Equal(t, "ana@example.com", msg.Personalizations[0].To)
	assert.Equal(t, "ana", msg.Personalizations[0].Data["username"])
	assert.Equal(t, "mira", msg.Personalizations[0].Data["from_username"])
	assert.NotEmpty(t, msg.Personalizations[0].Data["unsubscribe_token"])
	assert.Equal(t, "ben@example.com", msg.Personalizations[1].To)
}

func TestDeliverBatchSkipsUnresolvableRecipients(t *testing.T) {
	dir := &fakeDirectory{users: map[uint]models.User{
		1: {ID: 1, Username: "ana", Email: "ana@example.com"},
	}}
	sent := &fakeMailer{}
	ch, _ := newEmailChannel(dir, sent)

	err := ch.DeliverBatch(context.Background(), []uint{1, 99}, commentEvent())
	require.NoError(t, err)
	require.Len(t, sent.messages, 1)
	assert.Len(t, sent.messages[0].Personalizations, 1)
}

func TestDeliverBatchNoResolvableRecipients(t *testing.T) {
	sent := &fakeMailer{}
	ch, _ := newEmailChannel(&fakeDirectory{}, sent)

	err := ch.DeliverBatch(context.Background(), []uint{99}, commentEvent())
	require.NoError(t, err)
	assert.Empty(t, sent.messages)
}

func TestDeliverBatchDirectoryError(t *testing.T) {
	ch, _ := newEmailChannel(&fakeDirectory{err: errors.New("pg down")}, &fakeMailer{})

	err := ch.DeliverBatch(context.Background(), []uint{1}, commentEvent())
	assert.ErrorIs(t, err, ErrDeliveryFailed)
}

func TestDeliverBatchMailerError(t *testing.T) {
	dir := &fakeDirectory{users: map[uint]models.User{
		1: {ID: 1, Username: "ana", Email: "ana@example.com"},
	}}
	ch, _ := newEmailChannel(dir, &fakeMailer{err: errors.New("rate limited")})

	err := ch.DeliverBatch(context.Background(), []uint{1}, commentEvent())
	assert.ErrorIs(t, err, ErrDeliveryFailed)
}

func TestFriendRequestEmbedsActionTokens(t *testing.T) {
	dir := &fakeDirectory{users: map[uint]models.User{
		1: {ID: 1, Username: "ana", Email: "ana@example.com"},
	}}
	sent := &fakeMailer{}
	ch, tokens := newEmailChannel(dir, sent)

	event := models.Event{
		Kind:         models.KindFriendRequest,
		FromUserID:   9,
		FromUsername: "mira",
		Content:      "mira sent you a friend request",
		Details:      map[string]any{"request_id": uint(41)},
	}
	err := ch.Deliver(context.Background(), 1, event)
	require.NoError(t, err)
	require.Len(t, sent.messages, 1)

	data := sent.messages[0].Personalizations[0].Data
	acceptID, action, err := tokens.ParseFriendAction(data["accept_token"].(string))
	require.NoError(t, err)
	assert.Equal(t, uint(41), acceptID)
	assert.Equal(t, security.ActionAccept, action)

	declineID, action, err := tokens.ParseFriendAction(data["decline_token"].(string))
	require.NoError(t, err)
	assert.Equal(t, uint(41), declineID)
	assert.Equal(t, security.ActionDecline, action)
}

func TestFriendRequestMissingRequestID(t *testing.T) {
	dir := &fakeDirectory{users: map[uint]models.User{
		1: {ID: 1, Username: "ana", Email: "ana@example.com"},
	}}
	sent := &fakeMailer{}
	ch, _ := newEmailChannel(dir, sent)

	event := models.Event{Kind: models.KindFriendRequest, FromUsername: "mira"}
	err := ch.Deliver(context.Background(), 1, event)
	// The bad recipient is skipped, not fatal.
	require.NoError(t, err)
	assert.Empty(t, sent.messages)
}
