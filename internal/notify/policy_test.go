package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/quillhive/backend/internal/models"
)

func TestClassifyBucketsByChannel(t *testing.T) {
	settings := &fakeSettings{records: map[uint]models.Settings{
		1: settingsWithComment(1, models.ChannelWeb),
		2: settingsWithComment(2, models.ChannelEmail),
		3: settingsWithComment(3, models.ChannelWeb, models.ChannelEmail),
	}}
	p := NewPolicy(settings, zap.NewNop())

	cls, err := p.Classify(context.Background(), models.KindComment, []uint{1, 2, 3})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{1, 3}, cls.Live)
	assert.ElementsMatch(t, []uint{2, 3}, cls.Email)
}

func TestClassifySkipsMissingRecords(t *testing.T) {
	settings := &fakeSettings{records: map[uint]models.Settings{
		1: settingsWithComment(1, models.ChannelWeb),
	}}
	p := NewPolicy(settings, zap.NewNop())

	cls, err := p.Classify(context.Background(), models.KindComment, []uint{1, 99})
	require.NoError(t, err)
	assert.Equal(t, []uint{1}, cls.Live)
	assert.Empty(t, cls.Email)
}

func TestClassifyStoreError(t *testing.T) {
	p := NewPolicy(&fakeSettings{err: errors.New("connection refused")}, zap.NewNop())

	_, err := p.Classify(context.Background(), models.KindComment, []uint{1})
	assert.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestClassifyUnknownKindUsesCustomCategory(t *testing.T) {
	s := models.DefaultSettings(1)
	s.CustomSettings = []string{models.ChannelEmail}
	p := NewPolicy(&fakeSettings{records: map[uint]models.Settings{1: s}}, zap.NewNop())

	cls, err := p.Classify(context.Background(), models.Kind("promo_blast"), []uint{1})
	require.NoError(t, err)
	assert.Empty(t, cls.Live)
	assert.Equal(t, []uint{1}, cls.Email)
}

func TestClassifyMessageKindIsEmailOnly(t *testing.T) {
	// Message preferences default to email only; chat already has its own
	// live path, so the web bucket must stay empty.
	p := NewPolicy(&fakeSettings{records: map[uint]models.Settings{
		1: models.DefaultSettings(1),
	}}, zap.NewNop())

	cls, err := p.Classify(context.Background(), models.KindMessage, []uint{1})
	require.NoError(t, err)
	assert.Empty(t, cls.Live)
	assert.Equal(t, []uint{1}, cls.Email)
}

func TestClassifyEmptyRecipients(t *testing.T) {
	p := NewPolicy(&fakeSettings{}, zap.NewNop())

	cls, err := p.Classify(context.Background(), models.KindComment, nil)
	require.NoError(t, err)
	assert.Empty(t, cls.Live)
	assert.Empty(t, cls.Email)
}
