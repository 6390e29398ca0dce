package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/quillhive/backend/internal/models"
)

// SettingsStore is the preference persistence the routing policy reads
// from. Implementations materialize and persist a default record for
// users that never saved preferences.
type SettingsStore interface {
	GetOrCreate(ctx context.Context, userID uint) (*models.Settings, error)
	GetBulk(ctx context.Context, userIDs []uint) ([]models.Settings, error)
}

// Classification partitions a recipient set by delivery channel. A user
// may appear in both buckets; channel fallback, not exclusivity, governs
// the final send.
type Classification struct {
	Live  []uint
	Email []uint
}

// Policy decides, per event kind and recipient, which channels that
// recipient should receive the event on.
type Policy struct {
	settings SettingsStore
	logger   *zap.Logger
}

func NewPolicy(settings SettingsStore, logger *zap.Logger) *Policy {
	return &Policy{settings: settings, logger: logger}
}

// Classify buckets recipients by the channel set of the category the
// event kind maps to. Recipients with an empty channel set receive
// nothing (explicit opt-out); recipients with no resolvable preference
// record are skipped.
func (p *Policy) Classify(ctx context.Context, kind models.Kind, recipients []uint) (Classification, error) {
	var out Classification
	if len(recipients) == 0 {
		return out, nil
	}

	info := CatalogLookup(kind)
	records, err := p.settings.GetBulk(ctx, recipients)
	if err != nil {
		return out, fmt.Errorf("%w: bulk settings fetch: %v", ErrStoreUnavailable, err)
	}

	byUser := make(map[uint]models.Settings, len(records))
	for _, s := range records {
		byUser[s.UserID] = s
	}

	for _, id := range recipients {
		s, ok := byUser[id]
		if !ok {
			p.logger.Warn("no preference record for recipient, skipping",
				zap.Uint("user_id", id), zap.String("kind", string(kind)))
			continue
		}
		if s.HasChannel(info.Category, models.ChannelWeb) {
			out.Live = append(out.Live, id)
		}
		if s.HasChannel(info.Category, models.ChannelEmail) {
			out.Email = append(out.Email, id)
		}
	}
	return out, nil
}
