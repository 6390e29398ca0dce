package repositories

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/quillhive/backend/internal/models"
	"github.com/quillhive/backend/internal/notify"
)

// SettingsRepository defines the persistence for per-user notification
// preferences. Reads are get-or-create: a user with no saved record gets
// the documented default table, persisted so later reads are plain
// lookups.
type SettingsRepository interface {
	notify.SettingsStore
	Update(ctx context.Context, userID uint, req models.UpdateSettingsRequest) error
	RemoveChannel(ctx context.Context, userID uint, category models.Category, channel string) error
	DeleteByUserID(ctx context.Context, userID uint) error
}

type mongoSettingsRepository struct {
	collection *mongo.Collection
}

func NewMongoSettingsRepository(db *mongo.Database) SettingsRepository {
	return &mongoSettingsRepository{collection: db.Collection("settings")}
}

// GetOrCreate returns the user's settings, materializing and persisting
// the default record when none exists yet.
func (r *mongoSettingsRepository) GetOrCreate(ctx context.Context, userID uint) (*models.Settings, error) {
	var settings models.Settings
	err := r.collection.FindOne(ctx, bson.M{"user_id": userID}).Decode(&settings)
	if err == nil {
		return &settings, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("find settings: %w", err)
	}

	settings = models.DefaultSettings(userID)
	settings.ID = primitive.NewObjectID()
	if _, err := r.collection.InsertOne(ctx, settings); err != nil {
		return nil, fmt.Errorf("create default settings: %w", err)
	}
	return &settings, nil
}

// GetBulk returns settings for every requested user, materializing and
// persisting defaults for users without a record.
func (r *mongoSettingsRepository) GetBulk(ctx context.Context, userIDs []uint) ([]models.Settings, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	cursor, err := r.collection.Find(ctx, bson.M{"user_id": bson.M{"$in": userIDs}})
	if err != nil {
		return nil, fmt.Errorf("find settings: %w", err)
	}
	defer cursor.Close(ctx)

	var found []models.Settings
	if err = cursor.All(ctx, &found); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}

	have := make(map[uint]bool, len(found))
	for _, s := range found {
		have[s.UserID] = true
	}

	var defaults []any
	for _, id := range userIDs {
		if have[id] {
			continue
		}
		s := models.DefaultSettings(id)
		s.ID = primitive.NewObjectID()
		defaults = append(defaults, s)
		found = append(found, s)
		have[id] = true
	}
	if len(defaults) > 0 {
		if _, err := r.collection.InsertMany(ctx, defaults); err != nil {
			return nil, fmt.Errorf("create default settings: %w", err)
		}
	}
	return found, nil
}

// Update overwrites the categories present in the request; absent
// categories keep their stored value.
func (r *mongoSettingsRepository) Update(ctx context.Context, userID uint, req models.UpdateSettingsRequest) error {
	set := bson.M{}
	put := func(category models.Category, channels []string) {
		if channels != nil {
			set[string(category)] = channels
		}
	}
	put(models.CategoryComment, req.CommentSettings)
	put(models.CategoryReact, req.ReactSettings)
	put(models.CategoryGroup, req.GroupSettings)
	put(models.CategoryBlog, req.BlogSettings)
	put(models.CategoryFriend, req.FriendSettings)
	put(models.CategoryCustom, req.CustomSettings)
	put(models.CategoryMessage, req.MessageSettings)
	if len(set) == 0 {
		return nil
	}

	// Get-or-create first so an update for a fresh user has a record to
	// land on.
	if _, err := r.GetOrCreate(ctx, userID); err != nil {
		return err
	}
	_, err := r.collection.UpdateOne(ctx, bson.M{"user_id": userID}, bson.M{"$set": set})
	return err
}

// RemoveChannel pulls one channel out of a category's set; used by the
// email unsubscribe link.
func (r *mongoSettingsRepository) RemoveChannel(ctx context.Context, userID uint, category models.Category, channel string) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$pull": bson.M{string(category): channel}})
	return err
}

// DeleteByUserID removes the record on account cancellation.
func (r *mongoSettingsRepository) DeleteByUserID(ctx context.Context, userID uint) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"user_id": userID})
	return err
}
