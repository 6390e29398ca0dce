package repositories

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/quillhive/backend/internal/models"
	"github.com/quillhive/backend/internal/notify"
)

// NotificationRepository defines the persistence for notification records
type NotificationRepository interface {
	CreateMany(ctx context.Context, records []models.Notification) error
	GetFeed(ctx context.Context, userID uint, q models.FeedQuery) ([]models.Notification, int64, error)
	MarkSeen(ctx context.Context, userID uint) error
	MarkAllRead(ctx context.Context, userID uint, kind models.Kind) error
	MarkRead(ctx context.Context, userID uint, notificationID string) error
	CountUnseen(ctx context.Context, userID uint) (int64, error)
	DeleteByUserID(ctx context.Context, userID uint) error
}

type mongoNotificationRepository struct {
	collection *mongo.Collection
}

func NewMongoNotificationRepository(db *mongo.Database) NotificationRepository {
	return &mongoNotificationRepository{collection: db.Collection("notifications")}
}

// CreateMany inserts the whole batch or nothing: an insert error is
// surfaced as a persistence failure so the dispatcher aborts before any
// live push happens.
func (r *mongoNotificationRepository) CreateMany(ctx context.Context, records []models.Notification) error {
	if len(records) == 0 {
		return nil
	}
	docs := make([]any, len(records))
	for i := range records {
		records[i].ID = primitive.NewObjectID()
		docs[i] = records[i]
	}
	_, err := r.collection.InsertMany(ctx, docs, options.InsertMany().SetOrdered(true))
	if err != nil {
		return fmt.Errorf("%w: insert notifications: %v", notify.ErrPersistenceFailed, err)
	}
	return nil
}

// GetFeed returns one page of a user's notifications plus the total
// count, newest first unless the query asks otherwise. Only create_date
// is a valid sort key.
func (r *mongoNotificationRepository) GetFeed(ctx context.Context, userID uint, q models.FeedQuery) ([]models.Notification, int64, error) {
	filter := bson.M{"user_id": userID}
	if q.Kind != "" {
		filter["kind"] = q.Kind
	}

	order := q.Order
	if q.SortKey != "create_date" || (order != 1 && order != -1) {
		order = -1
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 20
	}
	skip := int64((q.Page - 1) * q.Limit)

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "create_date", Value: order}}).
		SetSkip(skip).
		SetLimit(int64(q.Limit))
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var notifications []models.Notification
	if err = cursor.All(ctx, &notifications); err != nil {
		return nil, 0, err
	}
	return notifications, total, nil
}

// MarkSeen flags every unseen notification for the user; called as a
// side effect of fetching the feed.
func (r *mongoNotificationRepository) MarkSeen(ctx context.Context, userID uint) error {
	_, err := r.collection.UpdateMany(ctx,
		bson.M{"user_id": userID, "seen": false},
		bson.M{"$set": bson.M{"seen": true}})
	return err
}

// MarkAllRead flags seen notifications as read. Only seen records
// qualify, keeping read=true implying seen=true.
func (r *mongoNotificationRepository) MarkAllRead(ctx context.Context, userID uint, kind models.Kind) error {
	filter := bson.M{"user_id": userID, "seen": true, "read": false}
	if kind != "" {
		filter["kind"] = kind
	}
	_, err := r.collection.UpdateMany(ctx, filter, bson.M{"$set": bson.M{"read": true}})
	return err
}

// MarkRead flags one notification as read, setting seen alongside it so
// the state machine cannot observe read without seen.
func (r *mongoNotificationRepository) MarkRead(ctx context.Context, userID uint, notificationID string) error {
	objID, err := primitive.ObjectIDFromHex(notificationID)
	if err != nil {
		return fmt.Errorf("invalid notification ID format")
	}
	res, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": objID, "user_id": userID},
		bson.M{"$set": bson.M{"read": true, "seen": true}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

func (r *mongoNotificationRepository) CountUnseen(ctx context.Context, userID uint) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"user_id": userID, "seen": false})
}

// DeleteByUserID purges a user's notifications on account cancellation.
func (r *mongoNotificationRepository) DeleteByUserID(ctx context.Context, userID uint) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"user_id": userID})
	return err
}
