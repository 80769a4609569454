package repository

import (
	"context"
	"errors"
	"time"

	"civicsync-api/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoNotificationRepo struct {
	coll *mongo.Collection
}

func NewMongoNotificationRepo(db *mongo.Database) *MongoNotificationRepo {
	return &MongoNotificationRepo{coll: db.Collection("notifications")}
}

// EnsureIndexes creates the inbox index and the TTL index that purges
// notifications once they are older than models.NotificationTTL.
func (r *MongoNotificationRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "recipient", Value: 1}, {Key: "isRead", Value: 1}, {Key: "createdAt", Value: -1}}},
		{
			Keys:    bson.D{{Key: "createdAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(models.NotificationTTL.Seconds())),
		},
	})
	return err
}

func (r *MongoNotificationRepo) Insert(ctx context.Context, n *models.Notification) error {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, n)
	return err
}

func inboxFilter(recipient primitive.ObjectID, unreadOnly bool) bson.M {
	filter := bson.M{"recipient": recipient}
	if unreadOnly {
		filter["isRead"] = false
	}
	return filter
}

func (r *MongoNotificationRepo) List(ctx context.Context, recipient primitive.ObjectID, unreadOnly bool, p Page) ([]models.Notification, error) {
	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(p.Skip).
		SetLimit(p.Limit)

	cursor, err := r.coll.Find(ctx, inboxFilter(recipient, unreadOnly), findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	notifications := []models.Notification{}
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, err
	}
	return notifications, nil
}

func (r *MongoNotificationRepo) Count(ctx context.Context, recipient primitive.ObjectID, unreadOnly bool) (int64, error) {
	return r.coll.CountDocuments(ctx, inboxFilter(recipient, unreadOnly))
}

func (r *MongoNotificationRepo) MarkRead(ctx context.Context, id, recipient primitive.ObjectID) (*models.Notification, error) {
	var n models.Notification
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "recipient": recipient},
		bson.M{"$set": bson.M{"isRead": true, "updatedAt": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&n)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &n, nil
}

func (r *MongoNotificationRepo) MarkAllRead(ctx context.Context, recipient primitive.ObjectID) (int64, error) {
	res, err := r.coll.UpdateMany(ctx,
		bson.M{"recipient": recipient, "isRead": false},
		bson.M{"$set": bson.M{"isRead": true, "updatedAt": time.Now()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *MongoNotificationRepo) Delete(ctx context.Context, id, recipient primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id, "recipient": recipient})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
