package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"civicsync-api/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MongoIssueRepo struct {
	coll *mongo.Collection
}

func NewMongoIssueRepo(db *mongo.Database) *MongoIssueRepo {
	return &MongoIssueRepo{coll: db.Collection("issues")}
}

// EnsureIndexes creates the geospatial index used by Near and the indexes
// backing the common listing filters.
func (r *MongoIssueRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "location.coordinates", Value: "2dsphere"}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "reportedBy", Value: 1}}},
	})
	return err
}

func (r *MongoIssueRepo) Insert(ctx context.Context, issue *models.Issue) error {
	if issue.ID.IsZero() {
		issue.ID = primitive.NewObjectID()
	}
	_, err := r.coll.InsertOne(ctx, issue)
	return err
}

func (r *MongoIssueRepo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Issue, error) {
	var issue models.Issue
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&issue)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &issue, nil
}

// Update runs the patch as a single pipeline update so concurrent
// comments and upvotes on the same issue are never overwritten.
func (r *MongoIssueRepo) Update(ctx context.Context, id primitive.ObjectID, p IssuePatch) (*models.Issue, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)
	return r.findOneAndUpdate(ctx, id, buildPatchPipeline(p), opts)
}

func (r *MongoIssueRepo) ToggleUpvote(ctx context.Context, id, userID primitive.ObjectID, at time.Time) (*models.Issue, error) {
	upvotes := bson.M{"$ifNull": bson.A{"$upvotes", bson.A{}}}
	toggled := bson.M{"$cond": bson.A{
		bson.M{"$in": bson.A{userID, upvotes}},
		bson.M{"$filter": bson.M{"input": upvotes, "cond": bson.M{"$ne": bson.A{"$$this", userID}}}},
		bson.M{"$concatArrays": bson.A{upvotes, bson.A{userID}}},
	}}
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{{Key: "upvotes", Value: toggled}, {Key: "updatedAt", Value: at}}}},
		{{Key: "$set", Value: bson.D{{Key: "upvoteCount", Value: bson.M{"$size": "$upvotes"}}}}},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	return r.findOneAndUpdate(ctx, id, pipeline, opts)
}

func (r *MongoIssueRepo) AddComment(ctx context.Context, id primitive.ObjectID, c models.Comment) (*models.Issue, error) {
	update := bson.M{"$push": bson.M{"comments": c}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	return r.findOneAndUpdate(ctx, id, update, opts)
}

func (r *MongoIssueRepo) findOneAndUpdate(ctx context.Context, id primitive.ObjectID, update any, opts *options.FindOneAndUpdateOptions) (*models.Issue, error) {
	var issue models.Issue
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&issue)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &issue, nil
}

func (r *MongoIssueRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoIssueRepo) List(ctx context.Context, f IssueFilter, s Sort, p Page) ([]models.Issue, error) {
	findOptions := options.Find().
		SetSort(buildSort(s)).
		SetSkip(p.Skip).
		SetLimit(p.Limit)

	cursor, err := r.coll.Find(ctx, buildIssueFilter(f), findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	issues := []models.Issue{}
	if err := cursor.All(ctx, &issues); err != nil {
		return nil, err
	}
	return issues, nil
}

func (r *MongoIssueRepo) Count(ctx context.Context, f IssueFilter) (int64, error) {
	return r.coll.CountDocuments(ctx, buildIssueFilter(f))
}

func (r *MongoIssueRepo) Near(ctx context.Context, point models.GeoPoint, maxDistance float64, limit int64) ([]models.Issue, error) {
	filter := bson.M{
		"location.coordinates": bson.M{
			"$near": bson.M{
				"$geometry": bson.M{
					"type":        "Point",
					"coordinates": bson.A{point.Longitude(), point.Latitude()},
				},
				"$maxDistance": maxDistance,
			},
		},
	}
	cursor, err := r.coll.Find(ctx, filter, options.Find().SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	issues := []models.Issue{}
	if err := cursor.All(ctx, &issues); err != nil {
		return nil, err
	}
	return issues, nil
}

func (r *MongoIssueRepo) Overview(ctx context.Context) (models.IssueOverview, error) {
	countStatus := func(s models.IssueStatus) bson.M {
		return bson.M{"$sum": bson.M{"$cond": bson.A{bson.M{"$eq": bson.A{"$status", string(s)}}, 1, 0}}}
	}
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":         nil,
			"totalIssues": bson.M{"$sum": 1},
			"pending":     countStatus(models.Pending),
			"inProgress":  countStatus(models.InProgress),
			"resolved":    countStatus(models.Resolved),
			"rejected":    countStatus(models.Rejected),
		}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return models.IssueOverview{}, err
	}
	defer cursor.Close(ctx)

	var rows []models.IssueOverview
	if err := cursor.All(ctx, &rows); err != nil {
		return models.IssueOverview{}, err
	}
	if len(rows) == 0 {
		return models.IssueOverview{}, nil
	}
	return rows[0], nil
}

func (r *MongoIssueRepo) CountByCategory(ctx context.Context) ([]models.CategoryCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$category", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate categories: %w", err)
	}
	defer cursor.Close(ctx)

	counts := []models.CategoryCount{}
	if err := cursor.All(ctx, &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

func buildIssueFilter(f IssueFilter) bson.M {
	filter := bson.M{}

	if f.Status != "" {
		filter["status"] = f.Status
	} else if len(f.Statuses) > 0 {
		filter["status"] = bson.M{"$in": f.Statuses}
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.Priority != "" {
		filter["priority"] = f.Priority
	}
	if f.ReportedBy != nil {
		filter["reportedBy"] = *f.ReportedBy
	}
	if f.Search != "" {
		pattern := regexp.QuoteMeta(f.Search)
		filter["$or"] = []bson.M{
			{"title": bson.M{"$regex": pattern, "$options": "i"}},
			{"description": bson.M{"$regex": pattern, "$options": "i"}},
		}
	}
	if f.CreatedGTE != nil || f.CreatedLT != nil {
		created := bson.M{}
		if f.CreatedGTE != nil {
			created["$gte"] = *f.CreatedGTE
		}
		if f.CreatedLT != nil {
			created["$lt"] = *f.CreatedLT
		}
		filter["createdAt"] = created
	}
	return filter
}

// buildPatchPipeline turns p into a single-stage pipeline update. Every
// expression in a $set stage reads the document as it was before the
// stage, so "$status" below is the stored status. User values are wrapped
// in $literal so strings starting with "$" are not read as field paths.
func buildPatchPipeline(p IssuePatch) mongo.Pipeline {
	lit := func(v any) bson.M { return bson.M{"$literal": v} }

	set := bson.D{{Key: "updatedAt", Value: p.UpdatedAt}}
	if p.Title != nil {
		set = append(set, bson.E{Key: "title", Value: lit(*p.Title)})
	}
	if p.Description != nil {
		set = append(set, bson.E{Key: "description", Value: lit(*p.Description)})
	}
	if p.Category != nil {
		set = append(set, bson.E{Key: "category", Value: lit(string(*p.Category))})
	}
	if p.Priority != nil {
		set = append(set, bson.E{Key: "priority", Value: lit(string(*p.Priority))})
	}
	if p.Location != nil {
		set = append(set, bson.E{Key: "location", Value: lit(*p.Location)})
	}
	if p.RejectionReason != nil {
		set = append(set, bson.E{Key: "rejectionReason", Value: lit(*p.RejectionReason)})
	}
	if p.Assign && p.AssignedTo != nil {
		set = append(set, bson.E{Key: "assignedTo", Value: *p.AssignedTo})
	}
	if p.Status != nil {
		changed := bson.M{"$ne": bson.A{"$status", string(p.Status.Status)}}
		history := bson.M{"$ifNull": bson.A{"$statusHistory", bson.A{}}}
		set = append(set,
			bson.E{Key: "status", Value: lit(string(p.Status.Status))},
			bson.E{Key: "statusHistory", Value: bson.M{"$cond": bson.A{
				changed,
				bson.M{"$concatArrays": bson.A{history, bson.A{lit(*p.Status)}}},
				history,
			}}},
		)
		if p.Status.Status == models.Resolved {
			set = append(set, bson.E{Key: "resolvedAt", Value: bson.M{"$cond": bson.A{
				changed, p.Status.ChangedAt, "$resolvedAt",
			}}})
		}
	}

	pipeline := mongo.Pipeline{{{Key: "$set", Value: set}}}
	if p.Assign && p.AssignedTo == nil {
		pipeline = append(pipeline, bson.D{{Key: "$unset", Value: "assignedTo"}})
	}
	return pipeline
}

func buildSort(s Sort) bson.D {
	dir := 1
	if s.Desc {
		dir = -1
	}
	if s.Field == "" {
		return bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}
	}
	return bson.D{{Key: s.Field, Value: dir}, {Key: "_id", Value: dir}}
}
