package repository

import (
	"context"
	"errors"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"gochat/internal/chat/models"
	"gochat/internal/common"
	"gochat/internal/dbmongo"
)

type mongoMessageRepo struct {
	coll *mongo.Collection
}

func NewMongoMessageRepository(db *mongo.Database) MessageRepository {
	return &mongoMessageRepo{coll: db.Collection(dbmongo.MessagesCollection)}
}

func (r *mongoMessageRepo) Create(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = models.NewID()
	}
	_, err := r.coll.InsertOne(ctx, msg)
	if mongo.IsDuplicateKeyError(err) {
		return common.ConflictError("message %s already exists", msg.ID)
	}
	return err
}

func (r *mongoMessageRepo) GetByID(ctx context.Context, id string) (*models.Message, error) {
	var msg models.Message
	err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&msg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, common.NotFoundError("message %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *mongoMessageRepo) FindByIDs(ctx context.Context, ids []string) ([]*models.Message, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find())
}

func (r *mongoMessageRepo) Update(ctx context.Context, msg *models.Message) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": msg.ID}, msg)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return common.NotFoundError("message %s", msg.ID)
	}
	return nil
}

func (r *mongoMessageRepo) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return common.NotFoundError("message %s", id)
	}
	return nil
}

func (r *mongoMessageRepo) List(ctx context.Context, q MessageQuery) ([]*models.Message, error) {
	filter := bson.M{}
	if len(q.ConversationIDs) > 0 {
		filter["conversation_id"] = bson.M{"$in": q.ConversationIDs}
	}
	if q.PinnedOnly {
		filter["pinned"] = true
	}
	if q.Text != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(q.Text), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"text": pattern},
			bson.M{"attachments.name": pattern},
		}
	}

	opts := options.Find()
	switch q.Sort {
	case SortTimestampDesc:
		opts.SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}})
	case SortPinnedAtDesc:
		opts.SetSort(bson.D{{Key: "pinned_at", Value: -1}, {Key: "_id", Value: -1}})
	default:
		opts.SetSort(bson.D{{Key: "timestamp", Value: 1}, {Key: "_id", Value: 1}})
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	return r.find(ctx, filter, opts)
}

func (r *mongoMessageRepo) find(ctx context.Context, filter interface{}, opts *options.FindOptions) ([]*models.Message, error) {
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var out []*models.Message
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
