package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"gochat/internal/chat/models"
	"gochat/internal/common"
	"gochat/internal/dbmongo"
)

type mongoConversationRepo struct {
	coll *mongo.Collection
}

func NewMongoConversationRepository(db *mongo.Database) ConversationRepository {
	return &mongoConversationRepo{coll: db.Collection(dbmongo.ConversationsCollection)}
}

func (r *mongoConversationRepo) Create(ctx context.Context, conv *models.Conversation) error {
	if conv.ID == "" {
		conv.ID = models.NewID()
	}
	_, err := r.coll.InsertOne(ctx, conv)
	if mongo.IsDuplicateKeyError(err) {
		return common.ConflictError("direct conversation already exists")
	}
	return err
}

func (r *mongoConversationRepo) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	return r.findOne(ctx, bson.M{"_id": id}, common.NotFoundError("conversation %s", id))
}

func (r *mongoConversationRepo) FindDirect(ctx context.Context, userA, userB string) (*models.Conversation, error) {
	return r.findOne(ctx, bson.M{"direct_key": models.DirectKey(userA, userB)}, common.NotFoundError("direct conversation"))
}

func (r *mongoConversationRepo) findOne(ctx context.Context, filter bson.M, notFound error) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.coll.FindOne(ctx, filter).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *mongoConversationRepo) ListByParticipant(ctx context.Context, userID string) ([]*models.Conversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.coll.Find(ctx, bson.M{"participants": userID}, opts)
	if err != nil {
		return nil, err
	}
	var out []*models.Conversation
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *mongoConversationRepo) Update(ctx context.Context, conv *models.Conversation) error {
	// the preview is owned by UpdatePreview and never written here
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": conv.ID}, bson.M{"$set": bson.M{
		"participants": conv.Participants,
		"group_name":   conv.GroupName,
		"group_avatar": conv.GroupAvatar,
		"group_admin":  conv.GroupAdmin,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return common.NotFoundError("conversation %s", conv.ID)
	}
	return nil
}

func (r *mongoConversationRepo) UpdatePreview(ctx context.Context, id, text string, at time.Time) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"last_message": text, "last_message_time": at},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return common.NotFoundError("conversation %s", id)
	}
	return nil
}
