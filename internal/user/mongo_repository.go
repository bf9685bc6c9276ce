package user

import (
	"context"
	"errors"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"gochat/internal/common"
	"gochat/internal/dbmongo"
)

type mongoUserRepository struct {
	coll *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) UserRepository {
	return &mongoUserRepository{coll: db.Collection(dbmongo.UsersCollection)}
}

func (r *mongoUserRepository) Create(ctx context.Context, user *User) error {
	_, err := r.coll.InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return common.ConflictError("username or email already taken")
	}
	return err
}

func (r *mongoUserRepository) GetByID(ctx context.Context, id string) (*User, error) {
	return r.findOne(ctx, bson.M{"_id": id}, common.NotFoundError("user %s", id))
}

func (r *mongoUserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.findOne(ctx, bson.M{"email": email}, common.NotFoundError("user"))
}

func (r *mongoUserRepository) findOne(ctx context.Context, filter bson.M, notFound error) (*User, error) {
	var u User
	err := r.coll.FindOne(ctx, filter).Decode(&u)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *mongoUserRepository) FindByIDs(ctx context.Context, ids []string) ([]*User, error) {
	if len(ids) == 0 {
		return []*User{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}})
}

func (r *mongoUserRepository) Update(ctx context.Context, user *User) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": user.ID}, bson.M{"$set": bson.M{
		"username":      user.Username,
		"email":         user.Email,
		"password_hash": user.PasswordHash,
		"avatar":        user.Avatar,
	}})
	if mongo.IsDuplicateKeyError(err) {
		return common.ConflictError("username or email already taken")
	}
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return common.NotFoundError("user %s", user.ID)
	}
	return nil
}

func (r *mongoUserRepository) Search(ctx context.Context, query, excludeID string, limit int) ([]*User, error) {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}
	filter := bson.M{
		"_id": bson.M{"$ne": excludeID},
		"$or": bson.A{
			bson.M{"username": pattern},
			bson.M{"email": pattern},
		},
	}
	opts := options.Find().SetSort(bson.D{{Key: "username", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.find(ctx, filter, opts)
}

func (r *mongoUserRepository) List(ctx context.Context, excludeID string) ([]*User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "username", Value: 1}})
	return r.find(ctx, bson.M{"_id": bson.M{"$ne": excludeID}}, opts)
}

func (r *mongoUserRepository) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]*User, error) {
	cursor, err := r.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	out := []*User{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
