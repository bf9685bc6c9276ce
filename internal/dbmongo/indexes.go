package dbmongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	MessagesCollection      = "messages"
	ConversationsCollection = "conversations"
	UsersCollection         = "users"
)

var collectionIndexes = map[string][]mongo.IndexModel{
	MessagesCollection: {
		{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "timestamp", Value: 1}}},
		{Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "pinned", Value: 1}, {Key: "pinned_at", Value: -1}}},
	},
	ConversationsCollection: {
		{Keys: bson.D{{Key: "participants", Value: 1}}},
		{
			Keys:    bson.D{{Key: "direct_key", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
	},
	UsersCollection: {
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
}

// EnsureIndexes creates the indexes the chat repositories rely on, including
// the unique ones that make direct conversations and user handles collision-free.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for _, name := range []string{MessagesCollection, ConversationsCollection, UsersCollection} {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, collectionIndexes[name]); err != nil {
			return fmt.Errorf("create %s indexes: %w", name, err)
		}
	}
	return nil
}
