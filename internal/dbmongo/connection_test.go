package dbmongo

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestMongoClient_Structure(t *testing.T) {
	client := &MongoClient{}
	assert.NotNil(t, client)
}

func TestEnsureIndexes(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("creates indexes for every collection", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(),
			mtest.CreateSuccessResponse(),
		)

		err := EnsureIndexes(context.Background(), mt.DB)
		assert.NoError(mt, err)
	})

	mt.Run("surfaces index errors", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    85,
			Name:    "IndexOptionsConflict",
			Message: "index options conflict",
		}))

		err := EnsureIndexes(context.Background(), mt.DB)
		assert.Error(mt, err)
		assert.Contains(mt, err.Error(), MessagesCollection)
	})
}

func TestCollectionIndexes_DirectKeyIsUniqueAndSparse(t *testing.T) {
	models := collectionIndexes[ConversationsCollection]

	var found bool
	for _, m := range models {
		keys, ok := m.Keys.(bson.D)
		if !ok || len(keys) != 1 || keys[0].Key != "direct_key" {
			continue
		}
		found = true
		assert.True(t, *m.Options.Unique)
		assert.True(t, *m.Options.Sparse)
	}
	assert.True(t, found)
}
