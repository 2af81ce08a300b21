package repository

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"portfolio-api/internal/model"
	mongoClient "portfolio-api/internal/platform/mongo"
)

func TestUserDocumentToModel(t *testing.T) {
	oid := bson.NewObjectID()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	doc := userDocument{
		ID:        oid,
		Email:     "doc@b.co",
		Password:  "hash",
		Name:      "doc",
		CreatedAt: created,
		UpdatedAt: created.Add(time.Minute),
	}

	user := doc.toModel()
	assert.Equal(t, oid.Hex(), user.ID)
	assert.Equal(t, "doc@b.co", user.Email)
	assert.Equal(t, "hash", user.PasswordHash)
	assert.Equal(t, "doc", user.Name)
	assert.Equal(t, created, user.CreatedAt)
	assert.Equal(t, created.Add(time.Minute), user.UpdatedAt)
}

func TestUserIDFilter(t *testing.T) {
	oid := bson.NewObjectID()

	filter, ok := userIDFilter(oid.Hex())
	require.True(t, ok)
	assert.Equal(t, bson.D{{Key: "_id", Value: oid}}, filter)

	for _, id := range []string{"", "not-an-object-id", "123", oid.Hex() + "00"} {
		_, ok := userIDFilter(id)
		assert.False(t, ok, id)
	}
}

// newMongoTestStore connects to MONGO_TEST_URI and hands out a throwaway
// database that is dropped when the test ends.
func newMongoTestStore(t *testing.T) (*Store, *mongo.Database) {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx := context.Background()
	client, err := mongoClient.New(ctx, mongoClient.Options{URI: uri, ConnectTimeout: 5 * time.Second})
	require.NoError(t, err)

	database := "portfolio_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	store := NewMongoStore(client, database)
	require.NoError(t, store.Migrate(ctx))
	t.Cleanup(func() {
		_ = client.Database(database).Drop(context.Background())
		_ = store.Close(context.Background())
	})
	return store, client.Database(database)
}

func countDocuments(t *testing.T, db *mongo.Database, collection string) int64 {
	t.Helper()
	n, err := db.Collection(collection).CountDocuments(context.Background(), bson.D{})
	require.NoError(t, err)
	return n
}

func TestMongoUserRepository(t *testing.T) {
	store, db := newMongoTestStore(t)
	ctx := context.Background()

	user := &model.User{Email: "mongo@b.co", PasswordHash: "hash", Name: "mongo", CreatedAt: time.Now().UTC()}
	require.NoError(t, store.Users.Create(ctx, user))
	require.Len(t, user.ID, 24)

	err := store.Users.Create(ctx, &model.User{Email: "mongo@b.co", PasswordHash: "other"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)
	assert.Equal(t, int64(1), countDocuments(t, db, usersCollection))

	byEmail, err := store.Users.GetByEmail(ctx, "mongo@b.co")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, user.ID, byEmail.ID)
	assert.Equal(t, "hash", byEmail.PasswordHash)

	byID, err := store.Users.GetByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "mongo@b.co", byID.Email)

	missing, err := store.Users.GetByID(ctx, bson.NewObjectID().Hex())
	require.NoError(t, err)
	assert.Nil(t, missing)

	malformed, err := store.Users.GetByID(ctx, "not-an-object-id")
	require.NoError(t, err)
	assert.Nil(t, malformed)
}

func TestMongoMessageRepository_ListRecent(t *testing.T) {
	store, db := newMongoTestStore(t)
	ctx := context.Background()

	// inserted out of order so the sort, not insertion order, decides
	for i := 0; i < 60; i++ {
		ts := float64(1_700_000_000 + (i*37)%60)
		require.NoError(t, store.Messages.Create(ctx, &model.ChatMessage{
			Username:    model.AnonymousSender,
			UserMessage: "q",
			BotReply:    "a",
			Timestamp:   ts,
		}))
	}
	assert.Equal(t, int64(60), countDocuments(t, db, messagesCollection))

	messages, err := store.Messages.ListRecent(ctx, 50)
	require.NoError(t, err)
	require.Len(t, messages, 50)
	assert.Equal(t, float64(1_700_000_059), messages[0].Timestamp)
	for i := 1; i < len(messages); i++ {
		assert.LessOrEqual(t, messages[i].Timestamp, messages[i-1].Timestamp)
	}
	assert.NotNil(t, messages[0].RecommendQuestions)

	raw, err := json.Marshal(messages)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "_id")
}

func TestMongoMessageRepository_ListingStripsID(t *testing.T) {
	store, db := newMongoTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Messages.Create(ctx, &model.ChatMessage{
		Username:           "jane",
		UserMessage:        "hello",
		BotReply:           "hi",
		RecommendQuestions: []string{"next?"},
		Timestamp:          1_700_000_000.5,
	}))

	messages, err := store.Messages.ListRecent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "jane", messages[0].Username)
	assert.Equal(t, []string{"next?"}, messages[0].RecommendQuestions)
	assert.Equal(t, 1_700_000_000.5, messages[0].Timestamp)

	var stored bson.M
	require.NoError(t, db.Collection(messagesCollection).FindOne(ctx, bson.D{}).Decode(&stored))
	assert.Contains(t, stored, "_id")
	assert.Equal(t, "hello", stored["user_message"])

	raw, err := json.Marshal(messages[0])
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "_id")
}
