package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"portfolio-api/internal/model"
)

const (
	usersCollection    = "users"
	messagesCollection = "messages"
)

type userDocument struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	Email     string        `bson:"email"`
	Password  string        `bson:"password"`
	Name      string        `bson:"name"`
	CreatedAt time.Time     `bson:"createdAt"`
	UpdatedAt time.Time     `bson:"updatedAt"`
}

func (d *userDocument) toModel() *model.User {
	return &model.User{
		ID:           d.ID.Hex(),
		Email:        d.Email,
		PasswordHash: d.Password,
		Name:         d.Name,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

type MongoUserRepository struct {
	coll *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{coll: db.Collection(usersCollection)}
}

func (r *MongoUserRepository) Create(ctx context.Context, user *model.User) error {
	doc := userDocument{
		Email:     user.Email,
		Password:  user.PasswordHash,
		Name:      user.Name,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert user failed: %w", classify(err))
	}
	if id, ok := res.InsertedID.(bson.ObjectID); ok {
		user.ID = id.Hex()
	}
	return nil
}

func (r *MongoUserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

// GetByID looks a user up by ObjectID hex string. Users are only ever
// inserted with generated ObjectIDs, so any other id is simply not found.
func (r *MongoUserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	filter, ok := userIDFilter(id)
	if !ok {
		return nil, nil
	}
	return r.findOne(ctx, filter)
}

func userIDFilter(id string) (bson.D, bool) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, false
	}
	return bson.D{{Key: "_id", Value: oid}}, true
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.D) (*model.User, error) {
	var doc userDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("query user failed: %w", classify(err))
	}
	return doc.toModel(), nil
}

type MongoMessageRepository struct {
	coll *mongo.Collection
}

func NewMongoMessageRepository(db *mongo.Database) *MongoMessageRepository {
	return &MongoMessageRepository{coll: db.Collection(messagesCollection)}
}

func (r *MongoMessageRepository) Create(ctx context.Context, message *model.ChatMessage) error {
	if _, err := r.coll.InsertOne(ctx, message); err != nil {
		return fmt.Errorf("insert message failed: %w", classify(err))
	}
	return nil
}

func (r *MongoMessageRepository) ListRecent(ctx context.Context, limit int) ([]model.ChatMessage, error) {
	if limit <= 0 {
		limit = 50
	}

	opts := options.Find().
		SetProjection(bson.D{{Key: "_id", Value: 0}}).
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find messages failed: %w", classify(err))
	}
	defer cursor.Close(ctx)

	messages := make([]model.ChatMessage, 0, limit)
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("decode messages failed: %w", classify(err))
	}
	for i := range messages {
		if messages[i].RecommendQuestions == nil {
			messages[i].RecommendQuestions = []string{}
		}
	}
	return messages, nil
}

// NewMongoStore wires the document-store repositories around one client.
func NewMongoStore(client *mongo.Client, database string) *Store {
	db := client.Database(database)
	return &Store{
		Users:    NewMongoUserRepository(db),
		Messages: NewMongoMessageRepository(db),
		Ping: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		},
		Close: func(ctx context.Context) error {
			return client.Disconnect(ctx)
		},
		Migrate: func(ctx context.Context) error {
			return ensureMongoIndexes(ctx, db)
		},
	}
}

func ensureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	if _, err := db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_email"),
	}); err != nil {
		return fmt.Errorf("create users email index failed: %w", err)
	}
	if _, err := db.Collection(messagesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "timestamp", Value: -1}},
		Options: options.Index().SetName("timestamp_desc"),
	}); err != nil {
		return fmt.Errorf("create messages timestamp index failed: %w", err)
	}
	return nil
}
