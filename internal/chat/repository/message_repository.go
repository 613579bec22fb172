package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pairchat/internal/chat/domain"
)

// MessageRepository definition message persistence
type MessageRepository interface {
	Insert(ctx context.Context, msg *domain.Message) error
	FindByID(ctx context.Context, id string) (*domain.Message, error)
	FindBetween(ctx context.Context, userA, userB string) ([]domain.Message, error)
	FindLatestBetween(ctx context.Context, userA, userB string) (*domain.Message, error)
	CountUnread(ctx context.Context, from, to string) (int64, error)
	MarkRead(ctx context.Context, id string) (bool, error)
	MarkAllRead(ctx context.Context, from, to string) error
}

type mongoMessageRepository struct {
	col *mongo.Collection
}

// NewMongoMessageRepository create a MessageRepository backed by mongo
func NewMongoMessageRepository(db *mongo.Database) MessageRepository {
	return &mongoMessageRepository{col: db.Collection("messages")}
}

// pairFilter messages exchanged between two users, either direction
func pairFilter(userA, userB string) bson.M {
	return bson.M{
		"$or": bson.A{
			bson.M{"from": userA, "to": userB},
			bson.M{"from": userB, "to": userA},
		},
	}
}

func (r *mongoMessageRepository) Insert(ctx context.Context, msg *domain.Message) error {
	_, err := r.col.InsertOne(ctx, msg)
	return err
}

func (r *mongoMessageRepository) FindByID(ctx context.Context, id string) (*domain.Message, error) {
	var msg domain.Message
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&msg)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

func (r *mongoMessageRepository) FindBetween(ctx context.Context, userA, userB string) ([]domain.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.col.Find(ctx, pairFilter(userA, userB), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var msgs []domain.Message
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *mongoMessageRepository) FindLatestBetween(ctx context.Context, userA, userB string) (*domain.Message, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	var msg domain.Message
	err := r.col.FindOne(ctx, pairFilter(userA, userB), opts).Decode(&msg)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

func (r *mongoMessageRepository) CountUnread(ctx context.Context, from, to string) (int64, error) {
	return r.col.CountDocuments(ctx, bson.M{"from": from, "to": to, "read": false})
}

// MarkRead flip one message to read. Returns false when the id does not
// exist; flipping an already-read message reports true and changes nothing.
func (r *mongoMessageRepository) MarkRead(ctx context.Context, id string) (bool, error) {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (r *mongoMessageRepository) MarkAllRead(ctx context.Context, from, to string) error {
	_, err := r.col.UpdateMany(ctx,
		bson.M{"from": from, "to": to, "read": false},
		bson.M{"$set": bson.M{"read": true}})
	return err
}
