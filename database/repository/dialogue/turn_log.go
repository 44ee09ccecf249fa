package dialogueRepo

import (
	"context"
	"fmt"
	"time"

	"servicefinder/database"
	"servicefinder/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const turnsCollection = "conversation_turns"

type turnDocument struct {
	ConversationID string      `bson:"conversationId"`
	Turn           models.Turn `bson:"turn"`
}

// MongoTurnLog stores the transcript of every conversation, one document per turn.
type MongoTurnLog struct {
	coll *mongo.Collection
}

// NewMongoTurnLog uses the global client and the configured database.
func NewMongoTurnLog() *MongoTurnLog {
	return NewMongoTurnLogWithCollection(database.Database().Collection(turnsCollection))
}

func NewMongoTurnLogWithCollection(coll *mongo.Collection) *MongoTurnLog {
	l := &MongoTurnLog{coll: coll}
	if err := l.ensureIndexes(); err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return l
}

func (l *MongoTurnLog) ensureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "conversationId", Value: 1}, {Key: "turn.timestamp", Value: 1}},
			Options: options.Index().SetName("conversation_timestamp_idx"),
		},
		{
			Keys:    bson.D{{Key: "turn.id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_turn_id"),
		},
	}

	if _, err := l.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create turn indexes: %w", err)
	}
	return nil
}

func (l *MongoTurnLog) Append(ctx context.Context, conversationID string, turn models.Turn) error {
	_, err := l.coll.InsertOne(ctx, turnDocument{ConversationID: conversationID, Turn: turn})
	if err != nil {
		return fmt.Errorf("failed to append turn to %s: %w", conversationID, err)
	}
	return nil
}

// List returns the transcript oldest first.
func (l *MongoTurnLog) List(ctx context.Context, conversationID string) ([]models.Turn, error) {
	opts := options.Find().SetSort(bson.D{{Key: "turn.timestamp", Value: 1}})
	cursor, err := l.coll.Find(ctx, bson.M{"conversationId": conversationID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list turns for %s: %w", conversationID, err)
	}
	defer cursor.Close(ctx)

	var docs []turnDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode turns for %s: %w", conversationID, err)
	}
	turns := make([]models.Turn, 0, len(docs))
	for _, d := range docs {
		turns = append(turns, d.Turn)
	}
	return turns, nil
}
