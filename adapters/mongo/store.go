package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/voiceast/server/domain/entities"
	"github.com/voiceast/server/domain/repositories"
)

const (
	commandsCollection    = "command_history"
	preferencesCollection = "user_preferences"
	memoriesCollection    = "memories"

	commonIntentsLimit = 10
)

// Store implements repositories.Store on MongoDB
type Store struct {
	client      *mongo.Client
	commands    *mongo.Collection
	preferences *mongo.Collection
	memories    *mongo.Collection
}

// NewStore creates a store over the given database
func NewStore(client *mongo.Client, db *mongo.Database) *Store {
	return &Store{
		client:      client,
		commands:    db.Collection(commandsCollection),
		preferences: db.Collection(preferencesCollection),
		memories:    db.Collection(memoriesCollection),
	}
}

// Ping implements repositories.Store
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Save implements repositories.CommandRepository
func (s *Store) Save(ctx context.Context, record *entities.CommandRecord) error {
	if record == nil {
		return errors.New("record cannot be nil")
	}
	if err := record.Validate(); err != nil {
		return err
	}
	if record.ID.IsZero() {
		record.ID = primitive.NewObjectID()
	}

	if _, err := s.commands.InsertOne(ctx, record); err != nil {
		return fmt.Errorf("failed to save command: %w", err)
	}
	return nil
}

// History implements repositories.CommandRepository, newest first
func (s *Store) History(ctx context.Context, limit int) ([]*entities.CommandRecord, error) {
	opts := options.Find().SetSort(bson.M{"timestamp": -1})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := s.commands.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}
	defer cursor.Close(ctx)

	records := []*entities.CommandRecord{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode history: %w", err)
	}
	return records, nil
}

// Clear implements repositories.CommandRepository
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.commands.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	return nil
}

// Statistics implements repositories.CommandRepository
func (s *Store) Statistics(ctx context.Context) (entities.Statistics, error) {
	total, err := s.commands.CountDocuments(ctx, bson.M{})
	if err != nil {
		return entities.Statistics{}, fmt.Errorf("failed to count commands: %w", err)
	}

	successful, err := s.commands.CountDocuments(ctx, bson.M{"success": true})
	if err != nil {
		return entities.Statistics{}, fmt.Errorf("failed to count successful commands: %w", err)
	}

	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$intent"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}}}},
		{{Key: "$limit", Value: commonIntentsLimit}},
	}

	cursor, err := s.commands.Aggregate(ctx, pipeline)
	if err != nil {
		return entities.Statistics{}, fmt.Errorf("failed to aggregate intents: %w", err)
	}
	defer cursor.Close(ctx)

	var common []entities.IntentCount
	if err := cursor.All(ctx, &common); err != nil {
		return entities.Statistics{}, fmt.Errorf("failed to decode intents: %w", err)
	}

	return entities.NewStatistics(total, successful, common), nil
}

// Get implements repositories.PreferenceRepository
func (s *Store) Get(ctx context.Context, key string) (interface{}, error) {
	var pref entities.Preference
	err := s.preferences.FindOne(ctx, bson.M{"preference_key": key}).Decode(&pref)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repositories.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get preference %s: %w", key, err)
	}
	return pref.Value, nil
}

// Set implements repositories.PreferenceRepository
func (s *Store) Set(ctx context.Context, key string, value interface{}) error {
	if key == "" {
		return errors.New("preference key cannot be empty")
	}

	update := bson.M{
		"$set": bson.M{
			"value":      value,
			"updated_at": time.Now().UTC(),
		},
	}
	_, err := s.preferences.UpdateOne(ctx, bson.M{"preference_key": key}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to set preference %s: %w", key, err)
	}
	return nil
}

// AddMemory implements repositories.MemoryRepository
func (s *Store) AddMemory(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return errors.New("memory text cannot be empty")
	}

	memory := entities.Memory{Text: text, Timestamp: time.Now().UTC()}
	if _, err := s.memories.InsertOne(ctx, memory); err != nil {
		return fmt.Errorf("failed to add memory: %w", err)
	}
	return nil
}

// SearchMemories implements repositories.MemoryRepository, newest first
func (s *Store) SearchMemories(ctx context.Context, query string, limit int) ([]string, error) {
	filter := bson.M{}
	if query = strings.TrimSpace(query); query != "" {
		filter["text"] = primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}
	}

	opts := options.Find().SetSort(bson.M{"timestamp": -1})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := s.memories.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to search memories: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []entities.Memory
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode memories: %w", err)
	}

	memories := make([]string, len(docs))
	for i, doc := range docs {
		memories[i] = doc.Text
	}
	return memories, nil
}
