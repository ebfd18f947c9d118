package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Client wraps the MongoDB client and database
type Client struct {
	*mongo.Client
	Database *mongo.Database
	logger   *zap.Logger
}

// NewClient creates a new MongoDB client connection
func NewClient(ctx context.Context, uri, dbName string, logger *zap.Logger) (*Client, error) {
	// Set client options
	clientOptions := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(10).
		SetMinPoolSize(1).
		SetMaxConnIdleTime(30 * time.Minute).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(10 * time.Second)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("Successfully connected to MongoDB", zap.String("database", dbName))

	c := &Client{
		Client:   client,
		Database: client.Database(dbName),
		logger:   logger,
	}
	if err := c.ensureIndexes(ctx); err != nil {
		logger.Warn("Failed to create indexes", zap.Error(err))
	}
	return c, nil
}

func (c *Client) ensureIndexes(ctx context.Context) error {
	indexes := map[string]string{
		commandsCollection:    "timestamp",
		preferencesCollection: "preference_key",
		memoriesCollection:    "timestamp",
	}
	for collection, field := range indexes {
		model := mongo.IndexModel{Keys: bson.D{{Key: field, Value: 1}}}
		if collection == preferencesCollection {
			model.Options = options.Index().SetUnique(true)
		}
		if _, err := c.Database.Collection(collection).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("failed to index %s.%s: %w", collection, field, err)
		}
	}
	return nil
}

// Close closes the MongoDB connection
func (c *Client) Close(ctx context.Context) error {
	if err := c.Client.Disconnect(ctx); err != nil {
		c.logger.Error("Failed to disconnect from MongoDB", zap.Error(err))
		return err
	}
	c.logger.Info("Disconnected from MongoDB")
	return nil
}
