package db

import (
	"context"
	"time"

	"github.com/ukydev/fleet-triplog/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoManagerCollection implements ManagerCollection for MongoDB
type MongoManagerCollection struct {
	Collection *mongo.Collection
}

// InsertManager inserts a new manager into the database
func (c *MongoManagerCollection) InsertManager(ctx context.Context, manager models.Manager) error {
	manager.CreatedAt = time.Now()
	manager.UpdatedAt = time.Now()
	manager.IsActive = true

	_, err := c.Collection.InsertOne(ctx, manager)
	return err
}

// FindManagerByID finds a manager by their ID
func (c *MongoManagerCollection) FindManagerByID(ctx context.Context, id string) (*models.Manager, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var manager models.Manager
	err = c.Collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&manager)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &manager, nil
}

// FindManagerByUsername finds a manager by their username
func (c *MongoManagerCollection) FindManagerByUsername(ctx context.Context, username string) (*models.Manager, error) {
	var manager models.Manager
	err := c.Collection.FindOne(ctx, bson.M{"username": username}).Decode(&manager)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &manager, nil
}

// UpdateManager updates a manager in the database
func (c *MongoManagerCollection) UpdateManager(ctx context.Context, id string, manager models.Manager) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	manager.UpdatedAt = time.Now()
	manager.ID = objectID

	_, err = c.Collection.ReplaceOne(ctx, bson.M{"_id": objectID}, manager)
	return err
}

// UpdateLastLogin updates the last login time for a manager
func (c *MongoManagerCollection) UpdateLastLogin(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	now := time.Now()
	_, err = c.Collection.UpdateOne(
		ctx,
		bson.M{"_id": objectID},
		bson.M{"$set": bson.M{"last_login": now, "updated_at": now}},
	)
	return err
}
