package database

import (
	"context"
	"time"

	"github.com/GimhanaMahela/BusWatch/config"
	"github.com/GimhanaMahela/BusWatch/internal/auth"
	"github.com/GimhanaMahela/BusWatch/internal/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Connect opens a client and pings the deployment before returning the
// configured database handle.
func Connect(cfg config.MongoConfig) (*mongo.Database, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	return client.Database(cfg.DBName), nil
}

// EnsureIndexes creates the unique index on receiptId. Duplicate receipt IDs
// are rejected by this index at insert time; the application never does a
// check-then-insert.
func EnsureIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := db.Collection("reports").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "receiptId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}

	_, err = db.Collection("admins").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// SeedInitialAdmin creates the first admin account when the collection is
// empty, so the dashboard is reachable on a fresh deployment.
func SeedInitialAdmin(db *mongo.Database, cfg config.AdminConfig) error {
	collection := db.Collection("admins")

	count, err := collection.CountDocuments(context.Background(), bson.M{})
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	email := cfg.Email
	password := cfg.Password
	if email == "" || password == "" {
		logrus.Warn("no initial admin configured, skipping seeding")
		return nil
	}

	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return err
	}

	admin := models.Admin{
		Email:     email,
		Password:  hashedPassword,
		CreatedAt: time.Now(),
	}

	_, err = collection.InsertOne(context.Background(), admin)
	if err != nil {
		return err
	}

	logrus.WithField("email", email).Info("initial admin created")
	return nil
}
