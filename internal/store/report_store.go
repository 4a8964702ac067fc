package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/GimhanaMahela/BusWatch/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound           = errors.New("report not found")
	ErrDuplicateReceiptID = errors.New("duplicate receipt ID")
	ErrInvalidStatus      = errors.New("invalid report status")
)

// ReportStore persists and retrieves reports. The mongo implementation is the
// only one in production; tests substitute fakes.
type ReportStore interface {
	Create(ctx context.Context, report *models.Report) error
	FindAll(ctx context.Context) ([]models.Report, error)
	FindByID(ctx context.Context, id string) (*models.Report, error)
	FindByReceiptID(ctx context.Context, receiptID string) (*models.Report, error)
	UpdateStatus(ctx context.Context, id, status string) (*models.Report, error)
	Delete(ctx context.Context, id string) error
}

type MongoReportStore struct {
	collection *mongo.Collection
}

func NewMongoReportStore(db *mongo.Database) *MongoReportStore {
	return &MongoReportStore{collection: db.Collection("reports")}
}

// Create inserts the report. A receiptId collision surfaces as
// ErrDuplicateReceiptID via the unique index, closing the check-then-act
// race.
func (s *MongoReportStore) Create(ctx context.Context, report *models.Report) error {
	result, err := s.collection.InsertOne(ctx, report)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateReceiptID
		}
		return fmt.Errorf("failed to insert report: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		report.ID = oid
	}
	return nil
}

func (s *MongoReportStore) FindAll(ctx context.Context) ([]models.Report, error) {
	opts := options.Find().SetSort(bson.D{{Key: "reportedAt", Value: -1}})
	cursor, err := s.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer cursor.Close(ctx)

	var reports []models.Report
	if err = cursor.All(ctx, &reports); err != nil {
		return nil, fmt.Errorf("failed to decode reports: %w", err)
	}

	if reports == nil {
		reports = []models.Report{}
	}
	return reports, nil
}

func (s *MongoReportStore) FindByID(ctx context.Context, id string) (*models.Report, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		// A malformed ID can never match a document.
		return nil, ErrNotFound
	}

	var report models.Report
	err = s.collection.FindOne(ctx, bson.M{"_id": oid}).Decode(&report)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve report: %w", err)
	}
	return &report, nil
}

func (s *MongoReportStore) FindByReceiptID(ctx context.Context, receiptID string) (*models.Report, error) {
	var report models.Report
	err := s.collection.FindOne(ctx, bson.M{"receiptId": receiptID}).Decode(&report)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to retrieve report: %w", err)
	}
	return &report, nil
}

// UpdateStatus validates the status against the enumerated set before
// touching the database, then returns the updated record.
func (s *MongoReportStore) UpdateStatus(ctx context.Context, id, status string) (*models.Report, error) {
	if !models.ValidStatus(status) {
		return nil, ErrInvalidStatus
	}

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var report models.Report
	err = s.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{"status": status}},
		opts,
	).Decode(&report)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update report status: %w", err)
	}
	return &report, nil
}

func (s *MongoReportStore) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}

	result, err := s.collection.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
