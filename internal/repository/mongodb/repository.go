// Package mongodb archives closing shift reports in MongoDB.
package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/shiftlog/internal/domain/models"
)

const reportsCollection = "shift_reports"

// Repository defines the interface for report storage.
type Repository interface {
	SaveShiftReport(ctx context.Context, report models.ShiftReport) error
	ListShiftReports(ctx context.Context, month string) ([]models.ShiftReport, error)
}

// MongoDBRepository implements the Repository interface for MongoDB.
type MongoDBRepository struct {
	client   *mongo.Client
	dbName   string
	collName string
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return newRepository(client, dbName), nil
}

func newRepository(client *mongo.Client, dbName string) *MongoDBRepository {
	return &MongoDBRepository{client: client, dbName: dbName, collName: reportsCollection}
}

func (r *MongoDBRepository) collection() *mongo.Collection {
	return r.client.Database(r.dbName).Collection(r.collName)
}

// SaveShiftReport stores the report of a shift, replacing an earlier report
// of the same date and shift.
func (r *MongoDBRepository) SaveShiftReport(ctx context.Context, report models.ShiftReport) error {
	filter := bson.D{{Key: "date", Value: report.Date}, {Key: "shift", Value: report.Shift}}
	_, err := r.collection().ReplaceOne(ctx, filter, report, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to save shift report %s/%s: %w", report.Date, report.Shift, err)
	}
	return nil
}

// ListShiftReports returns the archived reports of month ordered by date and
// shift.
func (r *MongoDBRepository) ListShiftReports(ctx context.Context, month string) ([]models.ShiftReport, error) {
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: 1}, {Key: "shift", Value: 1}})
	cursor, err := r.collection().Find(ctx, bson.D{{Key: "month", Value: month}}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query shift reports for %s: %w", month, err)
	}
	defer cursor.Close(ctx)

	reports := []models.ShiftReport{}
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, fmt.Errorf("failed to decode shift reports: %w", err)
	}
	return reports, nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
