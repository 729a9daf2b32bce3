package db

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"scamdrill/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var MongoClient *mongo.Client
var MongoDatabase *mongo.Database
var ReportsCollection *mongo.Collection
var ScenarioOverridesCollection *mongo.Collection

// GetCollection returns a collection by name
func GetCollection(collectionName string) *mongo.Collection {
	return MongoDatabase.Collection(collectionName)
}

// extractDBName parses the database name from the URI, defaulting to "scamdrill"
func extractDBName(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return "scamdrill"
	}
	if u.Path != "" && u.Path != "/" {
		return u.Path[1:]
	}
	return "scamdrill"
}

// ConnectMongoDB establishes a connection to MongoDB using the provided URI
func ConnectMongoDB(uri string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	MongoClient = client
	MongoDatabase = client.Database(extractDBName(uri))
	ReportsCollection = MongoDatabase.Collection("reports")
	ScenarioOverridesCollection = MongoDatabase.Collection("scenario_overrides")
	return nil
}

// SaveReport stores a completed session's score report.
func SaveReport(ctx context.Context, report *models.ScoreReport) error {
	_, err := ReportsCollection.InsertOne(ctx, report)
	if err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// GetReport retrieves a stored report by session id.
func GetReport(ctx context.Context, sessionID string) (*models.ScoreReport, error) {
	var report models.ScoreReport
	err := ReportsCollection.FindOne(ctx, bson.M{"sessionId": sessionID}).Decode(&report)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("no report found for session: %s", sessionID)
		}
		return nil, err
	}
	return &report, nil
}

type scenarioOverride struct {
	Name      string    `bson:"name"`
	Document  string    `bson:"document"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// GetScenarioOverride returns the locally stored scenario document for a
// name, or nil when no override exists.
func GetScenarioOverride(ctx context.Context, name string) ([]byte, error) {
	var override scenarioOverride
	err := ScenarioOverridesCollection.FindOne(ctx, bson.M{"name": name}).Decode(&override)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return []byte(override.Document), nil
}

// PutScenarioOverride stores or replaces the scenario override for a name.
func PutScenarioOverride(ctx context.Context, name string, doc []byte) error {
	opts := options.Replace().SetUpsert(true)
	_, err := ScenarioOverridesCollection.ReplaceOne(ctx, bson.M{"name": name}, scenarioOverride{
		Name:      name,
		Document:  string(doc),
		UpdatedAt: time.Now(),
	}, opts)
	if err != nil {
		return fmt.Errorf("failed to store scenario override: %w", err)
	}
	return nil
}
