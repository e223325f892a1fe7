// Package storage persists the watched course list in MongoDB so courses
// added over Slack survive a redeploy. Section snapshots are never stored.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/endeavored/sectionwatch/internal/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const watchlistDocId = "watchlist"

type WrappedCourseData struct {
	Id      string   `bson:"_id"`
	Courses []string `bson:"courses"`
}

type MongoWatchlist struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func ConnectWatchlist(ctx context.Context, uri, database, collection string) (*MongoWatchlist, error) {
	serverAPI := options.ServerAPI(options.ServerAPIVersion1)
	opts := options.Client().ApplyURI(uri).SetServerAPIOptions(serverAPI)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	return &MongoWatchlist{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

func (m *MongoWatchlist) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

// Load returns the stored courses; a missing document is an empty list.
// Entries that no longer parse are skipped and reported in the error.
func (m *MongoWatchlist) Load(ctx context.Context) ([]models.Course, error) {
	var doc WrappedCourseData
	err := m.collection.FindOne(ctx, bson.M{"_id": watchlistDocId}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load watchlist: %w", err)
	}
	return DecodeCourses(doc.Courses)
}

func (m *MongoWatchlist) Save(ctx context.Context, courses []string) error {
	opts := options.FindOneAndReplace().SetUpsert(true)
	res := m.collection.FindOneAndReplace(ctx, bson.M{"_id": watchlistDocId}, WrappedCourseData{
		Id:      watchlistDocId,
		Courses: courses,
	}, opts)
	if err := res.Err(); err != nil && !errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("save watchlist: %w", err)
	}
	return nil
}

func DecodeCourses(raw []string) ([]models.Course, error) {
	out := make([]models.Course, 0, len(raw))
	var bad []string
	for _, r := range raw {
		c, err := models.ParseCourse(r)
		if err != nil {
			bad = append(bad, strings.TrimSpace(r))
			continue
		}
		out = append(out, c)
	}
	if len(bad) > 0 {
		return out, fmt.Errorf("%w: %s", models.ErrInvalidCourse, strings.Join(bad, ", "))
	}
	return out, nil
}
