package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/prochartist/backend/core"
	"github.com/prochartist/backend/storage/database"
)

// Collections
const (
	colUsers        = "users"
	colProgress     = "userProgress"
	colPhases       = "learningPhases"
	colVideos       = "videos"
	colApplications = "applicationsByDate"
	colLeagues      = "leagues"
	colPayments     = "payments"
	colPurchases    = "userPurchases"
)

// Open connects to the configured MongoDB deployment, waits for it to answer and makes sure indexes exist.
func Open(ctx context.Context, conf *core.Config) (*mongo.Client, *mongo.Database, error) {
	opts := options.Client().
		ApplyURI(conf.Database.URI).
		SetConnectTimeout(conf.Database.Timeout).
		SetServerSelectionTimeout(conf.Database.Timeout).
		SetRetryWrites(true)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, errors.Wrap(err, "connecting to mongodb")
	}
	if err = ping(ctx, client); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}

	db := client.Database(conf.Database.Name)
	if err = EnsureIndexes(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}
	return client, db, nil
}

// ping waits for the deployment to be ready. Waits 100ms longer between each attempt.
func ping(ctx context.Context, client *mongo.Client) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = client.Ping(ctx, readpref.Primary()); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(ctx.Err(), "DB ping cancelled")
		case <-time.After(time.Duration(attempts) * 100 * time.Millisecond):
		}
	}
	return errors.Wrap(err, "DB ping timeout")
}

func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	unique := options.Index().SetUnique(true)
	indexes := map[string][]mongo.IndexModel{
		colUsers:     {{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique}},
		colPhases:    {{Keys: bson.D{{Key: "phaseId", Value: 1}}, Options: unique}},
		colVideos:    {{Keys: bson.D{{Key: "id", Value: 1}}, Options: unique}},
		colPurchases: {{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "phaseId", Value: 1}}, Options: unique}},
		colPayments: {
			{Keys: bson.D{{Key: "orderId", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		colApplications: {{Keys: bson.D{{Key: "applications._id", Value: 1}}}},
	}
	for col, models := range indexes {
		if _, err := db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return errors.Wrapf(err, "creating %s indexes", col)
		}
	}
	return nil
}

// isTransient reports whether a driver error is worth retrying.
func isTransient(err error) bool {
	if err == nil || err == context.Canceled {
		return false
	}
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return true
	}
	var se mongo.ServerError
	if errors.As(err, &se) {
		return se.HasErrorLabel("RetryableWriteError") || se.HasErrorLabel("TransientTransactionError")
	}
	return false
}

// store is embedded by every repository.
type store struct {
	db    *mongo.Database
	retry database.Retrier
}

func newStore(db *mongo.Database, conf *core.Config) store {
	return store{db: db, retry: database.NewRetrier(conf.Database.MaxRetries, isTransient)}
}

func (s store) col(name string) *mongo.Collection {
	return s.db.Collection(name)
}

func after() *options.FindOneAndUpdateOptions {
	return options.FindOneAndUpdate().SetReturnDocument(options.After)
}

func upsertAfter() *options.FindOneAndUpdateOptions {
	return options.FindOneAndUpdate().SetReturnDocument(options.After).SetUpsert(true)
}
