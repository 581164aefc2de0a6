package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/prochartist/backend/core"
	"github.com/prochartist/backend/core/application"
)

// bucketDoc holds every application filed for a league date.
type bucketDoc struct {
	Date         string           `bson:"_id"`
	Applications []applicationDoc `bson:"applications"`
	CreatedAt    time.Time        `bson:"createdAt"`
	UpdatedAt    time.Time        `bson:"updatedAt"`
}

type applicationDoc struct {
	ID              string    `bson:"_id"`
	Name            string    `bson:"name"`
	Mobile          string    `bson:"mobile"`
	ImageURL        string    `bson:"imageUrl"`
	Email           string    `bson:"email"`
	UserID          string    `bson:"userId"`
	Status          string    `bson:"status"`
	RejectionReason string    `bson:"rejectionReason,omitempty"`
	CreatedAt       time.Time `bson:"createdAt"`
	UpdatedAt       time.Time `bson:"updatedAt"`
}

func toApplicationDoc(app application.Application) applicationDoc {
	return applicationDoc{
		ID:              app.ID,
		Name:            app.Name,
		Mobile:          app.Mobile,
		ImageURL:        app.ImageURL,
		Email:           app.Email,
		UserID:          app.UserID,
		Status:          app.Status,
		RejectionReason: app.RejectionReason,
		CreatedAt:       app.CreatedAt,
		UpdatedAt:       app.UpdatedAt,
	}
}

func (d applicationDoc) application(date string) application.Application {
	return application.Application{
		ID:              d.ID,
		LeagueDate:      date,
		Name:            d.Name,
		Mobile:          d.Mobile,
		ImageURL:        d.ImageURL,
		Email:           d.Email,
		UserID:          d.UserID,
		Status:          d.Status,
		RejectionReason: d.RejectionReason,
		CreatedAt:       d.CreatedAt.UTC(),
		UpdatedAt:       d.UpdatedAt.UTC(),
	}
}

type applicationRepository struct {
	store
}

var _ application.Repository = (*applicationRepository)(nil)

func NewApplicationRepository(db *mongo.Database, conf *core.Config) *applicationRepository {
	return &applicationRepository{store: newStore(db, conf)}
}

// InsertApplication runs a single pipeline upsert on the date bucket. The filter only matches buckets without a
// non-rejected application of the same email; when such an application exists, the upsert collides on _id.
func (repo *applicationRepository) InsertApplication(ctx context.Context, app application.Application) (application.Application, error) {
	filter := bson.M{
		"_id": app.LeagueDate,
		"applications": bson.M{"$not": bson.M{"$elemMatch": bson.M{
			"email":  app.Email,
			"status": bson.M{"$ne": application.StatusRejected},
		}}},
	}
	kept := bson.D{{Key: "$filter", Value: bson.D{
		{Key: "input", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$applications", bson.A{}}}}},
		{Key: "as", Value: "a"},
		{Key: "cond", Value: bson.D{{Key: "$ne", Value: bson.A{"$$a.email", app.Email}}}},
	}}}
	added := bson.D{{Key: "$literal", Value: bson.A{toApplicationDoc(app)}}}
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "applications", Value: bson.D{{Key: "$concatArrays", Value: bson.A{kept, added}}}},
			{Key: "createdAt", Value: bson.D{{Key: "$ifNull", Value: bson.A{"$createdAt", app.CreatedAt}}}},
			{Key: "updatedAt", Value: app.CreatedAt},
		}}},
	}

	err := upsertBucket(func() error {
		return repo.retry.Do(ctx, "inserting application", func(ctx context.Context) error {
			_, err := repo.col(colApplications).UpdateOne(ctx, filter, pipeline, options.Update().SetUpsert(true))
			return err
		})
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return application.Application{}, application.ErrAlreadyApplied
		}
		return application.Application{}, errors.Wrap(err, "inserting application")
	}
	return app, nil
}

// upsertBucket runs upsert once more when it collides on _id. Two first submissions for a new date race to
// insert the bucket; the loser then finds the bucket and updates it. A second collision is a real duplicate.
func upsertBucket(upsert func() error) error {
	err := upsert()
	if mongo.IsDuplicateKeyError(err) {
		err = upsert()
	}
	return err
}

// decodeSingle decodes a bucket projected on a single application.
func decodeSingle(res *mongo.SingleResult) (application.Application, error) {
	var bucket bucketDoc
	if err := res.Decode(&bucket); err != nil {
		return application.Application{}, err
	}
	if len(bucket.Applications) == 0 {
		return application.Application{}, mongo.ErrNoDocuments
	}
	return bucket.Applications[0].application(bucket.Date), nil
}

func projectOn(id string) bson.M {
	return bson.M{
		"applications": bson.M{"$elemMatch": bson.M{"_id": id}},
		"createdAt":    1,
		"updatedAt":    1,
	}
}

func (repo *applicationRepository) GetApplication(ctx context.Context, id string) (application.Application, error) {
	var app application.Application
	err := repo.retry.Do(ctx, "finding application", func(ctx context.Context) (err error) {
		res := repo.col(colApplications).FindOne(ctx, bson.M{"applications._id": id}, options.FindOne().SetProjection(projectOn(id)))
		app, err = decodeSingle(res)
		return err
	})
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return application.Application{}, application.ErrNotFound
		}
		return application.Application{}, errors.Wrap(err, "finding application")
	}
	return app, nil
}

// SetStatus changes the status and the rejection reason with one positional update.
func (repo *applicationRepository) SetStatus(ctx context.Context, id, status, reason string) (application.Application, error) {
	now := core.NowFunc()
	set := bson.M{
		"applications.$.status":    status,
		"applications.$.updatedAt": now,
		"updatedAt":                now,
	}
	update := bson.M{"$set": set}
	if reason != "" {
		set["applications.$.rejectionReason"] = reason
	} else {
		update["$unset"] = bson.M{"applications.$.rejectionReason": ""}
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After).SetProjection(projectOn(id))

	var app application.Application
	err := repo.retry.Do(ctx, "updating application", func(ctx context.Context) (err error) {
		res := repo.col(colApplications).FindOneAndUpdate(ctx, bson.M{"applications._id": id}, update, opts)
		app, err = decodeSingle(res)
		return err
	})
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return application.Application{}, application.ErrNotFound
		}
		return application.Application{}, errors.Wrap(err, "updating application")
	}
	return app, nil
}

func (repo *applicationRepository) DeleteApplication(ctx context.Context, id string) error {
	update := bson.M{
		"$pull": bson.M{"applications": bson.M{"_id": id}},
		"$set":  bson.M{"updatedAt": core.NowFunc()},
	}
	var res *mongo.UpdateResult
	err := repo.retry.Do(ctx, "deleting application", func(ctx context.Context) (err error) {
		res, err = repo.col(colApplications).UpdateOne(ctx, bson.M{"applications._id": id}, update)
		return err
	})
	if err != nil {
		return errors.Wrap(err, "deleting application")
	}
	if res.MatchedCount == 0 {
		return application.ErrNotFound
	}
	return nil
}

func (repo *applicationRepository) bucket(ctx context.Context, date string) (bucketDoc, error) {
	var bucket bucketDoc
	err := repo.retry.Do(ctx, "finding applications", func(ctx context.Context) error {
		return repo.col(colApplications).FindOne(ctx, bson.M{"_id": date}).Decode(&bucket)
	})
	if err != nil && err != mongo.ErrNoDocuments {
		return bucketDoc{}, errors.Wrap(err, "finding applications")
	}
	bucket.Date = date
	return bucket, nil
}

func (repo *applicationRepository) ListApplications(ctx context.Context, date string) ([]application.Application, error) {
	bucket, err := repo.bucket(ctx, date)
	if err != nil {
		return nil, err
	}
	apps := make([]application.Application, 0, len(bucket.Applications))
	for _, d := range bucket.Applications {
		apps = append(apps, d.application(date))
	}
	return apps, nil
}

func (repo *applicationRepository) FindApplication(ctx context.Context, date, email string) (application.Application, error) {
	bucket, err := repo.bucket(ctx, date)
	if err != nil {
		return application.Application{}, err
	}
	for _, d := range bucket.Applications {
		if d.Email == email {
			return d.application(date), nil
		}
	}
	return application.Application{}, application.ErrNotFound
}

func (repo *applicationRepository) ListDates(ctx context.Context) ([]string, error) {
	opts := options.Find().
		SetProjection(bson.M{"_id": 1}).
		SetSort(bson.D{{Key: "_id", Value: -1}})

	var docs []struct {
		Date string `bson:"_id"`
	}
	err := repo.retry.Do(ctx, "listing league dates", func(ctx context.Context) error {
		cur, err := repo.col(colApplications).Find(ctx, bson.M{}, opts)
		if err != nil {
			return err
		}
		docs = nil
		return cur.All(ctx, &docs)
	})
	if err != nil {
		return nil, errors.Wrap(err, "listing league dates")
	}
	dates := make([]string, 0, len(docs))
	for _, d := range docs {
		dates = append(dates, d.Date)
	}
	return dates, nil
}
