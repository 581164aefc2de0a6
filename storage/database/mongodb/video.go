package mongorepos

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/prochartist/backend/core"
	"github.com/prochartist/backend/core/video"
)

type videoRepository struct {
	store
}

var _ video.Repository = (*videoRepository)(nil)

func NewVideoRepository(db *mongo.Database, conf *core.Config) *videoRepository {
	return &videoRepository{store: newStore(db, conf)}
}

func (repo *videoRepository) QueryVideos(ctx context.Context, activeOnly bool) ([]video.Video, error) {
	filter := bson.M{}
	if activeOnly {
		filter["isActive"] = true
	}
	var videos []video.Video
	err := repo.retry.Do(ctx, "querying videos", func(ctx context.Context) error {
		cur, err := repo.col(colVideos).Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "id", Value: 1}}))
		if err != nil {
			return err
		}
		videos = nil
		return cur.All(ctx, &videos)
	})
	if err != nil {
		return nil, errors.Wrap(err, "querying videos")
	}
	if videos == nil {
		videos = []video.Video{}
	}
	return videos, nil
}

func (repo *videoRepository) GetVideo(ctx context.Context, id int) (video.Video, error) {
	var v video.Video
	err := repo.retry.Do(ctx, "finding video", func(ctx context.Context) error {
		return repo.col(colVideos).FindOne(ctx, bson.M{"id": id}).Decode(&v)
	})
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return video.Video{}, video.ErrNotFound
		}
		return video.Video{}, errors.Wrap(err, "finding video")
	}
	return v, nil
}

func (repo *videoRepository) findAndUpdate(ctx context.Context, op string, id int, update bson.M, opts *options.FindOneAndUpdateOptions) (video.Video, error) {
	var v video.Video
	err := repo.retry.Do(ctx, op, func(ctx context.Context) error {
		return repo.col(colVideos).FindOneAndUpdate(ctx, bson.M{"id": id}, update, opts).Decode(&v)
	})
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return video.Video{}, video.ErrNotFound
		}
		return video.Video{}, errors.Wrap(err, op)
	}
	return v, nil
}

func (repo *videoRepository) UpsertVideo(ctx context.Context, v video.Video) (video.Video, error) {
	update := bson.M{
		"$set": bson.M{
			"title":       v.Title,
			"description": v.Description,
			"thumbnail":   v.Thumbnail,
			"videoUrl":    v.VideoURL,
			"isActive":    v.IsActive,
			"uploadedBy":  v.UploadedBy,
			"updatedAt":   v.UpdatedAt,
		},
		"$setOnInsert": bson.M{"uploadedAt": v.UploadedAt},
	}
	return repo.findAndUpdate(ctx, "saving video", v.ID, update, upsertAfter())
}

func (repo *videoRepository) UpdateVideo(ctx context.Context, id int, upd video.UpdateVideo) (video.Video, error) {
	var v video.Video
	upd.Apply(&v)
	set := bson.M{"updatedAt": core.NowFunc()}
	if upd.Title != nil {
		set["title"] = v.Title
	}
	if upd.Description != nil {
		set["description"] = v.Description
	}
	if upd.Thumbnail != nil {
		set["thumbnail"] = v.Thumbnail
	}
	if upd.VideoURL != nil {
		set["videoUrl"] = v.VideoURL
	}
	if upd.IsActive != nil {
		set["isActive"] = v.IsActive
	}
	return repo.findAndUpdate(ctx, "updating video", id, bson.M{"$set": set}, after())
}
