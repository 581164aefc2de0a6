package inmemdb

import (
	"context"
	"sort"

	"github.com/prochartist/backend/core"
	"github.com/prochartist/backend/core/video"
)

type videoRepository struct {
	db *videoTable
}

var _ video.Repository = (*videoRepository)(nil)

func NewVideoRepository(db *DB) *videoRepository {
	return &videoRepository{db: db.video}
}

func (repo *videoRepository) QueryVideos(_ context.Context, activeOnly bool) ([]video.Video, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	videos := make([]video.Video, 0, len(repo.db.table))
	for _, v := range repo.db.table {
		if activeOnly && !v.IsActive {
			continue
		}
		videos = append(videos, *v)
	}
	sort.Slice(videos, func(i, j int) bool { return videos[i].ID < videos[j].ID })
	return videos, nil
}

func (repo *videoRepository) GetVideo(_ context.Context, id int) (video.Video, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if v, ok := repo.db.table[id]; ok {
		return *v, nil
	}
	return video.Video{}, video.ErrNotFound
}

func (repo *videoRepository) UpsertVideo(_ context.Context, v video.Video) (video.Video, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if orig, ok := repo.db.table[v.ID]; ok {
		v.UploadedAt = orig.UploadedAt
	}
	repo.db.table[v.ID] = &v
	return v, nil
}

func (repo *videoRepository) UpdateVideo(_ context.Context, id int, upd video.UpdateVideo) (video.Video, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	v, ok := repo.db.table[id]
	if !ok {
		return video.Video{}, video.ErrNotFound
	}
	upd.Apply(v)
	v.UpdatedAt = core.NowFunc()
	return *v, nil
}
