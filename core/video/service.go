package video

import (
	"context"

	"github.com/pkg/errors"

	"github.com/prochartist/backend/core"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("video not found")
)

type (
	Repository interface {
		// QueryVideos returns videos sorted by ID.
		QueryVideos(ctx context.Context, activeOnly bool) ([]Video, error)
		GetVideo(ctx context.Context, id int) (Video, error)
		// UpsertVideo creates or replaces the video keyed by v.ID. UploadedAt is kept on replace.
		UpsertVideo(ctx context.Context, v Video) (Video, error)
		UpdateVideo(ctx context.Context, id int, upd UpdateVideo) (Video, error)
	}

	ServiceInterface interface {
		List(ctx context.Context, includeInactive bool) ([]Video, error)
		Get(ctx context.Context, id int) (Video, error)
		Save(ctx context.Context, nv NewVideo) (Video, error)
		Update(ctx context.Context, id int, uv UpdateVideo) (Video, error)
		Delete(ctx context.Context, id int) error
		BulkSave(ctx context.Context, bu BulkUpdate) ([]Video, error)
	}

	Service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) List(ctx context.Context, includeInactive bool) ([]Video, error) {
	return svc.repo.QueryVideos(ctx, !includeInactive)
}

func (svc *Service) Get(ctx context.Context, id int) (Video, error) {
	return svc.repo.GetVideo(ctx, id)
}

func (svc *Service) Save(ctx context.Context, nv NewVideo) (Video, error) {
	v := nv.video()
	now := core.NowFunc()
	v.UploadedAt = now
	v.UpdatedAt = now
	return svc.repo.UpsertVideo(ctx, v)
}

func (svc *Service) Update(ctx context.Context, id int, uv UpdateVideo) (Video, error) {
	return svc.repo.UpdateVideo(ctx, id, uv)
}

// Delete hides the video from learners.
func (svc *Service) Delete(ctx context.Context, id int) error {
	_, err := svc.repo.UpdateVideo(ctx, id, UpdateVideo{IsActive: core.BoolPtr(false)})
	return err
}

func (svc *Service) BulkSave(ctx context.Context, bu BulkUpdate) ([]Video, error) {
	saved := make([]Video, 0, len(bu.Videos))
	for _, nv := range bu.Videos {
		v, err := svc.Save(ctx, nv)
		if err != nil {
			return saved, errors.Wrapf(err, "saving video %d", nv.ID)
		}
		saved = append(saved, v)
	}
	return saved, nil
}
