package sqlxrepos

import (
	"context"
	"database/sql"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/prochartist/backend/core"
	"github.com/prochartist/backend/core/video"
)

const videoColumns = "id, title, description, thumbnail, video_url, is_active, uploaded_by, uploaded_at, updated_at"

type videoRow struct {
	ID          int       `db:"id"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	Thumbnail   string    `db:"thumbnail"`
	VideoURL    string    `db:"video_url"`
	IsActive    bool      `db:"is_active"`
	UploadedBy  string    `db:"uploaded_by"`
	UploadedAt  time.Time `db:"uploaded_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r videoRow) video() video.Video {
	v := video.Video(r)
	v.UploadedAt = r.UploadedAt.UTC()
	v.UpdatedAt = r.UpdatedAt.UTC()
	return v
}

type videoRepository struct {
	store
}

var _ video.Repository = (*videoRepository)(nil)

func NewVideoRepository(db *sqlx.DB, conf *core.Config) *videoRepository {
	return &videoRepository{store: newStore(db, conf)}
}

func (repo *videoRepository) QueryVideos(ctx context.Context, activeOnly bool) ([]video.Video, error) {
	q := "SELECT " + videoColumns + " FROM videos"
	if activeOnly {
		q += " WHERE is_active"
	}
	q += " ORDER BY id"

	var rows []videoRow
	if err := repo.selectRows(ctx, "querying videos", &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying videos")
	}
	videos := make([]video.Video, 0, len(rows))
	for _, r := range rows {
		videos = append(videos, r.video())
	}
	return videos, nil
}

func (repo *videoRepository) GetVideo(ctx context.Context, id int) (video.Video, error) {
	var row videoRow
	err := repo.get(ctx, "finding video", &row, "SELECT "+videoColumns+" FROM videos WHERE id = $1", id)
	if err != nil {
		if err == sql.ErrNoRows {
			return video.Video{}, video.ErrNotFound
		}
		return video.Video{}, errors.Wrap(err, "finding video")
	}
	return row.video(), nil
}

func (repo *videoRepository) UpsertVideo(ctx context.Context, v video.Video) (video.Video, error) {
	q := `INSERT INTO videos (` + videoColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title, description = EXCLUDED.description, thumbnail = EXCLUDED.thumbnail,
			video_url = EXCLUDED.video_url, is_active = EXCLUDED.is_active, uploaded_by = EXCLUDED.uploaded_by,
			updated_at = EXCLUDED.updated_at
		RETURNING ` + videoColumns

	var row videoRow
	err := repo.get(ctx, "saving video", &row, q,
		v.ID, v.Title, v.Description, v.Thumbnail, v.VideoURL, v.IsActive, v.UploadedBy, v.UploadedAt.UTC(), v.UpdatedAt.UTC())
	if err != nil {
		return video.Video{}, errors.Wrap(err, "saving video")
	}
	return row.video(), nil
}

func (repo *videoRepository) UpdateVideo(ctx context.Context, id int, upd video.UpdateVideo) (video.Video, error) {
	sets := []string{"updated_at = $2"}
	args := []interface{}{id, core.NowFunc()}
	add := func(col string, val interface{}) {
		args = append(args, val)
		sets = append(sets, col+" = $"+strconv.Itoa(len(args)))
	}
	if upd.Title != nil {
		add("title", *upd.Title)
	}
	if upd.Description != nil {
		add("description", *upd.Description)
	}
	if upd.Thumbnail != nil {
		add("thumbnail", *upd.Thumbnail)
	}
	if upd.VideoURL != nil {
		add("video_url", *upd.VideoURL)
	}
	if upd.IsActive != nil {
		add("is_active", *upd.IsActive)
	}

	q := "UPDATE videos SET " + strings.Join(sets, ", ") + " WHERE id = $1 RETURNING " + videoColumns
	var row videoRow
	if err := repo.get(ctx, "updating video", &row, q, args...); err != nil {
		if err == sql.ErrNoRows {
			return video.Video{}, video.ErrNotFound
		}
		return video.Video{}, errors.Wrap(err, "updating video")
	}
	return row.video(), nil
}
