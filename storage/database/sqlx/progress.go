package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/prochartist/backend/core"
	"github.com/prochartist/backend/core/catalog"
	"github.com/prochartist/backend/core/progress"
)

const progressColumns = "user_id, completed_content, video_progress, unlocked_phases, current_phase, created_at, updated_at"

type progressRow struct {
	UserID           string         `db:"user_id"`
	CompletedContent types.JSONText `db:"completed_content"`
	VideoProgress    types.JSONText `db:"video_progress"`
	UnlockedPhases   types.JSONText `db:"unlocked_phases"`
	CurrentPhase     string         `db:"current_phase"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

func (r progressRow) record() (progress.Record, error) {
	rec := progress.Record{
		UserID:       r.UserID,
		CurrentPhase: r.CurrentPhase,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
	if err := fromJSON(r.CompletedContent, &rec.CompletedContent); err != nil {
		return progress.Record{}, err
	}
	if err := fromJSON(r.VideoProgress, &rec.VideoProgress); err != nil {
		return progress.Record{}, err
	}
	if err := fromJSON(r.UnlockedPhases, &rec.UnlockedPhases); err != nil {
		return progress.Record{}, err
	}
	rec.Normalize()
	return rec, nil
}

type progressRepository struct {
	store
}

var _ progress.Repository = (*progressRepository)(nil)

func NewProgressRepository(db *sqlx.DB, conf *core.Config) *progressRepository {
	return &progressRepository{store: newStore(db, conf)}
}

func (repo *progressRepository) GetRecord(ctx context.Context, userID string) (progress.Record, error) {
	var row progressRow
	err := repo.get(ctx, "finding progress", &row, "SELECT "+progressColumns+" FROM progress WHERE user_id = $1", userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return progress.Record{}, progress.ErrNotFound
		}
		return progress.Record{}, errors.Wrap(err, "finding progress")
	}
	return row.record()
}

// applyChangeQuery merges the change into the stored JSONB maps key by key in a single upsert statement.
const applyChangeQuery = `
INSERT INTO progress (` + progressColumns + `)
VALUES ($1, $2, $3, $4, COALESCE($5::text, '` + catalog.FreePhaseID + `'), $6, $6)
ON CONFLICT (user_id) DO UPDATE SET
	completed_content = progress.completed_content || EXCLUDED.completed_content,
	video_progress = progress.video_progress || EXCLUDED.video_progress,
	unlocked_phases = (
		SELECT jsonb_agg(DISTINCT phase)
		FROM jsonb_array_elements_text(progress.unlocked_phases || EXCLUDED.unlocked_phases) AS phase
	),
	current_phase = COALESCE($5::text, progress.current_phase),
	updated_at = CASE WHEN $7::boolean THEN EXCLUDED.updated_at ELSE progress.updated_at END
RETURNING ` + progressColumns

func (repo *progressRepository) ApplyChange(ctx context.Context, userID string, ch progress.Change) (progress.Record, error) {
	completed := make(map[string]bool, len(ch.Completed))
	for _, key := range ch.Completed {
		completed[key] = true
	}
	videoProgress := ch.VideoProgress
	if videoProgress == nil {
		videoProgress = map[string]float64{}
	}
	unlock := append([]string{catalog.FreePhaseID}, ch.UnlockPhases...)

	completedJSON, err := toJSON(completed)
	if err != nil {
		return progress.Record{}, err
	}
	progressJSON, err := toJSON(videoProgress)
	if err != nil {
		return progress.Record{}, err
	}
	unlockJSON, err := toJSON(unlock)
	if err != nil {
		return progress.Record{}, err
	}

	var row progressRow
	err = repo.get(ctx, "updating progress", &row, applyChangeQuery,
		userID, completedJSON, progressJSON, unlockJSON,
		null.StringFromPtr(ch.CurrentPhase), core.NowFunc(), !ch.IsEmpty(),
	)
	if err != nil {
		return progress.Record{}, errors.Wrap(err, "updating progress")
	}
	return row.record()
}
