package inmemdb

import (
	"context"

	"github.com/prochartist/backend/core"
	"github.com/prochartist/backend/core/progress"
)

type progressRepository struct {
	db *progressTable
}

var _ progress.Repository = (*progressRepository)(nil)

func NewProgressRepository(db *DB) *progressRepository {
	return &progressRepository{db: db.progress}
}

func copyRecord(rec *progress.Record) progress.Record {
	r := *rec
	r.CompletedContent = make(map[string]bool, len(rec.CompletedContent))
	for k, v := range rec.CompletedContent {
		r.CompletedContent[k] = v
	}
	r.VideoProgress = make(map[string]float64, len(rec.VideoProgress))
	for k, v := range rec.VideoProgress {
		r.VideoProgress[k] = v
	}
	r.UnlockedPhases = append([]string(nil), rec.UnlockedPhases...)
	return r
}

func (repo *progressRepository) GetRecord(_ context.Context, userID string) (progress.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if rec, ok := repo.db.table[userID]; ok {
		return copyRecord(rec), nil
	}
	return progress.Record{}, progress.ErrNotFound
}

func (repo *progressRepository) ApplyChange(_ context.Context, userID string, ch progress.Change) (progress.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	rec, ok := repo.db.table[userID]
	if !ok {
		r := progress.NewRecord(userID)
		rec = &r
		repo.db.table[userID] = rec
	}
	ch.Apply(rec)
	if !ch.IsEmpty() {
		rec.UpdatedAt = core.NowFunc()
	}
	return copyRecord(rec), nil
}
