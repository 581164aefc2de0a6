package mongorepos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/prochartist/backend/core"
	"github.com/prochartist/backend/core/catalog"
	"github.com/prochartist/backend/core/progress"
)

type progressDoc struct {
	UserID           string             `bson:"_id"`
	CompletedContent map[string]bool    `bson:"completedContent"`
	VideoProgress    map[string]float64 `bson:"videoProgress"`
	UnlockedPhases   []string           `bson:"unlockedPhases"`
	CurrentPhase     string             `bson:"currentPhase"`
	CreatedAt        time.Time          `bson:"createdAt"`
	UpdatedAt        time.Time          `bson:"updatedAt"`
}

func (d progressDoc) record() progress.Record {
	rec := progress.Record{
		UserID:           d.UserID,
		CompletedContent: d.CompletedContent,
		VideoProgress:    d.VideoProgress,
		UnlockedPhases:   d.UnlockedPhases,
		CurrentPhase:     d.CurrentPhase,
		CreatedAt:        d.CreatedAt.UTC(),
		UpdatedAt:        d.UpdatedAt.UTC(),
	}
	rec.Normalize()
	return rec
}

type progressRepository struct {
	store
}

var _ progress.Repository = (*progressRepository)(nil)

func NewProgressRepository(db *mongo.Database, conf *core.Config) *progressRepository {
	return &progressRepository{store: newStore(db, conf)}
}

func (repo *progressRepository) GetRecord(ctx context.Context, userID string) (progress.Record, error) {
	var doc progressDoc
	err := repo.retry.Do(ctx, "finding progress", func(ctx context.Context) error {
		return repo.col(colProgress).FindOne(ctx, bson.M{"_id": userID}).Decode(&doc)
	})
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return progress.Record{}, progress.ErrNotFound
		}
		return progress.Record{}, errors.Wrap(err, "finding progress")
	}
	return doc.record(), nil
}

// changeUpdate translates ch into per-key operators so concurrent writers never overwrite each other's keys.
// The free phase is always added to the unlocked phases, which also keeps the update non-empty.
func changeUpdate(ch progress.Change, now time.Time) bson.M {
	set := bson.M{}
	for key, pct := range ch.VideoProgress {
		set["videoProgress."+key] = pct
	}
	for _, key := range ch.Completed {
		set["completedContent."+key] = true
	}
	setOnInsert := bson.M{"createdAt": now}
	if ch.CurrentPhase != nil {
		set["currentPhase"] = *ch.CurrentPhase
	} else {
		setOnInsert["currentPhase"] = catalog.FreePhaseID
	}
	if len(set) > 0 {
		set["updatedAt"] = now
	} else {
		setOnInsert["updatedAt"] = now
	}

	unlock := append([]string{catalog.FreePhaseID}, ch.UnlockPhases...)
	update := bson.M{
		"$setOnInsert": setOnInsert,
		"$addToSet":    bson.M{"unlockedPhases": bson.M{"$each": unlock}},
	}
	if len(set) > 0 {
		update["$set"] = set
	}
	return update
}

func (repo *progressRepository) ApplyChange(ctx context.Context, userID string, ch progress.Change) (progress.Record, error) {
	update := changeUpdate(ch, core.NowFunc())
	var doc progressDoc
	err := repo.retry.Do(ctx, "updating progress", func(ctx context.Context) error {
		return repo.col(colProgress).FindOneAndUpdate(ctx, bson.M{"_id": userID}, update, upsertAfter()).Decode(&doc)
	})
	if err != nil {
		return progress.Record{}, errors.Wrap(err, "updating progress")
	}
	return doc.record(), nil
}
