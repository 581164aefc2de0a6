package mongorepos

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/prochartist/backend/core"
	"github.com/prochartist/backend/core/catalog"
)

type phaseRepository struct {
	store
}

var _ catalog.Repository = (*phaseRepository)(nil)

func NewPhaseRepository(db *mongo.Database, conf *core.Config) *phaseRepository {
	return &phaseRepository{store: newStore(db, conf)}
}

func (repo *phaseRepository) QueryPhases(ctx context.Context, activeOnly bool) ([]catalog.Phase, error) {
	filter := bson.M{}
	if activeOnly {
		filter["isActive"] = true
	}
	opts := options.Find().SetSort(bson.D{{Key: "order", Value: 1}, {Key: "phaseId", Value: 1}})

	var phases []catalog.Phase
	err := repo.retry.Do(ctx, "querying phases", func(ctx context.Context) error {
		cur, err := repo.col(colPhases).Find(ctx, filter, opts)
		if err != nil {
			return err
		}
		phases = nil
		return cur.All(ctx, &phases)
	})
	if err != nil {
		return nil, errors.Wrap(err, "querying phases")
	}
	if phases == nil {
		phases = []catalog.Phase{}
	}
	return phases, nil
}

func (repo *phaseRepository) GetPhase(ctx context.Context, phaseID string) (catalog.Phase, error) {
	var p catalog.Phase
	err := repo.retry.Do(ctx, "finding phase", func(ctx context.Context) error {
		return repo.col(colPhases).FindOne(ctx, bson.M{"phaseId": phaseID}).Decode(&p)
	})
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return catalog.Phase{}, catalog.ErrNotFound
		}
		return catalog.Phase{}, errors.Wrap(err, "finding phase")
	}
	return p, nil
}

func (repo *phaseRepository) UpsertPhase(ctx context.Context, p catalog.Phase) (catalog.Phase, error) {
	update := bson.M{
		"$set": bson.M{
			"title":         p.Title,
			"subtitle":      p.Subtitle,
			"content":       p.Content,
			"price":         p.Price,
			"originalPrice": p.OriginalPrice,
			"currency":      p.Currency,
			"isActive":      p.IsActive,
			"order":         p.Order,
			"updatedAt":     p.UpdatedAt,
		},
		"$setOnInsert": bson.M{"createdAt": p.CreatedAt},
	}
	return repo.findAndUpdate(ctx, "saving phase", bson.M{"phaseId": p.PhaseID}, update, upsertAfter(), catalog.ErrNotFound)
}

// findAndUpdate runs a FindOneAndUpdate and returns notFound when no phase matched.
func (repo *phaseRepository) findAndUpdate(ctx context.Context, op string, filter, update bson.M, opts *options.FindOneAndUpdateOptions, notFound error) (catalog.Phase, error) {
	var p catalog.Phase
	err := repo.retry.Do(ctx, op, func(ctx context.Context) error {
		return repo.col(colPhases).FindOneAndUpdate(ctx, filter, update, opts).Decode(&p)
	})
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return catalog.Phase{}, notFound
		}
		return catalog.Phase{}, errors.Wrap(err, op)
	}
	return p, nil
}

func (repo *phaseRepository) UpdatePhase(ctx context.Context, phaseID string, upd catalog.UpdatePhase) (catalog.Phase, error) {
	// apply the update to an empty phase to collect the fields it sets
	var p catalog.Phase
	upd.Apply(&p)
	set := bson.M{"updatedAt": core.NowFunc()}
	if upd.Title != nil {
		set["title"] = p.Title
	}
	if upd.Subtitle != nil {
		set["subtitle"] = p.Subtitle
	}
	if upd.Content != nil {
		set["content"] = p.Content
	}
	if upd.Price != nil {
		set["price"] = p.Price
	}
	if upd.OriginalPrice != nil {
		set["originalPrice"] = p.OriginalPrice
	}
	if upd.Currency != nil {
		set["currency"] = p.Currency
	}
	if upd.IsActive != nil {
		set["isActive"] = p.IsActive
	}
	if upd.Order != nil {
		set["order"] = p.Order
	}
	return repo.findAndUpdate(ctx, "updating phase", bson.M{"phaseId": phaseID}, bson.M{"$set": set}, after(), catalog.ErrNotFound)
}

// missingTarget tells apart a missing phase from a content precondition that did not hold.
func (repo *phaseRepository) missingTarget(ctx context.Context, phaseID string, err error) error {
	if err != catalog.ErrContentNotFound && err != catalog.ErrContentExists {
		return err
	}
	if _, gerr := repo.GetPhase(ctx, phaseID); gerr != nil {
		return gerr
	}
	return err
}

func (repo *phaseRepository) AddContent(ctx context.Context, phaseID string, item catalog.ContentItem) (catalog.Phase, error) {
	filter := bson.M{"phaseId": phaseID, "content.id": bson.M{"$ne": item.ID}}
	update := bson.M{
		"$push": bson.M{"content": item},
		"$set":  bson.M{"updatedAt": core.NowFunc()},
	}
	p, err := repo.findAndUpdate(ctx, "adding content", filter, update, after(), catalog.ErrContentExists)
	if err != nil {
		return catalog.Phase{}, repo.missingTarget(ctx, phaseID, err)
	}
	return p, nil
}

func (repo *phaseRepository) UpdateContent(ctx context.Context, phaseID, contentID string, upd catalog.UpdateContentItem) (catalog.Phase, error) {
	var item catalog.ContentItem
	upd.Apply(&item)
	set := bson.M{"updatedAt": core.NowFunc()}
	if upd.Title != nil {
		set["content.$.title"] = item.Title
	}
	if upd.Description != nil {
		set["content.$.description"] = item.Description
	}
	if upd.Duration != nil {
		set["content.$.duration"] = item.Duration
	}
	if upd.VideoURL != nil {
		set["content.$.videoUrl"] = item.VideoURL
	}
	if upd.Thumbnail != nil {
		set["content.$.thumbnail"] = item.Thumbnail
	}
	if upd.Order != nil {
		set["content.$.order"] = item.Order
	}
	if upd.IsActive != nil {
		set["content.$.isActive"] = item.IsActive
	}

	filter := bson.M{"phaseId": phaseID, "content.id": contentID}
	p, err := repo.findAndUpdate(ctx, "updating content", filter, bson.M{"$set": set}, after(), catalog.ErrContentNotFound)
	if err != nil {
		return catalog.Phase{}, repo.missingTarget(ctx, phaseID, err)
	}
	return p, nil
}

func (repo *phaseRepository) DeleteContent(ctx context.Context, phaseID, contentID string) (catalog.Phase, error) {
	filter := bson.M{"phaseId": phaseID, "content.id": contentID}
	update := bson.M{
		"$pull": bson.M{"content": bson.M{"id": contentID}},
		"$set":  bson.M{"updatedAt": core.NowFunc()},
	}
	p, err := repo.findAndUpdate(ctx, "deleting content", filter, update, after(), catalog.ErrContentNotFound)
	if err != nil {
		return catalog.Phase{}, repo.missingTarget(ctx, phaseID, err)
	}
	return p, nil
}
