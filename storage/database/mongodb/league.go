package mongorepos

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/prochartist/backend/core"
	"github.com/prochartist/backend/core/league"
)

// leagueID is the _id of the singleton league document.
const leagueID = "league"

type leagueRepository struct {
	store
}

var _ league.Repository = (*leagueRepository)(nil)

func NewLeagueRepository(db *mongo.Database, conf *core.Config) *leagueRepository {
	return &leagueRepository{store: newStore(db, conf)}
}

func (repo *leagueRepository) GetLeague(ctx context.Context) (league.League, error) {
	var lg league.League
	err := repo.retry.Do(ctx, "finding league", func(ctx context.Context) error {
		return repo.col(colLeagues).FindOne(ctx, bson.M{"_id": leagueID}).Decode(&lg)
	})
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return league.League{}, league.ErrNotFound
		}
		return league.League{}, errors.Wrap(err, "finding league")
	}
	return lg, nil
}

func (repo *leagueRepository) save(ctx context.Context, set bson.M) (league.League, error) {
	set["updatedAt"] = core.NowFunc()
	var lg league.League
	err := repo.retry.Do(ctx, "saving league", func(ctx context.Context) error {
		return repo.col(colLeagues).FindOneAndUpdate(ctx, bson.M{"_id": leagueID}, bson.M{"$set": set}, upsertAfter()).Decode(&lg)
	})
	if err != nil {
		return league.League{}, errors.Wrap(err, "saving league")
	}
	return lg, nil
}

func (repo *leagueRepository) SaveLeague(ctx context.Context, cur league.CurrentLeague, prev *league.PreviousLeague) (league.League, error) {
	set := bson.M{"currentLeague": cur}
	if prev != nil {
		set["previousLeague"] = *prev
	}
	return repo.save(ctx, set)
}

func (repo *leagueRepository) SaveTopTraders(ctx context.Context, traders []league.TopTrader) (league.League, error) {
	return repo.save(ctx, bson.M{"topTraders": traders})
}
