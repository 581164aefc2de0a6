package inmemdb

import (
	"context"

	"github.com/prochartist/backend/core"
	"github.com/prochartist/backend/core/league"
)

type leagueRepository struct {
	db *leagueTable
}

var _ league.Repository = (*leagueRepository)(nil)

func NewLeagueRepository(db *DB) *leagueRepository {
	return &leagueRepository{db: db.league}
}

func copyLeague(lg *league.League) league.League {
	cp := *lg
	cp.CurrentLeague.Traders = append([]league.Trader{}, lg.CurrentLeague.Traders...)
	cp.PreviousLeague.Traders = append([]league.Trader{}, lg.PreviousLeague.Traders...)
	cp.TopTraders = append([]league.TopTrader{}, lg.TopTraders...)
	return cp
}

func (repo *leagueRepository) GetLeague(_ context.Context) (league.League, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if repo.db.record == nil {
		return league.League{}, league.ErrNotFound
	}
	return copyLeague(repo.db.record), nil
}

func (repo *leagueRepository) upsert(fn func(lg *league.League)) league.League {
	repo.db.Lock()
	defer repo.db.Unlock()

	if repo.db.record == nil {
		repo.db.record = &league.League{}
	}
	fn(repo.db.record)
	repo.db.record.UpdatedAt = core.NowFunc()
	return copyLeague(repo.db.record)
}

func (repo *leagueRepository) SaveLeague(_ context.Context, cur league.CurrentLeague, prev *league.PreviousLeague) (league.League, error) {
	return repo.upsert(func(lg *league.League) {
		lg.CurrentLeague = cur
		if prev != nil {
			lg.PreviousLeague = *prev
		}
	}), nil
}

func (repo *leagueRepository) SaveTopTraders(_ context.Context, traders []league.TopTrader) (league.League, error) {
	return repo.upsert(func(lg *league.League) {
		lg.TopTraders = append([]league.TopTrader{}, traders...)
	}), nil
}
