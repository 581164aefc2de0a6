package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"

	"github.com/prochartist/backend/core"
	"github.com/prochartist/backend/core/league"
)

const leagueColumns = "current_league, previous_league, top_traders, updated_at"

type leagueRow struct {
	CurrentLeague  types.JSONText `db:"current_league"`
	PreviousLeague types.JSONText `db:"previous_league"`
	TopTraders     types.JSONText `db:"top_traders"`
	UpdatedAt      time.Time      `db:"updated_at"`
}

func (r leagueRow) league() (league.League, error) {
	lg := league.League{UpdatedAt: r.UpdatedAt.UTC()}
	if err := fromJSON(r.CurrentLeague, &lg.CurrentLeague); err != nil {
		return league.League{}, err
	}
	if err := fromJSON(r.PreviousLeague, &lg.PreviousLeague); err != nil {
		return league.League{}, err
	}
	if err := fromJSON(r.TopTraders, &lg.TopTraders); err != nil {
		return league.League{}, err
	}
	if lg.TopTraders == nil {
		lg.TopTraders = []league.TopTrader{}
	}
	return lg, nil
}

type leagueRepository struct {
	store
}

var _ league.Repository = (*leagueRepository)(nil)

func NewLeagueRepository(db *sqlx.DB, conf *core.Config) *leagueRepository {
	return &leagueRepository{store: newStore(db, conf)}
}

func (repo *leagueRepository) GetLeague(ctx context.Context) (league.League, error) {
	var row leagueRow
	if err := repo.get(ctx, "finding league", &row, "SELECT "+leagueColumns+" FROM league WHERE id = 1"); err != nil {
		if err == sql.ErrNoRows {
			return league.League{}, league.ErrNotFound
		}
		return league.League{}, errors.Wrap(err, "finding league")
	}
	return row.league()
}

// SaveLeague keeps the stored previous league when prev is nil.
func (repo *leagueRepository) SaveLeague(ctx context.Context, cur league.CurrentLeague, prev *league.PreviousLeague) (league.League, error) {
	curJSON, err := toJSON(cur)
	if err != nil {
		return league.League{}, err
	}
	var prevJSON *types.JSONText
	if prev != nil {
		j, err := toJSON(prev)
		if err != nil {
			return league.League{}, err
		}
		prevJSON = &j
	}

	q := `INSERT INTO league (id, current_league, previous_league, updated_at)
		VALUES (1, $1, COALESCE($2::jsonb, '{}'::jsonb), $3)
		ON CONFLICT (id) DO UPDATE SET
			current_league = EXCLUDED.current_league,
			previous_league = COALESCE($2::jsonb, league.previous_league),
			updated_at = EXCLUDED.updated_at
		RETURNING ` + leagueColumns

	var row leagueRow
	if err = repo.get(ctx, "saving league", &row, q, curJSON, prevJSON, core.NowFunc()); err != nil {
		return league.League{}, errors.Wrap(err, "saving league")
	}
	return row.league()
}

func (repo *leagueRepository) SaveTopTraders(ctx context.Context, traders []league.TopTrader) (league.League, error) {
	if traders == nil {
		traders = []league.TopTrader{}
	}
	tradersJSON, err := toJSON(traders)
	if err != nil {
		return league.League{}, err
	}

	q := `INSERT INTO league (id, top_traders, updated_at) VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET top_traders = EXCLUDED.top_traders, updated_at = EXCLUDED.updated_at
		RETURNING ` + leagueColumns

	var row leagueRow
	if err = repo.get(ctx, "saving top traders", &row, q, tradersJSON, core.NowFunc()); err != nil {
		return league.League{}, errors.Wrap(err, "saving top traders")
	}
	return row.league()
}
