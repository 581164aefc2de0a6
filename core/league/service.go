package league

import (
	"context"

	"github.com/prochartist/backend/core"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("no league found")
)

type (
	Repository interface {
		GetLeague(ctx context.Context) (League, error)
		// SaveLeague upserts the current league and, when prev is not nil, the previous league.
		SaveLeague(ctx context.Context, cur CurrentLeague, prev *PreviousLeague) (League, error)
		SaveTopTraders(ctx context.Context, traders []TopTrader) (League, error)
	}

	ServiceInterface interface {
		Get(ctx context.Context) (League, error)
		Update(ctx context.Context, ul UpdateLeague) (League, error)
		TopTraders(ctx context.Context) ([]TopTrader, error)
		UpdateTopTraders(ctx context.Context, ut UpdateTopTraders) ([]TopTrader, error)
	}

	Service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Get(ctx context.Context) (League, error) {
	return svc.repo.GetLeague(ctx)
}

func (svc *Service) Update(ctx context.Context, ul UpdateLeague) (League, error) {
	cur := CurrentLeague{}
	if ul.CurrentLeague != nil {
		cur = *ul.CurrentLeague
	}
	if cur.Traders == nil {
		cur.Traders = []Trader{}
	}
	return svc.repo.SaveLeague(ctx, cur, ul.PreviousLeague)
}

// TopTraders returns the leaderboard, empty when no league was ever saved.
func (svc *Service) TopTraders(ctx context.Context) ([]TopTrader, error) {
	lg, err := svc.repo.GetLeague(ctx)
	if err != nil {
		if core.IsNotFound(err) {
			return []TopTrader{}, nil
		}
		return nil, err
	}
	if lg.TopTraders == nil {
		return []TopTrader{}, nil
	}
	return lg.TopTraders, nil
}

func (svc *Service) UpdateTopTraders(ctx context.Context, ut UpdateTopTraders) ([]TopTrader, error) {
	traders := ut.TopTraders
	if traders == nil {
		traders = []TopTrader{}
	}
	lg, err := svc.repo.SaveTopTraders(ctx, traders)
	if err != nil {
		return nil, err
	}
	return lg.TopTraders, nil
}
