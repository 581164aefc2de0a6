package inmemdb

import (
	"context"

	"github.com/prochartist/backend/core"
	"github.com/prochartist/backend/core/catalog"
)

type phaseRepository struct {
	db *phaseTable
}

var _ catalog.Repository = (*phaseRepository)(nil)

func NewPhaseRepository(db *DB) *phaseRepository {
	return &phaseRepository{db: db.phase}
}

func copyPhase(p *catalog.Phase) catalog.Phase {
	cp := *p
	cp.Content = append([]catalog.ContentItem{}, p.Content...)
	return cp
}

func (repo *phaseRepository) QueryPhases(_ context.Context, activeOnly bool) ([]catalog.Phase, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	phases := make([]catalog.Phase, 0, len(repo.db.table))
	for _, p := range repo.db.table {
		if activeOnly && !p.IsActive {
			continue
		}
		phases = append(phases, copyPhase(p))
	}
	catalog.SortPhases(phases)
	return phases, nil
}

func (repo *phaseRepository) GetPhase(_ context.Context, phaseID string) (catalog.Phase, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.table[phaseID]; ok {
		return copyPhase(p), nil
	}
	return catalog.Phase{}, catalog.ErrNotFound
}

func (repo *phaseRepository) UpsertPhase(_ context.Context, p catalog.Phase) (catalog.Phase, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if orig, ok := repo.db.table[p.PhaseID]; ok {
		p.CreatedAt = orig.CreatedAt
	}
	cp := copyPhase(&p)
	repo.db.table[p.PhaseID] = &cp
	return copyPhase(&cp), nil
}

// mutate applies fn to a copy of the phase and stores it only when fn succeeds.
func (repo *phaseRepository) mutate(phaseID string, fn func(p *catalog.Phase) error) (catalog.Phase, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[phaseID]
	if !ok {
		return catalog.Phase{}, catalog.ErrNotFound
	}
	p := copyPhase(orig)
	if err := fn(&p); err != nil {
		return catalog.Phase{}, err
	}
	p.UpdatedAt = core.NowFunc()
	repo.db.table[phaseID] = &p
	return copyPhase(&p), nil
}

func (repo *phaseRepository) UpdatePhase(_ context.Context, phaseID string, upd catalog.UpdatePhase) (catalog.Phase, error) {
	return repo.mutate(phaseID, func(p *catalog.Phase) error {
		upd.Apply(p)
		return nil
	})
}

func (repo *phaseRepository) AddContent(_ context.Context, phaseID string, item catalog.ContentItem) (catalog.Phase, error) {
	return repo.mutate(phaseID, func(p *catalog.Phase) error { return p.AddContent(item) })
}

func (repo *phaseRepository) UpdateContent(_ context.Context, phaseID, contentID string, upd catalog.UpdateContentItem) (catalog.Phase, error) {
	return repo.mutate(phaseID, func(p *catalog.Phase) error { return p.UpdateContent(contentID, upd) })
}

func (repo *phaseRepository) DeleteContent(_ context.Context, phaseID, contentID string) (catalog.Phase, error) {
	return repo.mutate(phaseID, func(p *catalog.Phase) error { return p.RemoveContent(contentID) })
}
