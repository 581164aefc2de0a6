package catalog

import (
	"context"

	"github.com/pkg/errors"

	"github.com/prochartist/backend/core"
)

var (
	// errors
	ErrNotFound        = core.NewNotFoundError("learning phase not found")
	ErrContentNotFound = core.NewNotFoundError("content not found")
	ErrContentExists   = core.NewConflictError("content with this id already exists in the phase")
)

type (
	Repository interface {
		// QueryPhases returns all phases, or only active ones, sorted by Order.
		QueryPhases(ctx context.Context, activeOnly bool) ([]Phase, error)
		GetPhase(ctx context.Context, phaseID string) (Phase, error)
		// UpsertPhase creates or fully replaces the phase keyed by p.PhaseID. CreatedAt is kept on replace.
		UpsertPhase(ctx context.Context, p Phase) (Phase, error)
		UpdatePhase(ctx context.Context, phaseID string, upd UpdatePhase) (Phase, error)
		AddContent(ctx context.Context, phaseID string, item ContentItem) (Phase, error)
		UpdateContent(ctx context.Context, phaseID, contentID string, upd UpdateContentItem) (Phase, error)
		DeleteContent(ctx context.Context, phaseID, contentID string) (Phase, error)
	}

	ServiceInterface interface {
		List(ctx context.Context, includeInactive bool) ([]Phase, error)
		Get(ctx context.Context, phaseID string) (Phase, error)
		Save(ctx context.Context, np NewPhase) (Phase, error)
		Update(ctx context.Context, phaseID string, up UpdatePhase) (Phase, error)
		Delete(ctx context.Context, phaseID string) error
		BulkSave(ctx context.Context, phases []NewPhase) ([]Phase, error)
		AddContent(ctx context.Context, phaseID string, nc NewContentItem) (Phase, error)
		UpdateContent(ctx context.Context, phaseID, contentID string, uc UpdateContentItem) (Phase, error)
		DeleteContent(ctx context.Context, phaseID, contentID string) (Phase, error)
		Seed(ctx context.Context) (int, error)
	}

	Service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) List(ctx context.Context, includeInactive bool) ([]Phase, error) {
	return svc.repo.QueryPhases(ctx, !includeInactive)
}

func (svc *Service) Get(ctx context.Context, phaseID string) (Phase, error) {
	return svc.repo.GetPhase(ctx, core.CleanString(phaseID, true /* lower */))
}

// keyConflictError reports a content key already used by another phase.
func keyConflictError(key string, owner Phase, contentID string) error {
	return core.NewConflictError("content key " + key + " is already used by content " + contentID + " of phase " + owner.PhaseID)
}

// checkKeys makes sure the content keys of the given items of phaseID are not used by any other phase.
func (svc *Service) checkKeys(ctx context.Context, phaseID string, items []ContentItem) error {
	if len(items) == 0 {
		return nil
	}
	phases, err := svc.repo.QueryPhases(ctx, false)
	if err != nil {
		return errors.Wrap(err, "querying phases")
	}
	wanted := make(map[string]bool, len(items))
	for _, item := range items {
		wanted[ContentKey(phaseID, item.ID)] = true
	}
	for _, p := range phases {
		if p.PhaseID == phaseID {
			continue
		}
		for _, item := range p.Content {
			if key := ContentKey(p.PhaseID, item.ID); wanted[key] {
				return keyConflictError(key, p, item.ID)
			}
		}
	}
	return nil
}

// Save creates the phase, or replaces it if it already exists.
func (svc *Service) Save(ctx context.Context, np NewPhase) (Phase, error) {
	p := np.phase()
	if err := svc.checkKeys(ctx, p.PhaseID, p.Content); err != nil {
		return Phase{}, err
	}
	now := core.NowFunc()
	p.CreatedAt = now
	p.UpdatedAt = now
	return svc.repo.UpsertPhase(ctx, p)
}

func (svc *Service) Update(ctx context.Context, phaseID string, up UpdatePhase) (Phase, error) {
	if up.Content != nil {
		items := make([]ContentItem, 0, len(*up.Content))
		for _, c := range *up.Content {
			items = append(items, c.item())
		}
		if err := svc.checkKeys(ctx, phaseID, items); err != nil {
			return Phase{}, err
		}
	}
	return svc.repo.UpdatePhase(ctx, phaseID, up)
}

// Delete deactivates the phase. The phase and the progress made in it are kept.
func (svc *Service) Delete(ctx context.Context, phaseID string) error {
	_, err := svc.repo.UpdatePhase(ctx, phaseID, UpdatePhase{IsActive: core.BoolPtr(false)})
	return err
}

func (svc *Service) BulkSave(ctx context.Context, phases []NewPhase) ([]Phase, error) {
	saved := make([]Phase, 0, len(phases))
	for _, np := range phases {
		p, err := svc.Save(ctx, np)
		if err != nil {
			return saved, errors.Wrapf(err, "saving phase %s", np.PhaseID)
		}
		saved = append(saved, p)
	}
	return saved, nil
}

func (svc *Service) AddContent(ctx context.Context, phaseID string, nc NewContentItem) (Phase, error) {
	item := nc.item()
	if err := svc.checkKeys(ctx, phaseID, []ContentItem{item}); err != nil {
		return Phase{}, err
	}
	return svc.repo.AddContent(ctx, phaseID, item)
}

func (svc *Service) UpdateContent(ctx context.Context, phaseID, contentID string, uc UpdateContentItem) (Phase, error) {
	return svc.repo.UpdateContent(ctx, phaseID, contentID, uc)
}

func (svc *Service) DeleteContent(ctx context.Context, phaseID, contentID string) (Phase, error) {
	return svc.repo.DeleteContent(ctx, phaseID, contentID)
}

// Seed creates the default curriculum phases that do not exist yet and returns how many were created.
func (svc *Service) Seed(ctx context.Context) (int, error) {
	var created int
	for _, np := range DefaultPhases() {
		if _, err := svc.repo.GetPhase(ctx, np.PhaseID); err == nil {
			continue
		} else if errors.Cause(err) != ErrNotFound {
			return created, errors.Wrapf(err, "finding phase %s", np.PhaseID)
		}
		if _, err := svc.Save(ctx, np); err != nil {
			return created, errors.Wrapf(err, "saving phase %s", np.PhaseID)
		}
		created++
	}
	return created, nil
}
