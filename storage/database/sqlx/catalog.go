package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"

	"github.com/prochartist/backend/core"
	"github.com/prochartist/backend/core/catalog"
)

const phaseColumns = "phase_id, title, subtitle, content, price, original_price, currency, is_active, sort_order, created_at, updated_at"

type phaseRow struct {
	PhaseID       string         `db:"phase_id"`
	Title         string         `db:"title"`
	Subtitle      string         `db:"subtitle"`
	Content       types.JSONText `db:"content"`
	Price         float64        `db:"price"`
	OriginalPrice float64        `db:"original_price"`
	Currency      string         `db:"currency"`
	IsActive      bool           `db:"is_active"`
	Order         int            `db:"sort_order"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func toPhaseRow(p catalog.Phase) (phaseRow, error) {
	content := p.Content
	if content == nil {
		content = []catalog.ContentItem{}
	}
	contentJSON, err := toJSON(content)
	if err != nil {
		return phaseRow{}, err
	}
	return phaseRow{
		PhaseID:       p.PhaseID,
		Title:         p.Title,
		Subtitle:      p.Subtitle,
		Content:       contentJSON,
		Price:         p.Price,
		OriginalPrice: p.OriginalPrice,
		Currency:      p.Currency,
		IsActive:      p.IsActive,
		Order:         p.Order,
		CreatedAt:     p.CreatedAt.UTC(),
		UpdatedAt:     p.UpdatedAt.UTC(),
	}, nil
}

func (r phaseRow) phase() (catalog.Phase, error) {
	p := catalog.Phase{
		PhaseID:       r.PhaseID,
		Title:         r.Title,
		Subtitle:      r.Subtitle,
		Price:         r.Price,
		OriginalPrice: r.OriginalPrice,
		Currency:      r.Currency,
		IsActive:      r.IsActive,
		Order:         r.Order,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
	if err := fromJSON(r.Content, &p.Content); err != nil {
		return catalog.Phase{}, err
	}
	return p, nil
}

type phaseRepository struct {
	store
}

var _ catalog.Repository = (*phaseRepository)(nil)

func NewPhaseRepository(db *sqlx.DB, conf *core.Config) *phaseRepository {
	return &phaseRepository{store: newStore(db, conf)}
}

func (repo *phaseRepository) QueryPhases(ctx context.Context, activeOnly bool) ([]catalog.Phase, error) {
	q := "SELECT " + phaseColumns + " FROM phases"
	if activeOnly {
		q += " WHERE is_active"
	}
	q += " ORDER BY sort_order, phase_id"

	var rows []phaseRow
	if err := repo.selectRows(ctx, "querying phases", &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying phases")
	}
	phases := make([]catalog.Phase, 0, len(rows))
	for _, r := range rows {
		p, err := r.phase()
		if err != nil {
			return nil, err
		}
		phases = append(phases, p)
	}
	return phases, nil
}

func (repo *phaseRepository) GetPhase(ctx context.Context, phaseID string) (catalog.Phase, error) {
	var row phaseRow
	err := repo.get(ctx, "finding phase", &row, "SELECT "+phaseColumns+" FROM phases WHERE phase_id = $1", phaseID)
	if err != nil {
		if err == sql.ErrNoRows {
			return catalog.Phase{}, catalog.ErrNotFound
		}
		return catalog.Phase{}, errors.Wrap(err, "finding phase")
	}
	return row.phase()
}

func (repo *phaseRepository) UpsertPhase(ctx context.Context, p catalog.Phase) (catalog.Phase, error) {
	row, err := toPhaseRow(p)
	if err != nil {
		return catalog.Phase{}, err
	}
	q := `INSERT INTO phases (` + phaseColumns + `)
		VALUES (:phase_id, :title, :subtitle, :content, :price, :original_price, :currency, :is_active, :sort_order, :created_at, :updated_at)
		ON CONFLICT (phase_id) DO UPDATE SET
			title = EXCLUDED.title, subtitle = EXCLUDED.subtitle, content = EXCLUDED.content,
			price = EXCLUDED.price, original_price = EXCLUDED.original_price, currency = EXCLUDED.currency,
			is_active = EXCLUDED.is_active, sort_order = EXCLUDED.sort_order, updated_at = EXCLUDED.updated_at
		RETURNING ` + phaseColumns

	var saved phaseRow
	err = repo.retry.Do(ctx, "saving phase", func(ctx context.Context) error {
		rows, err := repo.db.NamedQueryContext(ctx, q, row)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		if !rows.Next() {
			if err = rows.Err(); err != nil {
				return err
			}
			return sql.ErrNoRows
		}
		return rows.StructScan(&saved)
	})
	if err != nil {
		return catalog.Phase{}, errors.Wrap(err, "saving phase")
	}
	return saved.phase()
}

// mutate locks the phase row, applies fn and saves the result in the same transaction.
func (repo *phaseRepository) mutate(ctx context.Context, op, phaseID string, fn func(p *catalog.Phase) error) (catalog.Phase, error) {
	var result catalog.Phase
	err := repo.inTx(ctx, op, func(tx *sqlx.Tx) error {
		var row phaseRow
		err := tx.GetContext(ctx, &row, "SELECT "+phaseColumns+" FROM phases WHERE phase_id = $1 FOR UPDATE", phaseID)
		if err != nil {
			if err == sql.ErrNoRows {
				return catalog.ErrNotFound
			}
			return err
		}
		p, err := row.phase()
		if err != nil {
			return err
		}
		if err = fn(&p); err != nil {
			return err
		}
		p.UpdatedAt = core.NowFunc()

		if row, err = toPhaseRow(p); err != nil {
			return err
		}
		_, err = tx.NamedExecContext(ctx, `UPDATE phases SET
			title = :title, subtitle = :subtitle, content = :content, price = :price, original_price = :original_price,
			currency = :currency, is_active = :is_active, sort_order = :sort_order, updated_at = :updated_at
			WHERE phase_id = :phase_id`, row)
		result = p
		return err
	})
	if err != nil {
		if core.IsNotFound(err) || core.IsConflict(err) {
			return catalog.Phase{}, err
		}
		return catalog.Phase{}, errors.Wrap(err, op)
	}
	return result, nil
}

func (repo *phaseRepository) UpdatePhase(ctx context.Context, phaseID string, upd catalog.UpdatePhase) (catalog.Phase, error) {
	return repo.mutate(ctx, "updating phase", phaseID, func(p *catalog.Phase) error {
		upd.Apply(p)
		return nil
	})
}

func (repo *phaseRepository) AddContent(ctx context.Context, phaseID string, item catalog.ContentItem) (catalog.Phase, error) {
	return repo.mutate(ctx, "adding content", phaseID, func(p *catalog.Phase) error { return p.AddContent(item) })
}

func (repo *phaseRepository) UpdateContent(ctx context.Context, phaseID, contentID string, upd catalog.UpdateContentItem) (catalog.Phase, error) {
	return repo.mutate(ctx, "updating content", phaseID, func(p *catalog.Phase) error { return p.UpdateContent(contentID, upd) })
}

func (repo *phaseRepository) DeleteContent(ctx context.Context, phaseID, contentID string) (catalog.Phase, error) {
	return repo.mutate(ctx, "deleting content", phaseID, func(p *catalog.Phase) error { return p.RemoveContent(contentID) })
}
