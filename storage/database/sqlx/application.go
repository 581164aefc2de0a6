package sqlxrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/prochartist/backend/core"
	"github.com/prochartist/backend/core/application"
)

const applicationColumns = "id, league_date, name, mobile, image_url, email, user_id, status, rejection_reason, created_at, updated_at"

type applicationRow struct {
	ID              string      `db:"id"`
	LeagueDate      string      `db:"league_date"`
	Name            string      `db:"name"`
	Mobile          string      `db:"mobile"`
	ImageURL        string      `db:"image_url"`
	Email           string      `db:"email"`
	UserID          string      `db:"user_id"`
	Status          string      `db:"status"`
	RejectionReason null.String `db:"rejection_reason"`
	CreatedAt       time.Time   `db:"created_at"`
	UpdatedAt       time.Time   `db:"updated_at"`
}

func (r applicationRow) application() application.Application {
	return application.Application{
		ID:              r.ID,
		LeagueDate:      r.LeagueDate,
		Name:            r.Name,
		Mobile:          r.Mobile,
		ImageURL:        r.ImageURL,
		Email:           r.Email,
		UserID:          r.UserID,
		Status:          r.Status,
		RejectionReason: r.RejectionReason.String,
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
	}
}

func toApplications(rows []applicationRow) []application.Application {
	apps := make([]application.Application, 0, len(rows))
	for _, r := range rows {
		apps = append(apps, r.application())
	}
	return apps
}

type applicationRepository struct {
	store
}

var _ application.Repository = (*applicationRepository)(nil)

func NewApplicationRepository(db *sqlx.DB, conf *core.Config) *applicationRepository {
	return &applicationRepository{store: newStore(db, conf)}
}

// insertApplicationQuery drops a rejected application of the same email and inserts the new one in a single
// statement. The partial unique index on (league_date, email) rejects the insert when an active application exists.
const insertApplicationQuery = `
WITH superseded AS (
	DELETE FROM applications WHERE league_date = $2 AND email = $6 AND status = 'rejected'
)
INSERT INTO applications (` + applicationColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULL, $9, $9)`

func (repo *applicationRepository) InsertApplication(ctx context.Context, app application.Application) (application.Application, error) {
	_, err := repo.exec(ctx, "inserting application", insertApplicationQuery,
		app.ID, app.LeagueDate, app.Name, app.Mobile, app.ImageURL, app.Email, app.UserID, app.Status, app.CreatedAt.UTC())
	if err != nil {
		if isUniqueViolation(err) {
			return application.Application{}, application.ErrAlreadyApplied
		}
		return application.Application{}, errors.Wrap(err, "inserting application")
	}
	return app, nil
}

func (repo *applicationRepository) GetApplication(ctx context.Context, id string) (application.Application, error) {
	var row applicationRow
	err := repo.get(ctx, "finding application", &row, "SELECT "+applicationColumns+" FROM applications WHERE id = $1", id)
	if err != nil {
		if err == sql.ErrNoRows {
			return application.Application{}, application.ErrNotFound
		}
		return application.Application{}, errors.Wrap(err, "finding application")
	}
	return row.application(), nil
}

func (repo *applicationRepository) SetStatus(ctx context.Context, id, status, reason string) (application.Application, error) {
	q := "UPDATE applications SET status = $2, rejection_reason = $3, updated_at = $4 WHERE id = $1 RETURNING " + applicationColumns
	var row applicationRow
	err := repo.get(ctx, "updating application", &row, q, id, status, null.NewString(reason, reason != ""), core.NowFunc())
	if err != nil {
		if err == sql.ErrNoRows {
			return application.Application{}, application.ErrNotFound
		}
		return application.Application{}, errors.Wrap(err, "updating application")
	}
	return row.application(), nil
}

func (repo *applicationRepository) DeleteApplication(ctx context.Context, id string) error {
	res, err := repo.exec(ctx, "deleting application", "DELETE FROM applications WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting application")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return application.ErrNotFound
	}
	return nil
}

func (repo *applicationRepository) ListApplications(ctx context.Context, date string) ([]application.Application, error) {
	var rows []applicationRow
	q := "SELECT " + applicationColumns + " FROM applications WHERE league_date = $1 ORDER BY created_at"
	if err := repo.selectRows(ctx, "listing applications", &rows, q, date); err != nil {
		return nil, errors.Wrap(err, "listing applications")
	}
	return toApplications(rows), nil
}

// FindApplication prefers the active application of email over rejected ones.
func (repo *applicationRepository) FindApplication(ctx context.Context, date, email string) (application.Application, error) {
	var row applicationRow
	q := "SELECT " + applicationColumns + ` FROM applications WHERE league_date = $1 AND email = $2
		ORDER BY (status = 'rejected'), created_at DESC LIMIT 1`
	if err := repo.get(ctx, "finding application", &row, q, date, email); err != nil {
		if err == sql.ErrNoRows {
			return application.Application{}, application.ErrNotFound
		}
		return application.Application{}, errors.Wrap(err, "finding application")
	}
	return row.application(), nil
}

func (repo *applicationRepository) ListDates(ctx context.Context) ([]string, error) {
	var dates []string
	if err := repo.selectRows(ctx, "listing league dates", &dates, "SELECT DISTINCT league_date FROM applications ORDER BY league_date DESC"); err != nil {
		return nil, errors.Wrap(err, "listing league dates")
	}
	if dates == nil {
		dates = []string{}
	}
	return dates, nil
}
