package inmemdb

import (
	"context"
	"sort"

	"github.com/prochartist/backend/core"
	"github.com/prochartist/backend/core/application"
)

type applicationRepository struct {
	db *applicationTable
}

var _ application.Repository = (*applicationRepository)(nil)

func NewApplicationRepository(db *DB) *applicationRepository {
	return &applicationRepository{db: db.application}
}

// find returns the league date and position of the application with the given id.
func (repo *applicationRepository) find(id string) (string, int, bool) {
	for date, apps := range repo.db.buckets {
		for i, app := range apps {
			if app.ID == id {
				return date, i, true
			}
		}
	}
	return "", -1, false
}

func (repo *applicationRepository) InsertApplication(_ context.Context, app application.Application) (application.Application, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	bucket := repo.db.buckets[app.LeagueDate]
	kept := make([]application.Application, 0, len(bucket)+1)
	for _, a := range bucket {
		if a.Email == app.Email {
			if a.IsActive() {
				return application.Application{}, application.ErrAlreadyApplied
			}
			continue // superseded
		}
		kept = append(kept, a)
	}
	repo.db.buckets[app.LeagueDate] = append(kept, app)
	return app, nil
}

func (repo *applicationRepository) GetApplication(_ context.Context, id string) (application.Application, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	date, i, ok := repo.find(id)
	if !ok {
		return application.Application{}, application.ErrNotFound
	}
	return repo.db.buckets[date][i], nil
}

func (repo *applicationRepository) SetStatus(_ context.Context, id, status, reason string) (application.Application, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	date, i, ok := repo.find(id)
	if !ok {
		return application.Application{}, application.ErrNotFound
	}
	app := &repo.db.buckets[date][i]
	app.Status = status
	app.RejectionReason = reason
	app.UpdatedAt = core.NowFunc()
	return *app, nil
}

func (repo *applicationRepository) DeleteApplication(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	date, i, ok := repo.find(id)
	if !ok {
		return application.ErrNotFound
	}
	apps := repo.db.buckets[date]
	repo.db.buckets[date] = append(apps[:i:i], apps[i+1:]...)
	return nil
}

func (repo *applicationRepository) ListApplications(_ context.Context, date string) ([]application.Application, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return append([]application.Application{}, repo.db.buckets[date]...), nil
}

func (repo *applicationRepository) FindApplication(_ context.Context, date, email string) (application.Application, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, app := range repo.db.buckets[date] {
		if app.Email == email {
			return app, nil
		}
	}
	return application.Application{}, application.ErrNotFound
}

func (repo *applicationRepository) ListDates(_ context.Context) ([]string, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	dates := make([]string, 0, len(repo.db.buckets))
	for date := range repo.db.buckets {
		dates = append(dates, date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates, nil
}
