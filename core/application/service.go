package application

import (
	"context"

	"github.com/google/uuid"

	"github.com/prochartist/backend/core"
)

var (
	// errors
	ErrNotFound       = core.NewNotFoundError("application not found")
	ErrAlreadyApplied = core.NewConflictError("you have already applied for this league")
)

type (
	Repository interface {
		// InsertApplication adds app to its league-date bucket in one atomic write.
		// A rejected application with the same email is replaced; a non-rejected one makes it fail with ErrAlreadyApplied.
		InsertApplication(ctx context.Context, app Application) (Application, error)
		GetApplication(ctx context.Context, id string) (Application, error)
		// SetStatus sets the status and the rejection reason in the same atomic update. An empty reason removes it.
		SetStatus(ctx context.Context, id, status, reason string) (Application, error)
		DeleteApplication(ctx context.Context, id string) error
		ListApplications(ctx context.Context, date string) ([]Application, error)
		FindApplication(ctx context.Context, date, email string) (Application, error)
		// ListDates returns the league dates having a bucket, most recent first.
		ListDates(ctx context.Context) ([]string, error)
	}

	ServiceInterface interface {
		Submit(ctx context.Context, na NewApplication) (Application, error)
		Get(ctx context.Context, id string) (Application, error)
		Transition(ctx context.Context, id string, tr Transition) (Application, error)
		Delete(ctx context.Context, id string) error
		ListByDate(ctx context.Context, date string) (Partitioned, error)
		GetForUser(ctx context.Context, date, email string) (Application, error)
		ListDates(ctx context.Context) ([]string, error)
	}

	Service struct {
		repo Repository
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Submit files a pending application for the league date, superseding a rejected one of the same email.
// na must have been validated.
func (svc *Service) Submit(ctx context.Context, na NewApplication) (Application, error) {
	now := core.NowFunc()
	app := Application{
		ID:         uuid.New().String(),
		LeagueDate: na.LeagueDate,
		Name:       na.Name,
		Mobile:     na.Mobile,
		ImageURL:   na.ImageURL,
		Email:      na.Email,
		UserID:     na.UserID,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return svc.repo.InsertApplication(ctx, app)
}

func (svc *Service) Get(ctx context.Context, id string) (Application, error) {
	return svc.repo.GetApplication(ctx, id)
}

// Transition moves an application to another status.
// Rejecting requires a non-blank reason; any other status drops the stored reason.
func (svc *Service) Transition(ctx context.Context, id string, tr Transition) (Application, error) {
	status, reason, err := tr.Normalize()
	if err != nil {
		return Application{}, err
	}
	return svc.repo.SetStatus(ctx, id, status, reason)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteApplication(ctx, id)
}

func (svc *Service) ListByDate(ctx context.Context, date string) (Partitioned, error) {
	date = core.CleanString(date)
	if date == "" {
		date = core.Today()
	}
	if err := CheckDate(date); err != nil {
		return Partitioned{}, err
	}
	apps, err := svc.repo.ListApplications(ctx, date)
	if err != nil {
		return Partitioned{}, err
	}
	return Partition(date, apps), nil
}

// GetForUser returns the application filed with email for the league date.
func (svc *Service) GetForUser(ctx context.Context, date, email string) (Application, error) {
	date = core.CleanString(date)
	if date == "" {
		date = core.Today()
	}
	if err := CheckDate(date); err != nil {
		return Application{}, err
	}
	return svc.repo.FindApplication(ctx, date, core.CleanString(email, true /* lower */))
}

func (svc *Service) ListDates(ctx context.Context) ([]string, error) {
	return svc.repo.ListDates(ctx)
}
