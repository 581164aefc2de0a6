package application_test

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prochartist/backend/core"
	"github.com/prochartist/backend/core/application"
	inmemdb "github.com/prochartist/backend/storage/database/inmem"
)

const date = "2026-11-02"

func newValidate() *validator.Validate {
	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)
	return validate
}

func TestNewApplication_Validate(t *testing.T) {
	validate := newValidate()
	nowFunc := core.NowFunc
	core.NowFunc = func() time.Time { return time.Date(2026, 10, 15, 23, 30, 0, 0, time.UTC) }
	defer func() { core.NowFunc = nowFunc }()

	na := application.NewApplication{Name: " Asha ", Mobile: "98765", Email: " Asha@Test.in ", UserID: "usr"}
	require.NoError(t, na.Validate(validate))
	assert.Equal(t, "2026-10-15", na.LeagueDate)
	assert.Equal(t, "Asha", na.Name)
	assert.Equal(t, "asha@test.in", na.Email)

	for _, bad := range []string{"2026-02-30", "02-11-2026", "2026-1-2"} {
		na := application.NewApplication{LeagueDate: bad, Name: "A", Mobile: "1", Email: "a@test.in", UserID: "usr"}
		assert.Error(t, na.Validate(validate), bad)
	}
}

func TestTransition_Normalize(t *testing.T) {
	reason := "blurry screenshot"
	blank := "   "
	tests := []struct {
		name       string
		tr         application.Transition
		wantStatus string
		wantReason string
		wantErr    bool
	}{
		{name: "approve", tr: application.Transition{Status: " Approved "}, wantStatus: application.StatusApproved},
		{name: "approve drops reason", tr: application.Transition{Status: "approved", RejectionReason: &reason}, wantStatus: application.StatusApproved},
		{name: "back to pending", tr: application.Transition{Status: "pending", RejectionReason: &reason}, wantStatus: application.StatusPending},
		{name: "reject", tr: application.Transition{Status: "rejected", RejectionReason: &reason}, wantStatus: application.StatusRejected, wantReason: reason},
		{name: "reject without reason", tr: application.Transition{Status: "rejected"}, wantErr: true},
		{name: "reject with blank reason", tr: application.Transition{Status: "rejected", RejectionReason: &blank}, wantErr: true},
		{name: "unknown status", tr: application.Transition{Status: "archived"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, reason, err := tt.tr.Normalize()
			if tt.wantErr {
				assert.True(t, core.IsValidation(err), err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantReason, reason)
		})
	}
}

func TestService_lifecycle(t *testing.T) {
	svc := application.NewService(inmemdb.NewApplicationRepository(inmemdb.Open()))
	ctx := context.Background()
	na := application.NewApplication{LeagueDate: date, Name: "Asha", Mobile: "98765", Email: "asha@test.in", UserID: "usr"}

	app, err := svc.Submit(ctx, na)
	require.NoError(t, err)
	assert.Equal(t, application.StatusPending, app.Status)
	assert.Empty(t, app.RejectionReason)

	_, err = svc.Submit(ctx, na)
	assert.Equal(t, application.ErrAlreadyApplied, err)

	// the rejection reason lives and dies with the rejected status
	reason := "wrong broker"
	app, err = svc.Transition(ctx, app.ID, application.Transition{Status: "rejected", RejectionReason: &reason})
	require.NoError(t, err)
	assert.Equal(t, reason, app.RejectionReason)
	app, err = svc.Transition(ctx, app.ID, application.Transition{Status: "pending"})
	require.NoError(t, err)
	assert.Empty(t, app.RejectionReason)
	_, err = svc.Transition(ctx, app.ID, application.Transition{Status: "rejected", RejectionReason: &reason})
	require.NoError(t, err)

	// reapplying replaces the rejected application
	again, err := svc.Submit(ctx, na)
	require.NoError(t, err)
	assert.NotEqual(t, app.ID, again.ID)
	_, err = svc.Get(ctx, app.ID)
	assert.True(t, core.IsNotFound(err), err)

	parts, err := svc.ListByDate(ctx, date)
	require.NoError(t, err)
	assert.Len(t, parts.Pending, 1)
	assert.Empty(t, parts.Rejected)

	own, err := svc.GetForUser(ctx, date, " ASHA@test.in")
	require.NoError(t, err)
	assert.Equal(t, again.ID, own.ID)

	_, err = svc.ListByDate(ctx, "tomorrow")
	assert.True(t, core.IsValidation(err), err)

	dates, err := svc.ListDates(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{date}, dates)

	require.NoError(t, svc.Delete(ctx, again.ID))
	assert.True(t, core.IsNotFound(svc.Delete(ctx, again.ID)))
	_, err = svc.Transition(ctx, again.ID, application.Transition{Status: "approved"})
	assert.True(t, core.IsNotFound(err), err)
}

func TestPartition(t *testing.T) {
	apps := []application.Application{
		{ID: "1", Status: application.StatusApproved},
		{ID: "2", Status: application.StatusPending},
		{ID: "3", Status: application.StatusRejected},
		{ID: "4", Status: application.StatusPending},
	}
	p := application.Partition(date, apps)
	assert.Equal(t, date, p.Date)
	assert.Len(t, p.Pending, 2)
	assert.Len(t, p.Approved, 1)
	assert.Len(t, p.Rejected, 1)

	empty := application.Partition(date, nil)
	assert.NotNil(t, empty.Pending)
	assert.NotNil(t, empty.Approved)
	assert.NotNil(t, empty.Rejected)
}
