package catalog_test

import (
	"context"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prochartist/backend/core"
	"github.com/prochartist/backend/core/catalog"
	inmemdb "github.com/prochartist/backend/storage/database/inmem"
)

func newValidate() *validator.Validate {
	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)
	return validate
}

func ids(items []catalog.ContentItem) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.ID)
	}
	return out
}

func TestNewPhase_Validate(t *testing.T) {
	validate := newValidate()

	np := catalog.NewPhase{
		PhaseID: " Swing-Trader ",
		Title:   " Swing ",
		Content: []catalog.NewContentItem{{ID: " Intro ", Title: "Intro"}},
	}
	require.NoError(t, np.Validate(context.Background(), validate))
	assert.Equal(t, "swing-trader", np.PhaseID)
	assert.Equal(t, "Swing", np.Title)
	assert.Equal(t, "intro", np.Content[0].ID)

	np.Content = append(np.Content, catalog.NewContentItem{ID: "INTRO", Title: "Again"})
	assert.True(t, core.IsValidation(np.Validate(context.Background(), validate)))

	bad := catalog.NewPhase{PhaseID: "swing", Title: "Swing", Price: func(f float64) *float64 { return &f }(-1)}
	assert.Error(t, bad.Validate(context.Background(), validate))
}

func TestService_Seed(t *testing.T) {
	svc := catalog.NewService(inmemdb.NewPhaseRepository(inmemdb.Open()))
	ctx := context.Background()

	n, err := svc.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, len(catalog.DefaultPhases()), n)

	n, err = svc.Seed(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	phases, err := svc.List(ctx, false)
	require.NoError(t, err)
	require.NotEmpty(t, phases)
	assert.Equal(t, catalog.FreePhaseID, phases[0].PhaseID)
	for i := 1; i < len(phases); i++ {
		assert.LessOrEqual(t, phases[i-1].Order, phases[i].Order)
	}
}

func TestService_phases(t *testing.T) {
	svc := catalog.NewService(inmemdb.NewPhaseRepository(inmemdb.Open()))
	ctx := context.Background()

	saved, err := svc.BulkSave(ctx, []catalog.NewPhase{
		{PhaseID: "second", Title: "Second", Order: 2},
		{PhaseID: "first", Title: "First", Order: 1, Currency: "USD"},
	})
	require.NoError(t, err)
	require.Len(t, saved, 2)
	assert.Equal(t, float64(catalog.DefaultPrice), saved[0].Price)
	assert.Equal(t, catalog.DefaultCurrency, saved[0].Currency)
	assert.Equal(t, "USD", saved[1].Currency)
	assert.True(t, saved[0].IsActive)

	// saving again replaces the phase but keeps its creation time
	replaced, err := svc.Save(ctx, catalog.NewPhase{PhaseID: "second", Title: "Second again", Order: 2})
	require.NoError(t, err)
	assert.Equal(t, "Second again", replaced.Title)
	assert.Equal(t, saved[0].CreatedAt, replaced.CreatedAt)

	title := "Renamed"
	p, err := svc.Update(ctx, "first", catalog.UpdatePhase{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", p.Title)
	assert.Equal(t, "USD", p.Currency)

	_, err = svc.Update(ctx, "nope", catalog.UpdatePhase{Title: &title})
	assert.Equal(t, catalog.ErrNotFound, err)

	// deleting only hides the phase
	require.NoError(t, svc.Delete(ctx, "first"))
	active, err := svc.List(ctx, false)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "second", active[0].PhaseID)
	all, err := svc.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	p, err = svc.Get(ctx, " FIRST ")
	require.NoError(t, err)
	assert.False(t, p.IsActive)
}

func TestService_content(t *testing.T) {
	svc := catalog.NewService(inmemdb.NewPhaseRepository(inmemdb.Open()))
	ctx := context.Background()
	_, err := svc.Save(ctx, catalog.NewPhase{PhaseID: "swing", Title: "Swing"})
	require.NoError(t, err)

	p, err := svc.AddContent(ctx, "swing", catalog.NewContentItem{ID: "b", Title: "B", Order: 2})
	require.NoError(t, err)
	p, err = svc.AddContent(ctx, "swing", catalog.NewContentItem{ID: "a", Title: "A", Order: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids(p.OrderedContent()))

	_, err = svc.AddContent(ctx, "swing", catalog.NewContentItem{ID: "a", Title: "A"})
	assert.Equal(t, catalog.ErrContentExists, err)
	_, err = svc.AddContent(ctx, "nope", catalog.NewContentItem{ID: "c", Title: "C"})
	assert.Equal(t, catalog.ErrNotFound, err)

	order := 3
	p, err = svc.UpdateContent(ctx, "swing", "a", catalog.UpdateContentItem{Order: &order})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, ids(p.OrderedContent()))

	p, err = svc.UpdateContent(ctx, "swing", "b", catalog.UpdateContentItem{IsActive: core.BoolPtr(false)})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, ids(p.OrderedContent()))
	assert.Equal(t, 0, p.ContentIndex("a"))
	assert.Equal(t, -1, p.ContentIndex("b"))

	_, err = svc.UpdateContent(ctx, "swing", "nope", catalog.UpdateContentItem{Order: &order})
	assert.Equal(t, catalog.ErrContentNotFound, err)

	p, err = svc.DeleteContent(ctx, "swing", "a")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids(p.Content))
	_, err = svc.DeleteContent(ctx, "swing", "a")
	assert.Equal(t, catalog.ErrContentNotFound, err)
}

func TestService_contentKeyCollisions(t *testing.T) {
	svc := catalog.NewService(inmemdb.NewPhaseRepository(inmemdb.Open()))
	ctx := context.Background()
	_, err := svc.Seed(ctx)
	require.NoError(t, err)
	assert.Equal(t, "pro-trader-sniper-entry", catalog.ContentKey("pro-trader", "sniper-entry"))

	// "pro" + "trader-sniper-entry" names the same item as "pro-trader" + "sniper-entry"
	_, err = svc.Save(ctx, catalog.NewPhase{
		PhaseID: "pro",
		Title:   "Pro",
		Content: []catalog.NewContentItem{{ID: "trader-sniper-entry", Title: "Clash"}},
	})
	assert.True(t, core.IsConflict(err), err)
	_, err = svc.Get(ctx, "pro")
	assert.Equal(t, catalog.ErrNotFound, err)

	_, err = svc.Save(ctx, catalog.NewPhase{
		PhaseID: "pro",
		Title:   "Pro",
		Content: []catalog.NewContentItem{{ID: "trader-intro", Title: "Intro"}},
	})
	require.NoError(t, err)

	_, err = svc.AddContent(ctx, "pro-trader", catalog.NewContentItem{ID: "intro", Title: "Intro"})
	assert.True(t, core.IsConflict(err), err)

	clash := []catalog.NewContentItem{{ID: "trader-summary-3", Title: "Summary"}}
	_, err = svc.Update(ctx, "pro", catalog.UpdatePhase{Content: &clash})
	assert.True(t, core.IsConflict(err), err)

	// replacing a phase never collides with its own content
	_, err = svc.Save(ctx, catalog.NewPhase{
		PhaseID: "pro",
		Title:   "Pro again",
		Content: []catalog.NewContentItem{{ID: "trader-intro", Title: "Intro"}},
	})
	assert.NoError(t, err)
}
