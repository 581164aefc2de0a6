package progress

import (
	"context"

	"github.com/pkg/errors"

	"github.com/prochartist/backend/core"
	"github.com/prochartist/backend/core/catalog"
)

var (
	// errors
	ErrNotFound = core.NewNotFoundError("progress record not found")
)

type (
	Repository interface {
		GetRecord(ctx context.Context, userID string) (Record, error)
		// ApplyChange applies ch to the user's record in one atomic update, creating the record with defaults when missing.
		// An empty Change only makes sure the record exists.
		ApplyChange(ctx context.Context, userID string, ch Change) (Record, error)
	}

	// PhaseFinder resolves the catalog phases progress is reported against.
	PhaseFinder interface {
		Get(ctx context.Context, phaseID string) (catalog.Phase, error)
	}

	TrackerInterface interface {
		Get(ctx context.Context, userID string) (Record, error)
		PhaseStatus(ctx context.Context, userID, phaseID string) (PhaseStatus, error)
		ReportProgress(ctx context.Context, userID, phaseID, contentID string, pct float64) (Record, error)
		MarkCompleted(ctx context.Context, userID, phaseID, contentID string) (Record, error)
		SetCurrentPhase(ctx context.Context, userID, phaseID string) (Record, error)
		Apply(ctx context.Context, userID string, upd Update) (Record, error)
		UnlockPhase(ctx context.Context, userID, phaseID string) (Record, error)
	}

	// Tracker keeps the learning progress of users and derives what they may watch.
	// An empty userID stands for an anonymous caller.
	Tracker struct {
		repo   Repository
		phases PhaseFinder
	}
)

var _ TrackerInterface = (*Tracker)(nil)

func NewTracker(repo Repository, phases PhaseFinder) *Tracker {
	return &Tracker{repo: repo, phases: phases}
}

// Get returns the user's record, creating it on first access.
func (t *Tracker) Get(ctx context.Context, userID string) (Record, error) {
	if userID == "" {
		return Record{}, core.ErrAuthRequired
	}
	rec, err := t.repo.ApplyChange(ctx, userID, Change{})
	if err != nil {
		return Record{}, errors.Wrap(err, "loading progress record")
	}
	rec.Normalize()
	return rec, nil
}

// PhaseStatus computes the unlock state of every item of a phase.
// Anonymous callers get the status of a fresh record.
func (t *Tracker) PhaseStatus(ctx context.Context, userID, phaseID string) (PhaseStatus, error) {
	phase, err := t.phases.Get(ctx, phaseID)
	if err != nil {
		return PhaseStatus{}, err
	}
	rec := NewRecord("")
	if userID != "" {
		if rec, err = t.Get(ctx, userID); err != nil {
			return PhaseStatus{}, err
		}
	}

	items := phase.OrderedContent()
	ps := PhaseStatus{
		PhaseID:  phase.PhaseID,
		Unlocked: rec.IsPhaseUnlocked(phase.PhaseID),
		Items:    make([]ItemStatus, 0, len(items)),
	}
	for i, item := range items {
		st := ItemStatus{
			ContentID:  item.ID,
			Position:   i,
			Unlocked:   rec.IsContentUnlocked(phase, i),
			Completed:  rec.IsCompleted(phase.PhaseID, item.ID),
			Percentage: rec.Percentage(phase.PhaseID, item.ID),
		}
		if st.Completed {
			ps.Completed++
		}
		ps.Items = append(ps.Items, st)
	}
	return ps, nil
}

func (t *Tracker) checkContent(ctx context.Context, phaseID, contentID string) error {
	phase, err := t.phases.Get(ctx, phaseID)
	if err != nil {
		return err
	}
	for _, item := range phase.Content {
		if item.ID == contentID {
			return nil
		}
	}
	return catalog.ErrContentNotFound
}

// ReportProgress stores the watch percentage of a content item.
// From CompletionThreshold on, the item is marked completed in the same update.
func (t *Tracker) ReportProgress(ctx context.Context, userID, phaseID, contentID string, pct float64) (Record, error) {
	if userID == "" {
		return Record{}, core.ErrAuthRequired
	}
	if err := checkPercentage(pct); err != nil {
		return Record{}, err
	}
	if err := t.checkContent(ctx, phaseID, contentID); err != nil {
		return Record{}, err
	}

	key := Key(phaseID, contentID)
	ch := Change{VideoProgress: map[string]float64{key: pct}}
	if pct >= CompletionThreshold {
		ch.Completed = []string{key}
	}
	return t.apply(ctx, userID, ch)
}

// MarkCompleted flags a content item as completed regardless of its watch percentage.
func (t *Tracker) MarkCompleted(ctx context.Context, userID, phaseID, contentID string) (Record, error) {
	if userID == "" {
		return Record{}, core.ErrAuthRequired
	}
	if err := t.checkContent(ctx, phaseID, contentID); err != nil {
		return Record{}, err
	}
	return t.apply(ctx, userID, Change{Completed: []string{Key(phaseID, contentID)}})
}

// SetCurrentPhase moves the advisory current-phase pointer. It grants no access.
func (t *Tracker) SetCurrentPhase(ctx context.Context, userID, phaseID string) (Record, error) {
	if userID == "" {
		return Record{}, core.ErrAuthRequired
	}
	if _, err := t.phases.Get(ctx, phaseID); err != nil {
		return Record{}, err
	}
	return t.apply(ctx, userID, Change{CurrentPhase: &phaseID})
}

// Apply applies a multi-field update in a single atomic write. Unlocked phases cannot be changed this way.
func (t *Tracker) Apply(ctx context.Context, userID string, upd Update) (Record, error) {
	if userID == "" {
		return Record{}, core.ErrAuthRequired
	}

	var ch Change
	if upd.CurrentPhase != nil {
		if _, err := t.phases.Get(ctx, *upd.CurrentPhase); err != nil {
			return Record{}, err
		}
		ch.CurrentPhase = upd.CurrentPhase
	}
	for _, vp := range upd.VideoProgress {
		if err := checkPercentage(*vp.Percentage); err != nil {
			return Record{}, err
		}
		if err := t.checkContent(ctx, vp.PhaseID, vp.ContentID); err != nil {
			return Record{}, err
		}
		key := Key(vp.PhaseID, vp.ContentID)
		if ch.VideoProgress == nil {
			ch.VideoProgress = make(map[string]float64, len(upd.VideoProgress))
		}
		ch.VideoProgress[key] = *vp.Percentage
		if *vp.Percentage >= CompletionThreshold {
			ch.Completed = append(ch.Completed, key)
		}
	}
	for _, ref := range upd.CompletedContent {
		if err := t.checkContent(ctx, ref.PhaseID, ref.ContentID); err != nil {
			return Record{}, err
		}
		ch.Completed = append(ch.Completed, Key(ref.PhaseID, ref.ContentID))
	}
	return t.apply(ctx, userID, ch)
}

// UnlockPhase permanently grants access to a phase. Only verified purchases may call it.
func (t *Tracker) UnlockPhase(ctx context.Context, userID, phaseID string) (Record, error) {
	if userID == "" || phaseID == "" {
		return Record{}, core.NewFieldError("phaseId", "user and phase are required to unlock a phase")
	}
	return t.apply(ctx, userID, Change{UnlockPhases: []string{phaseID}})
}

func (t *Tracker) apply(ctx context.Context, userID string, ch Change) (Record, error) {
	rec, err := t.repo.ApplyChange(ctx, userID, ch)
	if err != nil {
		return Record{}, errors.Wrap(err, "updating progress record")
	}
	rec.Normalize()
	return rec, nil
}
