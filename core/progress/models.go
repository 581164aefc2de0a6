package progress

import (
	"math"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/prochartist/backend/core"
	"github.com/prochartist/backend/core/catalog"
)

// CompletionThreshold is the watch percentage from which a content item counts as completed.
const CompletionThreshold = 90.0

// Key returns the composite identifier of a content item inside a progress record.
func Key(phaseID, contentID string) string {
	return catalog.ContentKey(phaseID, contentID)
}

// Record holds the learning progress of a single user.
type Record struct {
	UserID           string             `json:"userId"`
	CompletedContent map[string]bool    `json:"completedContent"`
	VideoProgress    map[string]float64 `json:"videoProgress"`
	UnlockedPhases   []string           `json:"unlockedPhases"`
	CurrentPhase     string             `json:"currentPhase"`
	CreatedAt        time.Time          `json:"createdAt"`
	UpdatedAt        time.Time          `json:"updatedAt"`
}

// NewRecord returns the record every user starts with.
func NewRecord(userID string) Record {
	now := core.NowFunc()
	return Record{
		UserID:           userID,
		CompletedContent: map[string]bool{},
		VideoProgress:    map[string]float64{},
		UnlockedPhases:   []string{catalog.FreePhaseID},
		CurrentPhase:     catalog.FreePhaseID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Normalize fills in the defaults a stored record may lack.
func (r *Record) Normalize() {
	if r.CompletedContent == nil {
		r.CompletedContent = map[string]bool{}
	}
	if r.VideoProgress == nil {
		r.VideoProgress = map[string]float64{}
	}
	if !r.IsPhaseUnlocked(catalog.FreePhaseID) {
		r.UnlockedPhases = append([]string{catalog.FreePhaseID}, r.UnlockedPhases...)
	}
	if r.CurrentPhase == "" {
		r.CurrentPhase = catalog.FreePhaseID
	}
}

func (r Record) IsPhaseUnlocked(phaseID string) bool {
	for _, id := range r.UnlockedPhases {
		if id == phaseID {
			return true
		}
	}
	return false
}

func (r Record) IsCompleted(phaseID, contentID string) bool {
	return r.CompletedContent[Key(phaseID, contentID)]
}

func (r Record) Percentage(phaseID, contentID string) float64 {
	return r.VideoProgress[Key(phaseID, contentID)]
}

// IsContentUnlocked reports whether the item at index of the phase's ordered content is playable.
// The first item is playable as soon as the phase is unlocked; any other item requires the previous one to be completed.
func (r Record) IsContentUnlocked(phase catalog.Phase, index int) bool {
	if !r.IsPhaseUnlocked(phase.PhaseID) {
		return false
	}
	items := phase.OrderedContent()
	if index < 0 || index >= len(items) {
		return false
	}
	if index == 0 {
		return true
	}
	return r.IsCompleted(phase.PhaseID, items[index-1].ID)
}

// Change is a set of field-level writes applied to a record in a single atomic update.
// Nil or empty fields are left untouched.
type Change struct {
	VideoProgress map[string]float64
	Completed     []string
	UnlockPhases  []string
	CurrentPhase  *string
}

func (ch Change) IsEmpty() bool {
	return len(ch.VideoProgress) == 0 && len(ch.Completed) == 0 && len(ch.UnlockPhases) == 0 && ch.CurrentPhase == nil
}

// Apply applies ch to r in memory, the way storage backends do.
func (ch Change) Apply(r *Record) {
	r.Normalize()
	for k, pct := range ch.VideoProgress {
		r.VideoProgress[k] = pct
	}
	for _, k := range ch.Completed {
		r.CompletedContent[k] = true
	}
	for _, id := range ch.UnlockPhases {
		if !r.IsPhaseUnlocked(id) {
			r.UnlockedPhases = append(r.UnlockedPhases, id)
		}
	}
	if ch.CurrentPhase != nil {
		r.CurrentPhase = *ch.CurrentPhase
	}
}

// ItemStatus describes the state of a content item for a given user.
type ItemStatus struct {
	ContentID  string  `json:"contentId"`
	Position   int     `json:"position"`
	Unlocked   bool    `json:"unlocked"`
	Completed  bool    `json:"completed"`
	Percentage float64 `json:"percentage"`
}

type PhaseStatus struct {
	PhaseID   string       `json:"phaseId"`
	Unlocked  bool         `json:"unlocked"`
	Completed int          `json:"completed"`
	Items     []ItemStatus `json:"items"`
}

// ContentRef identifies a content item of a phase.
type ContentRef struct {
	PhaseID   string `json:"phaseId" validate:"required"`
	ContentID string `json:"contentId" validate:"required"`
}

type ContentProgress struct {
	ContentRef
	Percentage *float64 `json:"percentage" validate:"required"`
}

// Update is the typed body of a multi-field progress update.
type Update struct {
	CurrentPhase     *string           `json:"currentPhase" validate:"omitempty,slug"`
	VideoProgress    []ContentProgress `json:"videoProgress" validate:"dive"`
	CompletedContent []ContentRef      `json:"completedContent" validate:"dive"`
}

func (u *Update) Validate(validate *validator.Validate) error {
	if u.CurrentPhase != nil {
		*u.CurrentPhase = core.CleanString(*u.CurrentPhase, true /* lower */)
	}
	for i := range u.VideoProgress {
		cleanRef(&u.VideoProgress[i].ContentRef)
	}
	for i := range u.CompletedContent {
		cleanRef(&u.CompletedContent[i])
	}
	if err := validate.Struct(u); err != nil {
		return err
	}
	for _, vp := range u.VideoProgress {
		if err := checkPercentage(*vp.Percentage); err != nil {
			return err
		}
	}
	return nil
}

func (u Update) IsEmpty() bool {
	return u.CurrentPhase == nil && len(u.VideoProgress) == 0 && len(u.CompletedContent) == 0
}

func cleanRef(ref *ContentRef) {
	ref.PhaseID = strings.TrimSpace(ref.PhaseID)
	ref.ContentID = strings.TrimSpace(ref.ContentID)
}

func checkPercentage(pct float64) error {
	if math.IsNaN(pct) || math.IsInf(pct, 0) || pct < 0 || pct > 100 {
		return core.NewFieldError("percentage", "percentage must be between 0 and 100")
	}
	return nil
}
