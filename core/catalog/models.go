package catalog

import (
	"context"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/prochartist/backend/core"
)

const (
	// FreePhaseID is the phase every learner has access to.
	FreePhaseID = "beginner"

	DefaultPrice         = 999
	DefaultOriginalPrice = 1999
	DefaultCurrency      = "₹"
)

// ContentItem is a lesson of a Phase.
// Its ID is unique within the phase; Order defines both display and unlock sequence.
type ContentItem struct {
	ID          string `json:"id" bson:"id"`
	Title       string `json:"title" bson:"title"`
	Description string `json:"description" bson:"description"`
	Duration    string `json:"duration" bson:"duration"`
	VideoURL    string `json:"videoUrl" bson:"videoUrl"`
	Thumbnail   string `json:"thumbnail" bson:"thumbnail"`
	Order       int    `json:"order" bson:"order"`
	IsActive    bool   `json:"isActive" bson:"isActive"`
}

type Phase struct {
	PhaseID       string        `json:"phaseId" bson:"phaseId"`
	Title         string        `json:"title" bson:"title"`
	Subtitle      string        `json:"subtitle" bson:"subtitle"`
	Content       []ContentItem `json:"content" bson:"content"`
	Price         float64       `json:"price" bson:"price"`
	OriginalPrice float64       `json:"originalPrice" bson:"originalPrice"`
	Currency      string        `json:"currency" bson:"currency"`
	IsActive      bool          `json:"isActive" bson:"isActive"`
	Order         int           `json:"order" bson:"order"`
	CreatedAt     time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt" bson:"updatedAt"`
}

// OrderedContent returns the active content items sorted by Order.
// Items sharing the same Order keep their array position.
func (p Phase) OrderedContent() []ContentItem {
	items := make([]ContentItem, 0, len(p.Content))
	for _, item := range p.Content {
		if item.IsActive {
			items = append(items, item)
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Order < items[j].Order })
	return items
}

// ContentIndex returns the position of contentID within OrderedContent, or -1.
func (p Phase) ContentIndex(contentID string) int {
	for i, item := range p.OrderedContent() {
		if item.ID == contentID {
			return i
		}
	}
	return -1
}

func (p Phase) findContent(contentID string) int {
	for i, item := range p.Content {
		if item.ID == contentID {
			return i
		}
	}
	return -1
}

// ContentKey returns the identifier of a content item across all phases.
func ContentKey(phaseID, contentID string) string {
	return phaseID + "-" + contentID
}

// AddContent appends item to the content list. Returns ErrContentExists if its ID is taken.
func (p *Phase) AddContent(item ContentItem) error {
	if p.findContent(item.ID) >= 0 {
		return ErrContentExists
	}
	p.Content = append(p.Content, item)
	return nil
}

func (p *Phase) UpdateContent(contentID string, upd UpdateContentItem) error {
	idx := p.findContent(contentID)
	if idx < 0 {
		return ErrContentNotFound
	}
	upd.Apply(&p.Content[idx])
	return nil
}

func (p *Phase) RemoveContent(contentID string) error {
	idx := p.findContent(contentID)
	if idx < 0 {
		return ErrContentNotFound
	}
	p.Content = append(p.Content[:idx:idx], p.Content[idx+1:]...)
	return nil
}

// SortPhases sorts phases by display rank.
func SortPhases(phases []Phase) {
	sort.SliceStable(phases, func(i, j int) bool {
		if phases[i].Order == phases[j].Order {
			return phases[i].PhaseID < phases[j].PhaseID
		}
		return phases[i].Order < phases[j].Order
	})
}

// NewContentItem contains information needed to add a ContentItem to a Phase.
type NewContentItem struct {
	ID          string `json:"id" validate:"required,slug"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Duration    string `json:"duration"`
	VideoURL    string `json:"videoUrl" validate:"omitempty,url"`
	Thumbnail   string `json:"thumbnail" validate:"omitempty,url"`
	Order       int    `json:"order" validate:"gte=0"`
	IsActive    *bool  `json:"isActive"`
}

func (nc *NewContentItem) Validate(validate *validator.Validate) error {
	nc.ID = core.CleanString(nc.ID, true /* lower */)
	nc.Title = core.CleanString(nc.Title)
	nc.VideoURL = core.CleanString(nc.VideoURL)
	nc.Thumbnail = core.CleanString(nc.Thumbnail)
	return validate.Struct(nc)
}

func (nc NewContentItem) item() ContentItem {
	isActive := true
	if nc.IsActive != nil {
		isActive = *nc.IsActive
	}
	return ContentItem{
		ID:          nc.ID,
		Title:       nc.Title,
		Description: nc.Description,
		Duration:    nc.Duration,
		VideoURL:    nc.VideoURL,
		Thumbnail:   nc.Thumbnail,
		Order:       nc.Order,
		IsActive:    isActive,
	}
}

// UpdateContentItem defines what information may be provided to modify an existing ContentItem.
type UpdateContentItem struct {
	Title       *string `json:"title" validate:"omitempty,min=1"`
	Description *string `json:"description"`
	Duration    *string `json:"duration"`
	VideoURL    *string `json:"videoUrl" validate:"omitempty,url"`
	Thumbnail   *string `json:"thumbnail" validate:"omitempty,url"`
	Order       *int    `json:"order" validate:"omitempty,gte=0"`
	IsActive    *bool   `json:"isActive"`
}

func (uc *UpdateContentItem) Validate(validate *validator.Validate) error {
	if uc.Title != nil {
		*uc.Title = core.CleanString(*uc.Title)
	}
	return validate.Struct(uc)
}

func (uc UpdateContentItem) Apply(item *ContentItem) {
	if uc.Title != nil {
		item.Title = *uc.Title
	}
	if uc.Description != nil {
		item.Description = *uc.Description
	}
	if uc.Duration != nil {
		item.Duration = *uc.Duration
	}
	if uc.VideoURL != nil {
		item.VideoURL = *uc.VideoURL
	}
	if uc.Thumbnail != nil {
		item.Thumbnail = *uc.Thumbnail
	}
	if uc.Order != nil {
		item.Order = *uc.Order
	}
	if uc.IsActive != nil {
		item.IsActive = *uc.IsActive
	}
}

// NewPhase contains information needed to create (or fully replace) a Phase.
type NewPhase struct {
	PhaseID       string           `json:"phaseId" validate:"required,slug"`
	Title         string           `json:"title" validate:"required"`
	Subtitle      string           `json:"subtitle"`
	Content       []NewContentItem `json:"content" validate:"dive"`
	Price         *float64         `json:"price" validate:"omitempty,gte=0"`
	OriginalPrice *float64         `json:"originalPrice" validate:"omitempty,gte=0"`
	Currency      string           `json:"currency"`
	IsActive      *bool            `json:"isActive"`
	Order         int              `json:"order" validate:"gte=0"`
}

func (np *NewPhase) Validate(ctx context.Context, validate *validator.Validate) error {
	np.PhaseID = core.CleanString(np.PhaseID, true /* lower */)
	np.Title = core.CleanString(np.Title)
	np.Subtitle = core.CleanString(np.Subtitle)
	np.Currency = core.CleanString(np.Currency)
	for i := range np.Content {
		np.Content[i].ID = core.CleanString(np.Content[i].ID, true /* lower */)
		np.Content[i].Title = core.CleanString(np.Content[i].Title)
	}
	if err := validate.StructCtx(ctx, np); err != nil {
		return err
	}

	seen := make(map[string]bool, len(np.Content))
	for _, c := range np.Content {
		if seen[c.ID] {
			return core.NewFieldError("content", "duplicate content id "+c.ID)
		}
		seen[c.ID] = true
	}
	return nil
}

func (np NewPhase) phase() Phase {
	p := Phase{
		PhaseID:       np.PhaseID,
		Title:         np.Title,
		Subtitle:      np.Subtitle,
		Content:       make([]ContentItem, 0, len(np.Content)),
		Price:         DefaultPrice,
		OriginalPrice: DefaultOriginalPrice,
		Currency:      DefaultCurrency,
		IsActive:      true,
		Order:         np.Order,
	}
	for _, c := range np.Content {
		p.Content = append(p.Content, c.item())
	}
	if np.Price != nil {
		p.Price = *np.Price
	}
	if np.OriginalPrice != nil {
		p.OriginalPrice = *np.OriginalPrice
	}
	if np.Currency != "" {
		p.Currency = np.Currency
	}
	if np.IsActive != nil {
		p.IsActive = *np.IsActive
	}
	return p
}

// UpdatePhase defines what information may be provided to modify an existing Phase.
// Content, when set, replaces the whole content list.
type UpdatePhase struct {
	Title         *string           `json:"title" validate:"omitempty,min=1"`
	Subtitle      *string           `json:"subtitle"`
	Content       *[]NewContentItem `json:"content" validate:"omitempty"`
	Price         *float64          `json:"price" validate:"omitempty,gte=0"`
	OriginalPrice *float64          `json:"originalPrice" validate:"omitempty,gte=0"`
	Currency      *string           `json:"currency"`
	IsActive      *bool             `json:"isActive"`
	Order         *int              `json:"order" validate:"omitempty,gte=0"`
}

func (up *UpdatePhase) Validate(validate *validator.Validate) error {
	if up.Title != nil {
		*up.Title = core.CleanString(*up.Title)
	}
	if err := validate.Struct(up); err != nil {
		return err
	}
	if up.Content != nil {
		seen := make(map[string]bool, len(*up.Content))
		for i := range *up.Content {
			c := &(*up.Content)[i]
			if err := c.Validate(validate); err != nil {
				return err
			}
			if seen[c.ID] {
				return core.NewFieldError("content", "duplicate content id "+c.ID)
			}
			seen[c.ID] = true
		}
	}
	return nil
}

func (up UpdatePhase) Apply(p *Phase) {
	if up.Title != nil {
		p.Title = *up.Title
	}
	if up.Subtitle != nil {
		p.Subtitle = *up.Subtitle
	}
	if up.Content != nil {
		p.Content = make([]ContentItem, 0, len(*up.Content))
		for _, c := range *up.Content {
			p.Content = append(p.Content, c.item())
		}
	}
	if up.Price != nil {
		p.Price = *up.Price
	}
	if up.OriginalPrice != nil {
		p.OriginalPrice = *up.OriginalPrice
	}
	if up.Currency != nil {
		p.Currency = *up.Currency
	}
	if up.IsActive != nil {
		p.IsActive = *up.IsActive
	}
	if up.Order != nil {
		p.Order = *up.Order
	}
}
