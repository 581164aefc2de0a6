package application

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/prochartist/backend/core"
)

// Statuses
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// NoReasonPlaceholder is stored when an admin rejects an application without giving a reason.
const NoReasonPlaceholder = "No reason provided"

var Statuses = []string{StatusPending, StatusApproved, StatusRejected}

func IsValidStatus(status string) bool {
	for _, s := range Statuses {
		if s == status {
			return true
		}
	}
	return false
}

// Application is a trader's request to take part in the league starting on LeagueDate.
// RejectionReason is set if and only if Status is StatusRejected.
type Application struct {
	ID              string    `json:"id"`
	LeagueDate      string    `json:"date"`
	Name            string    `json:"name"`
	Mobile          string    `json:"mobile"`
	ImageURL        string    `json:"imageUrl"`
	Email           string    `json:"email"`
	UserID          string    `json:"userId"`
	Status          string    `json:"status"`
	RejectionReason string    `json:"rejectionReason,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (a Application) IsActive() bool {
	return a.Status != StatusRejected
}

// Partitioned groups the applications of a league date by status.
type Partitioned struct {
	Date     string        `json:"date"`
	Pending  []Application `json:"pending"`
	Approved []Application `json:"approved"`
	Rejected []Application `json:"rejected"`
}

func Partition(date string, apps []Application) Partitioned {
	p := Partitioned{
		Date:     date,
		Pending:  []Application{},
		Approved: []Application{},
		Rejected: []Application{},
	}
	for _, app := range apps {
		switch app.Status {
		case StatusApproved:
			p.Approved = append(p.Approved, app)
		case StatusRejected:
			p.Rejected = append(p.Rejected, app)
		default:
			p.Pending = append(p.Pending, app)
		}
	}
	return p
}

// NewApplication contains information needed to submit an Application.
type NewApplication struct {
	LeagueDate string `json:"date" validate:"omitempty,isodate"`
	Name       string `json:"name" validate:"required"`
	Mobile     string `json:"mobile" validate:"required"`
	ImageURL   string `json:"imageUrl"`
	Email      string `json:"email" validate:"required,email"`
	UserID     string `json:"userId" validate:"required"`
}

func (na *NewApplication) Validate(validate *validator.Validate) error {
	na.LeagueDate = core.CleanString(na.LeagueDate)
	na.Name = core.CleanString(na.Name)
	na.Mobile = core.CleanString(na.Mobile)
	na.ImageURL = core.CleanString(na.ImageURL)
	na.Email = core.CleanString(na.Email, true /* lower */)
	na.UserID = core.CleanString(na.UserID)
	if na.LeagueDate == "" {
		na.LeagueDate = core.Today()
	}
	if err := validate.Struct(na); err != nil {
		return err
	}
	return CheckDate(na.LeagueDate)
}

// CheckDate returns a ValidationError unless date is a calendar date formatted as YYYY-MM-DD.
func CheckDate(date string) error {
	if _, err := time.Parse(core.DateLayout, date); err != nil {
		return core.NewFieldError("date", "date must be formatted as YYYY-MM-DD")
	}
	return nil
}

// Transition is an admin's status change of an Application.
// A nil RejectionReason means the field was left out of the request.
type Transition struct {
	Status          string  `json:"status" validate:"required"`
	RejectionReason *string `json:"rejectionReason"`
}

// Normalize checks the transition and resolves the reason to store, empty meaning none.
func (tr Transition) Normalize() (string, string, error) {
	status := strings.ToLower(strings.TrimSpace(tr.Status))
	if !IsValidStatus(status) {
		return "", "", core.NewFieldError("status", "status must be one of pending, approved, rejected")
	}
	if status != StatusRejected {
		return status, "", nil
	}
	if tr.RejectionReason == nil || strings.TrimSpace(*tr.RejectionReason) == "" {
		return "", "", core.NewFieldError("rejectionReason", "a rejection reason is required")
	}
	return status, *tr.RejectionReason, nil
}
