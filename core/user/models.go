package user

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/prochartist/backend/core"
)

// Roles
const (
	// Admin
	RoleAdmin       = "admin:"
	RoleAdminMaster = "admin:master"

	// Learner
	RoleLearner = "learner:"
)

var (
	AdminRoles   = []string{RoleAdmin, RoleAdminMaster}
	LearnerRoles = []string{RoleLearner}
	AllRoles     = getAllRoles()

	rolePriorities = map[string]int{
		// Admins: 30 - 21
		RoleAdminMaster: 30,
		RoleAdmin:       21,

		// Learners: 10 - 1
		RoleLearner: 1,
	}

	Roles = []Role{
		{Name: "Learner", Value: RoleLearner},
		{Name: "Admin", Value: RoleAdmin},
		{Name: "Master Admin", Value: RoleAdminMaster},
	}
)

func getAllRoles() []string {
	all := make([]string, 0, 3)
	all = append(all, AdminRoles...)
	all = append(all, LearnerRoles...)
	return all
}

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Mobile       string    `json:"mobile"`
	IsActive     bool      `json:"isActive"`
	Roles        []string  `json:"roles"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"` // UTC
	UpdatedAt    time.Time `json:"updatedAt"` // UTC
	LastLogin    time.Time `json:"lastLogin"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) RoleStartsWith(prefix string) bool {
	for _, role := range u.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool {
	return u.RoleStartsWith(RoleAdmin)
}

func (u *User) IsMasterAdmin() bool {
	return u.HasRole(RoleAdminMaster)
}

func (u *User) IsLearner() bool {
	return u.RoleStartsWith(RoleLearner)
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name            string   `json:"name"`
	Email           string   `json:"email" validate:"required,email"`
	Mobile          string   `json:"mobile" validate:"omitempty,mobile"`
	Password        string   `json:"password" validate:"required"`
	PasswordConfirm string   `json:"passwordConfirm" validate:"omitempty,eqfield=Password"`
	Roles           []string `json:"roles" validate:"omitempty,allroles"`
}

func (nu *NewUser) Validate(ctx context.Context, validate *validator.Validate, svc ServiceInterface) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.Mobile = core.CleanString(nu.Mobile)

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return svc.CheckUniqueness(ctx, nu.Email)
}

// ResetPasswordWithOTP contains information needed to reset credentials with a one-time password.
// NewEmail optionally moves the account to another email address.
type ResetPasswordWithOTP struct {
	Email       string `json:"email" validate:"required,email"`
	OTP         string `json:"otp" validate:"required,numeric"`
	NewPassword string `json:"newPassword" validate:"required"`
	NewEmail    string `json:"newEmail" validate:"omitempty,email"`
}

func (rp *ResetPasswordWithOTP) Validate(validate *validator.Validate) error {
	rp.Email = core.CleanString(rp.Email, true /* lower */)
	rp.NewEmail = core.CleanString(rp.NewEmail, true /* lower */)
	rp.OTP = core.CleanString(rp.OTP)
	return validate.Struct(rp)
}

type QueryFilter struct {
	Search   string   `query:"search"`
	Roles    []string `query:"role"`
	IsActive *bool    `query:"isActive"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Roles == nil && qf.IsActive == nil
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search, true /* lower */)
}

// Match reports whether usr satisfies every set field of the filter.
// Search does a case-insensitive match on one of User.Name or User.Email.
func (qf *QueryFilter) Match(usr User) bool {
	if qf.Search != "" &&
		!strings.Contains(strings.ToLower(usr.Name), qf.Search) &&
		!strings.Contains(usr.Email, qf.Search) {
		return false
	}
	if qf.IsActive != nil && usr.IsActive != *qf.IsActive {
		return false
	}
	if len(qf.Roles) > 0 {
		found := false
		for _, role := range qf.Roles {
			if usr.HasRole(role) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
