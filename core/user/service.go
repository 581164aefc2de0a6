package user

import (
	"context"
	"net/mail"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/prochartist/backend/core"
)

var (
	// errors
	ErrNotFound    = core.NewNotFoundError("user not found")
	ErrEmailExists = errors.New("a user with this email already exists")
)

type (
	Repository interface {
		// CreateUser returns ErrEmailExists if the email is already taken.
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		// QueryUsers applies AND operation on available QueryFilter fields.
		QueryUsers(ctx context.Context, filter QueryFilter) ([]User, error)
		// UpdateUser saves every mutable field of usr. Returns ErrEmailExists if the new email is already taken.
		UpdateUser(ctx context.Context, usr User) (User, error)
		DeleteUsersByID(ctx context.Context, ids ...string) error
	}

	ServiceInterface interface {
		CheckUniqueness(ctx context.Context, email string, excludedUsers ...User) error
		Signup(ctx context.Context, nu NewUser) (User, error)
		Create(ctx context.Context, nu NewUser) (User, error)
		GetByID(ctx context.Context, id string) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		Query(ctx context.Context, filter QueryFilter) ([]User, error)
		SetLastLogin(ctx context.Context, usr User) (User, error)
		SetPassword(ctx context.Context, email, pwd string) (User, error)
		SaveAdmin(ctx context.Context, email, pwd string, roles ...string) (User, error)
		ResetAdmins(ctx context.Context, email, pwd string) (User, error)
		RequestOTP(ctx context.Context, scope, email string) error
		VerifyOTP(ctx context.Context, scope, email, code string, consume bool) error
		ResetPasswordWithOTP(ctx context.Context, scope string, data ResetPasswordWithOTP) (User, error)
	}

	Service struct {
		repo    Repository
		otps    OTPStore
		mailSvc core.EmailService
		conf    *core.Config
	}
)

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, otps OTPStore, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{
		repo:    repo,
		otps:    otps,
		mailSvc: mailSvc,
		conf:    conf,
	}
}

func (svc *Service) CheckUniqueness(ctx context.Context, email string, exclUsers ...User) error {
	usr, err := svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return nil
		}
		return errors.Wrap(err, "finding user by email")
	}
	for _, excl := range exclUsers {
		if excl.ID == usr.ID {
			return nil
		}
	}
	return emailExistsErr()
}

func emailExistsErr() error {
	return core.NewValidationError(ErrEmailExists, core.FieldError{Field: "email", Error: ErrEmailExists.Error()})
}

func (svc *Service) create(ctx context.Context, nu NewUser, roles []string) (User, error) {
	now := core.NowFunc()
	usr := User{
		ID:        uuid.New().String(),
		Name:      nu.Name,
		Email:     core.CleanString(nu.Email, true /* lower */),
		Mobile:    nu.Mobile,
		IsActive:  true,
		Roles:     roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return User{}, emailExistsErr()
		}
		return User{}, err
	}
	return usr, nil
}

// Signup registers a learner account. Requested roles are ignored.
func (svc *Service) Signup(ctx context.Context, nu NewUser) (User, error) {
	return svc.create(ctx, nu, []string{RoleLearner})
}

func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	roles := nu.Roles
	if len(roles) == 0 {
		roles = []string{RoleLearner}
	}
	return svc.create(ctx, nu, roles)
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *Service) Query(ctx context.Context, filter QueryFilter) ([]User, error) {
	filter.Clean()
	return svc.repo.QueryUsers(ctx, filter)
}

func (svc *Service) SetLastLogin(ctx context.Context, usr User) (User, error) {
	usr.LastLogin = core.NowFunc()
	return svc.repo.UpdateUser(ctx, usr)
}

// SetPassword sets the password of the user with the given email, bypassing the password policy.
func (svc *Service) SetPassword(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateUser(ctx, usr)
}

// SaveAdmin updates or creates an active admin account.
func (svc *Service) SaveAdmin(ctx context.Context, email, pwd string, roles ...string) (User, error) {
	if len(roles) == 0 {
		roles = []string{RoleAdmin}
	}
	email = core.CleanString(email, true /* lower */)

	usr, err := svc.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) != ErrNotFound {
			return User{}, errors.Wrap(err, "finding user by email")
		}
		return svc.create(ctx, NewUser{Email: email, Password: pwd}, roles)
	}

	for _, role := range roles {
		if !usr.HasRole(role) {
			usr.Roles = append(usr.Roles, role)
		}
	}
	usr.IsActive = true
	if err = usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateUser(ctx, usr)
}

// ResetAdmins removes every admin account and creates a single admin with the given credentials.
func (svc *Service) ResetAdmins(ctx context.Context, email, pwd string) (User, error) {
	admins, err := svc.repo.QueryUsers(ctx, QueryFilter{Roles: AdminRoles})
	if err != nil {
		return User{}, errors.Wrap(err, "querying admins")
	}
	ids := make([]string, 0, len(admins))
	for _, adm := range admins {
		ids = append(ids, adm.ID)
	}
	if len(ids) > 0 {
		if err = svc.repo.DeleteUsersByID(ctx, ids...); err != nil {
			return User{}, errors.Wrap(err, "deleting admins")
		}
	}
	return svc.SaveAdmin(ctx, email, pwd, RoleAdmin)
}

func (svc *Service) getScopedUser(ctx context.Context, scope, email string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return User{}, err
	}
	if scope == OTPScopeAdmin && !usr.IsAdmin() {
		return User{}, ErrNotFound
	}
	return usr, nil
}

// RequestOTP generates a one-time password for email and sends it by email.
// For the password and admin scopes, the email must belong to a (respectively admin) user.
func (svc *Service) RequestOTP(ctx context.Context, scope, email string) error {
	email = core.CleanString(email, true /* lower */)
	if scope != OTPScopeEmail {
		if _, err := svc.getScopedUser(ctx, scope, email); err != nil {
			return err
		}
	}

	code, err := GenerateOTP(svc.conf.OTP.Length)
	if err != nil {
		return err
	}
	if err = svc.otps.SaveOTP(ctx, otpKey(scope, email), code, svc.conf.OTP.Timeout); err != nil {
		return errors.Wrap(err, "saving otp")
	}

	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Address: email}},
		Subject:      "Your OTP Code",
		TemplateName: "password_otp",
		TemplateData: map[string]interface{}{
			"Code":    code,
			"Minutes": int(svc.conf.OTP.Timeout.Minutes()),
		},
	})
	return nil
}

// VerifyOTP checks code against the stored one-time password. The code is discarded when consume is true.
func (svc *Service) VerifyOTP(ctx context.Context, scope, email, code string, consume bool) error {
	key := otpKey(scope, core.CleanString(email, true /* lower */))
	stored, err := svc.otps.GetOTP(ctx, key)
	if err != nil {
		if errors.Cause(err) == ErrOTPNotFound {
			return ErrInvalidOTP
		}
		return errors.Wrap(err, "getting otp")
	}
	if stored != core.CleanString(code) {
		return ErrInvalidOTP
	}
	if consume {
		if err = svc.otps.DeleteOTP(ctx, key); err != nil {
			return errors.Wrap(err, "deleting otp")
		}
	}
	return nil
}

// ResetPasswordWithOTP sets a new password (and optionally a new email) once the one-time password is verified.
func (svc *Service) ResetPasswordWithOTP(ctx context.Context, scope string, data ResetPasswordWithOTP) (User, error) {
	usr, err := svc.getScopedUser(ctx, scope, data.Email)
	if err != nil {
		return User{}, err
	}
	if err = svc.VerifyOTP(ctx, scope, data.Email, data.OTP, false); err != nil {
		return User{}, err
	}

	if data.NewEmail != "" && data.NewEmail != usr.Email {
		if err = svc.CheckUniqueness(ctx, data.NewEmail, usr); err != nil {
			return User{}, err
		}
		usr.Email = data.NewEmail
	}
	if err = usr.SetPassword(data.NewPassword); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = core.NowFunc()

	usr, err = svc.repo.UpdateUser(ctx, usr)
	if err != nil {
		if errors.Cause(err) == ErrEmailExists {
			return User{}, emailExistsErr()
		}
		return User{}, err
	}
	if err = svc.otps.DeleteOTP(ctx, otpKey(scope, data.Email)); err != nil {
		return User{}, errors.Wrap(err, "deleting otp")
	}
	return usr, nil
}
