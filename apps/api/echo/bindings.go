package echoapi

import (
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/prochartist/backend/core"
	"github.com/prochartist/backend/core/catalog"
	"github.com/prochartist/backend/core/payment"
	"github.com/prochartist/backend/core/user"
)

// Requests

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (lr *LoginRequest) Validate(validate *validator.Validate) error {
	lr.Email = core.CleanString(lr.Email, true /* lower */)
	return validate.Struct(lr)
}

// OTPRequest asks for a one-time password. Purpose defaults to the password recovery scope.
type OTPRequest struct {
	Email   string `json:"email" validate:"required,email"`
	Purpose string `json:"purpose" validate:"omitempty,oneof=password email"`
}

func (r *OTPRequest) clean() {
	r.Email = core.CleanString(r.Email, true /* lower */)
	r.Purpose = core.CleanString(r.Purpose, true /* lower */)
	if r.Purpose == "" {
		r.Purpose = user.OTPScopePassword
	}
}

func (r *OTPRequest) Validate(validate *validator.Validate) error {
	r.clean()
	return validate.Struct(r)
}

type VerifyOTPRequest struct {
	OTPRequest
	OTP string `json:"otp" validate:"required,numeric"`
}

func (vr *VerifyOTPRequest) Validate(validate *validator.Validate) error {
	vr.clean()
	vr.OTP = core.CleanString(vr.OTP)
	return validate.Struct(vr)
}

// AdminResetRequest replaces every admin account, authorized by the master link token.
type AdminResetRequest struct {
	Token    string `json:"token" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (ar *AdminResetRequest) Validate(validate *validator.Validate) error {
	ar.Email = core.CleanString(ar.Email, true /* lower */)
	ar.Token = core.CleanString(ar.Token)
	return validate.Struct(ar)
}

type ReportProgressRequest struct {
	PhaseID    string   `json:"phaseId" validate:"required"`
	ContentID  string   `json:"contentId" validate:"required"`
	Percentage *float64 `json:"percentage" validate:"required"`
}

func (rp *ReportProgressRequest) Validate(validate *validator.Validate) error {
	rp.PhaseID = core.CleanString(rp.PhaseID)
	rp.ContentID = core.CleanString(rp.ContentID)
	return validate.Struct(rp)
}

type CompleteContentRequest struct {
	PhaseID   string `json:"phaseId" validate:"required"`
	ContentID string `json:"contentId" validate:"required"`
}

func (cc *CompleteContentRequest) Validate(validate *validator.Validate) error {
	cc.PhaseID = core.CleanString(cc.PhaseID)
	cc.ContentID = core.CleanString(cc.ContentID)
	return validate.Struct(cc)
}

type BulkPhasesRequest struct {
	Phases []catalog.NewPhase `json:"phases" validate:"required"`
}

// Responses

type MessageResponse struct {
	Message string `json:"message"`
}

type TokenResponse struct {
	Token string     `json:"token"`
	User  *user.User `json:"user,omitempty"`
}

type VerifyResponse struct {
	Valid  bool   `json:"valid"`
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// SkippedResponse answers anonymous progress reports, which are accepted but not recorded.
type SkippedResponse struct {
	Skipped bool   `json:"skipped"`
	Message string `json:"message"`
}

type OrderResponse struct {
	payment.Order
	KeyID string `json:"keyId"`
}

type UploadResponse struct {
	Message string `json:"message"`
	URL     string `json:"url"`
}

// Query params

// queryBool reads a boolean query param; missing or malformed values are false.
func queryBool(ctx echo.Context, name string) bool {
	b, _ := strconv.ParseBool(ctx.QueryParam(name))
	return b
}

func paramInt(ctx echo.Context, name string) (int, error) {
	i, err := strconv.Atoi(ctx.Param(name))
	if err != nil {
		return 0, core.NewFieldError(name, name+" must be an integer")
	}
	return i, nil
}
