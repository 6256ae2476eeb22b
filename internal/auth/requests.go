package auth

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"

	"github.com/redmonkez12/account-service/internal/account"
	"github.com/redmonkez12/account-service/internal/apperr"
)

const (
	PasswordMinLength = 8
	PasswordMaxLength = 36
	emailMaxLength    = 254
)

var (
	ErrInvalidPassword = apperr.New(apperr.ErrValidation, "password must be 8 to 36 characters")
	ErrInvalidRole     = apperr.New(apperr.ErrValidation, "role must be standard or admin")
)

var (
	emailRules    = []validation.Rule{validation.Required, validation.Length(1, emailMaxLength), is.Email}
	passwordRules = []validation.Rule{validation.Required, validation.Length(PasswordMinLength, PasswordMaxLength)}
	usernameRules = []validation.Rule{
		validation.Required,
		validation.Length(account.UsernameMinLength, account.UsernameMaxLength),
		is.Alphanumeric,
	}
	roleRule = validation.In(account.RoleStandard, account.RoleAdmin)
)

// ValidatePassword accepts 8 to 36 characters.
func ValidatePassword(password string) error {
	if err := validation.Validate(password, passwordRules...); err != nil {
		return ErrInvalidPassword
	}
	return nil
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r LoginRequest) Validate() error {
	return validationError(validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	))
}

type EmailRequest struct {
	Email string `json:"email"`
}

func (r EmailRequest) Validate() error {
	return validationError(validation.ValidateStruct(&r,
		validation.Field(&r.Email, emailRules...),
	))
}

type NewUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r NewUserRequest) Validate() error {
	return validationError(validation.ValidateStruct(&r,
		validation.Field(&r.Username, usernameRules...),
		validation.Field(&r.Password, passwordRules...),
	))
}

type PasswordRequest struct {
	Password string `json:"password"`
}

func (r PasswordRequest) Validate() error {
	return validationError(validation.ValidateStruct(&r,
		validation.Field(&r.Password, passwordRules...),
	))
}

// EditRequest carries optional profile fields. Absent fields are not changed.
type EditRequest struct {
	Email *string       `json:"email"`
	Role  *account.Role `json:"role"`
}

func (r EditRequest) Validate() error {
	return validationError(validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.NilOrNotEmpty, validation.Length(1, emailMaxLength), is.Email),
		validation.Field(&r.Role, validation.NilOrNotEmpty, roleRule),
	))
}

func (r EditRequest) ProfileUpdate() ProfileUpdate {
	return ProfileUpdate{Email: r.Email, Role: r.Role}
}

// validationError tags ozzo errors with the validation kind.
func validationError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s", apperr.ErrValidation, err.Error())
}
