package domain

import (
	"context"
	"errors"
	"time"

	"github.com/cablebill/cablebill/internal/errs"
)

type RegisterRequest struct {
	Username string
	Password string
	Name     string
	Role     string
	Email    string
	Phone    string
}

type LoginRequest struct {
	Username string
	Password string
}

type LoginResult struct {
	User      *User     `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UpdateUserRequest carries optional fields; nil leaves the value unchanged.
// Role and Active may only be changed by an administrator.
type UpdateUserRequest struct {
	ID       string
	Name     *string
	Email    *string
	Phone    *string
	Role     *string
	Active   *bool
	Password *string
}

type Service interface {
	Register(ctx context.Context, actor *Principal, req RegisterRequest) (*User, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Authenticate(ctx context.Context, token string) (*Principal, error)
	Me(ctx context.Context, actor Principal) (*User, error)
	Get(ctx context.Context, id string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Update(ctx context.Context, actor Principal, req UpdateUserRequest) (*User, error)
	SetActive(ctx context.Context, actor Principal, id string, active bool) (*User, error)
	Delete(ctx context.Context, actor Principal, id string) error
}

var (
	// ErrInvalidCredentials and ErrInvalidToken are reported as 401 and never
	// reveal which part of the credentials was wrong.
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrInvalidToken       = errors.New("invalid_token")
	ErrForbidden          = errors.New("forbidden")
	ErrUserInactive       = errors.New("user_inactive")

	ErrInvalidID            = errs.New(errs.ErrInvalidInput, "invalid_id")
	ErrInvalidUsername      = errs.New(errs.ErrInvalidInput, "invalid_username")
	ErrInvalidPassword      = errs.New(errs.ErrInvalidInput, "invalid_password")
	ErrInvalidName          = errs.New(errs.ErrInvalidInput, "invalid_name")
	ErrInvalidRole          = errs.New(errs.ErrInvalidInput, "invalid_role")
	ErrInvalidEmail         = errs.New(errs.ErrInvalidInput, "invalid_email")
	ErrInvalidPhone         = errs.New(errs.ErrInvalidInput, "invalid_phone")
	ErrUserNotFound         = errs.New(errs.ErrNotFound, "user_not_found")
	ErrUserExists           = errs.New(errs.ErrConflict, "user_exists")
	ErrCannotDeactivateSelf = errs.New(errs.ErrInvalidState, "cannot_deactivate_self")
	ErrCannotDeleteSelf     = errs.New(errs.ErrInvalidState, "cannot_delete_self")
)
