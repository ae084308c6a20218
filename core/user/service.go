package user

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/Shilpa0612/school-app-backend-sub003/core"
)

var (
	// errors
	ErrNotFound    = errors.Wrap(core.ErrNotFound, "user")
	ErrInvalidRole = errors.New("invalid role")
)

type (
	Repository interface {
		CreateUser(ctx context.Context, usr User) (User, error)
		GetUser(ctx context.Context, id string) (User, error)
		// UsersByRoles returns active users having one of roles.
		UsersByRoles(ctx context.Context, roles ...Role) ([]User, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, name, email string, role Role) (User, error) {
	if !role.Valid() {
		return User{}, core.NewValidationError(ErrInvalidRole, core.FieldError{Field: "role", Error: ErrInvalidRole.Error()})
	}
	usr := User{
		ID:        uuid.New().String(),
		Name:      core.CleanString(name),
		Email:     core.CleanString(email, true /* lower */),
		Role:      role,
		IsActive:  true,
		CreatedAt: core.NowFunc(),
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	return usr, errors.Wrap(err, "creating user")
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, id)
}
