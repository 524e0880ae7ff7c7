package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clearledger/expense-approval/internal/application/port"
	"github.com/clearledger/expense-approval/internal/domain/entity"
	"github.com/clearledger/expense-approval/pkg/utils"
)

// ErrUserNotFound is returned when a user id resolves to nothing.
var ErrUserNotFound = errors.New("user not found")

// CreateUserInput carries the fields needed to register a directory user.
type CreateUserInput struct {
	CompanyID string
	Email     string
	Name      string
	Role      string
	ManagerID *string
}

// UserService manages the company directory the decision engine resolves
// approvers from.
type UserService interface {
	CreateUser(ctx context.Context, in CreateUserInput) (*entity.User, error)
	GetUser(ctx context.Context, id string) (*entity.User, error)
}

type userServiceImpl struct {
	userRepo port.UserRepository
	logger   Logger
}

// NewUserService creates a new UserService.
func NewUserService(userRepo port.UserRepository, logger Logger) UserService {
	return &userServiceImpl{userRepo: userRepo, logger: logger}
}

func (s *userServiceImpl) CreateUser(ctx context.Context, in CreateUserInput) (*entity.User, error) {
	if !entity.ValidRole(in.Role) {
		return nil, fmt.Errorf("unknown role %q", in.Role)
	}
	if err := utils.ValidateEmail(in.Email); err != nil {
		return nil, err
	}
	if in.ManagerID != nil && *in.ManagerID != "" {
		manager, err := s.userRepo.GetUser(ctx, *in.ManagerID)
		if err != nil {
			return nil, err
		}
		if manager == nil {
			return nil, fmt.Errorf("manager %s not found", *in.ManagerID)
		}
	}

	user := &entity.User{
		ID:        uuid.NewString(),
		CompanyID: in.CompanyID,
		Email:     in.Email,
		Name:      in.Name,
		Role:      in.Role,
		ManagerID: in.ManagerID,
		CreatedAt: time.Now(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		s.logger.Error("Failed to create user", "error", err, "email", in.Email)
		return nil, err
	}

	s.logger.Info("User created", "id", user.ID, "role", user.Role)
	return user, nil
}

func (s *userServiceImpl) GetUser(ctx context.Context, id string) (*entity.User, error) {
	user, err := s.userRepo.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}
