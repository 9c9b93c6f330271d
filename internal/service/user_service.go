package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/trailhead-tours/trailhead/internal/domain"
	"github.com/trailhead-tours/trailhead/internal/repo/postgres"
	"github.com/trailhead-tours/trailhead/pkg/events"
	"github.com/trailhead-tours/trailhead/pkg/logger"
)

// UserService covers profile self-service and the admin user surface.
type UserService interface {
	UpdateMe(ctx context.Context, userID int64, req *domain.UpdateMeRequest) (*domain.User, error)
	DeleteMe(ctx context.Context, userID int64) error
	GetUser(ctx context.Context, id int64) (*domain.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error)
	UpdateUser(ctx context.Context, id int64, req *domain.UpdateUserRequest) (*domain.User, error)
	UpdateUserRole(ctx context.Context, id int64, role string) error
	DeleteUser(ctx context.Context, id int64) error
}

type userService struct {
	users postgres.UserRepository
	bus   events.Publisher
}

func NewUserService(users postgres.UserRepository, bus events.Publisher) UserService {
	return &userService{users: users, bus: bus}
}

func (s *userService) UpdateMe(ctx context.Context, userID int64, req *domain.UpdateMeRequest) (*domain.User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if req.Email != nil {
		normalized := strings.ToLower(strings.TrimSpace(*req.Email))
		req.Email = &normalized
	}

	user, err := s.users.UpdateProfile(ctx, userID, req.Name, req.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *userService) DeleteMe(ctx context.Context, userID int64) error {
	if err := s.users.Deactivate(ctx, userID); err != nil {
		return fmt.Errorf("deactivate user: %w", err)
	}

	if s.bus != nil {
		evt := events.UserDeactivatedEvent{UserID: userID, DeactivatedAt: time.Now()}
		if err := s.bus.Publish(ctx, events.UserDeactivated, evt); err != nil {
			logger.WarnContext(ctx, "failed to publish event", "subject", events.UserDeactivated, "error", err)
		}
	}
	return nil
}

func (s *userService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.FindActiveByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context, limit, offset int) ([]domain.User, error) {
	users, err := s.users.List(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *userService) UpdateUser(ctx context.Context, id int64, req *domain.UpdateUserRequest) (*domain.User, error) {
	user, err := s.users.UpdateProfile(ctx, id, req.Name, req.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *userService) UpdateUserRole(ctx context.Context, id int64, role string) error {
	if !domain.IsValidRole(role) {
		return fmt.Errorf("%w: invalid role", domain.ErrValidation)
	}
	return s.users.UpdateRole(ctx, id, role)
}

func (s *userService) DeleteUser(ctx context.Context, id int64) error {
	return s.users.Delete(ctx, id)
}
