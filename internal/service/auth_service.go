package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/trailhead-tours/trailhead/internal/domain"
	"github.com/trailhead-tours/trailhead/internal/platform/mailer"
	"github.com/trailhead-tours/trailhead/internal/platform/password"
	"github.com/trailhead-tours/trailhead/internal/platform/reset"
	"github.com/trailhead-tours/trailhead/internal/platform/token"
	"github.com/trailhead-tours/trailhead/internal/repo/postgres"
	"github.com/trailhead-tours/trailhead/pkg/config"
	"github.com/trailhead-tours/trailhead/pkg/events"
	"github.com/trailhead-tours/trailhead/pkg/logger"
)

// AuthService owns credential issuance and the password lifecycle. Each call
// is an explicit pipeline: validate, hash, persist, notify; no step hides in
// persistence hooks.
type AuthService interface {
	Signup(ctx context.Context, req *domain.SignupRequest) (*domain.User, string, error)
	Login(ctx context.Context, req *domain.LoginRequest) (*domain.User, string, error)
	ForgotPassword(ctx context.Context, req *domain.ForgotPasswordRequest) error
	ResetPassword(ctx context.Context, rawToken string, req *domain.ResetPasswordRequest) (*domain.User, string, error)
	UpdatePassword(ctx context.Context, user *domain.User, req *domain.UpdatePasswordRequest) (string, error)
}

type authService struct {
	users  postgres.UserRepository
	hasher *password.Hasher
	tokens *token.Service
	mailer mailer.Service
	bus    events.Publisher
	cfg    *config.Config
}

func NewAuthService(
	users postgres.UserRepository,
	hasher *password.Hasher,
	tokens *token.Service,
	mail mailer.Service,
	bus events.Publisher,
	cfg *config.Config,
) AuthService {
	return &authService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		mailer: mail,
		bus:    bus,
		cfg:    cfg,
	}
}

func (s *authService) Signup(ctx context.Context, req *domain.SignupRequest) (*domain.User, string, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, "", err
	}

	hash, err := s.hasher.Hash(ctx, req.Password)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, req.Name, req.Email, req.Role, hash)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicateEmail) {
			return nil, "", err
		}
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	accountURL := s.cfg.App.PublicURL + "/me"
	if err := s.mailer.SendWelcome(user.Email, user.Name, accountURL); err != nil {
		logger.WarnContext(ctx, "failed to send welcome email", "error", err, "user_id", user.ID)
	}

	s.publish(ctx, events.UserSignedUp, events.UserSignedUpEvent{
		UserID:    user.ID,
		Email:     user.Email,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	})

	signed, err := s.tokens.Sign(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("sign token: %w", err)
	}

	return user, signed, nil
}

func (s *authService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.User, string, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, "", err
	}

	user, err := s.users.FindActiveByEmail(ctx, req.Email)
	if err != nil {
		return nil, "", fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		// Burn a comparison so unknown emails cost the same as wrong passwords.
		s.hasher.DummyVerify(ctx)
		return nil, "", domain.ErrInvalidCredentials
	}

	match, err := s.hasher.Verify(ctx, req.Password, user.PasswordHash)
	if err != nil {
		return nil, "", fmt.Errorf("verify password: %w", err)
	}
	if !match {
		return nil, "", domain.ErrInvalidCredentials
	}

	signed, err := s.tokens.Sign(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("sign token: %w", err)
	}

	return user, signed, nil
}

func (s *authService) ForgotPassword(ctx context.Context, req *domain.ForgotPasswordRequest) error {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return err
	}

	user, err := s.users.FindActiveByEmail(ctx, req.Email)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		// Respond exactly as if the email existed.
		return nil
	}

	raw, digest, err := reset.New()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	expiresAt := time.Now().Add(s.cfg.Auth.ResetTokenTTL)
	if err := s.users.SetResetToken(ctx, user.ID, digest, expiresAt); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	resetURL := fmt.Sprintf("%s/api/v1/users/reset-password/%s", s.cfg.App.PublicURL, raw)
	if err := s.mailer.SendPasswordReset(user.Email, user.Name, resetURL); err != nil {
		// A reset token must never stay live if its owner was not notified.
		if clearErr := s.users.ClearResetToken(ctx, user.ID, digest); clearErr != nil {
			logger.ErrorContext(ctx, "failed to roll back reset token", "error", clearErr, "user_id", user.ID)
		}
		logger.ErrorContext(ctx, "failed to send reset email", "error", err, "user_id", user.ID)
		return domain.ErrDeliveryFailed
	}

	return nil
}

func (s *authService) ResetPassword(ctx context.Context, rawToken string, req *domain.ResetPasswordRequest) (*domain.User, string, error) {
	if err := req.Validate(); err != nil {
		return nil, "", err
	}

	hash, err := s.hasher.Hash(ctx, req.Password)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	// One conditional update: of two racing consumers, exactly one matches.
	user, err := s.users.ConsumeResetToken(ctx, reset.Digest(rawToken), hash)
	if err != nil {
		return nil, "", fmt.Errorf("consume reset token: %w", err)
	}
	if user == nil {
		return nil, "", domain.ErrResetTokenInvalid
	}

	s.publish(ctx, events.UserPasswordChanged, events.UserPasswordChangedEvent{
		UserID:    user.ID,
		ChangedAt: time.Now(),
		ViaReset:  true,
	})

	signed, err := s.tokens.Sign(user.ID)
	if err != nil {
		return nil, "", fmt.Errorf("sign token: %w", err)
	}

	return user, signed, nil
}

func (s *authService) UpdatePassword(ctx context.Context, user *domain.User, req *domain.UpdatePasswordRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	match, err := s.hasher.Verify(ctx, req.PasswordCurrent, user.PasswordHash)
	if err != nil {
		return "", fmt.Errorf("verify password: %w", err)
	}
	if !match {
		return "", domain.ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(ctx, req.Password)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	updated, err := s.users.UpdatePassword(ctx, user.ID, hash)
	if err != nil {
		return "", fmt.Errorf("update password: %w", err)
	}
	if updated == nil {
		return "", domain.ErrUserNotFound
	}

	s.publish(ctx, events.UserPasswordChanged, events.UserPasswordChangedEvent{
		UserID:    updated.ID,
		ChangedAt: time.Now(),
	})

	// The old token is now stale; issue a fresh one so the caller stays
	// logged in.
	signed, err := s.tokens.Sign(updated.ID)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

func (s *authService) publish(ctx context.Context, subject string, payload interface{}) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(ctx, subject, payload); err != nil {
		logger.WarnContext(ctx, "failed to publish event", "subject", subject, "error", err)
	}
}
