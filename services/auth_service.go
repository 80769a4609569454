package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"civicsync-api/apperrors"
	"civicsync-api/mailer"
	"civicsync-api/models"
	"civicsync-api/repository"
	"civicsync-api/utils"
	"civicsync-api/validation"

	"github.com/rs/zerolog"
)

type AuthService struct {
	users     repository.UserRepository
	mail      mailer.Mailer
	jwtSecret string
	log       zerolog.Logger
	now       func() time.Time
}

func NewAuthService(users repository.UserRepository, mail mailer.Mailer, jwtSecret string, log zerolog.Logger) *AuthService {
	return &AuthService{
		users:     users,
		mail:      mail,
		jwtSecret: jwtSecret,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a citizen account. Roles above citizen are granted only
// through Promote.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.normalize()
	if errs := validation.Struct(in); len(errs) > 0 {
		return nil, apperrors.Validation(errs...)
	}

	now := s.now()
	user := &models.User{
		Name:      in.Name,
		Email:     in.Email,
		Password:  in.Password,
		Phone:     in.Phone,
		Role:      models.RoleCitizen,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := user.HashPassword(); err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.Conflict("User with this email already exists")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.log.Info().Str("user_id", user.ID.Hex()).Msg("user registered")

	if s.mail != nil {
		if msg, err := mailer.Welcome(user); err == nil {
			go func() {
				ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
				defer cancel()
				if err := s.mail.Send(ctx, msg); err != nil {
					s.log.Warn().Err(err).Str("user_id", user.ID.Hex()).Msg("welcome email failed")
				}
			}()
		}
	}
	return user, nil
}

// Login checks credentials and issues a signed token.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (string, *models.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if errs := validation.Struct(in); len(errs) > 0 {
		return "", nil, apperrors.Validation(errs...)
	}

	user, err := s.users.FindByEmail(ctx, in.Email)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil, apperrors.Unauthenticated("Invalid credentials")
	}
	if err != nil {
		return "", nil, fmt.Errorf("find user: %w", err)
	}
	if !user.ComparePassword(in.Password) {
		return "", nil, apperrors.Unauthenticated("Invalid credentials")
	}

	token, err := utils.GenerateToken(s.jwtSecret, user.ID.Hex(), string(user.Role))
	if err != nil {
		return "", nil, fmt.Errorf("generate token: %w", err)
	}
	return token, user, nil
}

func (s *AuthService) Me(ctx context.Context, caller models.Caller) (*models.User, error) {
	user, err := s.users.FindByID(ctx, caller.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("User")
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

// Promote changes the role of the user registered under email.
func (s *AuthService) Promote(ctx context.Context, email string, role models.Role) (*models.User, error) {
	if !models.IsValidRole(string(role)) {
		return nil, apperrors.Invalid("role", "Invalid role")
	}
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.NotFound("User")
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if err := s.users.UpdateRole(ctx, user.ID, role); err != nil {
		return nil, fmt.Errorf("update role: %w", err)
	}
	user.Role = role
	s.log.Info().Str("user_id", user.ID.Hex()).Str("role", string(role)).Msg("user role changed")
	return user, nil
}
