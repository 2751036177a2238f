package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rpattn/ctedash/internal/domain"
	"github.com/rpattn/ctedash/internal/repository"
	"github.com/rs/zerolog"
)

const (
	// MinPasswordLength is the shortest password accepted for new users.
	MinPasswordLength = 8
	// MaxPasswordLength is the bcrypt input limit, in bytes.
	MaxPasswordLength = 72
	// MaxUsernameLength matches the app_users.username column, in characters.
	MaxUsernameLength = 100
)

// NewUserRequest describes a login to create.
type NewUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Tenant   string `json:"tenant"`
	IsAdmin  bool   `json:"is_admin"`
}

// Service authenticates users and manages logins.
type Service struct {
	users  repository.UserRepository
	store  repository.TenantStore
	hasher Hasher
	logger zerolog.Logger
}

// NewService wires the auth service.
func NewService(users repository.UserRepository, store repository.TenantStore, hasher Hasher, logger zerolog.Logger) *Service {
	return &Service{users: users, store: store, hasher: hasher, logger: logger}
}

// Authenticate checks credentials and returns the session they open. Unknown
// users and wrong passwords are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, username, password string) (Session, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Session{}, domain.ErrUnauthorized
		}
		return Session{}, err
	}
	if !s.hasher.VerifyPassword(password, user.PasswordHash) {
		return Session{}, domain.ErrUnauthorized
	}
	return Session{Username: user.Username, Tenant: user.Tenant, Privileged: user.IsAdmin}, nil
}

// CreateUser adds a login and provisions its tenant table. Administrators only.
func (s *Service) CreateUser(ctx context.Context, req NewUserRequest) (domain.User, error) {
	if _, err := RequirePrivileged(ctx); err != nil {
		return domain.User{}, err
	}
	return s.createUser(ctx, req)
}

func (s *Service) createUser(ctx context.Context, req NewUserRequest) (domain.User, error) {
	username := strings.TrimSpace(req.Username)
	if username == "" {
		return domain.User{}, fmt.Errorf("%w: username is required", domain.ErrInvalidInput)
	}
	if utf8.RuneCountInString(username) > MaxUsernameLength {
		return domain.User{}, fmt.Errorf("%w: username must have at most %d characters", domain.ErrInvalidInput, MaxUsernameLength)
	}
	if len(req.Password) < MinPasswordLength {
		return domain.User{}, fmt.Errorf("%w: password must have at least %d characters", domain.ErrInvalidInput, MinPasswordLength)
	}
	if len(req.Password) > MaxPasswordLength {
		return domain.User{}, fmt.Errorf("%w: password must have at most %d bytes", domain.ErrInvalidInput, MaxPasswordLength)
	}
	tenant, err := domain.ParseTenantID(strings.TrimSpace(req.Tenant))
	if err != nil {
		return domain.User{}, err
	}

	hash, err := s.hasher.HashPassword(req.Password)
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.store.EnsureTable(ctx, tenant); err != nil {
		return domain.User{}, err
	}

	user, err := s.users.Create(ctx, domain.NewUser(username, hash, tenant, req.IsAdmin))
	if err != nil {
		return domain.User{}, err
	}
	s.logger.Info().Str("username", user.Username).Str("tenant", tenant.String()).Bool("admin", user.IsAdmin).Msg("user created")
	return user, nil
}

// ListUsers returns every login. Administrators only.
func (s *Service) ListUsers(ctx context.Context) ([]domain.User, error) {
	if _, err := RequirePrivileged(ctx); err != nil {
		return nil, err
	}
	return s.users.List(ctx)
}

// DeleteUser removes a login; the tenant's data stays. Administrators only,
// and never the caller's own login.
func (s *Service) DeleteUser(ctx context.Context, username string) error {
	session, err := RequirePrivileged(ctx)
	if err != nil {
		return err
	}
	if session.Username == username {
		return fmt.Errorf("%w: cannot delete the current user", domain.ErrInvalidInput)
	}
	if err := s.users.Delete(ctx, username); err != nil {
		return err
	}
	s.logger.Info().Str("username", username).Msg("user deleted")
	return nil
}

// Bootstrap creates the first administrator when no login exists yet. It
// reports whether a user was created.
func (s *Service) Bootstrap(ctx context.Context, req NewUserRequest) (bool, error) {
	count, err := s.users.Count(ctx)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}
	if req.Username == "" || req.Password == "" {
		s.logger.Warn().Msg("no users exist and no bootstrap admin is configured")
		return false, nil
	}

	req.IsAdmin = true
	if _, err := s.createUser(ctx, req); err != nil {
		return false, fmt.Errorf("failed to bootstrap admin: %w", err)
	}
	return true, nil
}
