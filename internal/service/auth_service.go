package service

import (
	"context"
	"errors"
	"fmt"

	"userauth/internal/auth"
	"userauth/internal/logging"
	"userauth/internal/model"
	"userauth/internal/repository"
)

var (
	// ErrAlreadyRegistered is returned when registering an email that is taken.
	ErrAlreadyRegistered = errors.New("email already registered")
	// ErrNotFound is returned when the email, session token or reset token matches no user.
	ErrNotFound = errors.New("user not found")
)

// AuthService handles registration, sessions and password resets.
type AuthService interface {
	Register(ctx context.Context, email, password string) (*model.User, error)
	ValidLogin(ctx context.Context, email, password string) bool
	CreateSession(ctx context.Context, email string) (string, error)
	GetUserBySession(ctx context.Context, sessionID string) (*model.User, error)
	DestroySession(ctx context.Context, userID uint) error
	RequestPasswordReset(ctx context.Context, email string) (string, error)
	CompletePasswordReset(ctx context.Context, resetToken, newPassword string) error
}

// Options tunes AuthService behavior.
type Options struct {
	// RevokeSessionOnReset clears the user's session when a password reset completes.
	RevokeSessionOnReset bool
}

type authService struct {
	users  repository.UserRepository
	hasher auth.Hasher
	ids    auth.IDGenerator
	log    logging.Logger
	opts   Options
}

// NewAuthService creates a new authentication service.
func NewAuthService(users repository.UserRepository, hasher auth.Hasher, ids auth.IDGenerator, log logging.Logger, opts Options) AuthService {
	return &authService{
		users:  users,
		hasher: hasher,
		ids:    ids,
		log:    log.With("component", "auth_service"),
		opts:   opts,
	}
}

// Register creates a user with a hashed password. No session is created.
func (s *authService) Register(ctx context.Context, email, password string) (*model.User, error) {
	_, err := s.users.FindOne(ctx, repository.Criteria{repository.FieldEmail: email})
	if err == nil {
		return nil, ErrAlreadyRegistered
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check user existence: %w", err)
	}

	digest, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Add(ctx, email, digest)
	if err != nil {
		// Lost a race with a concurrent registration for the same email.
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyRegistered
		}
		return nil, fmt.Errorf("add user: %w", err)
	}

	s.log.Info(ctx, "user registered", "user_id", user.ID)
	return user, nil
}

// ValidLogin reports whether password is correct for email. Lookup failures fold to false.
func (s *authService) ValidLogin(ctx context.Context, email, password string) bool {
	user, err := s.users.FindOne(ctx, repository.Criteria{repository.FieldEmail: email})
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.Warn(ctx, "login lookup failed", "error", err)
		}
		return false
	}
	return s.hasher.Verify(user.HashedPassword, password)
}

// CreateSession issues a new session token for email, superseding any previous one.
func (s *authService) CreateSession(ctx context.Context, email string) (string, error) {
	user, err := s.users.FindOne(ctx, repository.Criteria{repository.FieldEmail: email})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("find user: %w", err)
	}

	sessionID := s.ids.NewID()
	if err := s.users.Update(ctx, user.ID, repository.UserUpdate{}.SetSessionID(sessionID)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("store session: %w", err)
	}
	if user.HasSession() {
		s.log.Info(ctx, "session replaced", "user_id", user.ID)
	}
	return sessionID, nil
}

// GetUserBySession resolves a session token. It returns nil, nil for an empty
// or unknown token; only store failures are errors.
func (s *authService) GetUserBySession(ctx context.Context, sessionID string) (*model.User, error) {
	if sessionID == "" {
		return nil, nil
	}
	user, err := s.users.FindOne(ctx, repository.Criteria{repository.FieldSessionID: sessionID})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return user, nil
}

// DestroySession clears the user's session. A missing user is not an error.
func (s *authService) DestroySession(ctx context.Context, userID uint) error {
	err := s.users.Update(ctx, userID, repository.UserUpdate{}.ClearSessionID())
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		s.log.Warn(ctx, "destroy session for unknown user", "user_id", userID)
		return nil
	}
	return fmt.Errorf("clear session: %w", err)
}

// RequestPasswordReset issues a reset token for email, superseding any pending one.
// The current session is left intact.
func (s *authService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.users.FindOne(ctx, repository.Criteria{repository.FieldEmail: email})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("find user: %w", err)
	}

	resetToken := s.ids.NewID()
	if err := s.users.Update(ctx, user.ID, repository.UserUpdate{}.SetResetToken(resetToken)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("store reset token: %w", err)
	}

	s.log.Info(ctx, "password reset requested", "user_id", user.ID, "superseded", user.HasPendingReset())
	return resetToken, nil
}

// CompletePasswordReset consumes resetToken and replaces the password.
// The new password is hashed before the transaction so the row lock taken by
// the token lookup is held only for the update. A token is used at most once.
func (s *authService) CompletePasswordReset(ctx context.Context, resetToken, newPassword string) error {
	if resetToken == "" {
		return ErrNotFound
	}

	digest, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}

	var userID uint
	err = s.users.WithTransaction(ctx, func(ctx context.Context, repo repository.UserRepository) error {
		user, err := repo.FindOneForUpdate(ctx, repository.Criteria{repository.FieldResetToken: resetToken})
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("find reset token: %w", err)
		}

		update := repository.UserUpdate{}.
			SetHashedPassword(digest).
			ClearResetToken()
		if s.opts.RevokeSessionOnReset && user.HasSession() {
			update = update.ClearSessionID()
		}
		if err := repo.Update(ctx, user.ID, update); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("update password: %w", err)
		}
		userID = user.ID
		return nil
	})
	if err != nil {
		return err
	}

	s.log.Info(ctx, "password reset completed", "user_id", userID)
	return nil
}
