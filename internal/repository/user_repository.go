package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"userauth/internal/model"
)

var (
	// ErrNotFound is returned when no user matches a lookup or update target.
	ErrNotFound = errors.New("user not found")
	// ErrInvalidCriteria is returned for lookups on unknown fields and empty updates.
	ErrInvalidCriteria = errors.New("invalid user criteria")
	// ErrDuplicate is returned when a unique column (email or token) is already taken.
	ErrDuplicate = errors.New("duplicate user field")
)

// Field names a persisted User column.
type Field string

const (
	FieldID             Field = "id"
	FieldEmail          Field = "email"
	FieldHashedPassword Field = "hashed_password"
	FieldSessionID      Field = "session_id"
	FieldResetToken     Field = "reset_token"
)

// Valid reports whether f is a known User column.
func (f Field) Valid() bool {
	switch f {
	case FieldID, FieldEmail, FieldHashedPassword, FieldSessionID, FieldResetToken:
		return true
	}
	return false
}

// Criteria is a set of field equality conditions. A nil value matches NULL.
type Criteria map[Field]any

// Validate checks that the criteria is non-empty and names only known fields.
func (c Criteria) Validate() error {
	if len(c) == 0 {
		return fmt.Errorf("%w: empty criteria", ErrInvalidCriteria)
	}
	for f := range c {
		if !f.Valid() {
			return fmt.Errorf("%w: unknown field %q", ErrInvalidCriteria, f)
		}
	}
	return nil
}

func (c Criteria) columns() map[string]interface{} {
	cols := make(map[string]interface{}, len(c))
	for f, v := range c {
		cols[string(f)] = v
	}
	return cols
}

// UserUpdate is an immutable set of column changes. Only the mutable columns
// have setters, so an update can never name an unknown field.
type UserUpdate struct {
	values map[Field]any
}

func (u UserUpdate) with(f Field, v any) UserUpdate {
	values := make(map[Field]any, len(u.values)+1)
	for k, val := range u.values {
		values[k] = val
	}
	values[f] = v
	return UserUpdate{values: values}
}

// SetHashedPassword replaces the stored digest.
func (u UserUpdate) SetHashedPassword(digest []byte) UserUpdate {
	return u.with(FieldHashedPassword, digest)
}

// SetSessionID stores a new session token.
func (u UserUpdate) SetSessionID(token string) UserUpdate {
	return u.with(FieldSessionID, token)
}

// ClearSessionID removes the session token.
func (u UserUpdate) ClearSessionID() UserUpdate {
	return u.with(FieldSessionID, nil)
}

// SetResetToken stores a new password reset token.
func (u UserUpdate) SetResetToken(token string) UserUpdate {
	return u.with(FieldResetToken, token)
}

// ClearResetToken removes the password reset token.
func (u UserUpdate) ClearResetToken() UserUpdate {
	return u.with(FieldResetToken, nil)
}

// IsEmpty reports whether the update changes nothing.
func (u UserUpdate) IsEmpty() bool {
	return len(u.values) == 0
}

// Fields returns a copy of the pending changes keyed by field.
func (u UserUpdate) Fields() map[Field]any {
	out := make(map[Field]any, len(u.values))
	for k, v := range u.values {
		out[k] = v
	}
	return out
}

func (u UserUpdate) columns() map[string]interface{} {
	cols := make(map[string]interface{}, len(u.values))
	for f, v := range u.values {
		cols[string(f)] = v
	}
	return cols
}

// UserRepository defines user persistence operations.
type UserRepository interface {
	FindOne(ctx context.Context, criteria Criteria) (*model.User, error)
	FindOneForUpdate(ctx context.Context, criteria Criteria) (*model.User, error)
	Add(ctx context.Context, email string, hashedPassword []byte) (*model.User, error)
	Update(ctx context.Context, userID uint, update UserUpdate) error
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repo UserRepository) error) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// FindOne returns the first user, by id, matching criteria.
func (r *userRepository) FindOne(ctx context.Context, criteria Criteria) (*model.User, error) {
	return r.findOne(r.db.WithContext(ctx), criteria)
}

// FindOneForUpdate is FindOne with a row lock held until the surrounding transaction ends.
func (r *userRepository) FindOneForUpdate(ctx context.Context, criteria Criteria) (*model.User, error) {
	return r.findOne(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), criteria)
}

func (r *userRepository) findOne(tx *gorm.DB, criteria Criteria) (*model.User, error) {
	if err := criteria.Validate(); err != nil {
		return nil, err
	}
	var user model.User
	if err := tx.Where(criteria.columns()).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

// Add persists a new user.
func (r *userRepository) Add(ctx context.Context, email string, hashedPassword []byte) (*model.User, error) {
	user := &model.User{
		Email:          email,
		HashedPassword: hashedPassword,
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Update applies update to the user with the given id.
func (r *userRepository) Update(ctx context.Context, userID uint, update UserUpdate) error {
	if update.IsEmpty() {
		return fmt.Errorf("%w: empty update", ErrInvalidCriteria)
	}
	res := r.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", userID).
		Updates(update.columns())
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return fmt.Errorf("update user %d: %w", userID, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	// MySQL reports zero affected rows when values are unchanged, so confirm the row exists.
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return fmt.Errorf("check user %d: %w", userID, err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

// WithTransaction executes a function within a database transaction.
func (r *userRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo UserRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := &userRepository{db: tx}
		return fn(ctx, txRepo)
	})
}
