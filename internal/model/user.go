package model

import "time"

// User is the identity record owned by the user store.
// SessionID and ResetToken are nil when no session or reset is pending.
// Email and token columns use a binary collation so lookups are case-sensitive.
type User struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	Email          string    `json:"email" gorm:"type:varchar(255) COLLATE utf8mb4_bin;uniqueIndex;not null"`
	HashedPassword []byte    `json:"-" gorm:"size:255;not null"` // Never expose in JSON
	SessionID      *string   `json:"-" gorm:"type:varchar(36) COLLATE utf8mb4_bin;uniqueIndex"`
	ResetToken     *string   `json:"-" gorm:"type:varchar(36) COLLATE utf8mb4_bin;uniqueIndex"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// HasSession reports whether the user currently holds a session token.
func (u *User) HasSession() bool {
	return u.SessionID != nil && *u.SessionID != ""
}

// HasPendingReset reports whether a password reset has been requested and not completed.
func (u *User) HasPendingReset() bool {
	return u.ResetToken != nil && *u.ResetToken != ""
}
