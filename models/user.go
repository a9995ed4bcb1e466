package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User represents a requester or administrator in the system.
type User struct {
	ID           uint   `json:"id" gorm:"primaryKey"`
	Username     string `json:"username" gorm:"uniqueIndex;not null"`
	PasswordHash string `json:"-" gorm:"not null"` // "-" means don't include in JSON responses

	// RoleID is the user's single assigned role. When it is unset, or the
	// role it points at has been deleted, policy resolution falls back to
	// the registry's default role.
	RoleID *uint `json:"role_id"`
	Role   *Role `json:"role,omitempty" gorm:"foreignKey:RoleID"`

	// IsAdmin is the legacy administrator flag kept for accounts that
	// predate the role system. When set it escalates every admin.* key
	// to true during policy resolution; it can never deny anything.
	IsAdmin bool `json:"is_admin"`

	IsActive bool `json:"is_active" gorm:"default:true"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SetPassword hashes the given password and sets it on the user model.
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

// CheckPassword verifies if the given password matches the user's hashed password.
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}
