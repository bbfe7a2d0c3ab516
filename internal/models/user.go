// internal/models/user.go
package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type User struct {
	BaseModel
	Email           string     `json:"email" gorm:"uniqueIndex;size:255;not null"`
	Name            string     `json:"name" gorm:"size:255"`
	Role            UserRole   `json:"role" gorm:"type:varchar(10);default:'USER'"`
	Picture         string     `json:"picture,omitempty" gorm:"size:512"`
	Phone           string     `json:"phone,omitempty" gorm:"size:30"`
	PasswordHash    string     `json:"-" gorm:"size:255"`
	EmailVerifiedAt *time.Time `json:"email_verified_at"`
	LastLoginAt     *time.Time `json:"last_login_at"`

	// Relationships
	Orders []Order `json:"orders,omitempty" gorm:"foreignKey:UserID"`
}

// SetPassword hashes and stores a password. Only the seeded admin account
// uses password login; everyone else signs in through the OAuth provider.
func (u *User) SetPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}
