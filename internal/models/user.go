package models

import (
	"github.com/golang-jwt/jwt/v4"
	"gorm.io/gorm"
)

// User is the account record (PostgreSQL). The notification core only
// reads it to resolve usernames and email addresses.
type User struct {
	gorm.Model  `json:"-"`
	ID          uint   `json:"id" gorm:"primaryKey"`
	Username    string `json:"username" gorm:"uniqueIndex"`
	Email       string `json:"email" gorm:"uniqueIndex"`
	Password    string `json:"-"` // hashed, never serialized
	FirebaseUID string `json:"firebase_uid,omitempty" gorm:"uniqueIndex"`
}

// Compact is the minimal user shape embedded in API responses.
type Compact struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

// ToCompact strips the user down to its embeddable form.
func (u *User) ToCompact() Compact {
	return Compact{ID: u.ID, Username: u.Username}
}

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims
type JwtCustomClaims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}
