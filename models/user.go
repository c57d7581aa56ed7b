// models/user.go
package models

import (
	"time"
)

type User struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Username    string `gorm:"uniqueIndex;not null;size:30" json:"username"`
	Email       string `gorm:"uniqueIndex;not null" json:"email,omitempty"`
	Password    string `gorm:"not null" json:"-"`
	DisplayName string `json:"display_name"`
	Bio         string `gorm:"type:text" json:"bio"`

	// Scoring
	Points int `gorm:"default:0" json:"points"`

	// Privileges
	IsAdmin  bool `gorm:"default:false" json:"is_admin"`
	IsBanned bool `gorm:"default:false" json:"is_banned"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	LastLogin time.Time `json:"last_login"`

	// Relationships
	Solves []Solve `gorm:"foreignKey:UserID" json:"solves,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// Sanitize strips fields that must never leave the server for other users.
func (u *User) Sanitize() {
	u.Password = ""
	u.Email = ""
}
