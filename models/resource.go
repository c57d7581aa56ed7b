// models/resource.go - community learning resources / write-ups
package models

import (
	"time"
)

// Resource is a learning resource or blog post published by a user.
type Resource struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Title       string    `json:"title" gorm:"not null;size:150"`
	Description string    `json:"description" gorm:"type:text"`
	Content     string    `json:"content" gorm:"type:text"`
	Category    string    `json:"category" gorm:"size:50;index"`
	URL         string    `json:"url" gorm:"size:500"`
	AuthorID    uint      `json:"author_id" gorm:"not null;index"`
	Author      *User     `json:"author,omitempty" gorm:"foreignKey:AuthorID"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Resource) TableName() string {
	return "resources"
}
