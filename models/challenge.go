// models/challenge.go - Challenge, Solve and HintReveal data models
package models

import (
	"encoding/json"
	"time"
)

type ChallengeDifficulty string

const (
	DifficultyEasy   ChallengeDifficulty = "easy"
	DifficultyMedium ChallengeDifficulty = "medium"
	DifficultyHard   ChallengeDifficulty = "hard"
)

// ValidDifficulty reports whether d is one of the three accepted levels.
func ValidDifficulty(d ChallengeDifficulty) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// ResourceRef is an external reference attached to a challenge.
type ResourceRef struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Challenge represents a CTF challenge. The flag is a secret: it is never
// serialized to JSON and only admin endpoints may return it explicitly.
// Hints and Resources are stored as JSON text columns.
type Challenge struct {
	ID          uint                `json:"id" gorm:"primaryKey"`
	Title       string              `json:"title" gorm:"not null;size:150"`
	Description string              `json:"description" gorm:"type:text"`
	Category    string              `json:"category" gorm:"size:50;index"`
	Difficulty  ChallengeDifficulty `json:"difficulty" gorm:"not null;default:'medium';size:20"`
	Points      int                 `json:"points" gorm:"not null"`
	Flag        string              `json:"-" gorm:"not null;size:255"`
	Hints       string              `json:"-" gorm:"type:text"`
	Resources   string              `json:"-" gorm:"type:text"`
	IsActive    bool                `json:"is_active" gorm:"default:true;index"`
	SolveCount  int                 `json:"solve_count" gorm:"default:0"`
	CreatedBy   *uint               `json:"created_by" gorm:"index"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func (Challenge) TableName() string {
	return "challenges"
}

// HintList decodes the hints column. A malformed column decodes to no hints.
func (c *Challenge) HintList() []string {
	if c.Hints == "" {
		return nil
	}
	var hints []string
	if err := json.Unmarshal([]byte(c.Hints), &hints); err != nil {
		return nil
	}
	return hints
}

// SetHintList encodes hints into the hints column.
func (c *Challenge) SetHintList(hints []string) error {
	if hints == nil {
		c.Hints = ""
		return nil
	}
	raw, err := json.Marshal(hints)
	if err != nil {
		return err
	}
	c.Hints = string(raw)
	return nil
}

// ResourceList decodes the resources column.
func (c *Challenge) ResourceList() []ResourceRef {
	if c.Resources == "" {
		return nil
	}
	var refs []ResourceRef
	if err := json.Unmarshal([]byte(c.Resources), &refs); err != nil {
		return nil
	}
	return refs
}

// SetResourceList encodes refs into the resources column.
func (c *Challenge) SetResourceList(refs []ResourceRef) error {
	if refs == nil {
		c.Resources = ""
		return nil
	}
	raw, err := json.Marshal(refs)
	if err != nil {
		return err
	}
	c.Resources = string(raw)
	return nil
}

// Solve records that a user captured a challenge's flag. The unique index on
// (user_id, challenge_id) is the exactly-once guarantee for point awards.
type Solve struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	UserID      uint       `json:"user_id" gorm:"not null;uniqueIndex:idx_solves_user_challenge"`
	ChallengeID uint       `json:"challenge_id" gorm:"not null;uniqueIndex:idx_solves_user_challenge"`
	User        *User      `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Challenge   *Challenge `json:"challenge,omitempty" gorm:"foreignKey:ChallengeID"`
	SubmittedAt time.Time  `json:"submitted_at" gorm:"not null;index"`
}

func (Solve) TableName() string {
	return "solves"
}

// HintReveal records that a user unlocked one hint of a challenge. Inserts are
// idempotent: the unique index on the triple absorbs duplicate reveals.
type HintReveal struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	UserID      uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_hint_reveals_triple"`
	ChallengeID uint      `json:"challenge_id" gorm:"not null;uniqueIndex:idx_hint_reveals_triple"`
	HintIndex   int       `json:"hint_index" gorm:"not null;uniqueIndex:idx_hint_reveals_triple"`
	RevealedAt  time.Time `json:"revealed_at"`
}

func (HintReveal) TableName() string {
	return "hint_reveals"
}
