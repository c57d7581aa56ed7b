// services/stores.go - storage contracts for the session and scoring cores,
// plus their GORM-backed implementations. Tests substitute in-memory fakes.
package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"flagforge/models"
)

// UserStore is the profile/account storage the SessionManager works against.
type UserStore interface {
	FindByID(id uint) (*models.User, error)
	FindByEmail(email string) (*models.User, error)
	FindByUsername(username string) (*models.User, error)
	Create(user *models.User) error
	Update(id uint, fields map[string]interface{}) error
}

// ScoreStore is the challenge/solve/hint storage the ScoringEngine works
// against. CreateSolve and CreateHintReveal must return ErrDuplicate when the
// row already exists so concurrent duplicates resolve deterministically.
type ScoreStore interface {
	GetChallenge(id uint) (*models.Challenge, error)
	HasSolve(userID, challengeID uint) (bool, error)
	CreateSolve(solve *models.Solve) error
	// AwardPoints atomically increments a user's points and returns the
	// freshly committed total.
	AwardPoints(userID uint, points int) (int, error)
	CreateHintReveal(reveal *models.HintReveal) error
	RevealedHints(userID, challengeID uint) ([]int, error)
}

// --- GORM implementations ---

type GormUserStore struct {
	db *gorm.DB
}

func NewGormUserStore(db *gorm.DB) *GormUserStore {
	return &GormUserStore{db: db}
}

func (s *GormUserStore) FindByID(id uint) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormUserStore) FindByEmail(email string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormUserStore) FindByUsername(username string) (*models.User, error) {
	var user models.User
	if err := s.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormUserStore) Create(user *models.User) error {
	return translate(s.db.Create(user).Error)
}

func (s *GormUserStore) Update(id uint, fields map[string]interface{}) error {
	return translate(s.db.Model(&models.User{}).Where("id = ?", id).Updates(fields).Error)
}

type GormScoreStore struct {
	db *gorm.DB
}

func NewGormScoreStore(db *gorm.DB) *GormScoreStore {
	return &GormScoreStore{db: db}
}

func (s *GormScoreStore) GetChallenge(id uint) (*models.Challenge, error) {
	var challenge models.Challenge
	if err := s.db.First(&challenge, id).Error; err != nil {
		return nil, translate(err)
	}
	return &challenge, nil
}

func (s *GormScoreStore) HasSolve(userID, challengeID uint) (bool, error) {
	var count int64
	err := s.db.Model(&models.Solve{}).
		Where("user_id = ? AND challenge_id = ?", userID, challengeID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *GormScoreStore) CreateSolve(solve *models.Solve) error {
	// The solve insert and the per-challenge counter move together. The
	// unique index on (user_id, challenge_id) rejects the second of two
	// concurrent inserts, rolling its counter bump back with it.
	return translate(s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(solve).Error; err != nil {
			return err
		}
		return tx.Model(&models.Challenge{}).
			Where("id = ?", solve.ChallengeID).
			UpdateColumn("solve_count", gorm.Expr("solve_count + 1")).Error
	}))
}

func (s *GormScoreStore) AwardPoints(userID uint, points int) (int, error) {
	err := s.db.Model(&models.User{}).
		Where("id = ?", userID).
		UpdateColumn("points", gorm.Expr("points + ?", points)).Error
	if err != nil {
		return 0, err
	}

	// Re-read the committed total rather than trusting any cached value.
	var user models.User
	if err := s.db.Select("points").First(&user, userID).Error; err != nil {
		return 0, translate(err)
	}
	return user.Points, nil
}

func (s *GormScoreStore) CreateHintReveal(reveal *models.HintReveal) error {
	return translate(s.db.Create(reveal).Error)
}

func (s *GormScoreStore) RevealedHints(userID, challengeID uint) ([]int, error) {
	var reveals []models.HintReveal
	err := s.db.Where("user_id = ? AND challenge_id = ?", userID, challengeID).
		Order("hint_index ASC").
		Find(&reveals).Error
	if err != nil {
		return nil, err
	}

	indexes := make([]int, len(reveals))
	for i, r := range reveals {
		indexes[i] = r.HintIndex
	}
	return indexes, nil
}

// translate maps GORM's errors onto the service-layer sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}

// now is separated out so tests can pin timestamps if needed.
var now = time.Now
