// handlers/users.go - profile endpoints.
package handlers

import (
	"github.com/gofiber/fiber/v2"

	"flagforge/database"
	"flagforge/middleware"
	"flagforge/models"
	"flagforge/services"
)

// GetUserProfile returns a public profile with the user's solves.
func GetUserProfile(c *fiber.Ctx) error {
	db := database.GetDB()
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid user id",
		})
	}

	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{
			"success": false,
			"error":   "User not found",
		})
	}
	user.Sanitize()

	var solves []models.Solve
	db.Preload("Challenge").
		Where("user_id = ?", user.ID).
		Order("submitted_at DESC").
		Find(&solves)

	type solvedChallenge struct {
		ChallengeID uint   `json:"challenge_id"`
		Title       string `json:"title"`
		Category    string `json:"category"`
		Points      int    `json:"points"`
	}
	captured := make([]solvedChallenge, 0, len(solves))
	for _, s := range solves {
		if s.Challenge == nil || !s.Challenge.IsActive {
			continue
		}
		captured = append(captured, solvedChallenge{
			ChallengeID: s.Challenge.ID,
			Title:       s.Challenge.Title,
			Category:    s.Challenge.Category,
			Points:      s.Challenge.Points,
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
		"solves":  captured,
	})
}

// UpdateCurrentUser applies a partial update (display name, bio) to the
// caller's own profile.
func UpdateCurrentUser(c *fiber.Ctx) error {
	var update services.ProfileUpdate
	if err := c.BodyParser(&update); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	user, err := sessions.UpdateProfile(middleware.GetToken(c), update)
	if err != nil {
		switch err {
		case services.ErrNotAuthenticated:
			return c.Status(401).JSON(fiber.Map{
				"success": false,
				"error":   "Session expired, please sign in again",
			})
		case services.ErrValidation:
			return c.Status(400).JSON(fiber.Map{
				"success": false,
				"error":   "Nothing to update",
			})
		default:
			return c.Status(500).JSON(fiber.Map{
				"success": false,
				"error":   "Failed to update profile",
			})
		}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    userInfo(user),
	})
}
