// handlers/admin/challenges.go - challenge content management.
package admin

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"flagforge/database"
	"flagforge/models"
)

type ChallengeRequest struct {
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Category    string               `json:"category"`
	Difficulty  string               `json:"difficulty"`
	Points      int                  `json:"points"`
	Flag        string               `json:"flag"`
	Hints       []string             `json:"hints"`
	Resources   []models.ResourceRef `json:"resources"`
	IsActive    *bool                `json:"is_active"`
}

// adminChallengeJSON is the admin-facing shape: unlike the player view it
// includes the flag and the full hint list.
func adminChallengeJSON(challenge *models.Challenge) fiber.Map {
	return fiber.Map{
		"id":          challenge.ID,
		"title":       challenge.Title,
		"description": challenge.Description,
		"category":    challenge.Category,
		"difficulty":  challenge.Difficulty,
		"points":      challenge.Points,
		"flag":        challenge.Flag,
		"hints":       challenge.HintList(),
		"resources":   challenge.ResourceList(),
		"is_active":   challenge.IsActive,
		"solve_count": challenge.SolveCount,
		"created_at":  challenge.CreatedAt,
	}
}

func validateChallengeRequest(req *ChallengeRequest) string {
	if strings.TrimSpace(req.Title) == "" {
		return "Title is required"
	}
	if strings.TrimSpace(req.Flag) == "" {
		return "Flag is required"
	}
	if req.Points <= 0 {
		return "Points must be positive"
	}
	if !models.ValidDifficulty(models.ChallengeDifficulty(req.Difficulty)) {
		return "Difficulty must be easy, medium or hard"
	}
	return ""
}

// GetChallenges returns all challenges including inactive ones and flags.
func GetChallenges(c *fiber.Ctx) error {
	db := database.GetDB()

	var challenges []models.Challenge
	if err := db.Order("category ASC, points ASC").Find(&challenges).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to fetch challenges",
		})
	}

	out := make([]fiber.Map, len(challenges))
	for i := range challenges {
		out[i] = adminChallengeJSON(&challenges[i])
	}

	return c.JSON(fiber.Map{
		"challenges": out,
		"total":      len(out),
	})
}

// CreateChallenge adds a new challenge.
func CreateChallenge(c *fiber.Ctx) error {
	var req ChallengeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if msg := validateChallengeRequest(&req); msg != "" {
		return c.Status(400).JSON(fiber.Map{"error": msg})
	}

	challenge := models.Challenge{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Category:    req.Category,
		Difficulty:  models.ChallengeDifficulty(req.Difficulty),
		Points:      req.Points,
		Flag:        strings.TrimSpace(req.Flag),
		IsActive:    true,
	}
	if req.IsActive != nil {
		challenge.IsActive = *req.IsActive
	}
	if err := challenge.SetHintList(req.Hints); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid hints"})
	}
	if err := challenge.SetResourceList(req.Resources); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid resources"})
	}

	db := database.GetDB()
	if err := db.Create(&challenge).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to create challenge",
		})
	}

	return c.Status(201).JSON(fiber.Map{
		"success":   true,
		"challenge": adminChallengeJSON(&challenge),
	})
}

// UpdateChallenge edits a challenge. Changing the points value does not touch
// historical awards; totals already granted stand.
func UpdateChallenge(c *fiber.Ctx) error {
	db := database.GetDB()
	id := c.Params("id")

	var challenge models.Challenge
	if err := db.First(&challenge, id).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{
			"error": "Challenge not found",
		})
	}

	var req ChallengeRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if msg := validateChallengeRequest(&req); msg != "" {
		return c.Status(400).JSON(fiber.Map{"error": msg})
	}

	challenge.Title = strings.TrimSpace(req.Title)
	challenge.Description = req.Description
	challenge.Category = req.Category
	challenge.Difficulty = models.ChallengeDifficulty(req.Difficulty)
	challenge.Points = req.Points
	challenge.Flag = strings.TrimSpace(req.Flag)
	if req.IsActive != nil {
		challenge.IsActive = *req.IsActive
	}
	if err := challenge.SetHintList(req.Hints); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid hints"})
	}
	if err := challenge.SetResourceList(req.Resources); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Invalid resources"})
	}

	if err := db.Save(&challenge).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to update challenge",
		})
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"challenge": adminChallengeJSON(&challenge),
	})
}

// DeleteChallenge removes a challenge along with its solves and reveals.
func DeleteChallenge(c *fiber.Ctx) error {
	db := database.GetDB()
	id := c.Params("id")

	var challenge models.Challenge
	if err := db.First(&challenge, id).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{
			"error": "Challenge not found",
		})
	}

	db.Where("challenge_id = ?", challenge.ID).Delete(&models.Solve{})
	db.Where("challenge_id = ?", challenge.ID).Delete(&models.HintReveal{})

	if err := db.Delete(&challenge).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to delete challenge",
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "Challenge deleted",
	})
}

// GetSolves lists recent solves across all challenges.
func GetSolves(c *fiber.Ctx) error {
	db := database.GetDB()

	limit := c.QueryInt("limit", 100)
	if limit < 1 || limit > 500 {
		limit = 100
	}

	var solves []models.Solve
	if err := db.Preload("User").Preload("Challenge").
		Order("submitted_at DESC").
		Limit(limit).
		Find(&solves).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to fetch solves",
		})
	}

	return c.JSON(fiber.Map{
		"solves": solves,
		"total":  len(solves),
	})
}
