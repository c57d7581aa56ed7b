// handlers/challenges.go - public challenge views and the scoring endpoints.
//
// Challenge payloads are sanitized: the flag never leaves the server, and
// hint texts are withheld until the viewer has a recorded reveal for them.
package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"flagforge/database"
	"flagforge/middleware"
	"flagforge/models"
	"flagforge/services"
)

// ChallengeView is the player-facing shape of a challenge.
type ChallengeView struct {
	ID          uint                 `json:"id"`
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Category    string               `json:"category"`
	Difficulty  string               `json:"difficulty"`
	Points      int                  `json:"points"`
	HintCount   int                  `json:"hint_count"`
	Resources   []models.ResourceRef `json:"resources,omitempty"`
	IsActive    bool                 `json:"is_active"`
	SolveCount  int                  `json:"solve_count"`
	Solved      bool                 `json:"solved"`
	CreatedAt   time.Time            `json:"created_at"`

	// Hints holds revealed hints only, keyed by index.
	Hints map[int]string `json:"hints,omitempty"`
}

func challengeView(challenge *models.Challenge, solved bool) ChallengeView {
	return ChallengeView{
		ID:          challenge.ID,
		Title:       challenge.Title,
		Description: challenge.Description,
		Category:    challenge.Category,
		Difficulty:  string(challenge.Difficulty),
		Points:      challenge.Points,
		HintCount:   len(challenge.HintList()),
		Resources:   challenge.ResourceList(),
		IsActive:    challenge.IsActive,
		SolveCount:  challenge.SolveCount,
		Solved:      solved,
		CreatedAt:   challenge.CreatedAt,
	}
}

// currentUser pulls the acting user from locals; zero when anonymous.
func currentUser(c *fiber.Ctx) (uint, string) {
	id, err := middleware.GetUserID(c)
	if err != nil {
		return 0, ""
	}
	name, _ := middleware.GetUsername(c)
	return id, name
}

// GetChallenges lists challenges. Non-admins only see active ones.
func GetChallenges(c *fiber.Ctx) error {
	db := database.GetDB()

	query := db.Model(&models.Challenge{}).Order("category ASC, points ASC")
	if !middleware.IsAdmin(c) {
		query = query.Where("is_active = ?", true)
	}
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	var challenges []models.Challenge
	if err := query.Find(&challenges).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to fetch challenges",
		})
	}

	userID, _ := currentUser(c)
	solved := map[uint]bool{}
	if userID != 0 {
		var solves []models.Solve
		if err := db.Where("user_id = ?", userID).Find(&solves).Error; err == nil {
			for _, s := range solves {
				solved[s.ChallengeID] = true
			}
		}
	}

	views := make([]ChallengeView, len(challenges))
	for i := range challenges {
		views[i] = challengeView(&challenges[i], solved[challenges[i].ID])
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"challenges": views,
		"total":      len(views),
	})
}

// GetChallenge returns one challenge with the viewer's revealed hints filled
// in. Inactive challenges 404 for non-admins.
func GetChallenge(c *fiber.Ctx) error {
	db := database.GetDB()
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid challenge id",
		})
	}

	var challenge models.Challenge
	if err := db.First(&challenge, id).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{
			"success": false,
			"error":   "Challenge not found",
		})
	}

	if !challenge.IsActive && !middleware.IsAdmin(c) {
		return c.Status(404).JSON(fiber.Map{
			"success": false,
			"error":   "Challenge not found",
		})
	}

	userID, _ := currentUser(c)
	view := challengeView(&challenge, scoring.HasSolved(userID, challenge.ID))

	if userID != 0 {
		indexes, err := scoring.RevealedHints(userID, challenge.ID)
		if err == nil && len(indexes) > 0 {
			hints := challenge.HintList()
			view.Hints = make(map[int]string, len(indexes))
			for _, idx := range indexes {
				if idx >= 0 && idx < len(hints) {
					view.Hints[idx] = hints[idx]
				}
			}
		}
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"challenge": view,
	})
}

type SubmitFlagRequest struct {
	Flag string `json:"flag"`
}

// SubmitFlag adjudicates a flag submission for the acting user.
func SubmitFlag(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid challenge id",
		})
	}

	var req SubmitFlagRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	userID, username := currentUser(c)
	result := scoring.SubmitFlag(userID, username, uint(id), req.Flag)
	services.ObserveSubmission(result.Status)

	if result.Status == services.SubmitSolved {
		// The session's cached point total is stale now; re-hydrate so
		// the next profile read shows the award.
		sessions.RefreshProfile(middleware.GetToken(c))
	}

	status := fiber.StatusOK
	switch result.Status {
	case services.SubmitRejected:
		status = fiber.StatusBadRequest
	case services.SubmitNotFound:
		status = fiber.StatusNotFound
	case services.SubmitError:
		status = fiber.StatusInternalServerError
	}

	return c.Status(status).JSON(fiber.Map{
		"success": result.Status == services.SubmitSolved,
		"result":  result,
	})
}

// RevealHint records a hint reveal and returns the hint text.
func RevealHint(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid challenge id",
		})
	}
	index, err := c.ParamsInt("index")
	if err != nil || index < 0 {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid hint index",
		})
	}

	userID, _ := currentUser(c)
	result := scoring.RevealHint(userID, uint(id), index)

	status := fiber.StatusOK
	switch result.Status {
	case services.HintRejected:
		status = fiber.StatusBadRequest
	case services.HintNotFound:
		status = fiber.StatusNotFound
	case services.HintError:
		status = fiber.StatusInternalServerError
	}
	if result.Status == services.HintRevealed {
		services.ObserveHintReveal()
	}

	return c.Status(status).JSON(fiber.Map{
		"success": result.Status == services.HintRevealed,
		"result":  result,
	})
}

// GetChallengeSolves lists who solved a challenge, newest first.
func GetChallengeSolves(c *fiber.Ctx) error {
	db := database.GetDB()
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid challenge id",
		})
	}

	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}

	var solves []models.Solve
	if err := db.Preload("User").
		Where("challenge_id = ?", id).
		Order("submitted_at DESC").
		Limit(limit).
		Find(&solves).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to fetch solves",
		})
	}

	type solveRow struct {
		Username    string    `json:"username"`
		SubmittedAt time.Time `json:"submitted_at"`
	}
	rows := make([]solveRow, 0, len(solves))
	for _, s := range solves {
		row := solveRow{SubmittedAt: s.SubmittedAt}
		if s.User != nil {
			row.Username = s.User.Username
		}
		rows = append(rows, row)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"solves":  rows,
		"total":   len(rows),
	})
}
