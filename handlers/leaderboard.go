// handlers/leaderboard.go
package handlers

import (
	"github.com/gofiber/fiber/v2"

	"flagforge/database"
	"flagforge/models"
)

type LeaderboardRow struct {
	Rank        int    `json:"rank"`
	UserID      uint   `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	Points      int    `json:"points"`
	Solves      int    `json:"solves"`
}

// GetLeaderboard returns the scoreboard, best first. The Redis ZSet answers
// the ordering when available; Postgres remains the source of truth and backs
// the row data either way.
func GetLeaderboard(c *fiber.Ctx) error {
	db := database.GetDB()

	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}

	// Cached path: ordering from Redis, user rows hydrated from SQL.
	if entries, err := boards.Top(int64(limit)); err == nil && entries != nil {
		ids := make([]uint, len(entries))
		for i, e := range entries {
			ids[i] = e.UserID
		}

		var users []models.User
		if err := db.Where("id IN ?", ids).Find(&users).Error; err == nil {
			byID := make(map[uint]*models.User, len(users))
			for i := range users {
				byID[users[i].ID] = &users[i]
			}

			rows := make([]LeaderboardRow, 0, len(entries))
			for _, e := range entries {
				user, ok := byID[e.UserID]
				if !ok {
					continue
				}
				rows = append(rows, LeaderboardRow{
					Rank:        int(e.Rank),
					UserID:      user.ID,
					Username:    user.Username,
					DisplayName: user.DisplayName,
					Points:      e.Score,
				})
			}
			fillSolveCounts(rows)
			return c.JSON(fiber.Map{
				"success":     true,
				"leaderboard": rows,
				"source":      "cache",
			})
		}
	}

	// Fallback: straight SQL ordering.
	var users []models.User
	if err := db.Order("points DESC, username ASC").Limit(limit).Find(&users).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to fetch leaderboard",
		})
	}

	rows := make([]LeaderboardRow, len(users))
	for i, user := range users {
		rows[i] = LeaderboardRow{
			Rank:        i + 1,
			UserID:      user.ID,
			Username:    user.Username,
			DisplayName: user.DisplayName,
			Points:      user.Points,
		}
	}
	fillSolveCounts(rows)

	return c.JSON(fiber.Map{
		"success":     true,
		"leaderboard": rows,
	})
}

// fillSolveCounts decorates rows with each user's solve count.
func fillSolveCounts(rows []LeaderboardRow) {
	if len(rows) == 0 {
		return
	}
	db := database.GetDB()

	ids := make([]uint, len(rows))
	for i, row := range rows {
		ids[i] = row.UserID
	}

	type countRow struct {
		UserID uint
		Count  int
	}
	var counts []countRow
	if err := db.Model(&models.Solve{}).
		Select("user_id, COUNT(*) as count").
		Where("user_id IN ?", ids).
		Group("user_id").
		Scan(&counts).Error; err != nil {
		return
	}

	byID := make(map[uint]int, len(counts))
	for _, cr := range counts {
		byID[cr.UserID] = cr.Count
	}
	for i := range rows {
		rows[i].Solves = byID[rows[i].UserID]
	}
}

// GetUserRank returns one user's rank and total.
func GetUserRank(c *fiber.Ctx) error {
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

	rank := boards.Rank(user.ID)
	if rank == 0 {
		var ahead int64
		db.Model(&models.User{}).Where("points > ?", user.Points).Count(&ahead)
		rank = ahead + 1
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"user_id":  user.ID,
		"username": user.Username,
		"points":   user.Points,
		"rank":     rank,
	})
}
