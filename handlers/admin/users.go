// handlers/admin/users.go - user management. Every route here sits behind
// AdminAuthMiddleware, which re-derives the admin flag from the database.
package admin

import (
	"github.com/gofiber/fiber/v2"

	"flagforge/database"
	"flagforge/models"
)

// GetUsers returns all users with pagination
func GetUsers(c *fiber.Ctx) error {
	db := database.GetDB()

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}
	search := c.Query("search", "")

	offset := (page - 1) * limit

	var users []models.User
	var total int64

	query := db.Model(&models.User{})

	// Apply search filter if provided
	if search != "" {
		query = query.Where("username ILIKE ? OR email ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	query.Count(&total)

	if err := query.Order("id ASC").Offset(offset).Limit(limit).Find(&users).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to fetch users",
		})
	}

	return c.JSON(fiber.Map{
		"users": users,
		"total": total,
		"page":  page,
		"limit": limit,
	})
}

// GetUser returns a single user by ID
func GetUser(c *fiber.Ctx) error {
	db := database.GetDB()
	id := c.Params("id")

	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	return c.JSON(user)
}

// UpdateUser updates a user's privileges and scoring fields. This is the one
// place the admin flag is writable, and it lands in the database, never in
// any client-held state.
func UpdateUser(c *fiber.Ctx) error {
	db := database.GetDB()
	id := c.Params("id")

	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	var updateData struct {
		DisplayName *string `json:"display_name"`
		Bio         *string `json:"bio"`
		Points      *int    `json:"points"`
		IsAdmin     *bool   `json:"is_admin"`
		IsBanned    *bool   `json:"is_banned"`
	}

	if err := c.BodyParser(&updateData); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	fields := map[string]interface{}{}
	if updateData.DisplayName != nil {
		fields["display_name"] = *updateData.DisplayName
	}
	if updateData.Bio != nil {
		fields["bio"] = *updateData.Bio
	}
	if updateData.Points != nil {
		if *updateData.Points < 0 {
			return c.Status(400).JSON(fiber.Map{
				"error": "Points cannot be negative",
			})
		}
		fields["points"] = *updateData.Points
	}
	if updateData.IsAdmin != nil {
		fields["is_admin"] = *updateData.IsAdmin
	}
	if updateData.IsBanned != nil {
		fields["is_banned"] = *updateData.IsBanned
	}

	if len(fields) == 0 {
		return c.Status(400).JSON(fiber.Map{
			"error": "Nothing to update",
		})
	}

	if err := db.Model(&user).Updates(fields).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to update user",
		})
	}

	if updateData.Points != nil {
		boards.Set(user.ID, *updateData.Points)
	}

	db.First(&user, user.ID)
	return c.JSON(fiber.Map{
		"success": true,
		"user":    user,
	})
}

// DeleteUser removes a user and their solves.
func DeleteUser(c *fiber.Ctx) error {
	db := database.GetDB()
	id := c.Params("id")

	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{
			"error": "User not found",
		})
	}

	if err := db.Where("user_id = ?", user.ID).Delete(&models.Solve{}).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to delete user solves",
		})
	}
	db.Where("user_id = ?", user.ID).Delete(&models.HintReveal{})

	if err := db.Delete(&user).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{
			"error": "Failed to delete user",
		})
	}

	boards.Remove(user.ID)

	return c.JSON(fiber.Map{
		"success": true,
		"message": "User deleted",
	})
}
