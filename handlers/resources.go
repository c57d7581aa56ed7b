// handlers/resources.go - community learning resources / write-ups.
package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"flagforge/database"
	"flagforge/middleware"
	"flagforge/models"
)

type ResourceRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	Category    string `json:"category"`
	URL         string `json:"url"`
}

// GetResources lists published resources, newest first.
func GetResources(c *fiber.Ctx) error {
	db := database.GetDB()

	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}

	query := db.Preload("Author").Order("created_at DESC").Limit(limit)
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	var resources []models.Resource
	if err := query.Find(&resources).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to fetch resources",
		})
	}

	for i := range resources {
		if resources[i].Author != nil {
			resources[i].Author.Sanitize()
		}
	}

	return c.JSON(fiber.Map{
		"success":   true,
		"resources": resources,
		"total":     len(resources),
	})
}

// GetResource returns a single resource.
func GetResource(c *fiber.Ctx) error {
	db := database.GetDB()
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid resource id",
		})
	}

	var resource models.Resource
	if err := db.Preload("Author").First(&resource, id).Error; err != nil {
		return c.Status(404).JSON(fiber.Map{
			"success": false,
			"error":   "Resource not found",
		})
	}
	if resource.Author != nil {
		resource.Author.Sanitize()
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"resource": resource,
	})
}

// CreateResource publishes a resource authored by the acting user.
func CreateResource(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Status(401).JSON(fiber.Map{
			"success": false,
			"error":   "Unauthorized",
		})
	}

	var req ResourceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	if strings.TrimSpace(req.Title) == "" {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"error":   "Title is required",
		})
	}

	resource := models.Resource{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Content:     req.Content,
		Category:    req.Category,
		URL:         req.URL,
		AuthorID:    userID,
		CreatedAt:   time.Now(),
	}

	db := database.GetDB()
	if err := db.Create(&resource).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to create resource",
		})
	}

	return c.Status(201).JSON(fiber.Map{
		"success":  true,
		"resource": resource,
	})
}

// UpdateResource edits a resource. Author or admin only.
func UpdateResource(c *fiber.Ctx) error {
	resource, errResp := loadOwnedResource(c)
	if resource == nil {
		return errResp
	}

	var req ResourceRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid request body",
		})
	}

	if strings.TrimSpace(req.Title) != "" {
		resource.Title = strings.TrimSpace(req.Title)
	}
	resource.Description = req.Description
	resource.Content = req.Content
	resource.Category = req.Category
	resource.URL = req.URL

	db := database.GetDB()
	if err := db.Save(resource).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to update resource",
		})
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"resource": resource,
	})
}

// DeleteResource removes a resource. Author or admin only.
func DeleteResource(c *fiber.Ctx) error {
	resource, errResp := loadOwnedResource(c)
	if resource == nil {
		return errResp
	}

	db := database.GetDB()
	if err := db.Delete(resource).Error; err != nil {
		return c.Status(500).JSON(fiber.Map{
			"success": false,
			"error":   "Failed to delete resource",
		})
	}

	return c.JSON(fiber.Map{"success": true})
}

// loadOwnedResource fetches the resource and enforces author-or-admin. The
// admin check goes through a fresh profile read, never a client-held flag.
func loadOwnedResource(c *fiber.Ctx) (*models.Resource, error) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return nil, c.Status(401).JSON(fiber.Map{
			"success": false,
			"error":   "Unauthorized",
		})
	}

	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return nil, c.Status(400).JSON(fiber.Map{
			"success": false,
			"error":   "Invalid resource id",
		})
	}

	db := database.GetDB()
	var resource models.Resource
	if err := db.First(&resource, id).Error; err != nil {
		return nil, c.Status(404).JSON(fiber.Map{
			"success": false,
			"error":   "Resource not found",
		})
	}

	if resource.AuthorID != userID {
		profile := sessions.RefreshProfile(middleware.GetToken(c))
		if profile == nil || !profile.IsAdmin {
			return nil, c.Status(403).JSON(fiber.Map{
				"success": false,
				"error":   "You can only modify your own resources",
			})
		}
	}

	return &resource, nil
}
