// handlers/auth.go
package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"flagforge/middleware"
	"flagforge/models"
	"flagforge/services"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

type AuthResponse struct {
	Success bool      `json:"success"`
	Token   string    `json:"token,omitempty"`
	User    *UserInfo `json:"user,omitempty"`
	Error   string    `json:"error,omitempty"`
	Message string    `json:"message,omitempty"`
}

type UserInfo struct {
	ID          uint      `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"display_name"`
	Bio         string    `json:"bio"`
	Points      int       `json:"points"`
	IsAdmin     bool      `json:"is_admin"`
	CreatedAt   time.Time `json:"created_at"`
}

func userInfo(user *models.User) *UserInfo {
	if user == nil {
		return nil
	}
	return &UserInfo{
		ID:          user.ID,
		Username:    user.Username,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Bio:         user.Bio,
		Points:      user.Points,
		IsAdmin:     user.IsAdmin,
		CreatedAt:   user.CreatedAt,
	}
}

// Login authenticates a user and opens a session.
func Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(AuthResponse{
			Success: false,
			Error:   "Invalid request body",
		})
	}

	if req.Email == "" || req.Password == "" {
		return c.Status(400).JSON(AuthResponse{
			Success: false,
			Error:   "Email and password required",
		})
	}

	token, user, err := sessions.SignIn(req.Email, req.Password)
	if err != nil {
		switch err {
		case services.ErrInvalidCredentials, services.ErrValidation:
			return c.Status(401).JSON(AuthResponse{
				Success: false,
				Error:   "Invalid credentials",
			})
		case services.ErrUserBanned:
			return c.Status(403).JSON(AuthResponse{
				Success: false,
				Error:   "This account has been banned",
			})
		default:
			return c.Status(500).JSON(AuthResponse{
				Success: false,
				Error:   "Sign in failed, please try again",
			})
		}
	}

	return c.JSON(AuthResponse{
		Success: true,
		Token:   token,
		User:    userInfo(user),
	})
}

// Register creates a new account. It never opens a session: the client signs
// in separately once the account exists.
func Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(AuthResponse{
			Success: false,
			Error:   "Invalid request body",
		})
	}

	user, err := sessions.SignUp(req.Email, req.Password, req.Username)
	if err != nil {
		switch err {
		case services.ErrValidation:
			return c.Status(400).JSON(AuthResponse{
				Success: false,
				Error:   "Provide a valid email, a username of 3-30 characters and a password of at least 6 characters",
			})
		case services.ErrUsernameTaken:
			return c.Status(409).JSON(AuthResponse{
				Success: false,
				Error:   "Username already taken",
			})
		case services.ErrEmailTaken:
			return c.Status(409).JSON(AuthResponse{
				Success: false,
				Error:   "Email already registered",
			})
		default:
			return c.Status(500).JSON(AuthResponse{
				Success: false,
				Error:   "Failed to create account",
			})
		}
	}

	info := userInfo(user)
	return c.Status(201).JSON(AuthResponse{
		Success: true,
		User:    info,
		Message: "Account created. Please sign in.",
	})
}

// Logout tears the session down. Always succeeds from the client's point of
// view: whatever happens server-side, the session is gone.
func Logout(c *fiber.Ctx) error {
	sessions.SignOut(middleware.GetToken(c))
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Signed out",
	})
}

// Activity is the explicit heartbeat for UI-side events (pointer, key,
// scroll). Passing through AuthMiddleware already touched the session, so the
// body is trivial.
func Activity(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"success": true})
}

// Me returns the freshly hydrated profile for the session owner.
func Me(c *fiber.Ctx) error {
	token := middleware.GetToken(c)
	user := sessions.RefreshProfile(token)
	if user == nil {
		if sessions.Get(token) == nil {
			return c.Status(401).JSON(AuthResponse{
				Success: false,
				Error:   "Session expired, please sign in again",
			})
		}
		// Hydration failed but the session is live: authenticated,
		// role-unknown. The client must treat this as non-admin.
		return c.JSON(AuthResponse{
			Success: true,
			Message: "Profile temporarily unavailable",
		})
	}

	return c.JSON(AuthResponse{
		Success: true,
		User:    userInfo(user),
	})
}
