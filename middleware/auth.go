// middleware/auth.go
package middleware

import (
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"flagforge/services"
)

var sessions *services.SessionManager

// InitAuth wires the middleware to the session manager. Must run before any
// request is served.
func InitAuth(manager *services.SessionManager) {
	sessions = manager
}

// AuthMiddleware authenticates a request: the bearer token must be a valid
// JWT and the session behind it must still be live in the SessionManager.
// A token whose session was torn down (sign-out, inactivity) is rejected even
// if the JWT itself has not expired. Every authenticated request counts as
// activity and resets the inactivity countdown.
func AuthMiddleware(c *fiber.Ctx) error {
	token, reason := authenticate(c)
	if reason != "" {
		return unauthorized(c, reason)
	}

	sessions.Touch(token)
	return c.Next()
}

// AdminAuthMiddleware gates admin routes. The admin flag is re-read from the
// database on every request: a stale session snapshot or a forged claim never
// grants privilege, and a fetch failure reads as non-admin.
func AdminAuthMiddleware(c *fiber.Ctx) error {
	token, reason := authenticate(c)
	if reason != "" {
		return unauthorized(c, reason)
	}

	profile := sessions.RefreshProfile(token)
	if profile == nil || !profile.IsAdmin {
		return c.Status(403).JSON(fiber.Map{
			"success": false,
			"error":   "Access denied. Admin privileges required.",
		})
	}

	sessions.Touch(token)
	c.Locals("isAdmin", true)
	return c.Next()
}

// authenticate validates the bearer token and stores the identity in locals.
// A non-empty reason means the request failed authentication; the caller must
// reject it and stop the chain. No response is written here.
func authenticate(c *fiber.Ctx) (string, string) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return "", "Missing authorization header"
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", "Invalid authorization header format"
	}

	tokenString := parts[1]
	jwtSecret := os.Getenv("JWT_SECRET")

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(401, "Invalid signing method")
		}
		return []byte(jwtSecret), nil
	})

	if err != nil || !token.Valid {
		return "", "Invalid or expired token"
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", "Invalid token claims"
	}

	exp, ok := claims["exp"].(float64)
	if !ok || time.Unix(int64(exp), 0).Before(time.Now()) {
		return "", "Token expired"
	}

	session := sessions.Get(tokenString)
	if session == nil {
		return "", "Session expired, please sign in again"
	}

	_, isAdmin, _ := sessions.Current(tokenString)

	c.Locals("token", tokenString)
	c.Locals("userId", session.UserID)
	c.Locals("username", session.Username)
	c.Locals("isAdmin", isAdmin)

	return tokenString, ""
}

// unauthorized writes the 401 rejection. Returning it ends the chain: the
// protected handler never runs.
func unauthorized(c *fiber.Ctx, reason string) error {
	return c.Status(401).JSON(fiber.Map{
		"success": false,
		"error":   reason,
	})
}

// GetUserID returns the authenticated user id from locals.
func GetUserID(c *fiber.Ctx) (uint, error) {
	userID := c.Locals("userId")
	if userID == nil {
		return 0, fiber.NewError(401, "User not authenticated")
	}

	if id, ok := userID.(uint); ok {
		return id, nil
	}

	return 0, fiber.NewError(401, "Invalid user ID format")
}

// GetUsername returns the authenticated username from locals.
func GetUsername(c *fiber.Ctx) (string, error) {
	username := c.Locals("username")
	if username == nil {
		return "", fiber.NewError(401, "User not authenticated")
	}

	if name, ok := username.(string); ok {
		return name, nil
	}

	return "", fiber.NewError(401, "Invalid username format")
}

// GetToken returns the raw session token from locals.
func GetToken(c *fiber.Ctx) string {
	if token, ok := c.Locals("token").(string); ok {
		return token
	}
	return ""
}

// IsAdmin reports whether the live session behind this request carries the
// admin flag. On admin routes AdminAuthMiddleware has additionally verified
// it against a fresh profile read.
func IsAdmin(c *fiber.Ctx) bool {
	admin, ok := c.Locals("isAdmin").(bool)
	return ok && admin
}
