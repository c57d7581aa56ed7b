package middleware

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"flagforge/models"
	"flagforge/services"
)

// stubUserStore holds a single account, enough to drive sign-in.
type stubUserStore struct {
	user models.User
}

func (s *stubUserStore) FindByID(id uint) (*models.User, error) {
	if s.user.ID == id {
		copied := s.user
		return &copied, nil
	}
	return nil, services.ErrNotFound
}

func (s *stubUserStore) FindByEmail(email string) (*models.User, error) {
	if s.user.Email == email {
		copied := s.user
		return &copied, nil
	}
	return nil, services.ErrNotFound
}

func (s *stubUserStore) FindByUsername(username string) (*models.User, error) {
	if s.user.Username == username {
		copied := s.user
		return &copied, nil
	}
	return nil, services.ErrNotFound
}

func (s *stubUserStore) Create(user *models.User) error { return nil }

func (s *stubUserStore) Update(id uint, fields map[string]interface{}) error { return nil }

// newProtectedApp builds an app with one route behind AuthMiddleware. The
// returned flag reports whether the protected handler ran.
func newProtectedApp(t *testing.T, isAdmin bool) (*fiber.App, string, *bool) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret-test-secret-test-secret!")

	hashed, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	store := &stubUserStore{user: models.User{
		ID:       7,
		Username: "alice",
		Email:    "alice@example.com",
		Password: string(hashed),
		IsAdmin:  isAdmin,
	}}

	manager := services.NewSessionManager(store, 0)
	InitAuth(manager)

	token, _, err := manager.SignIn("alice@example.com", "hunter22")
	if err != nil {
		t.Fatal(err)
	}

	handlerRan := false
	app := fiber.New()
	app.Get("/protected", AuthMiddleware, func(c *fiber.Ctx) error {
		handlerRan = true
		return c.JSON(fiber.Map{"data": "member content", "admin": IsAdmin(c)})
	})
	app.Get("/admin-only", AdminAuthMiddleware, func(c *fiber.Ctx) error {
		handlerRan = true
		return c.JSON(fiber.Map{"data": "admin content"})
	})

	return app, token, &handlerRan
}

func TestAuthMiddlewareRejectsAnonymous(t *testing.T) {
	app, _, handlerRan := newProtectedApp(t, false)

	req := httptest.NewRequest("GET", "/protected", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}

	if resp.StatusCode != 401 {
		t.Fatalf("status: got %d, want 401", resp.StatusCode)
	}
	if *handlerRan {
		t.Fatal("protected handler ran for an unauthenticated request")
	}

	body, _ := io.ReadAll(resp.Body)
	if strings.Contains(string(body), "member content") {
		t.Fatal("protected payload leaked into the 401 response")
	}
	var parsed map[string]interface{}
	if err := json.Unmarshal(body, &parsed); err != nil {
		t.Fatalf("401 body is not JSON: %v", err)
	}
	if success, _ := parsed["success"].(bool); success {
		t.Fatal("401 body reports success")
	}
}

func TestAuthMiddlewareRejectsBadTokens(t *testing.T) {
	app, _, handlerRan := newProtectedApp(t, false)

	headers := []string{
		"Bearer not-a-jwt",
		"Basic dXNlcjpwYXNz",
		"Bearer",
	}
	for _, header := range headers {
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", header)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != 401 {
			t.Errorf("header %q: status %d, want 401", header, resp.StatusCode)
		}
	}
	if *handlerRan {
		t.Fatal("protected handler ran for a rejected token")
	}
}

func TestAuthMiddlewareAllowsLiveSessionOnly(t *testing.T) {
	app, token, handlerRan := newProtectedApp(t, false)

	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("live session: status %d, want 200", resp.StatusCode)
	}
	if !*handlerRan {
		t.Fatal("protected handler did not run for a live session")
	}

	// Sign-out revokes the session; the still-unexpired JWT no longer passes.
	sessions.SignOut(token)
	*handlerRan = false

	req = httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 401 {
		t.Fatalf("revoked session: status %d, want 401", resp.StatusCode)
	}
	if *handlerRan {
		t.Fatal("protected handler ran after sign-out")
	}
}

func TestAuthMiddlewareExposesAdminFlag(t *testing.T) {
	for _, isAdmin := range []bool{false, true} {
		app, token, _ := newProtectedApp(t, isAdmin)

		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatal(err)
		}

		var parsed struct {
			Admin bool `json:"admin"`
		}
		body, _ := io.ReadAll(resp.Body)
		if err := json.Unmarshal(body, &parsed); err != nil {
			t.Fatal(err)
		}
		if parsed.Admin != isAdmin {
			t.Errorf("IsAdmin on a session with is_admin=%v read %v", isAdmin, parsed.Admin)
		}
	}
}

func TestAdminAuthMiddlewareRejectsNonAdmin(t *testing.T) {
	app, token, handlerRan := newProtectedApp(t, false)

	req := httptest.NewRequest("GET", "/admin-only", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 403 {
		t.Fatalf("status: got %d, want 403", resp.StatusCode)
	}
	if *handlerRan {
		t.Fatal("admin handler ran for a non-admin session")
	}

	// Anonymous requests get the 401, not the 403.
	req = httptest.NewRequest("GET", "/admin-only", nil)
	resp, err = app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 401 {
		t.Fatalf("anonymous status: got %d, want 401", resp.StatusCode)
	}
}
