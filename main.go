// main.go
package main

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"flagforge/database"
	"flagforge/handlers"
	"flagforge/handlers/admin"
	"flagforge/middleware"
	"flagforge/services"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	// Validate critical environment variables
	validateEnvironment()

	// Initialize database
	database.InitDB()

	// Wire up the core services
	users := services.NewGormUserStore(database.GetDB())
	scores := services.NewGormScoreStore(database.GetDB())

	sessionManager := services.NewSessionManager(users, inactivityTimeout())
	scoringEngine := services.NewScoringEngine(scores)
	leaderboard := services.InitLeaderboardCache()
	solveFeed := services.NewSolveFeed()

	// Successful solves fan out to the leaderboard cache and the live feed.
	services.WireSolveFanout(scoringEngine, leaderboard, solveFeed)

	middleware.InitAuth(sessionManager)
	handlers.Init(sessionManager, scoringEngine, leaderboard, solveFeed)
	admin.Init(leaderboard)
	services.TrackSessions(sessionManager)

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    1 * 1024 * 1024, // 1MB
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))

	// CORS configuration
	corsOrigins := os.Getenv("CORS_ORIGINS")
	if corsOrigins == "" {
		corsOrigins = "http://localhost:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
	}))

	// Apply rate limiting to all routes
	app.Use(middleware.RateLimitMiddleware())

	// API Routes
	api := app.Group("/api")

	// Auth routes with stricter rate limiting
	authGroup := api.Group("/auth")
	authGroup.Post("/register", middleware.AuthRateLimitMiddleware(), handlers.Register)
	authGroup.Post("/login", middleware.AuthRateLimitMiddleware(), handlers.Login)
	authGroup.Post("/logout", middleware.AuthMiddleware, handlers.Logout)
	authGroup.Post("/activity", middleware.AuthMiddleware, handlers.Activity)
	authGroup.Get("/me", middleware.AuthMiddleware, handlers.Me)

	// Challenge routes (require authentication)
	challengeGroup := api.Group("/challenges")
	challengeGroup.Use(middleware.AuthMiddleware)
	challengeGroup.Get("/", handlers.GetChallenges)
	challengeGroup.Get("/:id", handlers.GetChallenge)
	challengeGroup.Post("/:id/submit", handlers.SubmitFlag)
	challengeGroup.Post("/:id/hints/:index/reveal", handlers.RevealHint)
	challengeGroup.Get("/:id/solves", handlers.GetChallengeSolves)

	// Leaderboard routes (public)
	leaderboardGroup := api.Group("/leaderboard")
	leaderboardGroup.Get("/", handlers.GetLeaderboard)
	leaderboardGroup.Get("/user/:id", handlers.GetUserRank)

	// User routes
	userGroup := api.Group("/users")
	userGroup.Use(middleware.AuthMiddleware)
	userGroup.Put("/me", handlers.UpdateCurrentUser)
	userGroup.Get("/:id", handlers.GetUserProfile)

	// Resource routes (reads public, writes authenticated)
	api.Get("/resources", handlers.GetResources)
	api.Get("/resources/:id", handlers.GetResource)
	api.Post("/resources", middleware.AuthMiddleware, handlers.CreateResource)
	api.Put("/resources/:id", middleware.AuthMiddleware, handlers.UpdateResource)
	api.Delete("/resources/:id", middleware.AuthMiddleware, handlers.DeleteResource)

	// Admin routes: the admin flag is re-checked against the database on
	// every request, never taken from the token.
	adminGroup := api.Group("/admin")
	adminGroup.Use(middleware.AdminAuthMiddleware)
	adminGroup.Get("/users", admin.GetUsers)
	adminGroup.Get("/users/:id", admin.GetUser)
	adminGroup.Put("/users/:id", admin.UpdateUser)
	adminGroup.Delete("/users/:id", admin.DeleteUser)
	adminGroup.Get("/challenges", admin.GetChallenges)
	adminGroup.Post("/challenges", admin.CreateChallenge)
	adminGroup.Put("/challenges/:id", admin.UpdateChallenge)
	adminGroup.Delete("/challenges/:id", admin.DeleteChallenge)
	adminGroup.Get("/solves", admin.GetSolves)

	// Live solve feed
	app.Get("/ws/solves", handlers.FeedUpgrade, handlers.SolveFeedSocket)

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "healthy",
			"timestamp": time.Now().Unix(),
			"version":   "1.0.0",
		})
	})

	// Side server for operational endpoints
	startMetricsServer()

	// Start HTTP server
	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
	}

	log.Printf("🚀 HTTP server starting on port %s", port)
	log.Printf("📊 Environment: %s", getEnv("APP_ENV", "development"))
	log.Printf("🔐 JWT Secret configured: %v", os.Getenv("JWT_SECRET") != "")
	log.Printf("⏱  Inactivity timeout: %s", inactivityTimeout())

	if err := app.Listen(":" + port); err != nil {
		log.Fatal("Failed to start HTTP server:", err)
	}
}

// startMetricsServer exposes /metrics and /healthz on a side port so the
// operational surface stays off the public API.
func startMetricsServer() {
	metricsPort := getEnv("METRICS_PORT", "9100")
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:    ":" + metricsPort,
		Handler: mux,
	}

	go func() {
		log.Printf("📈 Metrics server starting on port %s", metricsPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Metrics server failed:", err)
		}
	}()
}

// inactivityTimeout reads the session timeout, defaulting to 30 minutes.
func inactivityTimeout() time.Duration {
	if val := os.Getenv("SESSION_TIMEOUT_MINUTES"); val != "" {
		if minutes, err := strconv.Atoi(val); err == nil && minutes > 0 {
			return time.Duration(minutes) * time.Minute
		}
	}
	return services.DefaultInactivityTimeout
}

// validateEnvironment checks for required environment variables
func validateEnvironment() {
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("FATAL: JWT_SECRET environment variable must be set. Generate one with: openssl rand -base64 64")
	}
	if len(jwtSecret) < 32 {
		log.Fatal("FATAL: JWT_SECRET must be at least 32 characters long")
	}

	appEnv := os.Getenv("APP_ENV")
	if appEnv == "production" {
		corsOrigins := os.Getenv("CORS_ORIGINS")
		if corsOrigins == "" {
			log.Println("WARNING: CORS_ORIGINS not properly configured for production")
		}
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Don't expose internal errors in production
	if os.Getenv("APP_ENV") == "production" && code == 500 {
		message = "An error occurred. Please try again later."
	}

	return c.Status(code).JSON(fiber.Map{
		"success": false,
		"error":   message,
	})
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
