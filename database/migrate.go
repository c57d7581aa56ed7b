// database/migrate.go - Database Migration Runner
package database

import (
	"log"

	"flagforge/models"
)

// RunMigrations runs all database migrations
func RunMigrations() {
	db := GetDB()
	log.Println("🔄 Running database migrations...")

	if err := db.AutoMigrate(
		&models.User{},
		&models.Challenge{},
		&models.Solve{},
		&models.HintReveal{},
		&models.Resource{},
	); err != nil {
		log.Fatalf("❌ Failed to run migrations: %v", err)
	}

	createIndexes()

	log.Println("✅ All migrations completed successfully")
}

// createIndexes creates indexes AutoMigrate does not cover. The two unique
// indexes are correctness-critical: they back the exactly-once solve award and
// the idempotent hint reveal.
func createIndexes() {
	db := GetDB()

	db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_solves_user_challenge ON solves(user_id, challenge_id)")
	db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_hint_reveals_triple ON hint_reveals(user_id, challenge_id, hint_index)")

	db.Exec("CREATE INDEX IF NOT EXISTS idx_users_points ON users(points DESC)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_challenges_category ON challenges(category)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_solves_challenge ON solves(challenge_id)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_resources_author ON resources(author_id)")
}
