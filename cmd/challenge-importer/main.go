package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"flagforge/database"
	"flagforge/models"
)

// SeedChallenge is the on-disk shape of ./seeds/challenges.json entries.
type SeedChallenge struct {
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

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	database.InitDB()
	db := database.GetDB()

	seedPath := "./seeds/challenges.json"
	if len(os.Args) > 1 {
		seedPath = os.Args[1]
	}

	data, err := os.ReadFile(seedPath)
	if err != nil {
		log.Fatal("Failed to read seed file:", err)
	}

	var seeds []SeedChallenge
	if err := json.Unmarshal(data, &seeds); err != nil {
		log.Fatal("Failed to parse seed file:", err)
	}

	fmt.Printf("Found %d challenges in %s\n\n", len(seeds), seedPath)

	imported := 0
	skipped := 0
	for _, seed := range seeds {
		if !models.ValidDifficulty(models.ChallengeDifficulty(seed.Difficulty)) {
			log.Printf("Skipping %q: invalid difficulty %q", seed.Title, seed.Difficulty)
			skipped++
			continue
		}
		if seed.Points <= 0 || seed.Flag == "" || seed.Title == "" {
			log.Printf("Skipping %q: missing title, flag or positive points", seed.Title)
			skipped++
			continue
		}

		// Re-running the importer must not duplicate challenges.
		var existing int64
		db.Model(&models.Challenge{}).Where("title = ?", seed.Title).Count(&existing)
		if existing > 0 {
			fmt.Printf("Already present: %s\n", seed.Title)
			skipped++
			continue
		}

		challenge := models.Challenge{
			Title:       seed.Title,
			Description: seed.Description,
			Category:    seed.Category,
			Difficulty:  models.ChallengeDifficulty(seed.Difficulty),
			Points:      seed.Points,
			Flag:        seed.Flag,
			IsActive:    true,
		}
		if seed.IsActive != nil {
			challenge.IsActive = *seed.IsActive
		}
		if err := challenge.SetHintList(seed.Hints); err != nil {
			log.Printf("Skipping %q: bad hints: %v", seed.Title, err)
			skipped++
			continue
		}
		if err := challenge.SetResourceList(seed.Resources); err != nil {
			log.Printf("Skipping %q: bad resources: %v", seed.Title, err)
			skipped++
			continue
		}

		if err := db.Create(&challenge).Error; err != nil {
			log.Printf("Error inserting %q: %v", seed.Title, err)
			skipped++
			continue
		}
		fmt.Printf("Imported: %s (%s, %d pts)\n", challenge.Title, challenge.Difficulty, challenge.Points)
		imported++
	}

	fmt.Printf("\n✓ Import finished: %d imported, %d skipped\n", imported, skipped)

	var count int64
	db.Model(&models.Challenge{}).Count(&count)
	fmt.Printf("✓ Total challenges in database: %d\n", count)
}
