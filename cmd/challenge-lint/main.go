package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"flagforge/models"
)

// flagRe matches the house flag format: flag{...} with a non-empty body.
var flagRe = regexp.MustCompile(`^flag\{.+\}$`)

type seedChallenge struct {
	Title      string               `json:"title"`
	Category   string               `json:"category"`
	Difficulty string               `json:"difficulty"`
	Points     int                  `json:"points"`
	Flag       string               `json:"flag"`
	Hints      []string             `json:"hints"`
	Resources  []models.ResourceRef `json:"resources"`
}

func main() {
	pattern := "./seeds/*.json"
	if len(os.Args) > 1 {
		pattern = os.Args[1]
	}

	files, err := filepath.Glob(pattern)
	if err != nil {
		fmt.Println("error: cannot expand pattern:", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Printf("no seed files match %s\n", pattern)
		return
	}

	exitCode := 0
	for _, f := range files {
		bad := lintFile(f)
		if bad > 0 {
			exitCode = 1
		} else {
			fmt.Printf("%s: OK\n", f)
		}
	}
	os.Exit(exitCode)
}

func lintFile(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("%s: read error: %v\n", path, err)
		return 1
	}

	var seeds []seedChallenge
	if err := json.Unmarshal(data, &seeds); err != nil {
		fmt.Printf("%s: not a JSON array of challenges: %v\n", path, err)
		return 1
	}

	bad := 0
	seen := map[string]bool{}
	for i, seed := range seeds {
		where := fmt.Sprintf("%s[%d] (%s)", path, i, seed.Title)

		if strings.TrimSpace(seed.Title) == "" {
			fmt.Printf("%s: missing title\n", where)
			bad++
		}
		if seen[seed.Title] {
			fmt.Printf("%s: duplicate title\n", where)
			bad++
		}
		seen[seed.Title] = true

		if !models.ValidDifficulty(models.ChallengeDifficulty(seed.Difficulty)) {
			fmt.Printf("%s: difficulty %q is not easy/medium/hard\n", where, seed.Difficulty)
			bad++
		}
		if seed.Points <= 0 {
			fmt.Printf("%s: points must be positive, got %d\n", where, seed.Points)
			bad++
		}
		if !flagRe.MatchString(strings.TrimSpace(seed.Flag)) {
			fmt.Printf("%s: flag does not match flag{...}\n", where)
			bad++
		}
		for j, hint := range seed.Hints {
			if strings.TrimSpace(hint) == "" {
				fmt.Printf("%s: hint %d is empty\n", where, j)
				bad++
			}
		}
		for j, ref := range seed.Resources {
			u, err := url.Parse(ref.URL)
			if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
				fmt.Printf("%s: resource %d has invalid url %q\n", where, j, ref.URL)
				bad++
			}
		}
	}
	return bad
}
