// handlers/handlers.go - package wiring.
package handlers

import (
	"flagforge/services"
)

var (
	sessions *services.SessionManager
	scoring  *services.ScoringEngine
	boards   *services.LeaderboardCache
	feed     *services.SolveFeed
)

// Init wires the handler package to the service layer. Must run before the
// routes are registered.
func Init(
	sessionManager *services.SessionManager,
	scoringEngine *services.ScoringEngine,
	leaderboard *services.LeaderboardCache,
	solveFeed *services.SolveFeed,
) {
	sessions = sessionManager
	scoring = scoringEngine
	boards = leaderboard
	feed = solveFeed
}
