// handlers/admin/admin.go - package wiring.
package admin

import (
	"flagforge/services"
)

var boards *services.LeaderboardCache

// Init wires the admin handlers to shared services.
func Init(leaderboard *services.LeaderboardCache) {
	boards = leaderboard
}
