// handlers/feed.go - websocket solve feed endpoint.
package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// FeedUpgrade rejects non-websocket requests before the upgrade.
func FeedUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// SolveFeedSocket serves one solve-feed subscriber until disconnect.
var SolveFeedSocket = websocket.New(func(conn *websocket.Conn) {
	feed.Serve(conn)
})
