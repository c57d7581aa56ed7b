// services/feed.go - live solve feed.
//
// Scoreboard viewers hold a websocket open; every successful capture is
// pushed to them so first bloods show up without polling.
package services

import (
	"log"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"flagforge/models"
)

const feedSendTimeout = 5 * time.Second

// SolveEvent is the wire format broadcast to feed subscribers.
type SolveEvent struct {
	Type        string    `json:"type"`
	Username    string    `json:"username"`
	ChallengeID uint      `json:"challenge_id"`
	Challenge   string    `json:"challenge"`
	Points      int       `json:"points"`
	NewTotal    int       `json:"new_total"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// SolveFeed fans solve events out to connected websocket clients.
type SolveFeed struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]chan SolveEvent
}

func NewSolveFeed() *SolveFeed {
	return &SolveFeed{conns: make(map[*websocket.Conn]chan SolveEvent)}
}

// Broadcast queues an event for every subscriber. Slow clients drop events
// rather than stalling the submitting request.
func (f *SolveFeed) Broadcast(userID uint, username string, challenge *models.Challenge, newTotal int) {
	event := SolveEvent{
		Type:        "solve",
		Username:    username,
		ChallengeID: challenge.ID,
		Challenge:   challenge.Title,
		Points:      challenge.Points,
		NewTotal:    newTotal,
		SubmittedAt: time.Now(),
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for conn, send := range f.conns {
		select {
		case send <- event:
		default:
			log.Printf("Solve feed subscriber too slow, dropping event for %v", conn.RemoteAddr())
		}
	}
}

// Serve runs one subscriber connection until it closes. It is the handler
// body for the websocket route.
func (f *SolveFeed) Serve(conn *websocket.Conn) {
	send := make(chan SolveEvent, 16)

	f.mu.Lock()
	f.conns[conn] = send
	count := len(f.conns)
	f.mu.Unlock()

	log.Printf("📡 Solve feed subscriber connected (%d total)", count)

	done := make(chan struct{})

	// Reads are discarded; the read pump exists to notice disconnects.
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case event := <-send:
			conn.SetWriteDeadline(time.Now().Add(feedSendTimeout))
			if err := conn.WriteJSON(event); err != nil {
				f.drop(conn)
				return
			}
		case <-done:
			f.drop(conn)
			return
		}
	}
}

func (f *SolveFeed) drop(conn *websocket.Conn) {
	f.mu.Lock()
	delete(f.conns, conn)
	count := len(f.conns)
	f.mu.Unlock()

	conn.Close()
	log.Printf("🔌 Solve feed subscriber disconnected (%d remain)", count)
}

// Subscribers reports current connection count.
func (f *SolveFeed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.conns)
}
