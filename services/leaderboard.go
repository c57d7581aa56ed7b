// services/leaderboard.go - Redis ZSet leaderboard cache.
//
// The database stays the source of truth for point totals; the ZSet mirrors
// them for cheap top-N and rank lookups. When Redis is not configured every
// method degrades to a no-op / cache miss and callers fall back to SQL.
package services

import (
	"context"
	"log"
	"os"
	"strconv"

	"github.com/redis/go-redis/v9"

	"flagforge/models"
)

const leaderboardKey = "leaderboard:points"

// LeaderboardEntry is one scoreboard row.
type LeaderboardEntry struct {
	UserID uint  `json:"user_id"`
	Score  int   `json:"score"`
	Rank   int64 `json:"rank"`
}

// LeaderboardCache mirrors user point totals in a Redis sorted set.
type LeaderboardCache struct {
	client *redis.Client
	ctx    context.Context
}

// InitLeaderboardCache connects to Redis when REDIS_ADDR is set. Without it
// the cache is disabled and the scoreboard is served straight from Postgres.
func InitLeaderboardCache() *LeaderboardCache {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		log.Println("REDIS_ADDR not set, leaderboard cache disabled")
		return &LeaderboardCache{ctx: context.Background()}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Printf("⚠️ Redis unavailable (%v), leaderboard cache disabled", err)
		return &LeaderboardCache{ctx: context.Background()}
	}

	log.Println("✅ Redis leaderboard cache connected")
	return &LeaderboardCache{client: client, ctx: context.Background()}
}

// Enabled reports whether the cache is live.
func (c *LeaderboardCache) Enabled() bool {
	return c.client != nil
}

// Award bumps a user's cached score after a solve.
func (c *LeaderboardCache) Award(userID uint, points int) {
	if c.client == nil {
		return
	}
	member := strconv.FormatUint(uint64(userID), 10)
	if err := c.client.ZIncrBy(c.ctx, leaderboardKey, float64(points), member).Err(); err != nil {
		log.Printf("Failed to bump leaderboard cache for user %d: %v", userID, err)
	}
}

// Set pins a user's cached score to an absolute total, used when totals are
// rewritten outside the scoring path (admin edits, imports).
func (c *LeaderboardCache) Set(userID uint, points int) {
	if c.client == nil {
		return
	}
	member := strconv.FormatUint(uint64(userID), 10)
	if err := c.client.ZAdd(c.ctx, leaderboardKey, redis.Z{
		Score:  float64(points),
		Member: member,
	}).Err(); err != nil {
		log.Printf("Failed to set leaderboard cache for user %d: %v", userID, err)
	}
}

// Remove drops a user from the cached board.
func (c *LeaderboardCache) Remove(userID uint) {
	if c.client == nil {
		return
	}
	member := strconv.FormatUint(uint64(userID), 10)
	if err := c.client.ZRem(c.ctx, leaderboardKey, member).Err(); err != nil {
		log.Printf("Failed to remove user %d from leaderboard cache: %v", userID, err)
	}
}

// Top returns the best-scored users, highest first. A nil slice with no error
// means the cache cannot answer and the caller should hit the database.
func (c *LeaderboardCache) Top(limit int64) ([]LeaderboardEntry, error) {
	if c.client == nil {
		return nil, nil
	}

	results, err := c.client.ZRevRangeWithScores(c.ctx, leaderboardKey, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, len(results))
	for i, result := range results {
		id, _ := strconv.ParseUint(result.Member.(string), 10, 64)
		entries[i] = LeaderboardEntry{
			UserID: uint(id),
			Score:  int(result.Score),
			Rank:   int64(i) + 1,
		}
	}
	return entries, nil
}

// WireSolveFanout registers the standard solve fan-out on the engine: the
// cached score is bumped by the points just awarded and the solve is pushed
// to feed subscribers. The increment mirrors the database's atomic award, so
// two solves landing close together cannot park the cache on a stale total.
func WireSolveFanout(engine *ScoringEngine, boards *LeaderboardCache, feed *SolveFeed) {
	engine.OnSolve(func(userID uint, username string, challenge *models.Challenge, newTotal int) {
		boards.Award(userID, challenge.Points)
		feed.Broadcast(userID, username, challenge, newTotal)
	})
}

// Rank returns a user's 1-based rank, or 0 when unranked or cache-disabled.
func (c *LeaderboardCache) Rank(userID uint) int64 {
	if c.client == nil {
		return 0
	}
	member := strconv.FormatUint(uint64(userID), 10)
	rank, err := c.client.ZRevRank(c.ctx, leaderboardKey, member).Result()
	if err != nil {
		return 0
	}
	return rank + 1
}
