package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"flagforge/models"
)

// fakeScoreStore is an in-memory ScoreStore with the same duplicate-key
// behavior as the real unique indexes.
type fakeScoreStore struct {
	mu         sync.Mutex
	challenges map[uint]*models.Challenge
	solves     map[[2]uint]bool
	points     map[uint]int
	reveals    map[[3]uint]bool

	failChallenge error
	failSolve     error
	failAward     error
}

func newFakeScoreStore() *fakeScoreStore {
	return &fakeScoreStore{
		challenges: make(map[uint]*models.Challenge),
		solves:     make(map[[2]uint]bool),
		points:     make(map[uint]int),
		reveals:    make(map[[3]uint]bool),
	}
}

func (s *fakeScoreStore) GetChallenge(id uint) (*models.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failChallenge != nil {
		return nil, s.failChallenge
	}
	challenge, ok := s.challenges[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *challenge
	return &copied, nil
}

func (s *fakeScoreStore) HasSolve(userID, challengeID uint) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.solves[[2]uint{userID, challengeID}], nil
}

func (s *fakeScoreStore) CreateSolve(solve *models.Solve) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSolve != nil {
		return s.failSolve
	}
	key := [2]uint{solve.UserID, solve.ChallengeID}
	if s.solves[key] {
		return ErrDuplicate
	}
	s.solves[key] = true
	return nil
}

func (s *fakeScoreStore) AwardPoints(userID uint, points int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failAward != nil {
		return 0, s.failAward
	}
	s.points[userID] += points
	return s.points[userID], nil
}

func (s *fakeScoreStore) CreateHintReveal(reveal *models.HintReveal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := [3]uint{reveal.UserID, reveal.ChallengeID, uint(reveal.HintIndex)}
	if s.reveals[key] {
		return ErrDuplicate
	}
	s.reveals[key] = true
	return nil
}

func (s *fakeScoreStore) RevealedHints(userID, challengeID uint) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var indexes []int
	for key := range s.reveals {
		if key[0] == userID && key[1] == challengeID {
			indexes = append(indexes, int(key[2]))
		}
	}
	return indexes, nil
}

func (s *fakeScoreStore) solveCount(userID, challengeID uint) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.solves[[2]uint{userID, challengeID}] {
		return 1
	}
	return 0
}

func (s *fakeScoreStore) userPoints(userID uint) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.points[userID]
}

func webChallenge() *models.Challenge {
	challenge := &models.Challenge{
		ID:         1,
		Title:      "Cookie Monster",
		Category:   "web",
		Difficulty: models.DifficultyEasy,
		Points:     100,
		Flag:       "flag{abc}",
		IsActive:   true,
	}
	challenge.SetHintList([]string{"Look at the cookies", "The admin cookie is base64"})
	return challenge
}

func TestSubmitFlagAwardsExactlyOnce(t *testing.T) {
	store := newFakeScoreStore()
	store.challenges[1] = webChallenge()
	engine := NewScoringEngine(store)

	result := engine.SubmitFlag(7, "alice", 1, "flag{abc}")
	if result.Status != SubmitSolved {
		t.Fatalf("first submission: got %q, want %q (%s)", result.Status, SubmitSolved, result.Message)
	}
	if result.PointsAwarded != 100 || result.NewTotal != 100 {
		t.Fatalf("first submission: awarded %d total %d, want 100/100", result.PointsAwarded, result.NewTotal)
	}

	// Repeat correct submission: no second award, no second row.
	result = engine.SubmitFlag(7, "alice", 1, "flag{abc}")
	if result.Status != SubmitAlreadySolved {
		t.Fatalf("repeat submission: got %q, want %q", result.Status, SubmitAlreadySolved)
	}
	if got := store.userPoints(7); got != 100 {
		t.Fatalf("points after repeat: got %d, want 100", got)
	}
	if got := store.solveCount(7, 1); got != 1 {
		t.Fatalf("solve rows: got %d, want 1", got)
	}

	// An incorrect follow-up changes nothing either.
	result = engine.SubmitFlag(7, "alice", 1, "flag{zzz}")
	if result.Status != SubmitAlreadySolved {
		t.Fatalf("wrong flag after solve: got %q, want %q", result.Status, SubmitAlreadySolved)
	}
	if got := store.userPoints(7); got != 100 {
		t.Fatalf("points after wrong follow-up: got %d, want 100", got)
	}
}

func TestSubmitFlagNormalization(t *testing.T) {
	variants := []string{
		"flag{abc}",
		"FLAG{abc}",
		"Flag{Abc}",
		"  flag{abc}  ",
		"\tFLAG{ABC}\n",
	}

	for _, submitted := range variants {
		store := newFakeScoreStore()
		store.challenges[1] = webChallenge()
		engine := NewScoringEngine(store)

		result := engine.SubmitFlag(7, "alice", 1, submitted)
		if result.Status != SubmitSolved {
			t.Errorf("submission %q: got %q, want %q", submitted, result.Status, SubmitSolved)
		}
	}

	// Interior whitespace is not forgiven.
	store := newFakeScoreStore()
	store.challenges[1] = webChallenge()
	engine := NewScoringEngine(store)
	if result := engine.SubmitFlag(7, "alice", 1, "flag {abc}"); result.Status != SubmitIncorrect {
		t.Errorf("interior whitespace: got %q, want %q", result.Status, SubmitIncorrect)
	}
}

func TestSubmitFlagIncorrectHasNoSideEffects(t *testing.T) {
	store := newFakeScoreStore()
	store.challenges[1] = webChallenge()
	engine := NewScoringEngine(store)

	result := engine.SubmitFlag(8, "bob", 1, "WRONG")
	if result.Status != SubmitIncorrect {
		t.Fatalf("got %q, want %q", result.Status, SubmitIncorrect)
	}
	if got := store.solveCount(8, 1); got != 0 {
		t.Fatalf("solve rows after wrong flag: got %d, want 0", got)
	}
	if got := store.userPoints(8); got != 0 {
		t.Fatalf("points after wrong flag: got %d, want 0", got)
	}
}

func TestSubmitFlagLocalRejections(t *testing.T) {
	store := newFakeScoreStore()
	store.challenges[1] = webChallenge()
	inactive := webChallenge()
	inactive.ID = 2
	inactive.IsActive = false
	store.challenges[2] = inactive
	engine := NewScoringEngine(store)

	cases := []struct {
		name        string
		userID      uint
		challengeID uint
		flag        string
	}{
		{"anonymous", 0, 1, "flag{abc}"},
		{"empty flag", 7, 1, ""},
		{"whitespace flag", 7, 1, "   \t"},
		{"inactive challenge", 7, 2, "flag{abc}"},
	}

	for _, tc := range cases {
		result := engine.SubmitFlag(tc.userID, "alice", tc.challengeID, tc.flag)
		if result.Status != SubmitRejected {
			t.Errorf("%s: got %q, want %q", tc.name, result.Status, SubmitRejected)
		}
	}

	// An unknown challenge is its own outcome, surfaced to clients as a 404.
	if result := engine.SubmitFlag(7, "alice", 99, "flag{abc}"); result.Status != SubmitNotFound {
		t.Errorf("unknown challenge: got %q, want %q", result.Status, SubmitNotFound)
	}

	if got := store.userPoints(7); got != 0 {
		t.Fatalf("points after rejections: got %d, want 0", got)
	}
}

func TestSubmitFlagConcurrentDuplicates(t *testing.T) {
	store := newFakeScoreStore()
	store.challenges[1] = webChallenge()
	engine := NewScoringEngine(store)

	const workers = 16
	results := make(chan SubmitStatus, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- engine.SubmitFlag(7, "alice", 1, "flag{abc}").Status
		}()
	}
	wg.Wait()
	close(results)

	solved, already := 0, 0
	for status := range results {
		switch status {
		case SubmitSolved:
			solved++
		case SubmitAlreadySolved:
			already++
		default:
			t.Fatalf("unexpected status %q", status)
		}
	}

	if solved != 1 {
		t.Fatalf("solved count: got %d, want exactly 1", solved)
	}
	if already != workers-1 {
		t.Fatalf("already-solved count: got %d, want %d", already, workers-1)
	}
	if got := store.userPoints(7); got != 100 {
		t.Fatalf("points after concurrent submissions: got %d, want 100", got)
	}
	if got := store.solveCount(7, 1); got != 1 {
		t.Fatalf("solve rows after concurrent submissions: got %d, want 1", got)
	}
}

func TestSubmitFlagInfrastructureErrors(t *testing.T) {
	store := newFakeScoreStore()
	store.challenges[1] = webChallenge()
	store.failChallenge = errors.New("connection refused")
	engine := NewScoringEngine(store)

	if result := engine.SubmitFlag(7, "alice", 1, "flag{abc}"); result.Status != SubmitError {
		t.Fatalf("challenge load failure: got %q, want %q", result.Status, SubmitError)
	}

	store.failChallenge = nil
	store.failSolve = errors.New("connection refused")
	if result := engine.SubmitFlag(7, "alice", 1, "flag{abc}"); result.Status != SubmitError {
		t.Fatalf("solve insert failure: got %q, want %q", result.Status, SubmitError)
	}
	if got := store.userPoints(7); got != 0 {
		t.Fatalf("points after failed insert: got %d, want 0", got)
	}
}

func TestSubmitFlagAwardFailureAfterSolve(t *testing.T) {
	store := newFakeScoreStore()
	store.challenges[1] = webChallenge()
	store.failAward = errors.New("connection refused")
	engine := NewScoringEngine(store)

	var listenerCalls int
	engine.OnSolve(func(uint, string, *models.Challenge, int) {
		listenerCalls++
	})

	result := engine.SubmitFlag(7, "alice", 1, "flag{abc}")
	if result.Status != SubmitError {
		t.Fatalf("got %q, want %q", result.Status, SubmitError)
	}
	// The solve row stays durable even though the award failed.
	if got := store.solveCount(7, 1); got != 1 {
		t.Fatalf("solve rows: got %d, want 1", got)
	}
	if listenerCalls != 0 {
		t.Fatalf("listeners ran %d times on a failed award, want 0", listenerCalls)
	}
}

func TestOnSolveListener(t *testing.T) {
	store := newFakeScoreStore()
	store.challenges[1] = webChallenge()
	engine := NewScoringEngine(store)

	var gotUser uint
	var gotTotal int
	engine.OnSolve(func(userID uint, username string, challenge *models.Challenge, newTotal int) {
		gotUser = userID
		gotTotal = newTotal
	})

	engine.SubmitFlag(7, "alice", 1, "flag{abc}")
	if gotUser != 7 || gotTotal != 100 {
		t.Fatalf("listener saw user %d total %d, want 7/100", gotUser, gotTotal)
	}
}

func TestWireSolveFanout(t *testing.T) {
	store := newFakeScoreStore()
	store.challenges[1] = webChallenge()
	engine := NewScoringEngine(store)
	boards := &LeaderboardCache{ctx: context.Background()}
	feed := NewSolveFeed()

	WireSolveFanout(engine, boards, feed)

	// With the cache disabled and no feed subscribers the fan-out must be a
	// safe no-op on the submitting request's path.
	result := engine.SubmitFlag(7, "alice", 1, "flag{abc}")
	if result.Status != SubmitSolved {
		t.Fatalf("got %q, want %q (%s)", result.Status, SubmitSolved, result.Message)
	}
	if result.NewTotal != 100 {
		t.Fatalf("new total: got %d, want 100", result.NewTotal)
	}
	if feed.Subscribers() != 0 {
		t.Fatalf("feed subscribers: got %d, want 0", feed.Subscribers())
	}
}

func TestRevealHintIdempotent(t *testing.T) {
	store := newFakeScoreStore()
	store.challenges[1] = webChallenge()
	engine := NewScoringEngine(store)

	first := engine.RevealHint(7, 1, 0)
	if first.Status != HintRevealed {
		t.Fatalf("first reveal: got %q, want %q (%s)", first.Status, HintRevealed, first.Message)
	}
	if first.Hint != "Look at the cookies" {
		t.Fatalf("first reveal text: got %q", first.Hint)
	}

	second := engine.RevealHint(7, 1, 0)
	if second.Status != HintRevealed {
		t.Fatalf("second reveal: got %q, want %q", second.Status, HintRevealed)
	}
	if second.Hint != first.Hint {
		t.Fatalf("second reveal text: got %q, want %q", second.Hint, first.Hint)
	}

	indexes, err := engine.RevealedHints(7, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(indexes) != 1 {
		t.Fatalf("revealed rows: got %d, want 1", len(indexes))
	}
}

func TestRevealHintRejections(t *testing.T) {
	store := newFakeScoreStore()
	store.challenges[1] = webChallenge()
	engine := NewScoringEngine(store)

	if result := engine.RevealHint(0, 1, 0); result.Status != HintRejected {
		t.Errorf("anonymous: got %q, want %q", result.Status, HintRejected)
	}
	if result := engine.RevealHint(7, 1, -1); result.Status != HintRejected {
		t.Errorf("negative index: got %q, want %q", result.Status, HintRejected)
	}
	if result := engine.RevealHint(7, 1, 2); result.Status != HintRejected {
		t.Errorf("index past end: got %q, want %q", result.Status, HintRejected)
	}
	if result := engine.RevealHint(7, 99, 0); result.Status != HintNotFound {
		t.Errorf("unknown challenge: got %q, want %q", result.Status, HintNotFound)
	}

	// No reveal rows from any rejection.
	indexes, _ := engine.RevealedHints(7, 1)
	if len(indexes) != 0 {
		t.Fatalf("revealed rows after rejections: got %d, want 0", len(indexes))
	}
}

func TestNormalizeFlag(t *testing.T) {
	cases := map[string]string{
		"flag{abc}":     "flag{abc}",
		" FLAG{abc} ":   "flag{abc}",
		"\tFlag{ABC}\n": "flag{abc}",
		"flag{ a b c }": "flag{ a b c }",
	}
	for in, want := range cases {
		if got := NormalizeFlag(in); got != want {
			t.Errorf("NormalizeFlag(%q) = %q, want %q", in, got, want)
		}
	}
}
