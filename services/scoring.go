// services/scoring.go - ScoringEngine
//
// The scoring engine adjudicates flag submissions and hint reveals. Its one
// hard guarantee: a (user, challenge) pair is awarded points at most once,
// ever, no matter how many submissions race or repeat. The unique index on
// the solves table enforces that at the store; everything here is arranged so
// the index decides and the loser of a race sees "already solved".
package services

import (
	"log"
	"strings"

	"flagforge/models"
)

// SubmitStatus discriminates the outcome of a flag submission.
type SubmitStatus string

const (
	SubmitSolved        SubmitStatus = "solved"
	SubmitAlreadySolved SubmitStatus = "already_solved"
	SubmitIncorrect     SubmitStatus = "incorrect"
	SubmitRejected      SubmitStatus = "rejected"
	SubmitNotFound      SubmitStatus = "not_found"
	SubmitError         SubmitStatus = "error"
)

// SubmitResult is returned from every SubmitFlag branch. PointsAwarded and
// NewTotal are only meaningful when Status is SubmitSolved.
type SubmitResult struct {
	Status        SubmitStatus `json:"status"`
	Message       string       `json:"message"`
	PointsAwarded int          `json:"points_awarded,omitempty"`
	NewTotal      int          `json:"new_total,omitempty"`
}

// HintStatus discriminates the outcome of a hint reveal.
type HintStatus string

const (
	HintRevealed HintStatus = "revealed"
	HintRejected HintStatus = "rejected"
	HintNotFound HintStatus = "not_found"
	HintError    HintStatus = "error"
)

// HintResult carries the hint text, released only once the reveal is
// recorded.
type HintResult struct {
	Status    HintStatus `json:"status"`
	Message   string     `json:"message,omitempty"`
	HintIndex int        `json:"hint_index"`
	Hint      string     `json:"hint,omitempty"`
}

// SolveListener receives every successful solve, after the award committed.
type SolveListener func(userID uint, username string, challenge *models.Challenge, newTotal int)

// ScoringEngine verifies flags and awards points exactly once per solve.
type ScoringEngine struct {
	store     ScoreStore
	listeners []SolveListener
}

func NewScoringEngine(store ScoreStore) *ScoringEngine {
	return &ScoringEngine{store: store}
}

// OnSolve registers a listener for successful solves. Listeners run on the
// submitting request's goroutine and must be quick.
func (e *ScoringEngine) OnSolve(fn SolveListener) {
	e.listeners = append(e.listeners, fn)
}

// NormalizeFlag trims surrounding whitespace and lowercases the flag.
// Comparison between submitted and stored flags always goes through this.
func NormalizeFlag(flag string) string {
	return strings.ToLower(strings.TrimSpace(flag))
}

// SubmitFlag adjudicates one submission for the given user. The solve row is
// confirmed in the store before any points move; points move as an atomic
// increment against the committed total, never from a cached value.
func (e *ScoringEngine) SubmitFlag(userID uint, username string, challengeID uint, submitted string) SubmitResult {
	if userID == 0 {
		return SubmitResult{Status: SubmitRejected, Message: "You must be signed in to submit flags"}
	}
	if strings.TrimSpace(submitted) == "" {
		return SubmitResult{Status: SubmitRejected, Message: "Flag cannot be empty"}
	}

	challenge, err := e.store.GetChallenge(challengeID)
	if err != nil {
		if err == ErrNotFound {
			return SubmitResult{Status: SubmitNotFound, Message: "Challenge not found"}
		}
		log.Printf("Flag submission failed loading challenge %d: %v", challengeID, err)
		return SubmitResult{Status: SubmitError, Message: "Something went wrong, please try again"}
	}
	if !challenge.IsActive {
		return SubmitResult{Status: SubmitRejected, Message: "Challenge is not active"}
	}

	if solved, err := e.store.HasSolve(userID, challengeID); err != nil {
		log.Printf("Flag submission failed checking solves for user %d: %v", userID, err)
		return SubmitResult{Status: SubmitError, Message: "Something went wrong, please try again"}
	} else if solved {
		return SubmitResult{Status: SubmitAlreadySolved, Message: "Already solved!"}
	}

	if NormalizeFlag(submitted) != NormalizeFlag(challenge.Flag) {
		// Wrong flag: no row written, nothing changes.
		return SubmitResult{Status: SubmitIncorrect, Message: "Incorrect flag. Try again!"}
	}

	solve := &models.Solve{
		UserID:      userID,
		ChallengeID: challengeID,
		SubmittedAt: now(),
	}
	if err := e.store.CreateSolve(solve); err != nil {
		if err == ErrDuplicate {
			// Lost a race against our own duplicate submission. The other
			// insert won the award; this one resolves without side effects.
			return SubmitResult{Status: SubmitAlreadySolved, Message: "Already solved!"}
		}
		log.Printf("Flag submission failed recording solve for user %d: %v", userID, err)
		return SubmitResult{Status: SubmitError, Message: "Something went wrong, please try again"}
	}

	newTotal, err := e.store.AwardPoints(userID, challenge.Points)
	if err != nil {
		// The solve row is durable; the award will be visible after the
		// next successful points write. Surface the failure regardless.
		log.Printf("Failed to award %d points to user %d after solve: %v", challenge.Points, userID, err)
		return SubmitResult{Status: SubmitError, Message: "Solve recorded but points update failed"}
	}

	for _, fn := range e.listeners {
		fn(userID, username, challenge, newTotal)
	}

	return SubmitResult{
		Status:        SubmitSolved,
		Message:       "Correct flag!",
		PointsAwarded: challenge.Points,
		NewTotal:      newTotal,
	}
}

// RevealHint records that the user unlocked a hint and returns its text.
// Revealing an already-revealed hint is a no-op that still returns the text.
func (e *ScoringEngine) RevealHint(userID, challengeID uint, hintIndex int) HintResult {
	if userID == 0 {
		return HintResult{Status: HintRejected, HintIndex: hintIndex, Message: "You must be signed in to reveal hints"}
	}

	challenge, err := e.store.GetChallenge(challengeID)
	if err != nil {
		if err == ErrNotFound {
			return HintResult{Status: HintNotFound, HintIndex: hintIndex, Message: "Challenge not found"}
		}
		log.Printf("Hint reveal failed loading challenge %d: %v", challengeID, err)
		return HintResult{Status: HintError, HintIndex: hintIndex, Message: "Something went wrong, please try again"}
	}

	hints := challenge.HintList()
	if hintIndex < 0 || hintIndex >= len(hints) {
		return HintResult{Status: HintRejected, HintIndex: hintIndex, Message: "No such hint"}
	}

	reveal := &models.HintReveal{
		UserID:      userID,
		ChallengeID: challengeID,
		HintIndex:   hintIndex,
		RevealedAt:  now(),
	}
	if err := e.store.CreateHintReveal(reveal); err != nil && err != ErrDuplicate {
		log.Printf("Hint reveal failed recording for user %d: %v", userID, err)
		return HintResult{Status: HintError, HintIndex: hintIndex, Message: "Something went wrong, please try again"}
	}

	// The text leaves the server only now that the reveal is recorded.
	return HintResult{Status: HintRevealed, HintIndex: hintIndex, Hint: hints[hintIndex]}
}

// RevealedHints lists the hint indexes the user has already unlocked for a
// challenge.
func (e *ScoringEngine) RevealedHints(userID, challengeID uint) ([]int, error) {
	if userID == 0 {
		return nil, nil
	}
	return e.store.RevealedHints(userID, challengeID)
}

// HasSolved reports whether the user already solved the challenge.
func (e *ScoringEngine) HasSolved(userID, challengeID uint) bool {
	if userID == 0 {
		return false
	}
	solved, err := e.store.HasSolve(userID, challengeID)
	if err != nil {
		log.Printf("Failed to check solve state for user %d: %v", userID, err)
		return false
	}
	return solved
}
