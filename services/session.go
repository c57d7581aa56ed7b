// services/session.go - SessionManager
//
// The SessionManager is the single authority on who is signed in, whether they
// are an admin, and how long until inactivity signs them out. All session
// state lives here; handlers and middleware only go through its methods.
package services

import (
	"log"
	"net/mail"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"flagforge/models"
)

// DefaultInactivityTimeout signs a session out after 30 minutes without a
// qualifying request.
const DefaultInactivityTimeout = 30 * time.Minute

const tokenTTL = 24 * time.Hour

// SessionEvent describes a session lifecycle transition, delivered to
// subscribers registered with Subscribe.
type SessionEvent string

const (
	EventSignedIn  SessionEvent = "signed_in"
	EventSignedOut SessionEvent = "signed_out"
	EventExpired   SessionEvent = "expired"
)

// Session is the live state for one signed-in user. The profile snapshot is
// hydrated from the store and refreshed on demand; IsAdmin is derived from it
// and from nothing else. A nil profile always reads as non-admin.
type Session struct {
	Token        string
	UserID       uint
	Username     string
	Profile      *models.User
	IsAdmin      bool
	CreatedAt    time.Time
	LastActivity time.Time

	// gen guards against stale async work: any teardown bumps it, and
	// in-flight profile refreshes check it before applying their result.
	gen   uint64
	timer *time.Timer
}

// SessionManager owns every live session and its inactivity timer.
type SessionManager struct {
	mu       sync.Mutex
	users    UserStore
	sessions map[string]*Session
	timeout  time.Duration
	secret   []byte
	subs     []func(SessionEvent, uint)
}

// NewSessionManager creates a manager with the given inactivity timeout.
// A zero timeout falls back to DefaultInactivityTimeout.
func NewSessionManager(users UserStore, timeout time.Duration) *SessionManager {
	if timeout <= 0 {
		timeout = DefaultInactivityTimeout
	}
	secret := os.Getenv("JWT_SECRET")
	return &SessionManager{
		users:    users,
		sessions: make(map[string]*Session),
		timeout:  timeout,
		secret:   []byte(secret),
	}
}

// Subscribe registers a callback for session lifecycle events. Callbacks run
// outside the manager lock and must not block.
func (m *SessionManager) Subscribe(fn func(SessionEvent, uint)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
}

func (m *SessionManager) notify(event SessionEvent, userID uint) {
	m.mu.Lock()
	subs := make([]func(SessionEvent, uint), len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	for _, fn := range subs {
		fn(event, userID)
	}
}

// SignIn authenticates the credentials, issues a token and registers the
// session with a fresh inactivity timer. The returned user snapshot is the
// hydrated profile.
func (m *SessionManager) SignIn(email, password string) (string, *models.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return "", nil, ErrValidation
	}

	user, err := m.users.FindByEmail(email)
	if err != nil {
		if err == ErrNotFound {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	if user.IsBanned {
		return "", nil, ErrUserBanned
	}

	token, err := m.generateToken(user)
	if err != nil {
		return "", nil, err
	}

	// Last-login bookkeeping is best effort.
	if err := m.users.Update(user.ID, map[string]interface{}{"last_login": now()}); err != nil {
		log.Printf("Failed to record last login for user %d: %v", user.ID, err)
	}

	session := &Session{
		Token:        token,
		UserID:       user.ID,
		Username:     user.Username,
		Profile:      user,
		IsAdmin:      user.IsAdmin,
		CreatedAt:    now(),
		LastActivity: now(),
	}

	m.mu.Lock()
	m.sessions[token] = session
	m.scheduleExpiry(session)
	m.mu.Unlock()

	m.notify(EventSignedIn, user.ID)
	return token, user, nil
}

// SignUp registers a new account. It never signs the user in: the caller must
// go through SignIn afterwards. Username uniqueness is checked before the
// create; the unique index remains the backstop for the race in between.
func (m *SessionManager) SignUp(email, password, username string) (*models.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	username = strings.TrimSpace(username)

	if _, err := mail.ParseAddress(email); err != nil {
		return nil, ErrValidation
	}
	if len(username) < 3 || len(username) > 30 {
		return nil, ErrValidation
	}
	if len(password) < 6 {
		return nil, ErrValidation
	}

	// Pre-checks so the common conflicts fail before the account create.
	if _, err := m.users.FindByUsername(username); err == nil {
		return nil, ErrUsernameTaken
	} else if err != ErrNotFound {
		return nil, err
	}
	if _, err := m.users.FindByEmail(email); err == nil {
		return nil, ErrEmailTaken
	} else if err != ErrNotFound {
		return nil, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:  username,
		Email:     email,
		Password:  string(hashed),
		CreatedAt: now(),
	}

	if err := m.users.Create(user); err != nil {
		if err == ErrDuplicate {
			return nil, ErrUsernameTaken
		}
		return nil, err
	}

	return user, nil
}

// SignOut tears the session down unconditionally. Local state is cleared
// first; nothing that happens afterwards can leave a live session behind.
func (m *SessionManager) SignOut(token string) {
	m.mu.Lock()
	session, ok := m.sessions[token]
	if ok {
		m.teardownLocked(session)
	}
	m.mu.Unlock()

	if ok {
		m.notify(EventSignedOut, session.UserID)
	}
}

// teardownLocked removes the session and cancels its timer. Callers hold mu.
func (m *SessionManager) teardownLocked(session *Session) {
	session.gen++
	if session.timer != nil {
		session.timer.Stop()
		session.timer = nil
	}
	session.Profile = nil
	session.IsAdmin = false
	delete(m.sessions, session.Token)
}

// Get returns the live session for a token, or nil.
func (m *SessionManager) Get(token string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[token]
}

// Current returns the session's user id and admin flag. The boolean reports
// whether the session is live at all.
func (m *SessionManager) Current(token string) (uint, bool, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[token]
	if !ok {
		return 0, false, false
	}
	return session.UserID, session.IsAdmin, true
}

// Profile returns a copy of the hydrated profile snapshot, or nil when
// hydration has not happened or previously failed.
func (m *SessionManager) Profile(token string) *models.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[token]
	if !ok || session.Profile == nil {
		return nil
	}
	copied := *session.Profile
	return &copied
}

// Touch resets the inactivity countdown. It is called for every authenticated
// request and by the explicit activity endpoint. Touching an unknown token is
// a no-op.
func (m *SessionManager) Touch(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	session, ok := m.sessions[token]
	if !ok {
		return
	}
	session.LastActivity = now()
	m.scheduleExpiry(session)
}

// scheduleExpiry cancels any pending timer and arms a fresh one, so at most
// one timer is pending per session. Callers hold mu.
func (m *SessionManager) scheduleExpiry(session *Session) {
	if session.timer != nil {
		session.timer.Stop()
	}
	token := session.Token
	gen := session.gen
	session.timer = time.AfterFunc(m.timeout, func() {
		m.expire(token, gen)
	})
}

// expire handles a fired inactivity timer. The generation check discards
// firings that lost a race with sign-out or a concurrent reschedule.
func (m *SessionManager) expire(token string, gen uint64) {
	m.mu.Lock()
	session, ok := m.sessions[token]
	if !ok || session.gen != gen {
		m.mu.Unlock()
		return
	}

	if remaining := m.timeout - time.Since(session.LastActivity); remaining > 0 {
		// Activity superseded this firing; push the deadline out. Stop any
		// timer a concurrent Touch armed so only one stays pending.
		if session.timer != nil {
			session.timer.Stop()
		}
		token := session.Token
		session.timer = time.AfterFunc(remaining, func() {
			m.expire(token, gen)
		})
		m.mu.Unlock()
		return
	}

	m.teardownLocked(session)
	m.mu.Unlock()

	log.Printf("Session for user %d expired after inactivity", session.UserID)
	m.notify(EventExpired, session.UserID)
}

// RefreshProfile re-reads the profile row and recomputes IsAdmin from it.
// Point totals and admin flags are never patched locally, so this must run
// after any action that changes them. A fetch failure leaves the session
// authenticated but role-unknown, which reads as non-admin everywhere.
func (m *SessionManager) RefreshProfile(token string) *models.User {
	m.mu.Lock()
	session, ok := m.sessions[token]
	if !ok {
		m.mu.Unlock()
		return nil
	}
	userID := session.UserID
	gen := session.gen
	m.mu.Unlock()

	user, err := m.users.FindByID(userID)

	m.mu.Lock()
	defer m.mu.Unlock()

	// The fetch ran unlocked; only apply it if this session is still the
	// one that asked. A sign-out in between must not be resurrected.
	session, ok = m.sessions[token]
	if !ok || session.gen != gen {
		return nil
	}

	if err != nil {
		log.Printf("Failed to refresh profile for user %d: %v", userID, err)
		session.Profile = nil
		session.IsAdmin = false
		return nil
	}

	session.Profile = user
	session.IsAdmin = user.IsAdmin
	copied := *user
	return &copied
}

// ProfileUpdate is the set of fields a user may change on their own profile.
type ProfileUpdate struct {
	DisplayName *string `json:"display_name"`
	Bio         *string `json:"bio"`
}

// UpdateProfile applies a partial update to the calling session's own profile
// and refreshes the snapshot so the change is immediately visible.
func (m *SessionManager) UpdateProfile(token string, update ProfileUpdate) (*models.User, error) {
	m.mu.Lock()
	session, ok := m.sessions[token]
	if !ok {
		m.mu.Unlock()
		return nil, ErrNotAuthenticated
	}
	userID := session.UserID
	m.mu.Unlock()

	fields := map[string]interface{}{}
	if update.DisplayName != nil {
		fields["display_name"] = strings.TrimSpace(*update.DisplayName)
	}
	if update.Bio != nil {
		fields["bio"] = strings.TrimSpace(*update.Bio)
	}
	if len(fields) == 0 {
		return nil, ErrValidation
	}

	if err := m.users.Update(userID, fields); err != nil {
		return nil, err
	}

	if user := m.RefreshProfile(token); user != nil {
		return user, nil
	}
	return nil, ErrNotAuthenticated
}

// ActiveSessions reports how many sessions are currently live.
func (m *SessionManager) ActiveSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *SessionManager) generateToken(user *models.User) (string, error) {
	claims := jwt.MapClaims{
		"user_id":  user.ID,
		"username": user.Username,
		"jti":      uuid.New().String(),
		"iat":      now().Unix(),
		"exp":      now().Add(tokenTTL).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}
