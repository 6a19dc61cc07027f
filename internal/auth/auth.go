package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Role of an authenticated principal
type Role string

const (
	RoleNone  Role = ""
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

var (
	// ErrAuthRequired is returned when an operation runs without a logged-in session
	ErrAuthRequired = errors.New("login required")

	// ErrAdminRequired is returned when a non-admin session attempts a catalog mutation
	ErrAdminRequired = errors.New("admin access required")

	// ErrInvalidCredentials is returned when no credential table matches
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSessionNotFound is returned by session stores for unknown or expired tokens
	ErrSessionNotFound = errors.New("session not found")
)

// Session is the caller's identity, passed explicitly into every operation.
// The zero value is an anonymous session.
type Session struct {
	Token     string    `json:"token"`
	Principal string    `json:"principal"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Anonymous returns a session with no principal
func Anonymous() *Session {
	return &Session{}
}

// LoggedIn reports whether the session belongs to a principal
func (s *Session) LoggedIn() bool {
	return s != nil && s.Principal != ""
}

// IsAdmin reports whether the session has the admin role
func (s *Session) IsAdmin() bool {
	return s.LoggedIn() && s.Role == RoleAdmin
}

// RequireLoggedIn gates every read, sale and mutation
func RequireLoggedIn(s *Session) error {
	if !s.LoggedIn() {
		return ErrAuthRequired
	}
	return nil
}

// RequireAdmin gates catalog mutations; callers check RequireLoggedIn first
func RequireAdmin(s *Session) error {
	if !s.IsAdmin() {
		return ErrAdminRequired
	}
	return nil
}

// Credentials are the username/password tables per role
type Credentials struct {
	Admins map[string]string `yaml:"admins"`
	Users  map[string]string `yaml:"users"`
}

// SessionStore keeps issued sessions by token
type SessionStore interface {
	Save(ctx context.Context, s *Session, ttl time.Duration) error
	Get(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) error
}

// Guard authenticates principals and resolves bearer tokens to sessions
type Guard struct {
	creds    Credentials
	sessions SessionStore
	ttl      time.Duration
	now      func() time.Time
}

// NewGuard creates a guard. A zero ttl keeps sessions until logout.
func NewGuard(creds Credentials, sessions SessionStore, ttl time.Duration) *Guard {
	return &Guard{
		creds:    creds,
		sessions: sessions,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Authenticate checks the admin table, then the user table, and returns the
// role of the first match.
func (g *Guard) Authenticate(username, password string) (Role, error) {
	if match(g.creds.Admins, username, password) {
		return RoleAdmin, nil
	}
	if match(g.creds.Users, username, password) {
		return RoleUser, nil
	}
	return RoleNone, ErrInvalidCredentials
}

// Login authenticates and issues a new session
func (g *Guard) Login(ctx context.Context, username, password string) (*Session, error) {
	role, err := g.Authenticate(username, password)
	if err != nil {
		return nil, err
	}

	sess := &Session{
		Token:     uuid.New().String(),
		Principal: username,
		Role:      role,
		CreatedAt: g.now(),
	}
	if err := g.sessions.Save(ctx, sess, g.ttl); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	return sess, nil
}

// Logout drops the session behind token. Unknown tokens are not an error.
func (g *Guard) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	err := g.sessions.Delete(ctx, token)
	if err != nil && !errors.Is(err, ErrSessionNotFound) {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Resolve maps a bearer token to its session. Missing or unknown tokens give
// an anonymous session so the operation itself reports ErrAuthRequired.
func (g *Guard) Resolve(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return Anonymous(), nil
	}
	sess, err := g.sessions.Get(ctx, token)
	if errors.Is(err, ErrSessionNotFound) {
		return Anonymous(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return sess, nil
}

func match(table map[string]string, username, password string) bool {
	want, ok := table[username]
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(want), []byte(password)) == 1
}
