package redisclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"inventory-ledger/internal/auth"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ErrLockTimeout is returned when a lock could not be acquired before ctx ended
var ErrLockTimeout = errors.New("timed out waiting for lock")

// releaseLockScript deletes the lock only if it still holds our token
var releaseLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

const lockRetryInterval = 25 * time.Millisecond

type Client struct {
	rdb     *redis.Client
	lockTTL time.Duration
}

// NewClient creates a new Redis client and checks the connection
func NewClient(addr, password string, db int, lockTTL time.Duration) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	if lockTTL <= 0 {
		lockTTL = 10 * time.Second
	}

	return &Client{rdb: rdb, lockTTL: lockTTL}, nil
}

// GetClient returns the underlying Redis client
func (c *Client) GetClient() *redis.Client {
	return c.rdb
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Lock blocks until the named lock is held or ctx is done. The returned
// function releases it; releasing after the TTL expired is a no-op.
func (c *Client) Lock(ctx context.Context, name string) (func(context.Context) error, error) {
	key := fmt.Sprintf("lock:%s", name)
	token := uuid.NewString()

	ticker := time.NewTicker(lockRetryInterval)
	defer ticker.Stop()

	for {
		ok, err := c.rdb.SetNX(ctx, key, token, c.lockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", name, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, name)
		case <-ticker.C:
		}
	}

	release := func(ctx context.Context) error {
		if err := releaseLockScript.Run(ctx, c.rdb, []string{key}, token).Err(); err != nil {
			return fmt.Errorf("release lock %s: %w", name, err)
		}
		return nil
	}
	return release, nil
}

// SessionStore keeps login sessions in Redis so they survive restarts and
// are shared between server instances.
type SessionStore struct {
	client *Client
}

// NewSessionStore creates a session store on top of client
func NewSessionStore(client *Client) *SessionStore {
	return &SessionStore{client: client}
}

func sessionKey(token string) string {
	return fmt.Sprintf("session:%s", token)
}

// Save stores s under its token; ttl 0 means no expiry
func (s *SessionStore) Save(ctx context.Context, sess *auth.Session, ttl time.Duration) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.client.rdb.Set(ctx, sessionKey(sess.Token), data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Get returns the session for token or auth.ErrSessionNotFound
func (s *SessionStore) Get(ctx context.Context, token string) (*auth.Session, error) {
	data, err := s.client.rdb.Get(ctx, sessionKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, auth.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var sess auth.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &sess, nil
}

// Delete removes the session for token
func (s *SessionStore) Delete(ctx context.Context, token string) error {
	n, err := s.client.rdb.Del(ctx, sessionKey(token)).Result()
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	if n == 0 {
		return auth.ErrSessionNotFound
	}
	return nil
}
