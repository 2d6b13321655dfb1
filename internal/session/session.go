// Package session holds the process-wide bearer credential used for every
// call to the remote service.
package session

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNoCredential indicates that no bearer credential has been established.
var ErrNoCredential = errors.New("session: no credential")

// Store persists the credential across restarts.
type Store interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, token string) error
	Delete(ctx context.Context) error
}

// Session is safe for concurrent use.
type Session struct {
	mu    sync.RWMutex
	token string
	store Store
}

// New returns a session backed by store. A nil store keeps the credential
// in memory only.
func New(store Store) *Session {
	return &Session{store: store}
}

// Load initialises the credential from the store. A missing entry leaves the
// session empty without error.
func (s *Session) Load(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	token, err := s.store.Get(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

// Begin installs the credential issued by the auth collaborator.
func (s *Session) Begin(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrNoCredential
	}
	if s.store != nil {
		if err := s.store.Set(ctx, token); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
	return nil
}

// Clear drops the credential (logout).
func (s *Session) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	if s.store == nil {
		return nil
	}
	return s.store.Delete(ctx)
}

// Token returns the current credential.
func (s *Session) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token, s.token != ""
}

// Authorize attaches the bearer credential to r.
func (s *Session) Authorize(r *http.Request) error {
	token, ok := s.Token()
	if !ok {
		return ErrNoCredential
	}
	r.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// RedisStore keeps the credential under a single key.
type RedisStore struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisStore constructs a RedisStore. A zero ttl stores without expiry.
func NewRedisStore(client *redis.Client, key string, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, key: key, ttl: ttl}
}

// Get returns the stored credential or an empty string when none is stored.
func (s *RedisStore) Get(ctx context.Context) (string, error) {
	token, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return token, err
}

// Set stores the credential.
func (s *RedisStore) Set(ctx context.Context, token string) error {
	return s.client.Set(ctx, s.key, token, s.ttl).Err()
}

// Delete removes the credential.
func (s *RedisStore) Delete(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}
