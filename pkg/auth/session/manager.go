package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/giftlane/giftlane-backend/pkg/config"
	redisclient "github.com/giftlane/giftlane-backend/pkg/redis"
)

const sessionIDBytes = 24

var ErrSessionNotFound = errors.New("guest session not found")

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	GuestSessionKey(sessionID string) string
}

// Manager issues and validates anonymous guest cart sessions. A session ID is
// the ownership key for guest cart lines until Merge re-owns them at login.
type Manager struct {
	store sessionStore
	keyer sessionKeyer
	ttl   time.Duration
}

// Checker exposes the read-only surface needed by middleware.
type Checker interface {
	Validate(ctx context.Context, sessionID string) error
}

// NewManager constructs a session manager backed by Redis.
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	ttl := cfg.GuestTTL()
	if ttl <= 0 {
		return nil, fmt.Errorf("guest session ttl must be positive")
	}
	return &Manager{
		store: client,
		keyer: client,
		ttl:   ttl,
	}, nil
}

// Issue creates a new guest session and returns its identifier.
func (m *Manager) Issue(ctx context.Context) (string, error) {
	sessionID, err := generateSessionID()
	if err != nil {
		return "", err
	}
	if err := m.store.Set(ctx, m.keyer.GuestSessionKey(sessionID), time.Now().UTC().Format(time.RFC3339), m.ttl); err != nil {
		return "", err
	}
	return sessionID, nil
}

// Validate checks that the session exists and has not expired.
func (m *Manager) Validate(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return ErrSessionNotFound
	}
	if _, err := m.store.Get(ctx, m.keyer.GuestSessionKey(sessionID)); err != nil {
		if errors.Is(err, redislib.Nil) {
			return ErrSessionNotFound
		}
		return err
	}
	return nil
}

// Touch renews the session TTL on cart activity.
func (m *Manager) Touch(ctx context.Context, sessionID string) error {
	if err := m.Validate(ctx, sessionID); err != nil {
		return err
	}
	return m.store.Set(ctx, m.keyer.GuestSessionKey(sessionID), time.Now().UTC().Format(time.RFC3339), m.ttl)
}

// Revoke removes the session, typically after a cart merge at login.
func (m *Manager) Revoke(ctx context.Context, sessionID string) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("session id is required")
	}
	return m.store.Del(ctx, m.keyer.GuestSessionKey(sessionID))
}

func generateSessionID() (string, error) {
	bytes := make([]byte, sessionIDBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generating session id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
