package session

import (
	"context"
	"errors"
	"strings"
	"time"

	redisclient "github.com/angelmondragon/repairdesk-backend/pkg/redis"
	"github.com/google/uuid"
)

var errBlankAccessID = errors.New("access id is required")

type store interface {
	StoreSession(ctx context.Context, accessID, userID string, ttl time.Duration) error
	SessionExists(ctx context.Context, accessID string) (bool, error)
	DeleteSession(ctx context.Context, accessID string) error
}

// AccessSessionChecker is what the auth middleware needs: is this jti still live.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// Manager tracks issued access tokens by jti so logout can revoke a token
// before it expires.
type Manager struct {
	store store
	ttl   time.Duration
}

// NewManager builds a manager whose sessions live as long as an access token (ttl).
func NewManager(client *redisclient.Client, ttl time.Duration) (*Manager, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if ttl <= 0 {
		return nil, errors.New("session ttl must be positive")
	}
	return &Manager{store: client, ttl: ttl}, nil
}

func (m *Manager) Start(ctx context.Context, accessID string, userID uuid.UUID) error {
	if strings.TrimSpace(accessID) == "" {
		return errBlankAccessID
	}
	return m.store.StoreSession(ctx, accessID, userID.String(), m.ttl)
}

func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return errBlankAccessID
	}
	return m.store.DeleteSession(ctx, accessID)
}

func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, errBlankAccessID
	}
	return m.store.SessionExists(ctx, accessID)
}

// NewAccessID returns a fresh jti.
func NewAccessID() string {
	return uuid.NewString()
}
